package main

import "os"

// shutdownSignals lists the OS signals that stop the server.
// SIGTERM is appended by signals_unix.go on non-Windows platforms.
var shutdownSignals = []os.Signal{os.Interrupt}
