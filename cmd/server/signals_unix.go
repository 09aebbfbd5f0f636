//go:build !windows

package main

import "syscall"

func init() {
	// Container runtimes stop the service with SIGTERM.
	shutdownSignals = append(shutdownSignals, syscall.SIGTERM)
}
