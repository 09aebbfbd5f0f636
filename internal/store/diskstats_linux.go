//go:build linux

package store

import "syscall"

// diskStats returns the bytes available to an unprivileged process (Bavail,
// not Bfree) and the total size of the filesystem holding path.
func diskStats(path string) (avail, total uint64) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return 0, 0
	}
	bsize := uint64(st.Bsize)
	return st.Bavail * bsize, st.Blocks * bsize
}
