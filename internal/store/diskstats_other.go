//go:build !linux

package store

// diskStats is unavailable off Linux; callers treat (0, 0) as unknown.
func diskStats(_ string) (avail, total uint64) { return 0, 0 }
