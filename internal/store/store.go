package store

import "io"

// Backend abstracts the medium enrollment files are written to.
// Enroller only ever talks to a Backend, so a failing or remote backend can be
// substituted without touching the staging logic.
type Backend interface {
	// Write streams r to path, returning bytes written.
	// Implementations must be atomic per file: either the full write succeeds
	// or nothing is persisted at path.
	Write(path string, r io.Reader) (int64, error)

	// Read opens path for streaming. Caller must close the returned ReadCloser.
	Read(path string) (rc io.ReadCloser, size int64, err error)

	// Delete removes path recursively. Silently succeeds if path does not exist.
	Delete(path string) error

	// Exists reports whether path exists in the backend.
	Exists(path string) (bool, error)

	// Rename moves src to dst, replacing dst if present.
	Rename(src, dst string) error

	// MkdirAll creates path and all parents.
	MkdirAll(path string) error
}
