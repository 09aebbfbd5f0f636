package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local stores enrollment images on the local filesystem under a root directory.
//
// Paths passed to its methods are logical, slash-separated and relative to
// the root; anything that would resolve outside the root is rejected.
// Permission bits are ignored on Windows, where ACLs govern access.
type Local struct {
	root string
}

// NewLocal creates a Local backend rooted at root, creating the directory if needed.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root %q: %w", root, err)
	}
	// Absolute so the filepath.Rel containment check in abs is stable.
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	return &Local{root: absRoot}, nil
}

// Root returns the absolute storage root.
func (l *Local) Root() string { return l.root }

// abs resolves a logical path to a filesystem path under root.
// No separator is prepended before Clean: on Windows filepath.Join(root, `\x`)
// would discard root.
func (l *Local) abs(path string) (string, error) {
	joined := filepath.Join(l.root, filepath.Clean(filepath.FromSlash(path)))
	rel, err := filepath.Rel(l.root, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes storage root", path)
	}
	return joined, nil
}

// Write streams r to path using a temp file and an atomic rename.
func (l *Local) Write(path string, r io.Reader) (int64, error) {
	dest, err := l.abs(path)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return 0, fmt.Errorf("mkdir %q: %w", filepath.Dir(dest), err)
	}

	f, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create tmp for %q: %w", dest, err)
	}
	tmp := f.Name()

	n, werr := io.Copy(f, r)
	cerr := f.Close()

	if werr != nil {
		os.Remove(tmp) //nolint:errcheck
		return 0, fmt.Errorf("stream write: %w", werr)
	}
	if cerr != nil {
		os.Remove(tmp) //nolint:errcheck
		return 0, fmt.Errorf("flush: %w", cerr)
	}
	if err := os.Chmod(tmp, 0o640); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return 0, fmt.Errorf("chmod %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return 0, fmt.Errorf("rename to %q: %w", dest, err)
	}
	return n, nil
}

// Read opens path for sequential reading. Caller must close the returned ReadCloser.
func (l *Local) Read(path string) (io.ReadCloser, int64, error) {
	abs, err := l.abs(path)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// Delete removes path recursively. Silently succeeds on ENOENT.
func (l *Local) Delete(path string) error {
	abs, err := l.abs(path)
	if err != nil {
		return err
	}
	if abs == l.root {
		return fmt.Errorf("refusing to delete storage root")
	}
	if err := os.RemoveAll(abs); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists reports whether path exists under root.
func (l *Local) Exists(path string) (bool, error) {
	abs, err := l.abs(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(abs)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// Rename moves src to dst, replacing dst. On Windows os.Rename uses
// MOVEFILE_REPLACE_EXISTING, which is safe on the same volume.
func (l *Local) Rename(src, dst string) error {
	absSrc, err := l.abs(src)
	if err != nil {
		return err
	}
	absDst, err := l.abs(dst)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absDst), 0o750); err != nil {
		return err
	}
	return os.Rename(absSrc, absDst)
}

// MkdirAll creates path and all parents under root.
func (l *Local) MkdirAll(path string) error {
	abs, err := l.abs(path)
	if err != nil {
		return err
	}
	return os.MkdirAll(abs, 0o750)
}

// DiskStats reports available and total bytes on the filesystem holding the
// root. (0, 0) means the numbers are unavailable on this platform.
func (l *Local) DiskStats() (avail, total uint64) {
	return diskStats(l.root)
}
