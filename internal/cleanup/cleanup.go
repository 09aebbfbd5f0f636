// Package cleanup reclaims staging directories left behind by enrollments
// that never reached their commit or deferred removal, typically because the
// process was killed mid-request.
package cleanup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Sweeper removes staging entries older than TTL.
type Sweeper struct {
	Dir    string
	TTL    time.Duration
	Logger *slog.Logger

	now func() time.Time
}

// NewSweeper returns a Sweeper for dir.
func NewSweeper(dir string, ttl time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{Dir: dir, TTL: ttl, Logger: logger, now: time.Now}
}

// Sweep makes one pass and returns the number of entries removed.
// Live enrollments finish in well under any sensible TTL, so anything older
// is abandoned; entries younger than TTL are never touched.
func (s *Sweeper) Sweep() int {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.Logger.Warn("cleanup: readdir failed", "dir", s.Dir, "err", err)
		}
		return 0
	}

	cutoff := s.now().Add(-s.TTL)
	var removed int
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.Dir, e.Name())); err != nil {
			s.Logger.Warn("cleanup: remove failed", "entry", e.Name(), "err", err)
			continue
		}
		removed++
		s.Logger.Info("cleanup: removed stale staging entry",
			"entry", e.Name(), "age", s.now().Sub(info.ModTime()).Round(time.Second))
	}
	if removed > 0 {
		s.Logger.Info("cleanup: cycle complete", "removed", removed)
	}
	return removed
}

// Run sweeps once immediately, to flush leftovers from a previous run, and
// then on every interval until ctx is cancelled. It blocks; start it in a
// goroutine.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	s.Sweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
