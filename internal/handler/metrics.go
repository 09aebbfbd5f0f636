package handler

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// Metrics holds process-lifetime atomic counters exposed at GET /metrics.
type Metrics struct {
	EnrollmentsTotal   atomic.Int64 // POST /enroll requests that passed auth
	EnrollmentsOK      atomic.Int64 // batches committed
	ValidationFailures atomic.Int64 // 400s: bad body, wrong count, unsafe key
	StorageFailures    atomic.Int64 // 500s: decode or filesystem errors
	ImagesWritten      atomic.Int64 // image files committed
	BytesWritten       atomic.Int64 // decoded image bytes committed
	LedgerErrors       atomic.Int64 // ledger writes that failed after a commit
}

// metricsHandler serialises the current counter snapshot as a flat JSON
// object. activeFunc reports in-flight enrollments from the limiter.
func (m *Metrics) metricsHandler(activeFunc func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int64{ //nolint:errcheck
			"enrollments_total":   m.EnrollmentsTotal.Load(),
			"enrollments_ok":      m.EnrollmentsOK.Load(),
			"validation_failures": m.ValidationFailures.Load(),
			"storage_failures":    m.StorageFailures.Load(),
			"images_written":      m.ImagesWritten.Load(),
			"bytes_written":       m.BytesWritten.Load(),
			"ledger_errors":       m.LedgerErrors.Load(),
			"active_enrollments":  int64(activeFunc()),
		})
	}
}
