package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/zynqcloud/face-enroll/internal/auth"
	"github.com/zynqcloud/face-enroll/internal/config"
	"github.com/zynqcloud/face-enroll/internal/httpx"
	"github.com/zynqcloud/face-enroll/internal/identity"
	"github.com/zynqcloud/face-enroll/internal/ledger"
	"github.com/zynqcloud/face-enroll/internal/middleware"
	"github.com/zynqcloud/face-enroll/internal/store"
)

// Ledger is the subset of *ledger.Ledger the handlers use.
type Ledger interface {
	Record(ctx context.Context, e ledger.Entry) error
	Get(ctx context.Context, group, key string) (ledger.Entry, error)
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers need. Ledger may be nil.
type Deps struct {
	Auth     auth.Authenticator
	Resolver *identity.Resolver
	Enroller *store.Enroller
	Storage  *store.Local
	Ledger   Ledger
}

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	cfg      *config.Config
	auth     auth.Authenticator
	resolver *identity.Resolver
	enroller *store.Enroller
	storage  *store.Local
	ledger   Ledger
	logger   *slog.Logger
	metrics  *Metrics
}

// New registers all routes and returns the root http.Handler.
// Uses Go 1.22 method+path patterns; no external router needed.
//
// Middleware stack (outer → inner):
//
//	CORS → RequestID → RequestLog → Recover → ServeMux → BearerAuth → EnrollLimiter → handler
func New(cfg *config.Config, deps Deps, logger *slog.Logger) http.Handler {
	resolver := deps.Resolver
	if resolver == nil {
		resolver = identity.NewResolver(cfg.InstitutionDomain)
	}
	h := &Handler{
		cfg:      cfg,
		auth:     deps.Auth,
		resolver: resolver,
		enroller: deps.Enroller,
		storage:  deps.Storage,
		ledger:   deps.Ledger,
		logger:   logger,
		metrics:  &Metrics{},
	}

	bearer := middleware.BearerAuth(deps.Auth, logger)
	operator := middleware.ServiceToken(cfg.ServiceToken)
	limiter := middleware.NewEnrollLimiter(cfg.MaxConcurrentEnrollments)

	mux := http.NewServeMux()

	// POST /enroll
	//   Header: Authorization: Bearer <Firebase ID token>
	//   Body:   {"images": [five base64 or data-URL strings]}
	mux.Handle("POST /enroll", bearer(limiter.Limit(http.HandlerFunc(h.Enroll))))
	mux.Handle("GET /enroll/status", bearer(http.HandlerFunc(h.Status)))

	// GET /health is a liveness probe; readiness and metrics expose internal
	// state and sit behind the operator token.
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{Status: httpx.StatusSuccess, Message: "ok"})
	})
	mux.Handle("GET /healthz/ready", operator(http.HandlerFunc(h.Readiness)))
	mux.Handle("GET /metrics", operator(h.metrics.metricsHandler(limiter.Active)))

	var root http.Handler = mux
	root = middleware.Recover(logger)(root)
	root = middleware.RequestLog(logger)(root)
	root = middleware.RequestID()(root)
	root = middleware.CORS(cfg.CORSOrigins)(root)
	return root
}

// Readiness returns 200 when the service can accept enrollments, 503 when it
// cannot. Checks: storage root accessible, free disk ≥ cfg.MinFreeBytes
// (Linux only), ledger reachable (when configured).
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	type check struct {
		Name string `json:"name"`
		OK   bool   `json:"ok"`
		Msg  string `json:"msg,omitempty"`
	}
	var checks []check
	allOK := true

	if h.storage == nil {
		checks = append(checks, check{"storage_accessible", false, "not configured"})
		allOK = false
	} else if _, err := os.Stat(h.storage.Root()); err != nil {
		checks = append(checks, check{"storage_accessible", false, "stat failed"})
		allOK = false
	} else {
		checks = append(checks, check{"storage_accessible", true, ""})

		// (0, 0) means stats are unavailable; skip rather than false-alarm.
		avail, total := h.storage.DiskStats()
		if total > 0 {
			if avail < uint64(h.cfg.MinFreeBytes) {
				checks = append(checks, check{"disk_space", false,
					fmt.Sprintf("%d MB free, need %d MB", avail>>20, h.cfg.MinFreeBytes>>20)})
				allOK = false
			} else {
				checks = append(checks, check{"disk_space", true,
					fmt.Sprintf("%d MB free of %d MB", avail>>20, total>>20)})
			}
		}
	}

	if h.ledger != nil {
		if err := h.ledger.Ping(r.Context()); err != nil {
			checks = append(checks, check{"ledger", false, "ping failed"})
			allOK = false
		} else {
			checks = append(checks, check{"ledger", true, ""})
		}
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, map[string]any{"ready": allOK, "checks": checks})
}
