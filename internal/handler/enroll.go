package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/zynqcloud/face-enroll/internal/apperr"
	"github.com/zynqcloud/face-enroll/internal/auth"
	"github.com/zynqcloud/face-enroll/internal/httpx"
	"github.com/zynqcloud/face-enroll/internal/ledger"
	"github.com/zynqcloud/face-enroll/internal/middleware"
	"github.com/zynqcloud/face-enroll/internal/store"
)

const tracerName = "github.com/zynqcloud/face-enroll/internal/handler"

// MsgImagesSaved is the success message for POST /enroll.
const MsgImagesSaved = "Images saved"

type enrollRequest struct {
	Images json.RawMessage `json:"images"`
}

// Enroll saves a five-angle image batch for the authenticated caller.
//
// POST /enroll
// Body: {"images": ["data:image/jpeg;base64,…", … ×5]}
//
// Images are assigned to angles strictly by position:
// frontal, left, right, up, down.
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	h.metrics.EnrollmentsTotal.Add(1)

	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// BearerAuth always runs first; reaching here is a wiring bug.
		h.fail(w, r, apperr.New(apperr.KindAuth, middleware.MsgNoEmail))
		return
	}
	group, key := h.resolver.Resolve(id.Email)
	requestID := middleware.RequestIDFromContext(r.Context())

	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(tracerName).Start(ctx, "enroll",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("enroll.group", group),
			attribute.String("enroll.key", key),
		))
	defer span.End()
	r = r.WithContext(ctx)

	h.logger.Info("enrollment request",
		"email", id.Email, "group", group, "key", key, "request_id", requestID)

	images, err := h.decodeImages(w, r)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		h.fail(w, r, err)
		return
	}

	res, err := h.enroller.Enroll(ctx, group, key, images)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.Message(err))
		h.fail(w, r, err)
		return
	}

	h.metrics.EnrollmentsOK.Add(1)
	h.metrics.ImagesWritten.Add(int64(len(res.Files)))
	h.metrics.BytesWritten.Add(res.Bytes)
	span.SetAttributes(attribute.Int64("enroll.bytes", res.Bytes))

	if h.ledger != nil {
		err := h.ledger.Record(ctx, ledger.Entry{
			Group:      group,
			Key:        key,
			Email:      id.Email,
			Images:     len(res.Files),
			Bytes:      res.Bytes,
			RequestID:  requestID,
			EnrolledAt: time.Now(),
		})
		if err != nil {
			// The images are the source of truth; a ledger miss is recoverable.
			h.metrics.LedgerErrors.Add(1)
			h.logger.Warn("ledger record failed", "group", group, "key", key, "err", err)
		}
	}

	h.logger.Info("enrollment saved",
		"group", group, "key", key, "images", len(res.Files), "bytes", res.Bytes, "request_id", requestID)
	httpx.WriteSuccess(w, MsgImagesSaved)
}

// decodeImages parses the request body into the raw image strings.
// Count validation is left to the enroller.
func (h *Handler) decodeImages(w http.ResponseWriter, r *http.Request) ([]string, error) {
	body := http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)

	var req enrollRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.Newf(apperr.KindValidation, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, apperr.New(apperr.KindValidation, "invalid JSON body")
	}
	if len(req.Images) == 0 || string(req.Images) == "null" {
		return nil, apperr.New(apperr.KindValidation, "'images' missing")
	}

	var images []string
	if err := json.Unmarshal(req.Images, &images); err != nil {
		return nil, apperr.New(apperr.KindValidation, "'images' must be an array of strings")
	}
	return images, nil
}

// fail records err against the metrics, logs it and writes the envelope.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindValidation:
		h.metrics.ValidationFailures.Add(1)
	case apperr.KindIO:
		h.metrics.StorageFailures.Add(1)
	}
	level := h.logger.Info
	if kind == apperr.KindIO {
		level = h.logger.Error
	}
	level("enrollment failed",
		"kind", kind.String(),
		"err", err,
		"request_id", middleware.RequestIDFromContext(r.Context()),
	)
	httpx.WriteError(w, err)
}

// StatusResponse is returned by GET /enroll/status.
type StatusResponse struct {
	httpx.Envelope
	Group      string     `json:"group"`
	Key        string     `json:"key"`
	Enrolled   bool       `json:"enrolled"`
	Angles     []string   `json:"angles"`
	EnrolledAt *time.Time `json:"enrolled_at,omitempty"`
	Count      int        `json:"enroll_count,omitempty"`
}

// Status reports whether the caller has a complete enrollment on disk and,
// when the ledger is configured, when it was last saved.
//
// GET /enroll/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, apperr.New(apperr.KindAuth, middleware.MsgNoEmail))
		return
	}
	group, key := h.resolver.Resolve(id.Email)

	resp := StatusResponse{
		Envelope: httpx.Envelope{Status: httpx.StatusSuccess},
		Group:    group,
		Key:      key,
		Angles:   []string{},
	}
	if key != "" && h.storage != nil {
		for _, angle := range store.Angles {
			ok, err := h.storage.Exists(group + "/" + key + "/" + angle + ".jpg")
			if err != nil {
				// Unsafe keys cannot have been enrolled.
				break
			}
			if ok {
				resp.Angles = append(resp.Angles, angle)
			}
		}
	}
	resp.Enrolled = len(resp.Angles) == store.BatchSize

	if h.ledger != nil && key != "" {
		e, err := h.ledger.Get(r.Context(), group, key)
		switch {
		case err == nil:
			at := e.EnrolledAt
			resp.EnrolledAt = &at
			resp.Count = e.Count
		case !errors.Is(err, ledger.ErrNotFound):
			h.logger.Warn("ledger lookup failed", "group", group, "key", key, "err", err)
		}
	}

	if resp.Enrolled {
		resp.Message = "enrolled"
	} else {
		resp.Message = "not enrolled"
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
