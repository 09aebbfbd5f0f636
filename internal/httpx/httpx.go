// Package httpx writes the service's JSON response envelope.
//
// Every response body has a top-level "status" of "success" or "error" and a
// human-readable "message". Handlers and middleware both go through here so
// the envelope stays uniform across auth failures, limiter rejections and
// handler errors.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/zynqcloud/face-enroll/internal/apperr"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the base response body.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// WriteJSON serialises v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// WriteSuccess writes a 200 success envelope.
func WriteSuccess(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusOK, Envelope{Status: StatusSuccess, Message: msg})
}

// WriteMessage writes an error envelope with an explicit status code.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, Envelope{Status: StatusError, Message: msg})
}

// WriteError maps err to its status code and writes the error envelope.
// Errors that are not *apperr.Error are reported as 500 with their text.
func WriteError(w http.ResponseWriter, err error) {
	WriteMessage(w, apperr.KindOf(err).HTTPStatus(), apperr.Message(err))
}
