package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tophits/internal/shared"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeHTML = "text/html; charset=utf-8"

	msgMisconfigured = "server misconfiguration"
	msgInternal      = "internal server error"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", "err", err)
	}
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	w.Write(body)
}

// writeError maps err onto an HTTP status and a JSON [ErrorResponse].
//
// A zero status is derived from the error kind. Auth and internal errors are logged with their cause, and the
// client only sees a generic message so credentials and config details never leave the server.
func writeError(w http.ResponseWriter, logger *log.Logger, err error, status int) {
	if status == 0 {
		status = shared.StatusCode(err)
	}
	if logger == nil {
		logger = log.Default()
	}

	kind := shared.ErrorKind(err)
	msg := err.Error()

	switch kind {
	case shared.KindAuth:
		logger.Error("catalog credentials rejected or missing", "err", err)
		msg = msgMisconfigured
	case shared.KindInternal:
		logger.Error("request failed", "err", err)
		msg = msgInternal
	case shared.KindUpstream:
		logger.Warn("upstream request failed", "err", err)
	}

	writeJSON(w, status, ErrorResponse{Error: msg, Code: kind})
}
