package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/quizdy/ar-server/internal/apperr"
)

const msgSuccess = "success"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

func success() Result {
	return Result{Ret: true, Msg: msgSuccess}
}

func failure(msg string) Result {
	return Result{Ret: false, Msg: msg}
}

// statusFor maps an error to the HTTP status of its failure envelope.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with {ret:false,msg}. Only messages meant for clients
// are exposed; anything else is logged and reported as "internal error".
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg, known := apperr.Message(err)
	switch {
	case status == http.StatusRequestEntityTooLarge:
		msg = "request body too large"
	case !known:
		msg = "internal error"
	}

	attrs := []any{
		slog.String("op", op),
		slog.String("path", r.URL.Path),
		slog.String("kind", apperr.Kind(err)),
		slog.String("error", err.Error()),
	}
	if status >= http.StatusInternalServerError {
		slog.Error("api: request failed", attrs...)
	} else {
		slog.Debug("api: request rejected", attrs...)
	}
	writeJSON(w, status, failure(msg))
}
