package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/starford/anchorage/internal/apperr"
	"github.com/starford/anchorage/internal/envelope"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("api: json encode failed", slog.String("error", err.Error()))
	}
}

func writeOK[T any](w http.ResponseWriter, status int, payload T, version uint64) {
	res := envelope.OK(payload)
	res.Version = version
	writeJSON(w, status, res)
}

// writeError maps err onto an HTTP status and a failure envelope. Internal
// errors are logged and their message is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		slog.Error("api: request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeJSON(w, status, envelope.Fail[any](errors.New("internal error")))
		return
	}
	writeJSON(w, status, envelope.Fail[any](err))
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidReference), errors.Is(err, apperr.ErrUnresolvable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInvalidArgument):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// decodeJSON reads a JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope.Fail[any](fmt.Errorf("%w: invalid JSON body", apperr.ErrInvalidArgument)))
		return false
	}
	return true
}
