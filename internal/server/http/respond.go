package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/duersjefen/filter-ical-sub004/internal/errs"
	"github.com/duersjefen/filter-ical-sub004/internal/observability/metrics"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps service errors onto the HTTP taxonomy. Token failures are
// surfaced uniformly as 401 to avoid leaking which specific check failed.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var locked *errs.LockedError
	switch {
	case errors.As(err, &locked):
		retry := int(locked.RetryAfter / time.Second)
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "too many attempts"})
	case errors.Is(err, errs.ErrTokenExpired):
		metrics.ObserveRejection("expired")
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	case errors.Is(err, errs.ErrTokenStale):
		metrics.ObserveRejection("stale")
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	case errors.Is(err, errs.ErrTokenMalformed):
		metrics.ObserveRejection("malformed")
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	case errors.Is(err, errs.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	case errors.Is(err, errs.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
	case errors.Is(err, errs.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, errs.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody{Error: "already exists"})
	case errors.Is(err, errs.ErrIntegrity):
		// Already logged by the resolver as a security event.
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	default:
		s.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
