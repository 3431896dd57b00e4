package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// decodeJSON reads a single JSON object into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is empty")
		}
		return apperr.Validation("could not parse JSON")
	}
	return nil
}

// handleError maps an error kind to its status code. Only the user-facing
// message is written; causes go to the log.
func handleError(log *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	var (
		status int
		code   string
	)
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperr.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, apperr.ErrConfiguration):
		status, code = http.StatusUnprocessableEntity, "configuration_error"
	case errors.Is(err, apperr.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, apperr.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperr.ErrStore):
		status, code = http.StatusServiceUnavailable, "store_error"
	default:
		status, code = http.StatusInternalServerError, "internal_error"
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, code, apperr.Message(err))
}

func requiredQuery(r *http.Request, key string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return "", apperr.Validation("%s is required", key)
	}
	return v, nil
}

func queryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Validation("%s must be a valid UUID", key)
	}
	return &id, nil
}

// queryDate parses a YYYY-MM-DD bound as local midnight. An inclusive end
// day becomes the following midnight.
func queryDate(r *http.Request, key string, loc *time.Location, endOfDay bool) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return time.Time{}, nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, apperr.Validation("%s must look like 2006-01-02", key)
	}
	if endOfDay {
		day = day.AddDate(0, 0, 1)
	}
	return day, nil
}
