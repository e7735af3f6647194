package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ipon/internal/core"
	"ipon/internal/store"
)

// writeJSON serializes v with the given status. Failures at this point can
// only be logged; the header is already out.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode response", "error", err, "url", r.URL.Path)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP statuses and emits a JSON body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrNameTooLong),
		errors.Is(err, core.ErrUnknownMember),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrDuplicateName):
		status = http.StatusConflict
	case errors.Is(err, core.ErrInvalidPeriod):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "method", r.Method, "url", r.URL.Path)
		writeJSON(w, r, status, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, r, status, errorResponse{Error: err.Error()})
}

// parseDateParam accepts a calendar date (2006-01-02) or a full RFC 3339
// instant. The zero time means the parameter was absent.
func parseDateParam(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Time{}, core.ErrInvalidDate
}

// parseIntParam returns def when the parameter is absent.
func parseIntParam(v string, def int) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.ErrInvalidPeriod
	}
	return n, nil
}

// snapshot returns the data read paths serve from: the cached push snapshot
// when one has arrived, otherwise a direct store read.
func (s *Server) snapshot(r *http.Request) (store.Snapshot, error) {
	if s.cache != nil {
		if snap, ok := s.cache.Get(); ok {
			return snap, nil
		}
	}

	members, err := s.store.ListMembers(r.Context())
	if err != nil {
		return store.Snapshot{}, err
	}
	contributions, err := s.store.ListContributions(r.Context())
	if err != nil {
		return store.Snapshot{}, err
	}
	return store.Snapshot{Members: members, Contributions: contributions}, nil
}
