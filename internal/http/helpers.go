package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"expenses/internal/core"
	"expenses/internal/rates"
	"expenses/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusForError maps engine errors onto HTTP statuses: validation
// problems are the client's fault, rate-service failures are upstream,
// everything else is internal.
func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidCurrency),
		errors.Is(err, services.ErrEmptyUsername),
		errors.Is(err, services.ErrInvalidRange),
		errors.Is(err, services.ErrInvalidBudget),
		errors.Is(err, services.ErrInvalidDayOfMonth),
		errors.Is(err, rates.ErrUnknownCurrency):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNoConverter):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// username reads the user from the query string or, for mutations, from
// the decoded body field.
func username(r *http.Request, bodyValue string) string {
	if v := strings.TrimSpace(r.URL.Query().Get("username")); v != "" {
		return v
	}
	return strings.TrimSpace(bodyValue)
}

func queryInt(r *http.Request, key string) (int, bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func queryMonth(r *http.Request) (time.Month, bool, error) {
	n, ok, err := queryInt(r, "month")
	if err != nil || !ok {
		return 0, ok, err
	}
	if n < 1 || n > 12 {
		return 0, true, errors.New("month must be between 1 and 12")
	}
	return time.Month(n), true, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
