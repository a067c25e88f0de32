package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/matthewbaird/partmanager/internal/portfolio"
	"github.com/matthewbaird/partmanager/internal/types"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON encode error", "error", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// pathID extracts a non-empty path parameter. Identifiers are opaque strings
// because imported documents may carry ids that are not UUIDs.
func pathID(w http.ResponseWriter, r *http.Request, paramName string) (string, bool) {
	id := chi.URLParam(r, paramName)
	if id == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "missing "+paramName)
		return "", false
	}
	return id, true
}

// parseDate parses a YYYY-MM-DD value, writing a 400 when it is malformed.
func parseDate(w http.ResponseWriter, field, raw string) (types.Date, bool) {
	d, ok := types.ParseDate(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_DATE", field+" must be a YYYY-MM-DD date")
		return types.Date{}, false
	}
	return d, true
}

// parsePeriod reads month and year query parameters. A missing month yields
// zero, which callers treat as "every month".
func parsePeriod(w http.ResponseWriter, r *http.Request) (time.Month, int, bool) {
	q := r.URL.Query()
	var month, year int
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PERIOD", "month must be a number")
			return 0, 0, false
		}
		month = n
	}
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PERIOD", "year must be a number")
			return 0, 0, false
		}
		year = n
	}
	return time.Month(month), year, true
}

// portfolioErrorToHTTP maps portfolio errors to appropriate HTTP responses.
func portfolioErrorToHTTP(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, portfolio.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, portfolio.ErrInvalid):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, portfolio.ErrConflict):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error())
	default:
		slog.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
