package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/partmanager/internal/portfolio"
)

func TestPortfolioErrorToHTTP(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: tenant t1", portfolio.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("%w: bad name", portfolio.ErrInvalid), http.StatusBadRequest, "VALIDATION_ERROR"},
		{fmt.Errorf("%w: room has tenants", portfolio.ErrConflict), http.StatusConflict, "CONFLICT"},
		{errors.New("disk full"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			portfolioErrorToHTTP(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["code"])
		})
	}

	rec := httptest.NewRecorder()
	portfolioErrorToHTTP(rec, errors.New("secret path /var/db"))
	assert.NotContains(t, rec.Body.String(), "/var/db")
}

func TestParsePeriod(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?month=3&year=2024", nil)
	month, year, ok := parsePeriod(httptest.NewRecorder(), req)
	require.True(t, ok)
	assert.Equal(t, time.March, month)
	assert.Equal(t, 2024, year)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	month, _, ok = parsePeriod(httptest.NewRecorder(), req)
	require.True(t, ok)
	assert.Equal(t, time.Month(0), month)

	rec := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/?year=soon", nil)
	_, _, ok = parsePeriod(rec, req)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBasicAuth_Open(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rec := httptest.NewRecorder()
	BasicAuth("", "")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
