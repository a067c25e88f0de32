package handler

import (
	"net/http"

	"github.com/matthewbaird/partmanager/internal/portfolio"
)

func (h *PortfolioHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	aptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req portfolio.TenantInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	t, err := h.m.AddTenant(r.Context(), aptID, req)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *PortfolioHandler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	aptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tenantID, ok := pathID(w, r, "tenantID")
	if !ok {
		return
	}
	var req portfolio.TenantPatch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	t, err := h.m.UpdateTenant(r.Context(), aptID, tenantID, req)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *PortfolioHandler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	aptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tenantID, ok := pathID(w, r, "tenantID")
	if !ok {
		return
	}
	if err := h.m.RemoveTenant(r.Context(), aptID, tenantID); err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type toggleDateRequest struct {
	Date string `json:"date"`
}

// ToggleTenantDate flips one day in or out of a tenant's excluded dates.
// POST /v1/apartments/{id}/tenants/{tenantID}/toggle-date
func (h *PortfolioHandler) ToggleTenantDate(w http.ResponseWriter, r *http.Request) {
	aptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tenantID, ok := pathID(w, r, "tenantID")
	if !ok {
		return
	}
	var req toggleDateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	d, ok := parseDate(w, "date", req.Date)
	if !ok {
		return
	}
	t, err := h.m.ToggleTenantDate(r.Context(), aptID, tenantID, d)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// GetTenantPresence counts the days a tenant is present between from and to.
// GET /v1/apartments/{id}/tenants/{tenantID}/presence?from=&to=
func (h *PortfolioHandler) GetTenantPresence(w http.ResponseWriter, r *http.Request) {
	aptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tenantID, ok := pathID(w, r, "tenantID")
	if !ok {
		return
	}
	from, ok := parseDate(w, "from", r.URL.Query().Get("from"))
	if !ok {
		return
	}
	to, ok := parseDate(w, "to", r.URL.Query().Get("to"))
	if !ok {
		return
	}
	days, err := h.m.PresenceDays(aptID, tenantID, from, to)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tenantId": tenantID,
		"from":     from.String(),
		"to":       to.String(),
		"days":     days,
	})
}
