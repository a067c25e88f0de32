package handler

import (
	"net/http"

	"github.com/matthewbaird/partmanager/internal/portfolio"
)

// PortfolioHandler implements HTTP handlers for Building, Apartment, Room,
// and Expense.
type PortfolioHandler struct {
	m *portfolio.Manager
	// autoRent generates a month's rent when its payments are listed.
	autoRent bool
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(m *portfolio.Manager, autoRent bool) *PortfolioHandler {
	return &PortfolioHandler{m: m, autoRent: autoRent}
}

// ---------------------------------------------------------------------------
// Building
// ---------------------------------------------------------------------------

type nameRequest struct {
	Name string `json:"name"`
}

func (h *PortfolioHandler) ListBuildings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.m.Buildings())
}

func (h *PortfolioHandler) CreateBuilding(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	b, err := h.m.AddBuilding(r.Context(), req.Name)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *PortfolioHandler) GetBuilding(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	b, err := h.m.Building(id)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *PortfolioHandler) UpdateBuilding(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	b, err := h.m.RenameBuilding(r.Context(), id, req.Name)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *PortfolioHandler) DeleteBuilding(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.m.RemoveBuilding(r.Context(), id); err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PortfolioHandler) GetBuildingMetrics(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	bm, err := h.m.BuildingMetrics(id)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bm)
}

// ---------------------------------------------------------------------------
// Apartment
// ---------------------------------------------------------------------------

func (h *PortfolioHandler) CreateApartment(w http.ResponseWriter, r *http.Request) {
	buildingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	a, err := h.m.AddApartment(r.Context(), buildingID, req.Name)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *PortfolioHandler) GetApartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.m.Apartment(id)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *PortfolioHandler) UpdateApartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	a, err := h.m.RenameApartment(r.Context(), id, req.Name)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *PortfolioHandler) DeleteApartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.m.RemoveApartment(r.Context(), id); err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PortfolioHandler) GetApartmentMetrics(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, err := h.m.Metrics(id)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ---------------------------------------------------------------------------
// Room
// ---------------------------------------------------------------------------

func (h *PortfolioHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	aptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req portfolio.RoomInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	room, err := h.m.AddRoom(r.Context(), aptID, req)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (h *PortfolioHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	aptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	var req portfolio.RoomPatch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	room, err := h.m.UpdateRoom(r.Context(), aptID, roomID, req)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *PortfolioHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	aptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	roomID, ok := pathID(w, r, "roomID")
	if !ok {
		return
	}
	if err := h.m.RemoveRoom(r.Context(), aptID, roomID); err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Expense
// ---------------------------------------------------------------------------

func (h *PortfolioHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	aptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req portfolio.ExpenseInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	e, err := h.m.AddExpense(r.Context(), aptID, req)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *PortfolioHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	aptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	expenseID, ok := pathID(w, r, "expenseID")
	if !ok {
		return
	}
	var req portfolio.ExpensePatch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	e, err := h.m.UpdateExpense(r.Context(), aptID, expenseID, req)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *PortfolioHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	aptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	expenseID, ok := pathID(w, r, "expenseID")
	if !ok {
		return
	}
	if err := h.m.RemoveExpense(r.Context(), aptID, expenseID); err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
