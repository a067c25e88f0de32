package handler

import (
	"net/http"
	"time"

	"github.com/matthewbaird/partmanager/internal/payments"
	"github.com/matthewbaird/partmanager/internal/types"
)

type periodRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

type paymentsResponse struct {
	Payments []types.Payment `json:"payments"`
}

func created(ps []types.Payment) paymentsResponse {
	if ps == nil {
		ps = []types.Payment{}
	}
	return paymentsResponse{Payments: ps}
}

// ListPayments returns an apartment's payments with status and totals.
// With auto rent on, listing a month first creates its missing rent.
// GET /v1/apartments/{id}/payments?month=&year=
func (h *PortfolioHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	aptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	month, year, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	if h.autoRent && month != 0 {
		if _, err := h.m.GenerateRentPayments(r.Context(), aptID, month, year); err != nil {
			portfolioErrorToHTTP(w, err)
			return
		}
	}
	view, err := h.m.Payments(aptID, month, year)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	if view.Payments == nil {
		view.Payments = []payments.WithStatus{}
	}
	writeJSON(w, http.StatusOK, view)
}

// GenerateRent creates the month's missing rent payments.
// POST /v1/apartments/{id}/payments/rent
func (h *PortfolioHandler) GenerateRent(w http.ResponseWriter, r *http.Request) {
	aptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req periodRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	ps, err := h.m.GenerateRentPayments(r.Context(), aptID, time.Month(req.Month), req.Year)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created(ps))
}

type splitBillRequest struct {
	Total float64 `json:"total"`
	Start string  `json:"start"`
	End   string  `json:"end"`
}

// SplitBill previews a bill divided by presence days. Nothing is stored.
// POST /v1/apartments/{id}/bills/split
func (h *PortfolioHandler) SplitBill(w http.ResponseWriter, r *http.Request) {
	aptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req splitBillRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	start, ok := parseDate(w, "start", req.Start)
	if !ok {
		return
	}
	end, ok := parseDate(w, "end", req.End)
	if !ok {
		return
	}
	split, err := h.m.SplitBill(aptID, req.Total, start, end)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	if split.Allocations == nil {
		split.Allocations = []payments.BillAllocation{}
	}
	writeJSON(w, http.StatusOK, split)
}

type addBillsRequest struct {
	Month int                       `json:"month"`
	Year  int                       `json:"year"`
	Bills []payments.BillAllocation `json:"bills"`
}

// AddBills records bill payments for the given allocations.
// POST /v1/apartments/{id}/payments/bills
func (h *PortfolioHandler) AddBills(w http.ResponseWriter, r *http.Request) {
	aptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req addBillsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	ps, err := h.m.AddBillPayments(r.Context(), aptID, req.Bills, time.Month(req.Month), req.Year)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created(ps))
}

// TogglePayment marks a payment paid today, or unpaid if it already was.
// POST /v1/apartments/{id}/payments/{paymentID}/toggle
func (h *PortfolioHandler) TogglePayment(w http.ResponseWriter, r *http.Request) {
	aptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	paymentID, ok := pathID(w, r, "paymentID")
	if !ok {
		return
	}
	p, err := h.m.TogglePaymentPaid(r.Context(), aptID, paymentID)
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PortfolioHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	aptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	paymentID, ok := pathID(w, r, "paymentID")
	if !ok {
		return
	}
	if err := h.m.RemovePayment(r.Context(), aptID, paymentID); err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
