package handler

import (
	"io"
	"net/http"
)

// maxImportBytes bounds the size of an uploaded document.
const maxImportBytes = 8 << 20

// Export writes the whole collection as a current-version document.
// GET /v1/export
func (h *PortfolioHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.m.Export()
	if err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="partmanager-export.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Import replaces the collection with the uploaded document. Legacy
// documents are accepted and upgraded.
// POST /v1/import
func (h *PortfolioHandler) Import(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", err.Error())
		return
	}
	if err := h.m.Import(r.Context(), data); err != nil {
		portfolioErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.m.Buildings())
}
