package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quantenergx/filing-gateway/internal/console/service"
)

type RegulatorHandler struct {
	service *service.RegulatorService
}

func NewRegulatorHandler(s *service.RegulatorService) *RegulatorHandler {
	return &RegulatorHandler{service: s}
}

// Freeze мгновенно останавливает подачи к регулятору на всех шлюзах
// POST /v1/regulators/{name}/freeze
func (h *RegulatorHandler) Freeze(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.service.Freeze(r.Context(), name); err != nil {
		http.Error(w, "Failed to freeze regulator", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unfreeze возобновляет подачи
// POST /v1/regulators/{name}/unfreeze
func (h *RegulatorHandler) Unfreeze(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.service.Unfreeze(r.Context(), name); err != nil {
		http.Error(w, "Failed to unfreeze regulator", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListFrozen отдает текущее множество замороженных регуляторов
// GET /v1/regulators/frozen
func (h *RegulatorHandler) ListFrozen(w http.ResponseWriter, r *http.Request) {
	frozen, err := h.service.ListFrozen(r.Context())
	if err != nil {
		http.Error(w, "Failed to list frozen regulators", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(frozen)
}
