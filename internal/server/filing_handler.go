package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/quantenergx/filing-gateway/internal/domain"
	"github.com/quantenergx/filing-gateway/internal/engine"
	"github.com/quantenergx/filing-gateway/internal/infra/auth"
)

type FilingHandler struct {
	engine *engine.Engine
	logger *zap.Logger
}

func NewFilingHandler(e *engine.Engine, logger *zap.Logger) *FilingHandler {
	return &FilingHandler{engine: e, logger: logger.Named("filing-handler")}
}

// Submit принимает отчет и проводит его до терминального состояния.
// POST /v1/filings/{regulator}
// Движок не возвращает ошибок: любой исход — это конверт SubmissionResult,
// HTTP-статус выбирается по его терминальному состоянию.
func (h *FilingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	regulatorName := chi.URLParam(r, "regulator")

	var f domain.Filing
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	res := h.engine.SubmitFiling(r.Context(), f, auth.UserID(r.Context()), regulatorName)

	status := http.StatusOK
	if res.Status == domain.StatusRejected {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

// Status запрашивает состояние ранее поданного отчета у регулятора.
// GET /v1/submissions/{id}/status?regulator=CFTC
func (h *FilingHandler) Status(w http.ResponseWriter, r *http.Request) {
	submissionID := chi.URLParam(r, "id")
	regulatorName := r.URL.Query().Get("regulator")
	if regulatorName == "" {
		http.Error(w, "regulator query parameter is required", http.StatusBadRequest)
		return
	}

	res := h.engine.GetStatus(r.Context(), submissionID, regulatorName)

	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

// Health отдает состояние движка: регуляторы, размер аудит-лога
// GET /v1/health
func (h *FilingHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.HealthStatus())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
