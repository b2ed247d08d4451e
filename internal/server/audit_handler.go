package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/quantenergx/filing-gateway/internal/audit"
	"github.com/quantenergx/filing-gateway/internal/infra/auth"
)

type AuditHandler struct {
	ledger *audit.Ledger
	logger *zap.Logger
}

func NewAuditHandler(l *audit.Ledger, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{ledger: l, logger: logger.Named("audit-handler")}
}

// GetLogs возвращает события аудита с поддержкой фильтрации.
// GET /v1/audit?user_id=...&region=...&action=...&from=...&to=...
// Даты в RFC 3339, неразобранная дата — это 400, а не тихий пропуск фильтра.
func (h *AuditHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := audit.Filter{
		UserID: q.Get("user_id"),
		Region: q.Get("region"),
		Action: q.Get("action"),
	}

	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid from timestamp, expected RFC 3339", http.StatusBadRequest)
			return
		}
		f.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid to timestamp, expected RFC 3339", http.StatusBadRequest)
			return
		}
		f.To = t
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.ledger.Query(f))
}

type clearRequest struct {
	AdminToken string `json:"admin_token"`
}

type clearResponse struct {
	Cleared int `json:"cleared"`
}

// Clear опустошает аудит-лог. Двойной гейт: скоуп в JWT и операционный
// admin-токен в теле запроса.
// POST /v1/audit/clear
func (h *AuditHandler) Clear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	cleared, err := h.ledger.Clear(auth.UserID(r.Context()), req.AdminToken)
	if err != nil {
		if errors.Is(err, audit.ErrUnauthorized) {
			// Токен не совпал: лог остался нетронутым
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		h.logger.Error("audit clear failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, clearResponse{Cleared: cleared})
}
