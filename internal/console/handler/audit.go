package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/quantenergx/filing-gateway/internal/audit"
	"github.com/quantenergx/filing-gateway/internal/console/service"
)

type AuditHandler struct {
	service *service.AuditService
}

func NewAuditHandler(s *service.AuditService) *AuditHandler {
	return &AuditHandler{service: s}
}

// GetLogs возвращает события архива аудита с поддержкой фильтрации
// GET /v1/audit?user_id=...&region=...&action=...&from=...&to=...
func (h *AuditHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	// Извлекаем фильтры из Query-параметров
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

	logs, err := h.service.FetchLogs(r.Context(), f)
	if err != nil {
		http.Error(w, "Failed to fetch audit logs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logs)
}

// GetStats отдает агрегаты за последние сутки
// GET /api/v1/dashboard/stats
func (h *AuditHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetDashboardStats(r.Context())
	if err != nil {
		http.Error(w, "Failed to compute stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
