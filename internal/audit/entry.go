package audit

import "time"

// Действия жизненного цикла подачи. Терминальные события ровно три:
// validation_failed, submission_completed, submission_failed.
const (
	ActionSubmissionStarted   = "submission_started"
	ActionValidationFailed    = "validation_failed"
	ActionSubmissionCompleted = "submission_completed"
	ActionSubmissionFailed    = "submission_failed"
	ActionLogCleared          = "audit_log_cleared"
)

// Entry — одна запись аудит-трейла. Append-only: после Record запись
// не мутирует, удаление — только массовое через привилегированный Clear.
type Entry struct {
	ID        string         `json:"id"`        // UUID записи
	Timestamp time.Time      `json:"timestamp"` // UTC, момент записи
	UserID    string         `json:"user_id"`   // Кто инициировал
	Action    string         `json:"action"`    // Тег события (см. константы выше)
	Details   map[string]any `json:"details"`   // Счетчики и идентификаторы, НЕ сырой payload
	Region    string         `json:"region"`    // "US"/"Singapore", из конфига регулятора

	// Опциональный HTTP-контекст для расследований
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}
