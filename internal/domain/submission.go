package domain

import "time"

// SubmissionStatus — терминальные состояния одной логической подачи
type SubmissionStatus string

const (
	StatusAccepted  SubmissionStatus = "accepted"  // Регулятор принял отчет в обработку
	StatusConfirmed SubmissionStatus = "confirmed" // Регулятор подтвердил отчет
	StatusRejected  SubmissionStatus = "rejected"  // Валидация или сеть: подача не состоялась
)

// SubmissionResult — единый конверт результата SubmitFiling.
// Создается один раз в терминальной точке оркестрации и больше не мутирует.
type SubmissionResult struct {
	SubmissionID       string           `json:"submission_id"`
	Status             SubmissionStatus `json:"status"`
	ConfirmationNumber string           `json:"confirmation_number,omitempty"`
	Errors             []string         `json:"errors,omitempty"` // Пустой на успехе, упорядоченный
	SubmittedAt        time.Time        `json:"submitted_at"`     // Момент терминального исхода
	ResponseTimeMs     int64            `json:"response_time_ms"` // Wall-clock от старта оркестрации
}

// StatusResult — конверт для проверки статуса у регулятора.
// Сетевые сбои не пробрасываются наружу: Success=false и текст ошибки.
type StatusResult struct {
	Success      bool   `json:"success"`
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status,omitempty"`
	Error        string `json:"error,omitempty"`
}

// DashboardStats — агрегаты Console API по архиву аудита за последние сутки
type DashboardStats struct {
	TotalSubmissions   int64 `json:"total_submissions"`
	CompletedCount     int64 `json:"completed_count"`
	FailedCount        int64 `json:"failed_count"`
	ValidationFailures int64 `json:"validation_failures"`
}

// Health — read-only интроспекция движка для мониторинга
type Health struct {
	Status       string          `json:"status"`
	AuditLogSize int             `json:"audit_log_size"`
	LastActivity time.Time       `json:"last_activity"`
	Regulators   map[string]bool `json:"regulators"` // имя -> сконфигурирован ли клиент
}
