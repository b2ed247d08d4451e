package regulator

import (
	"context"

	"github.com/quantenergx/filing-gateway/internal/domain"
)

// Response — сырой ответ регулятора на подачу. Формат wire-протокола
// у каждого регулятора свой, движку от клиента нужны только эти три поля.
type Response struct {
	Status             string   `json:"status"` // "accepted" или "confirmed"
	ConfirmationNumber string   `json:"confirmation_number,omitempty"`
	Errors             []string `json:"errors,omitempty"`
}

// Status — сырой статус ранее поданного отчета
type Status struct {
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status"`
}

// Client — граница одного регулятора. Каждый вызов делает РОВНО ОДНУ
// сетевую попытку: ретраи — зона ответственности Retry Controller'а,
// иначе учет попыток расползается по слоям.
type Client interface {
	Submit(ctx context.Context, f domain.Filing, submissionID string) (*Response, error)
	CheckStatus(ctx context.Context, submissionID string) (*Status, error)
}
