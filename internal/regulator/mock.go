package regulator

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/quantenergx/filing-gateway/internal/domain"
)

// Mock — клиент-заглушка для тестов и локальной разработки.
// Счетчики атомарные: тесты идемпотентности гоняют подачи конкурентно.
type Mock struct {
	// FailFirst — сколько первых вызовов Submit завершить ошибкой SubmitErr.
	// 0 — всегда успех, большое число — «регулятор лежит».
	FailFirst int64
	SubmitErr error

	StatusResponse *Status
	StatusErr      error

	submitCalls atomic.Int64
	statusCalls atomic.Int64
}

func (m *Mock) Submit(ctx context.Context, f domain.Filing, submissionID string) (*Response, error) {
	n := m.submitCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if n <= m.FailFirst {
		if m.SubmitErr != nil {
			return nil, m.SubmitErr
		}
		return nil, fmt.Errorf("mock regulator: simulated outage on attempt %d", n)
	}

	// Канонические подтверждения по типам отчетов
	prefix := "ACK"
	switch f.Type {
	case domain.FilingForm102:
		prefix = "CFTC"
	case domain.FilingMAS610A:
		prefix = "MAS"
	}
	return &Response{
		Status:             "accepted",
		ConfirmationNumber: fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8]),
	}, nil
}

func (m *Mock) CheckStatus(ctx context.Context, submissionID string) (*Status, error) {
	m.statusCalls.Add(1)
	if m.StatusErr != nil {
		return nil, m.StatusErr
	}
	if m.StatusResponse != nil {
		return m.StatusResponse, nil
	}
	return &Status{SubmissionID: submissionID, Status: "confirmed"}, nil
}

// SubmitCalls — сколько сетевых попыток реально сделано
func (m *Mock) SubmitCalls() int64 { return m.submitCalls.Load() }

func (m *Mock) StatusCalls() int64 { return m.statusCalls.Load() }
