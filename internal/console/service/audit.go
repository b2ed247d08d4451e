package service

import (
	"context"
	"fmt"

	"github.com/quantenergx/filing-gateway/internal/audit"
	"github.com/quantenergx/filing-gateway/internal/domain"
)

// ArchiveProvider описывает контракт для чтения долговременного архива.
// Модель данных общая с оперативным леджером шлюза.
type ArchiveProvider interface {
	FetchLogs(ctx context.Context, f audit.Filter) ([]audit.Entry, error)
	GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error)
}

type AuditService struct {
	repo ArchiveProvider
}

func NewAuditService(repo ArchiveProvider) *AuditService {
	return &AuditService{
		repo: repo,
	}
}

// FetchLogs запрашивает архив с фильтрацией.
// Логика фильтрации (пустые строки или конкретные значения) инкапсулирована в репозитории.
func (s *AuditService) FetchLogs(ctx context.Context, f audit.Filter) ([]audit.Entry, error) {
	logs, err := s.repo.FetchLogs(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to fetch logs: %w", err)
	}
	if logs == nil {
		return []audit.Entry{}, nil
	}
	return logs, nil
}

// GetDashboardStats собирает агрегаты за последние сутки
func (s *AuditService) GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	stats, err := s.repo.GetDashboardStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to fetch stats: %w", err)
	}
	return stats, nil
}
