package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quantenergx/filing-gateway/internal/audit"
	"github.com/quantenergx/filing-gateway/internal/domain"
	"github.com/quantenergx/filing-gateway/internal/regulator"
	retrypolicy "github.com/quantenergx/filing-gateway/internal/retry"
	"github.com/quantenergx/filing-gateway/internal/risk"
	"github.com/quantenergx/filing-gateway/internal/validation"
	"go.uber.org/zap"
)

// Regulator — один подключенный регулятор. Client == nil означает
// ConfigurationError: подачи отклоняются до любых сетевых вызовов,
// причина видна в healthcheck.
type Regulator struct {
	Name        string
	Region      string // "US", "Singapore" — явное поле, уходит в аудит
	Client      regulator.Client
	ConfigError string
}

// FreezeChecker — проверка оперативной заморозки подач (Control Plane).
// nil-чекер = ничего не заморожено.
type FreezeChecker interface {
	IsFrozen(name string) bool
}

type target struct {
	reg   Regulator
	guard *ReliabilityWrapper
}

// Engine — оркестратор подач: Validator -> Retry Controller(Client) -> Audit.
// Единственная граница, превращающая ЛЮБОЙ внутренний сбой в конверт
// SubmissionResult: наружу из SubmitFiling ошибки не выходят.
type Engine struct {
	targets map[string]target
	ledger  *audit.Ledger
	freeze  FreezeChecker
	risk    *risk.Analyzer
	metrics *Metrics
	logger  *zap.Logger
}

func NewEngine(
	regulators []Regulator,
	policy retrypolicy.Policy,
	rs ReliabilitySettings,
	ledger *audit.Ledger,
	freeze FreezeChecker,
	analyzer *risk.Analyzer,
	metrics *Metrics,
	logger *zap.Logger,
) *Engine {
	e := &Engine{
		targets: make(map[string]target, len(regulators)),
		ledger:  ledger,
		freeze:  freeze,
		risk:    analyzer,
		metrics: metrics,
		logger:  logger.Named("engine"),
	}
	for _, r := range regulators {
		e.targets[r.Name] = target{
			reg:   r,
			guard: NewReliabilityWrapper(r.Name, policy, rs, metrics, logger),
		}
	}
	return e
}

// SubmitFiling проводит одну логическую подачу до терминального состояния.
// SubmissionID чеканится один раз и живет через все сетевые ретраи —
// по нему регулятор дедуплицирует, по нему же коррелируется аудит.
func (e *Engine) SubmitFiling(ctx context.Context, f domain.Filing, userID, regulatorName string) domain.SubmissionResult {
	start := time.Now()
	submissionID := uuid.New().String()

	t, ok := e.targets[regulatorName]
	region := t.reg.Region

	e.metrics.SubmissionsTotal.WithLabelValues(regulatorName, string(f.Type)).Inc()

	var status domain.SubmissionStatus
	defer func() {
		e.metrics.SubmissionDuration.WithLabelValues(regulatorName, string(status)).Observe(time.Since(start).Seconds())
	}()

	// В аудит — только счетчики и идентификаторы, никогда сырой payload
	e.ledger.Record(audit.RecordParams{
		Action: audit.ActionSubmissionStarted,
		UserID: userID,
		Region: region,
		Details: map[string]any{
			"submission_id": submissionID,
			"regulator":     regulatorName,
			"filing_type":   string(f.Type),
			"period":        f.Period,
			"line_items":    len(f.LineItems),
		},
	})

	fail := func(msg string) domain.SubmissionResult {
		status = domain.StatusRejected
		e.ledger.Record(audit.RecordParams{
			Action: audit.ActionSubmissionFailed,
			UserID: userID,
			Region: region,
			Details: map[string]any{
				"submission_id": submissionID,
				"regulator":     regulatorName,
				"error":         msg,
			},
		})
		return domain.SubmissionResult{
			SubmissionID:   submissionID,
			Status:         domain.StatusRejected,
			Errors:         []string{msg},
			SubmittedAt:    time.Now().UTC(),
			ResponseTimeMs: time.Since(start).Milliseconds(),
		}
	}

	// Fail fast: несконфигурированный или замороженный регулятор —
	// терминальный отказ без единого сетевого вызова
	if !ok {
		return fail(fmt.Sprintf("regulator %s is not configured", regulatorName))
	}
	if t.reg.Client == nil {
		return fail(fmt.Sprintf("regulator %s is not configured: %s", regulatorName, t.reg.ConfigError))
	}
	if e.freeze != nil && e.freeze.IsFrozen(regulatorName) {
		return fail(fmt.Sprintf("submissions to regulator %s are frozen by compliance", regulatorName))
	}

	// Пре-флайт валидация: жесткий шорт-серкит, ретраев для нее нет
	if res := validation.Validate(f); !res.Valid {
		status = domain.StatusRejected
		e.metrics.ValidationFailures.WithLabelValues(regulatorName).Inc()
		e.ledger.Record(audit.RecordParams{
			Action: audit.ActionValidationFailed,
			UserID: userID,
			Region: region,
			Details: map[string]any{
				"submission_id": submissionID,
				"regulator":     regulatorName,
				"error_count":   len(res.Errors),
				"errors":        res.Errors,
			},
		})
		return domain.SubmissionResult{
			SubmissionID:   submissionID,
			Status:         domain.StatusRejected,
			Errors:         res.Errors,
			SubmittedAt:    time.Now().UTC(),
			ResponseTimeMs: time.Since(start).Milliseconds(),
		}
	}

	// Неблокирующий комплаенс-чек крупных позиций: флаги уходят в аудит,
	// подача продолжается
	var riskFlags []string
	if e.risk != nil {
		riskFlags = e.risk.Assess(f)
	}

	// Сетевая фаза под Retry Controller'ом
	var resp *regulator.Response
	err := t.guard.Run(ctx, func(ctx context.Context) error {
		r, callErr := t.reg.Client.Submit(ctx, f, submissionID)
		if callErr != nil {
			return callErr
		}
		resp = r
		return nil
	})
	if err != nil {
		e.logger.Warn("submission exhausted retries",
			zap.String("submission_id", submissionID),
			zap.String("regulator", regulatorName),
			zap.Error(err))
		return fail(err.Error())
	}

	status = mapStatus(resp.Status)
	details := map[string]any{
		"submission_id":       submissionID,
		"regulator":           regulatorName,
		"status":              string(status),
		"confirmation_number": resp.ConfirmationNumber,
	}
	if len(riskFlags) > 0 {
		details["risk_flags"] = riskFlags
	}
	e.ledger.Record(audit.RecordParams{
		Action:  audit.ActionSubmissionCompleted,
		UserID:  userID,
		Region:  region,
		Details: details,
	})
	return domain.SubmissionResult{
		SubmissionID:       submissionID,
		Status:             status,
		ConfirmationNumber: resp.ConfirmationNumber,
		SubmittedAt:        time.Now().UTC(),
		ResponseTimeMs:     time.Since(start).Milliseconds(),
	}
}

// mapStatus переводит сырой статус регулятора в терминальное состояние.
// Неизвестные строки трактуем как "accepted": сеть прошла, подтверждение
// уточняется через CheckStatus.
func mapStatus(raw string) domain.SubmissionStatus {
	if raw == string(domain.StatusConfirmed) {
		return domain.StatusConfirmed
	}
	return domain.StatusAccepted
}

// GetStatus делегирует проверку статуса клиенту регулятора.
// Сетевой сбой — это Success=false с текстом, не проброшенная ошибка.
func (e *Engine) GetStatus(ctx context.Context, submissionID, regulatorName string) domain.StatusResult {
	t, ok := e.targets[regulatorName]
	if !ok || t.reg.Client == nil {
		return domain.StatusResult{
			Success:      false,
			SubmissionID: submissionID,
			Error:        fmt.Sprintf("regulator %s is not configured", regulatorName),
		}
	}

	st, err := t.reg.Client.CheckStatus(ctx, submissionID)
	if err != nil {
		return domain.StatusResult{Success: false, SubmissionID: submissionID, Error: err.Error()}
	}
	return domain.StatusResult{Success: true, SubmissionID: submissionID, Status: st.Status}
}

// HealthStatus — read-only интроспекция, без побочных эффектов
func (e *Engine) HealthStatus() domain.Health {
	regs := make(map[string]bool, len(e.targets))
	for name, t := range e.targets {
		regs[name] = t.reg.Client != nil
	}
	return domain.Health{
		Status:       "healthy",
		AuditLogSize: e.ledger.Size(),
		LastActivity: e.ledger.LastActivity(),
		Regulators:   regs,
	}
}

// Ledger отдает аудит-леджер для HTTP-слоя (Query/Clear)
func (e *Engine) Ledger() *audit.Ledger { return e.ledger }
