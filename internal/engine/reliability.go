package engine

import (
	"context"
	"errors"
	"time"

	"github.com/quantenergx/filing-gateway/internal/regulator"
	retrypolicy "github.com/quantenergx/filing-gateway/internal/retry"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ReliabilityWrapper — Retry Controller одного регулятора.
// Слои (снаружи внутрь): Rate Limiter -> Circuit Breaker -> Retry Loop.
// Экземпляр на регулятора: предохранитель одного регулятора не должен
// размыкаться от сбоев другого.
type ReliabilityWrapper struct {
	name    string
	policy  retrypolicy.Policy
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	metrics *Metrics
	logger  *zap.Logger
}

// ReliabilitySettings — пороги предохранителя и лимитера
type ReliabilitySettings struct {
	CBMaxRequests uint32
	CBInterval    time.Duration
	CBTimeout     time.Duration
	CBMaxFailures uint32
	RateLimit     float64
	RateBurst     int
}

func DefaultReliabilitySettings() ReliabilitySettings {
	return ReliabilitySettings{
		CBMaxRequests: 3,
		CBInterval:    5 * time.Second,
		CBTimeout:     30 * time.Second, // Через сколько CB попробует "закрыться"
		CBMaxFailures: 5,
		RateLimit:     100,
		RateBurst:     20,
	}
}

func NewReliabilityWrapper(name string, policy retrypolicy.Policy, s ReliabilitySettings, metrics *Metrics, logger *zap.Logger) *ReliabilityWrapper {
	w := &ReliabilityWrapper{
		name:    name,
		policy:  policy,
		limiter: rate.NewLimiter(rate.Limit(s.RateLimit), s.RateBurst),
		metrics: metrics,
		logger:  logger.Named("reliability." + name),
	}

	w.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "regulator-" + name,
		MaxRequests: s.CBMaxRequests,
		Interval:    s.CBInterval,
		Timeout:     s.CBTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > s.CBMaxFailures
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			w.logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()), zap.String("to", to.String()))
			state := 0.0
			if to == gobreaker.StateOpen {
				state = 1
			}
			metrics.CircuitBreakerState.WithLabelValues(name).Set(state)
		},
	})

	return w
}

// Run гоняет op до успеха или исчерпания policy.MaxAttempts.
// Успех возвращается сразу, без добора попыток. При исчерпании наружу
// уходит ПОСЛЕДНЯЯ ошибка операции. Пауза между попытками усыпляет
// только горутину этой подачи: каждая подача держит свой retry-цикл.
//
// Классификации сбоев нет намеренно: и таймаут, и 4xx регулятора
// ретраятся одинаково. Будущий слой классификации добавляется здесь,
// не трогая оркестратор.
func (w *ReliabilityWrapper) Run(ctx context.Context, op func(ctx context.Context) error) error {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	var lastErr error

	// 2. Circuit Breaker
	_, cbErr := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(w.policy.MaxAttempts),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				w.metrics.RetryAttempts.WithLabelValues(w.name).Inc()

				// Регулятор прислал Retry-After (429) — уважаем его
				var tErr *regulator.ThrottleError
				if errors.As(err, &tErr) {
					w.logger.Warn("throttled by regulator", zap.Duration("retry_after", tErr.RetryAfter))
					return tErr.RetryAfter
				}

				// Обычный сбой: детерминированный экспоненциальный бэкофф.
				// n здесь — число уже проваленных попыток, нумерация политики с 1.
				return w.policy.DelayFor(n + 1)
			}),
		)

		// 3. Retry Loop
		retryErr := r.Do(func() error {
			callErr := op(ctx)
			if callErr != nil {
				lastErr = callErr
			}
			return callErr
		})
		return nil, retryErr
	})

	if cbErr != nil {
		// retry-go агрегирует ошибки попыток; контракт движка — последняя
		if lastErr != nil {
			return lastErr
		}
		return cbErr // CB разомкнут или лимит полуоткрытых запросов
	}
	return nil
}
