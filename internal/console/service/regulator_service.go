package service

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/quantenergx/filing-gateway/internal/infra"
	"github.com/quantenergx/filing-gateway/internal/infra/auth"
)

// RegulatorService управляет оперативной заморозкой подач.
// Источник истины — Redis set: его вычитывают шлюзы при старте
// и при каждом переподключении слушателя.
type RegulatorService struct {
	*auth.BaseValidator
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRegulatorService(rdb *redis.Client, validator *auth.BaseValidator, logger *zap.Logger) *RegulatorService {
	return &RegulatorService{
		BaseValidator: validator,
		rdb:           rdb,
		logger:        logger.Named("regulator-service"),
	}
}

// setFreezeState — унифицированный механизм переключения состояния.
// Обновляет Redis set и транслирует сигнал работающим шлюзам.
func (s *RegulatorService) setFreezeState(ctx context.Context, name string, frozen bool, actionName string) error {
	// 1. Persistence Layer (Redis set)
	var err error
	if frozen {
		err = s.rdb.SAdd(ctx, infra.RedisKeyFrozenRegulators, name).Err()
	} else {
		err = s.rdb.SRem(ctx, infra.RedisKeyFrozenRegulators, name).Err()
	}
	if err != nil {
		s.logger.Error("failed to persist freeze state",
			zap.String("regulator", name),
			zap.String("action", actionName),
			zap.Error(err))
		return fmt.Errorf("%s state error: %w", actionName, err)
	}

	// 2. Real-time Signaling
	payload := fmt.Sprintf("%s:%t", name, frozen)
	if err := s.rdb.Publish(ctx, infra.RedisChanFreezeSignal, payload).Err(); err != nil {
		// Шлюзы все равно ресинхронизируются из set при переподключении
		s.logger.Warn("runtime signal delivery failed",
			zap.String("action", actionName),
			zap.Error(err))
	} else {
		s.logger.Info("regulator freeze state updated",
			zap.String("regulator", name),
			zap.Bool("frozen", frozen))
	}

	return nil
}

func (s *RegulatorService) Freeze(ctx context.Context, name string) error {
	return s.setFreezeState(ctx, name, true, "regulator-freeze")
}

func (s *RegulatorService) Unfreeze(ctx context.Context, name string) error {
	return s.setFreezeState(ctx, name, false, "regulator-unfreeze")
}

// ListFrozen возвращает текущее множество замороженных регуляторов
func (s *RegulatorService) ListFrozen(ctx context.Context) ([]string, error) {
	frozen, err := s.rdb.SMembers(ctx, infra.RedisKeyFrozenRegulators).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list frozen regulators: %w", err)
	}
	if frozen == nil {
		return []string{}, nil
	}
	return frozen, nil
}
