package engine

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/quantenergx/filing-gateway/internal/infra"
)

// FreezeManager держит потокобезопасный локальный кэш замороженных
// регуляторов. Источник истины — Redis set, обновления приходят по Pub/Sub.
type FreezeManager struct {
	mu     sync.RWMutex
	frozen map[string]struct{}
	rdb    *redis.Client
	logger *zap.Logger
}

func NewFreezeManager(rdb *redis.Client, logger *zap.Logger) *FreezeManager {
	return &FreezeManager{
		frozen: make(map[string]struct{}),
		rdb:    rdb,
		logger: logger.Named("freeze"),
	}
}

// Init загружает текущее состояние заморозок при старте сервиса
func (m *FreezeManager) Init(ctx context.Context) error {
	regulators, err := m.rdb.SMembers(ctx, infra.RedisKeyFrozenRegulators).Result()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.frozen = make(map[string]struct{}, len(regulators))
	for _, name := range regulators {
		m.frozen[name] = struct{}{}
	}
	m.mu.Unlock()
	return nil
}

func (m *FreezeManager) IsFrozen(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.frozen[name]
	return ok
}

// setFrozen — внутренний метод для обновления мапы
func (m *FreezeManager) setFrozen(name string, frozen bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if frozen {
		m.frozen[name] = struct{}{}
	} else {
		delete(m.frozen, name)
	}
}

// StartListener подписывается на Redis и обновляет состояние.
// Блокируется до отмены контекста, запускать в отдельной горутине.
func (m *FreezeManager) StartListener(ctx context.Context) {
	ListenStateResilient(
		ctx,
		m.rdb,
		m.logger,
		infra.RedisChanFreezeSignal,
		func() error { return m.Init(ctx) },
		func(name string, frozen bool) {
			m.logger.Info("freeze state changed",
				zap.String("regulator", name),
				zap.Bool("frozen", frozen))
			m.setFrozen(name, frozen)
		},
	)
}
