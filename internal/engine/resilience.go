package engine

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	subscribeRetryDelay = 5 * time.Second
	reconnectDelay      = 1 * time.Second
)

// ListenStateResilient — "живучая" подписка на управляющие сигналы Redis.
// Переживает обрывы соединения: после каждого успешного реконнекта вызывает
// onReconnect для ресинхронизации полного состояния, затем скармливает
// onMessage разобранные сигналы формата "<id>:<status>".
// Блокируется до отмены контекста.
func ListenStateResilient(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	channel string,
	onReconnect func() error,
	onMessage func(id string, status bool),
) {
	for ctx.Err() == nil {
		pubsub := rdb.Subscribe(ctx, channel)

		if _, err := pubsub.Receive(ctx); err != nil {
			logger.Error("failed to subscribe", zap.String("chan", channel), zap.Error(err))
			pubsub.Close()
			sleepCtx(ctx, subscribeRetryDelay)
			continue
		}

		if err := onReconnect(); err != nil {
			logger.Error("sync failed on reconnect", zap.Error(err))
		}

		consumeSignals(ctx, pubsub.Channel(), logger, onMessage)
		pubsub.Close()

		if ctx.Err() != nil {
			return
		}
		sleepCtx(ctx, reconnectDelay)
	}
}

// consumeSignals читает канал до его закрытия или отмены контекста
func consumeSignals(ctx context.Context, ch <-chan *redis.Message, logger *zap.Logger, onMessage func(string, bool)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return // Канал закрыт, вызывающий цикл идет на переподключение
			}

			id, status, ok := parseSignal(msg.Payload)
			if !ok {
				logger.Error("invalid signal format", zap.String("payload", msg.Payload))
				continue
			}
			onMessage(id, status)
		}
	}
}

// parseSignal разбирает "<id>:<status>"; статус принимает true/on
func parseSignal(payload string) (string, bool, bool) {
	parts := strings.Split(payload, ":")
	if len(parts) != 2 {
		return "", false, false
	}
	return parts[0], parts[1] == "true" || parts[1] == "on", true
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
