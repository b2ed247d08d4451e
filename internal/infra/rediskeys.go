package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "filing"
)

// Ключи для Sets (состояние)
const (
	RedisKeyFrozenRegulators = RedisNamespace + ":regulators:frozen_set"
	RedisKeyLockWarmupFrozen = RedisNamespace + ":lock:warmup:frozen"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanFreezeSignal — канал для трансляции команд заморозки подач
	// по конкретному регулятору. Формат сообщения: "<regulator>:<status>".
	RedisChanFreezeSignal = RedisNamespace + ":regulators:freeze-signal"
	// RedisChanAuditMirror — зеркало аудит-событий для внешних подписчиков
	RedisChanAuditMirror = RedisNamespace + ":audit:events"
)

// GetWarmupLockKey Генератор ключей для блокировок (если нужны динамические)
func GetWarmupLockKey(resource string) string {
	return fmt.Sprintf("%s:lock:warmup:%s", RedisNamespace, resource)
}
