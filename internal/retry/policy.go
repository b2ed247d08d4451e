package retry

import (
	"math"
	"time"
)

// Policy — детерминированный экспоненциальный бэкофф без джиттера.
// delay(attempt) = min(BaseDelay * Multiplier^(attempt-1), MaxDelay).
// Джиттер сознательно не добавляем: тесты и SLA-расчеты опираются на
// точные значения; кому нужен джиттер — оборачивает снаружи.
type Policy struct {
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	MaxAttempts uint
}

// DefaultPolicy — базовая конфигурация подач: 1s, x2, потолок 30s, 3 попытки
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:   1000 * time.Millisecond,
		Multiplier:  2,
		MaxDelay:    30000 * time.Millisecond,
		MaxAttempts: 3,
	}
}

// DelayFor возвращает паузу после неудачной попытки attempt (нумерация с 1).
// Чистая функция: никаких часов, никакого состояния.
func (p Policy) DelayFor(attempt uint) time.Duration {
	if attempt == 0 {
		attempt = 1
	}
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}
