package audit

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnauthorized возвращается из Clear при несовпадении админ-токена.
// Форма ошибки отличается от конвертов подач намеренно: авторизационный
// отказ не должен маскироваться под результат бизнес-операции.
var ErrUnauthorized = errors.New("audit: admin token mismatch")

// Observer получает каждую записанную Entry синхронно, в горутине записи.
// Сбой наблюдателя (включая панику) не влияет ни на леджер, ни на подачу.
type Observer func(Entry)

// RecordParams — параметры новой записи. Region приходит явным полем
// от оркестратора (из конфига регулятора), а не выводится из текста action.
type RecordParams struct {
	Action    string
	UserID    string
	Region    string
	Details   map[string]any
	IPAddress string
	UserAgent string
}

// Filter — условия выборки Query. Поля комбинируются через AND,
// нулевое значение поля = «без ограничения». Action матчится подстрокой.
type Filter struct {
	UserID string
	Region string
	Action string
	From   time.Time
	To     time.Time
}

// Ledger — единственный разделяемый мутабельный ресурс движка.
// Запись сериализуется мьютексом, чтение отдает консистентный снапшот.
// Никакого глобального состояния: экземпляр создается на старте сервиса
// и инжектируется в оркестратор.
type Ledger struct {
	mu           sync.RWMutex
	entries      []Entry
	lastActivity time.Time

	adminToken string
	observers  []Observer
	logger     *zap.Logger
}

func NewLedger(adminToken string, logger *zap.Logger) *Ledger {
	return &Ledger{
		adminToken: adminToken,
		logger:     logger.Named("audit"),
	}
}

// Subscribe регистрирует наблюдателя. Вызывать до начала записи:
// список наблюдателей после старта не мутирует, поэтому фан-аут
// не требует отдельной блокировки.
func (l *Ledger) Subscribe(fn Observer) {
	l.observers = append(l.observers, fn)
}

// Record добавляет запись и синхронно уведомляет наблюдателей.
// Details копируются: вызывающая сторона не должна держать ссылок
// внутрь леджера.
func (l *Ledger) Record(p RecordParams) Entry {
	e := Entry{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		UserID:    p.UserID,
		Action:    p.Action,
		Details:   copyDetails(p.Details),
		Region:    p.Region,
		IPAddress: p.IPAddress,
		UserAgent: p.UserAgent,
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.lastActivity = e.Timestamp
	l.mu.Unlock()

	// Уведомление вне блокировки: наблюдатель имеет право дернуть Query
	l.notify(e)
	return e
}

func (l *Ledger) notify(e Entry) {
	for _, fn := range l.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					l.logger.Error("audit observer panicked", zap.Any("panic", r), zap.String("entry_id", e.ID))
				}
			}()
			fn(e)
		}()
	}
}

// Query возвращает копии подходящих записей, отсортированные по
// Timestamp по убыванию. Конкурентные Record не рвут выборку:
// фильтрация идет по срезу под RLock.
func (l *Ledger) Query(f Filter) []Entry {
	l.mu.RLock()
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	l.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func (f Filter) matches(e Entry) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.Region != "" && e.Region != f.Region {
		return false
	}
	if f.Action != "" && !strings.Contains(strings.ToLower(e.Action), strings.ToLower(f.Action)) {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	return true
}

// Clear — привилегированная операция полной очистки. Токен сверяется
// строго; пустой сконфигурированный токен значит «операция запрещена».
// Сам факт очистки записывается НОВОЙ записью, поэтому «очищенный» лог
// содержит ровно одну запись — это заложенное поведение, а не баг.
func (l *Ledger) Clear(userID, adminToken string) (int, error) {
	if l.adminToken == "" || adminToken != l.adminToken {
		l.logger.Warn("audit clear rejected", zap.String("user_id", userID))
		return 0, ErrUnauthorized
	}

	l.mu.Lock()
	cleared := len(l.entries)
	l.entries = nil
	l.mu.Unlock()

	l.Record(RecordParams{
		Action: ActionLogCleared,
		UserID: userID,
		Details: map[string]any{
			"cleared_count": cleared,
		},
	})
	return cleared, nil
}

// Size — текущее количество записей (для healthcheck)
func (l *Ledger) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// LastActivity — таймстемп последней записи
func (l *Ledger) LastActivity() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastActivity
}

func copyDetails(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
