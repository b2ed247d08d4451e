package audit

/*
Pipeline — асинхронный архиватор аудит-трейла.

Леджер остается источником правды для Query/Clear; Pipeline подписывается
на него наблюдателем и уводит копии записей в долговременное хранилище
(PostgreSQL) пакетами. Принципы:
- Non-blocking: запись в канал не тормозит путь подачи; при переполнении
  буфера событие сбрасывается в обычный лог (load shedding), леджер при
  этом не страдает.
- Batching: накопление в памяти и bulk insert по лимиту или таймеру.
- Drain: при остановке канал запирается, воркер вычитывает остаток и
  делает финальный flush — перезапуск сервиса не теряет архив.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Archiver — куда физически уходят пачки записей
type Archiver interface {
	WriteBatch(ctx context.Context, entries []Entry) error
}

type Pipeline struct {
	ch     chan Entry
	repo   Archiver
	logger *zap.Logger
	wg     sync.WaitGroup

	batchSize     int
	flushInterval time.Duration

	isClosed atomic.Bool
}

func NewPipeline(repo Archiver, logger *zap.Logger, bufferSize, batchSize int, flushInterval time.Duration) *Pipeline {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &Pipeline{
		ch:            make(chan Entry, bufferSize),
		repo:          repo,
		logger:        logger.Named("audit-pipeline"),
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

func (p *Pipeline) Start() {
	p.wg.Add(1)
	go p.worker()
}

// Stop запирает вход и ждет, пока воркер допишет буфер
func (p *Pipeline) Stop() {
	p.isClosed.Store(true)

	// Крошечная пауза: Log, заставшие флаг открытым, успевают проскочить
	time.Sleep(10 * time.Millisecond)

	p.logger.Info("stopping audit pipeline: draining buffer...")
	close(p.ch)
	p.wg.Wait()
	p.logger.Info("audit pipeline stopped gracefully")
}

// Log сигнатурно совместим с Observer — подключается через
// ledger.Subscribe(pipeline.Log)
func (p *Pipeline) Log(e Entry) {
	if p.isClosed.Load() {
		p.logger.Warn("audit entry dropped: pipeline is stopping", zap.String("id", e.ID))
		return
	}

	select {
	case p.ch <- e:
	default:
		// Буфер переполнен — архив недоступен или отстает.
		// Леджер уже хранит запись, поэтому теряем только архивную копию.
		p.logger.Error("audit_archive_overflow",
			zap.String("id", e.ID),
			zap.String("action", e.Action),
		)
	}
}

// Len — текущая заполненность буфера (для метрики backpressure)
func (p *Pipeline) Len() int { return len(p.ch) }

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]Entry, 0, p.batchSize)
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст сервиса может быть уже закрыт
		if err := p.repo.WriteBatch(context.Background(), batch); err != nil {
			p.logger.Error("audit archive flush failed", zap.Int("batch", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case e, ok := <-p.ch:
			if !ok {
				// Канал закрыт в Stop(): остаток уже вычитан, финальный сброс
				flush()
				p.logger.Info("audit pipeline worker finished")
				return
			}
			batch = append(batch, e)
			if len(batch) >= p.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
