package audit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/quantenergx/filing-gateway/internal/audit"
	"go.uber.org/zap"
)

type memArchiver struct {
	mu      sync.Mutex
	batches [][]audit.Entry
}

func (m *memArchiver) WriteBatch(ctx context.Context, entries []audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch := make([]audit.Entry, len(entries))
	copy(batch, entries)
	m.batches = append(m.batches, batch)
	return nil
}

func (m *memArchiver) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func TestPipelineFlushesOnBatchSize(t *testing.T) {
	arch := &memArchiver{}
	p := audit.NewPipeline(arch, zap.NewNop(), 100, 3, time.Hour)
	p.Start()
	defer p.Stop()

	for i := 0; i < 3; i++ {
		p.Log(audit.Entry{ID: "e", Action: "submission_started"})
	}

	deadline := time.Now().Add(time.Second)
	for arch.total() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if arch.total() != 3 {
		t.Fatalf("archived %d entries, want 3", arch.total())
	}
}

func TestPipelineDrainsOnStop(t *testing.T) {
	arch := &memArchiver{}
	p := audit.NewPipeline(arch, zap.NewNop(), 100, 50, time.Hour)
	p.Start()

	for i := 0; i < 7; i++ {
		p.Log(audit.Entry{ID: "e", Action: "submission_completed"})
	}
	p.Stop() // буфер меньше батча: записи обязаны дойти через drain

	if arch.total() != 7 {
		t.Fatalf("drain lost entries: archived %d, want 7", arch.total())
	}
}

func TestPipelineDropsAfterStop(t *testing.T) {
	arch := &memArchiver{}
	p := audit.NewPipeline(arch, zap.NewNop(), 10, 5, time.Hour)
	p.Start()
	p.Stop()

	// Не должно паниковать на закрытом канале
	p.Log(audit.Entry{ID: "late", Action: "submission_failed"})
	if arch.total() != 0 {
		t.Fatalf("stopped pipeline must not archive, got %d", arch.total())
	}
}
