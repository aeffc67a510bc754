package service

import (
	"context"
	"sync"

	"multisignal_bot/internal/models"
	"multisignal_bot/pkg/logger"

	"go.uber.org/multierr"
)

const defaultMemoryCap = 1000

// Memory: кольцо последних записей для API и тестов.
type Memory struct {
	mu   sync.RWMutex
	cap  int
	recs []models.TradeRecord
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = defaultMemoryCap
	}
	return &Memory{cap: capacity}
}

func (m *Memory) Record(_ context.Context, rec models.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	if over := len(m.recs) - m.cap; over > 0 {
		m.recs = append([]models.TradeRecord(nil), m.recs[over:]...)
	}
	return nil
}

// All: копия в порядке записи.
func (m *Memory) All() []models.TradeRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.TradeRecord(nil), m.recs...)
}

// Recent: последние limit записей, новые первыми, как у Postgres.
func (m *Memory) Recent(_ context.Context, limit int) ([]models.TradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.recs)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.TradeRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.recs[i])
	}
	return out, nil
}

// Fanout пишет запись во все журналы. Ошибка одного не мешает остальным.
type Fanout struct {
	sinks []models.TradeLog
}

func NewFanout(sinks ...models.TradeLog) *Fanout {
	out := make([]models.TradeLog, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Fanout{sinks: out}
}

func (f *Fanout) Record(ctx context.Context, rec models.TradeRecord) error {
	var err error
	for _, s := range f.sinks {
		if e := s.Record(ctx, rec); e != nil {
			logger.Error("[JOURNAL] %s %s: %v", rec.Pair, rec.Action, e)
			err = multierr.Append(err, e)
		}
	}
	return err
}
