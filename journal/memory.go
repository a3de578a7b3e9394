package journal

import (
	"sync"

	"github.com/rustyeddy/tradeledger/internal/id"
)

// Memory keeps records in process. It is the default sink for tests and
// for runs that do not need a durable history.
type Memory struct {
	mu        sync.RWMutex
	runID     string
	orders    []OrderRecord
	positions []PositionRecord
	equity    []EquitySnapshot
}

func NewMemory() *Memory {
	return &Memory{runID: id.New()}
}

func (m *Memory) RunID() string { return m.runID }

func (m *Memory) RecordOrder(o OrderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.RunID = m.runID
	m.orders = append(m.orders, o)
	return nil
}

func (m *Memory) RecordPosition(p PositionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.RunID = m.runID
	m.positions = append(m.positions, p)
	return nil
}

func (m *Memory) RecordEquity(e EquitySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.RunID = m.runID
	m.equity = append(m.equity, e)
	return nil
}

func (m *Memory) Orders() ([]OrderRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]OrderRecord(nil), m.orders...), nil
}

func (m *Memory) Positions() ([]PositionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]PositionRecord(nil), m.positions...), nil
}

func (m *Memory) Equity() ([]EquitySnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]EquitySnapshot(nil), m.equity...), nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = nil
	m.positions = nil
	m.equity = nil
	return nil
}

func (m *Memory) Close() error { return nil }
