package market

import (
	"fmt"
	"sync"
)

// PriceStore keeps the latest quote per symbol.
type PriceStore struct {
	mu     sync.RWMutex
	quotes Quotes
}

func NewPriceStore() *PriceStore {
	return &PriceStore{quotes: make(Quotes)}
}

func (ps *PriceStore) Set(q Quote) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.quotes[q.Symbol] = q
}

func (ps *PriceStore) Get(symbol string) (Quote, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	q, ok := ps.quotes[symbol]
	if !ok {
		return Quote{}, fmt.Errorf("no quote for %q", symbol)
	}
	return q, nil
}

// Snapshot returns a copy of every stored quote.
func (ps *PriceStore) Snapshot() Quotes {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make(Quotes, len(ps.quotes))
	for k, v := range ps.quotes {
		out[k] = v
	}
	return out
}

func (ps *PriceStore) Reset() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.quotes = make(Quotes)
}
