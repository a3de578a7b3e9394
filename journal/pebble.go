package journal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/rustyeddy/tradeledger/internal/id"
)

// Key layout: <kind>:<run id>:<seq>, seq zero-padded so keys sort in
// append order within a run.
const (
	prefixOrder    = "ord:"
	prefixPosition = "pos:"
	prefixEquity   = "eq:"
)

// Pebble is a Journal in an embedded pebble key-value store. Values are
// JSON encoded records.
type Pebble struct {
	mu    sync.Mutex
	db    *pebble.DB
	runID string
	seq   uint64
}

func NewPebble(path, runID string) (*Pebble, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", path, err)
	}
	if runID == "" {
		runID = id.New()
	}
	j := &Pebble{db: db, runID: runID}

	// Continue an existing run's sequence instead of overwriting it.
	for _, kind := range []string{prefixOrder, prefixPosition, prefixEquity} {
		last, err := j.lastSeq(kind)
		if err != nil {
			db.Close()
			return nil, err
		}
		if last > j.seq {
			j.seq = last
		}
	}
	return j, nil
}

func (j *Pebble) runPrefix(kind string) []byte {
	return []byte(kind + j.runID + ":")
}

func (j *Pebble) key(kind string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", kind, j.runID, seq))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func (j *Pebble) lastSeq(kind string) (uint64, error) {
	prefix := j.runPrefix(kind)
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, nil
	}
	k := string(iter.Key())
	seq, err := strconv.ParseUint(k[strings.LastIndexByte(k, ':')+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("journal: bad key %q: %w", k, err)
	}
	return seq, nil
}

func (j *Pebble) put(kind string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seq++
	if err := j.db.Set(j.key(kind, j.seq), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

func (j *Pebble) RunID() string { return j.runID }

func (j *Pebble) RecordOrder(o OrderRecord) error {
	o.RunID = j.runID
	return j.put(prefixOrder, o)
}

func (j *Pebble) RecordPosition(p PositionRecord) error {
	p.RunID = j.runID
	return j.put(prefixPosition, p)
}

func (j *Pebble) RecordEquity(e EquitySnapshot) error {
	e.RunID = j.runID
	return j.put(prefixEquity, e)
}

// scan decodes every value under a run prefix in key order.
func scan[T any](j *Pebble, kind string) ([]T, error) {
	prefix := j.runPrefix(kind)
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []T
	for iter.First(); iter.Valid(); iter.Next() {
		var rec T
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", iter.Key(), err)
		}
		out = append(out, rec)
	}
	return out, iter.Error()
}

func (j *Pebble) Orders() ([]OrderRecord, error) {
	return scan[OrderRecord](j, prefixOrder)
}

func (j *Pebble) Positions() ([]PositionRecord, error) {
	return scan[PositionRecord](j, prefixPosition)
}

func (j *Pebble) Equity() ([]EquitySnapshot, error) {
	return scan[EquitySnapshot](j, prefixEquity)
}

// Clear removes this run's keys.
func (j *Pebble) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, kind := range []string{prefixOrder, prefixPosition, prefixEquity} {
		prefix := j.runPrefix(kind)
		if err := j.db.DeleteRange(prefix, keyUpperBound(prefix), pebble.Sync); err != nil {
			return fmt.Errorf("failed to clear %s: %w", kind, err)
		}
	}
	j.seq = 0
	return nil
}

func (j *Pebble) Close() error {
	return j.db.Close()
}
