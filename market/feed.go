package market

// Feed yields quotes one at a time. Implementations return
// (ok=false, err=nil) when the stream is exhausted.
type Feed interface {
	Next() (q Quote, ok bool, err error)
	Close() error
}

// SliceFeed replays an in-memory list of quotes.
type SliceFeed struct {
	quotes []Quote
	pos    int
}

func NewSliceFeed(quotes ...Quote) *SliceFeed {
	return &SliceFeed{quotes: quotes}
}

func (f *SliceFeed) Next() (Quote, bool, error) {
	if f.pos >= len(f.quotes) {
		return Quote{}, false, nil
	}
	q := f.quotes[f.pos]
	f.pos++
	return q, true, nil
}

func (f *SliceFeed) Close() error { return nil }
