package match

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// instrument is one entry of the symbol table. It never changes after creation
// apart from the dirty flag.
type instrument struct {
	ticker string
	slot   uint32
	book   *OrderBook

	// dirty is set by deferred submissions and cleared by the matcher before
	// it runs a pass.
	dirty atomic.Bool
}

// registry maps tickers to a bounded, append-only table of instrument slots.
//
// Lookups go through a sync.Map and never lock. Creation is serialized by mu
// so that racing creators of one ticker agree on a single slot. A slot is
// written before count is advanced, so slots[i] may be read without locking
// for every i < count.
type registry struct {
	mu    sync.Mutex
	index sync.Map // ticker -> *instrument
	slots []*instrument
	count atomic.Uint32
}

func newRegistry(capacity int) *registry {
	return &registry{
		slots: make([]*instrument, capacity),
	}
}

// Lookup returns the instrument for ticker without creating it.
func (r *registry) Lookup(ticker string) (*instrument, bool) {
	v, ok := r.index.Load(ticker)
	if !ok {
		return nil, false
	}
	inst, _ := v.(*instrument)
	return inst, true
}

// ResolveOrCreate returns the instrument for ticker, creating it on first use.
// Returns ErrCapacityExceeded when every slot is taken.
func (r *registry) ResolveOrCreate(ticker string) (*instrument, error) {
	if inst, ok := r.Lookup(ticker); ok {
		return inst, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another creator may have won while we waited.
	if inst, ok := r.Lookup(ticker); ok {
		return inst, nil
	}

	n := r.count.Load()
	if int(n) >= len(r.slots) {
		return nil, fmt.Errorf("%w: %d instruments in use, cannot add %q", ErrCapacityExceeded, n, ticker)
	}

	inst := &instrument{
		ticker: ticker,
		slot:   n,
		book:   NewOrderBook(ticker, n),
	}
	r.slots[n] = inst
	r.count.Store(n + 1)
	r.index.Store(ticker, inst)

	logger().Info("instrument created", zap.String("ticker", ticker), zap.Uint32("slot", n))
	return inst, nil
}

// Slot returns the instrument in slot i.
func (r *registry) Slot(i uint32) (*instrument, bool) {
	if i >= r.count.Load() {
		return nil, false
	}
	return r.slots[i], true
}

// Len returns the number of created instruments.
func (r *registry) Len() int {
	return int(r.count.Load())
}

// Cap returns the slot table capacity.
func (r *registry) Cap() int {
	return len(r.slots)
}

// Range calls fn for every instrument in slot order until fn returns false.
func (r *registry) Range(fn func(inst *instrument) bool) {
	n := r.count.Load()
	for i := uint32(0); i < n; i++ {
		if !fn(r.slots[i]) {
			return
		}
	}
}
