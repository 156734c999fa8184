package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quagmt/udecimal"
	"github.com/rs/xid"
	"go.uber.org/zap"
)

// MatchingEngine manages the order books of every instrument.
//
// Submit may be called from any number of goroutines. Matching runs either
// inline after each submission or, in deferred mode, through RunMatchingPass
// and the background matcher started by Start.
type MatchingEngine struct {
	cfg           Config
	registry      *registry
	orderSeq      sequencer
	ids           logIDs
	publishTrader PublishLog

	// Submit holds inflight for reading from its shutdown check until its logs
	// are published; Shutdown takes it for writing to wait those out.
	inflight   sync.RWMutex
	isShutdown atomic.Bool
	done       chan struct{}
	doneOnce   sync.Once
	wake       chan struct{}

	mu      sync.Mutex
	stopped chan struct{} // closed when the running matcher exits; nil when none runs
}

// NewMatchingEngine creates a new matching engine instance.
// A nil publishTrader discards every log.
func NewMatchingEngine(publishTrader PublishLog, opts ...Option) (*MatchingEngine, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if publishTrader == nil {
		publishTrader = NewDiscardPublishLog()
	}

	return &MatchingEngine{
		cfg:           cfg,
		registry:      newRegistry(cfg.MaxInstruments),
		publishTrader: publishTrader,
		done:          make(chan struct{}),
		wake:          make(chan struct{}, 1),
	}, nil
}

// Config returns the configuration the engine was built with.
func (engine *MatchingEngine) Config() Config {
	return engine.cfg
}

// Submit validates an order, assigns its sequence and ID, and rests it on its
// side of the instrument's book, creating the instrument on first use.
//
// Rejections are returned to the caller and also published as reject logs.
// Returns ErrInvalidOrder, ErrCapacityExceeded or ErrShutdown, or ctx.Err()
// when ctx is already done, in which case nothing is published.
func (engine *MatchingEngine) Submit(ctx context.Context, side Side, ticker string, quantity uint32, price udecimal.Decimal) (OrderHandle, error) {
	engine.inflight.RLock()
	defer engine.inflight.RUnlock()

	if engine.isShutdown.Load() {
		return OrderHandle{}, engine.reject(ticker, side, price, quantity, RejectReasonShutdown, ErrShutdown)
	}

	if err := ctx.Err(); err != nil {
		return OrderHandle{}, err
	}

	if err := engine.validate(side, ticker, quantity, price); err != nil {
		return OrderHandle{}, engine.reject(ticker, side, price, quantity, RejectReasonInvalidOrder, err)
	}

	inst, err := engine.registry.ResolveOrCreate(ticker)
	if err != nil {
		return OrderHandle{}, engine.reject(ticker, side, price, quantity, RejectReasonCapacityExceeded, err)
	}

	order := Order{
		Side:      side,
		Ticker:    ticker,
		Price:     price,
		Quantity:  quantity,
		Sequence:  engine.orderSeq.Next(),
		Timestamp: time.Now().UnixNano(),
	}
	order.ID = xid.New().String()

	seqID, err := inst.book.insert(order, &engine.ids)
	if err != nil {
		return OrderHandle{}, fmt.Errorf("%w: insert order %s: %v", ErrInternal, order.ID, err)
	}

	openLog := NewOpenLog(seqID, inst.slot, &order)
	engine.publishTrader.Publish(openLog)
	releaseBookLog(openLog)

	if engine.cfg.MatchMode == MatchModeInline {
		engine.runPass(inst)
	} else {
		inst.dirty.Store(true)
		engine.signal()
	}

	return OrderHandle{
		OrderID:  order.ID,
		Sequence: order.Sequence,
		Ticker:   ticker,
		Slot:     inst.slot,
	}, nil
}

func (engine *MatchingEngine) validate(side Side, ticker string, quantity uint32, price udecimal.Decimal) error {
	if !side.Valid() {
		return fmt.Errorf("%w: unknown side %d", ErrInvalidOrder, side)
	}
	if len(ticker) == 0 {
		return fmt.Errorf("%w: empty ticker", ErrInvalidOrder)
	}
	if len(ticker) > engine.cfg.MaxTickerLength {
		return fmt.Errorf("%w: ticker %q longer than %d", ErrInvalidOrder, ticker, engine.cfg.MaxTickerLength)
	}
	if quantity == 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	if price.LessThan(udecimal.Zero) {
		return fmt.Errorf("%w: negative price %s", ErrInvalidOrder, price)
	}
	return nil
}

func (engine *MatchingEngine) reject(ticker string, side Side, price udecimal.Decimal, quantity uint32, reason RejectReason, err error) error {
	logger().Warn("order rejected",
		zap.String("ticker", ticker),
		zap.Stringer("side", side),
		zap.Uint32("quantity", quantity),
		zap.String("reason", string(reason)),
		zap.Error(err),
	)

	rejectLog := NewRejectLog(engine.ids.seq.Next(), ticker, side, price, quantity, reason)
	engine.publishTrader.Publish(rejectLog)
	releaseBookLog(rejectLog)
	return err
}

func (engine *MatchingEngine) signal() {
	select {
	case engine.wake <- struct{}{}:
	default:
	}
}

// runPass matches one instrument and publishes its trades after the book
// locks are released.
func (engine *MatchingEngine) runPass(inst *instrument) int {
	logs := inst.book.match(engine.cfg.PricePolicy, &engine.ids)
	if len(logs) == 0 {
		return 0
	}
	engine.publishTrader.Publish(logs...)
	releaseBookLogs(logs)
	return len(logs)
}

// RunMatchingPass matches the instrument until no cross remains and returns
// the number of trades. Returns ErrNotFound for an unknown ticker.
func (engine *MatchingEngine) RunMatchingPass(ticker string) (int, error) {
	inst, ok := engine.registry.Lookup(ticker)
	if !ok {
		return 0, fmt.Errorf("%w: ticker %q", ErrNotFound, ticker)
	}
	return engine.runPass(inst), nil
}

// RunMatchingPassSlot is RunMatchingPass addressed by slot index.
func (engine *MatchingEngine) RunMatchingPassSlot(slot uint32) (int, error) {
	inst, ok := engine.registry.Slot(slot)
	if !ok {
		return 0, fmt.Errorf("%w: slot %d", ErrNotFound, slot)
	}
	return engine.runPass(inst), nil
}

// RunAllMatchingPasses runs a pass on every instrument and returns the total
// number of trades.
func (engine *MatchingEngine) RunAllMatchingPasses() int {
	total := 0
	engine.registry.Range(func(inst *instrument) bool {
		inst.dirty.Store(false)
		total += engine.runPass(inst)
		return true
	})
	return total
}

// runDirty matches every instrument that received an order since its last pass.
func (engine *MatchingEngine) runDirty() int {
	total := 0
	engine.registry.Range(func(inst *instrument) bool {
		if inst.dirty.CompareAndSwap(true, false) {
			total += engine.runPass(inst)
		}
		return true
	})
	return total
}

// Start runs the background matcher until ctx is done or Shutdown is called.
// It blocks; run it on its own goroutine. A final pass over every instrument
// is made before it returns.
func (engine *MatchingEngine) Start(ctx context.Context) error {
	engine.mu.Lock()
	if engine.isShutdown.Load() {
		engine.mu.Unlock()
		return ErrShutdown
	}
	if engine.stopped != nil {
		engine.mu.Unlock()
		return ErrMatcherRunning
	}
	stopped := make(chan struct{})
	engine.stopped = stopped
	engine.mu.Unlock()

	defer func() {
		engine.mu.Lock()
		engine.stopped = nil
		engine.mu.Unlock()
		close(stopped)
	}()

	logger().Info("matcher started",
		zap.String("version", EngineVersion),
		zap.String("mode", string(engine.cfg.MatchMode)),
	)

	// Orders may have been submitted before the matcher came up.
	engine.runDirty()

	for {
		select {
		case <-engine.wake:
			engine.runDirty()
		case <-engine.done:
			engine.RunAllMatchingPasses()
			logger().Info("matcher stopped")
			return nil
		case <-ctx.Done():
			engine.RunAllMatchingPasses()
			logger().Info("matcher stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		}
	}
}

// Shutdown rejects further submissions, waits for submissions already past
// the shutdown check, stops the matcher, runs a last pass over every
// instrument and closes the sink if it can be closed.
// Returns the joined errors of every step that did not finish before ctx.
func (engine *MatchingEngine) Shutdown(ctx context.Context) error {
	engine.mu.Lock()
	engine.isShutdown.Store(true)
	stopped := engine.stopped
	engine.mu.Unlock()

	var errs []error

	drained := make(chan struct{})
	go func() {
		engine.inflight.Lock()
		engine.inflight.Unlock()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("%w: waiting for submissions: %v", ErrTimeout, ctx.Err()))
	}

	engine.doneOnce.Do(func() {
		close(engine.done)
	})

	if stopped != nil {
		select {
		case <-stopped:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("%w: waiting for matcher: %v", ErrTimeout, ctx.Err()))
		}
	}

	engine.RunAllMatchingPasses()

	if closer, ok := engine.publishTrader.(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%w: closing publisher: %v", ErrTimeout, err))
		}
	}

	return errors.Join(errs...)
}

// OrderBook returns the book of ticker, or nil if the ticker was never submitted.
func (engine *MatchingEngine) OrderBook(ticker string) *OrderBook {
	inst, ok := engine.registry.Lookup(ticker)
	if !ok {
		return nil
	}
	return inst.book
}

// Instruments returns every known ticker in slot order.
func (engine *MatchingEngine) Instruments() []string {
	tickers := make([]string, 0, engine.registry.Len())
	engine.registry.Range(func(inst *instrument) bool {
		tickers = append(tickers, inst.ticker)
		return true
	})
	return tickers
}

// Depth returns the aggregated top levels of ticker.
func (engine *MatchingEngine) Depth(ticker string, limit uint32) (*Depth, error) {
	book := engine.OrderBook(ticker)
	if book == nil {
		return nil, fmt.Errorf("%w: ticker %q", ErrNotFound, ticker)
	}
	depth, err := book.Depth(limit)
	if err != nil {
		return nil, err
	}
	depth.UpdateID = engine.ids.seq.Current()
	return depth, nil
}

// Stats returns queue statistics of ticker.
func (engine *MatchingEngine) Stats(ticker string) (*BookStats, error) {
	book := engine.OrderBook(ticker)
	if book == nil {
		return nil, fmt.Errorf("%w: ticker %q", ErrNotFound, ticker)
	}
	return book.Stats(), nil
}

// BestBid returns the highest resting bid of ticker.
func (engine *MatchingEngine) BestBid(ticker string) (Order, bool) {
	book := engine.OrderBook(ticker)
	if book == nil {
		return Order{}, false
	}
	return book.BestBid()
}

// BestAsk returns the lowest resting ask of ticker.
func (engine *MatchingEngine) BestAsk(ticker string) (Order, bool) {
	book := engine.OrderBook(ticker)
	if book == nil {
		return Order{}, false
	}
	return book.BestAsk()
}

// Snapshot copies the resting orders of ticker.
func (engine *MatchingEngine) Snapshot(ticker string) (*OrderBookSnapshot, error) {
	book := engine.OrderBook(ticker)
	if book == nil {
		return nil, fmt.Errorf("%w: ticker %q", ErrNotFound, ticker)
	}
	return book.snapshot(&engine.ids), nil
}

// Snapshots copies every book in slot order. Each book is consistent on its
// own; books are not frozen relative to each other.
func (engine *MatchingEngine) Snapshots() []*OrderBookSnapshot {
	snaps := make([]*OrderBookSnapshot, 0, engine.registry.Len())
	engine.registry.Range(func(inst *instrument) bool {
		snaps = append(snaps, inst.book.snapshot(&engine.ids))
		return true
	})
	return snaps
}
