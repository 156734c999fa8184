package match

import (
	"fmt"
	"sync"

	"github.com/igrmk/treemap/v2"
	"github.com/quagmt/udecimal"
)

// AggregatedBook maintains a simplified view of the order books,
// tracking only price levels and their aggregated sizes (depth).
// It is designed for downstream services that rebuild depth from the
// OrderBookLog stream, and can itself be used as a PublishLog.
//
// Opens and matches of one instrument may arrive in either order, so a level
// can be transiently negative. A level whose size returns to zero is removed.
type AggregatedBook struct {
	mu    sync.RWMutex
	seqID uint64 // Highest SequenceID applied
	books map[string]*aggregatedSides
}

type aggregatedSides struct {
	since uint64 // logs at or below this sequence are already in the levels
	ask   *treemap.TreeMap[udecimal.Decimal, int64]
	bid *treemap.TreeMap[udecimal.Decimal, int64]
}

func newAggregatedSides() *aggregatedSides {
	less := func(a, b udecimal.Decimal) bool {
		return a.LessThan(b)
	}
	return &aggregatedSides{
		ask: treemap.NewWithKeyCompare[udecimal.Decimal, int64](less),
		bid: treemap.NewWithKeyCompare[udecimal.Decimal, int64](less),
	}
}

// NewAggregatedBook creates an empty AggregatedBook.
func NewAggregatedBook() *AggregatedBook {
	return &AggregatedBook{
		books: make(map[string]*aggregatedSides),
	}
}

// SequenceID returns the highest sequence ID applied so far.
func (ab *AggregatedBook) SequenceID() uint64 {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	return ab.seqID
}

// Publish replays logs. Logs that cannot be applied are skipped.
func (ab *AggregatedBook) Publish(logs ...*OrderBookLog) {
	for _, log := range logs {
		_ = ab.Replay(log)
	}
}

// Replay applies a log to the aggregated state.
// Reject logs leave the depth unchanged but still advance the sequence ID.
// Logs already covered by the snapshot a ticker was rebuilt from are skipped.
func (ab *AggregatedBook) Replay(log *OrderBookLog) error {
	if log == nil {
		return fmt.Errorf("%w: nil log", ErrInvalidParam)
	}

	changes := CalculateDepthChanges(log)

	ab.mu.Lock()
	defer ab.mu.Unlock()

	if log.SequenceID > ab.seqID {
		ab.seqID = log.SequenceID
	}
	if len(changes) == 0 {
		return nil
	}

	sides, ok := ab.books[log.Ticker]
	if !ok {
		sides = newAggregatedSides()
		ab.books[log.Ticker] = sides
	}
	if log.SequenceID <= sides.since {
		return nil
	}

	for _, change := range changes {
		tree := sides.ask
		if change.Side == Buy {
			tree = sides.bid
		}

		size, _ := tree.Get(change.Price)
		size += change.SizeDiff
		if size == 0 {
			tree.Del(change.Price)
			continue
		}
		tree.Set(change.Price, size)
	}

	return nil
}

// OnRebuild resets the view from engine snapshots. Each snapshot holds exactly
// the logs of its ticker up to its SeqID, so the log stream can be replayed
// afterwards from any earlier point without double counting.
func (ab *AggregatedBook) OnRebuild(snaps ...*OrderBookSnapshot) {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	ab.seqID = 0
	ab.books = make(map[string]*aggregatedSides, len(snaps))

	for _, snap := range snaps {
		if snap.SeqID > ab.seqID {
			ab.seqID = snap.SeqID
		}
		sides := newAggregatedSides()
		sides.since = snap.SeqID
		for i := range snap.Bids {
			size, _ := sides.bid.Get(snap.Bids[i].Price)
			sides.bid.Set(snap.Bids[i].Price, size+int64(snap.Bids[i].Quantity))
		}
		for i := range snap.Asks {
			size, _ := sides.ask.Get(snap.Asks[i].Price)
			sides.ask.Set(snap.Asks[i].Price, size+int64(snap.Asks[i].Quantity))
		}
		ab.books[snap.Ticker] = sides
	}
}

// Depth returns the aggregated size at a price level.
// Returns zero if the level does not exist.
func (ab *AggregatedBook) Depth(ticker string, side Side, price udecimal.Decimal) int64 {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	sides, ok := ab.books[ticker]
	if !ok {
		return 0
	}
	tree := sides.ask
	if side == Buy {
		tree = sides.bid
	}
	size, _ := tree.Get(price)
	return size
}

// Levels returns up to limit levels of one side, best price first.
// A limit of zero returns every level.
func (ab *AggregatedBook) Levels(ticker string, side Side, limit int) []PriceLevel {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	sides, ok := ab.books[ticker]
	if !ok {
		return nil
	}

	var levels []PriceLevel
	full := func() bool {
		return limit > 0 && len(levels) >= limit
	}

	if side == Buy {
		for it := sides.bid.Reverse(); it.Valid() && !full(); it.Next() {
			levels = append(levels, PriceLevel{Price: it.Key(), Size: it.Value()})
		}
		return levels
	}

	for it := sides.ask.Iterator(); it.Valid() && !full(); it.Next() {
		levels = append(levels, PriceLevel{Price: it.Key(), Size: it.Value()})
	}
	return levels
}
