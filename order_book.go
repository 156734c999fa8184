package match

import (
	"github.com/0x5487/concurrent-matching-engine/protocol"
)

// OrderBook holds both sides of one instrument.
//
// Each side is guarded by its own lock, so submitters on different sides never
// wait for each other. Anything that needs both sides at once (a matching pass,
// a snapshot) takes the bid lock first and the ask lock second.
type OrderBook struct {
	ticker   string
	slot     uint32
	bidQueue *queue
	askQueue *queue
}

// NewOrderBook creates an empty book for one instrument.
func NewOrderBook(ticker string, slot uint32) *OrderBook {
	return &OrderBook{
		ticker:   ticker,
		slot:     slot,
		bidQueue: NewBuyerQueue(),
		askQueue: NewSellerQueue(),
	}
}

// Ticker returns the instrument symbol.
func (book *OrderBook) Ticker() string {
	return book.ticker
}

// Slot returns the instrument slot index.
func (book *OrderBook) Slot() uint32 {
	return book.slot
}

func (book *OrderBook) sideQueue(side Side) *queue {
	if side == Buy {
		return book.bidQueue
	}
	return book.askQueue
}

// insert puts order on its side and draws the sequence of its open log while
// the side is still locked, so a snapshot stamped with ids never holds an
// order whose open log is newer than the stamp. It does not match.
func (book *OrderBook) insert(order Order, ids *logIDs) (uint64, error) {
	q := book.sideQueue(order.Side)
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.insertLocked(order); err != nil {
		return 0, err
	}
	return ids.seq.Next(), nil
}

func (book *OrderBook) lockBoth() {
	book.bidQueue.mu.Lock()
	book.askQueue.mu.Lock()
}

func (book *OrderBook) unlockBoth() {
	book.askQueue.mu.Unlock()
	book.bidQueue.mu.Unlock()
}

// BestBid returns a copy of the highest bid.
func (book *OrderBook) BestBid() (Order, bool) {
	return book.bidQueue.peekBest()
}

// BestAsk returns a copy of the lowest ask.
func (book *OrderBook) BestAsk() (Order, bool) {
	return book.askQueue.peekBest()
}

// Depth returns the current depth of the order book up to the specified limit.
func (book *OrderBook) Depth(limit uint32) (*Depth, error) {
	if limit == 0 {
		return nil, ErrInvalidParam
	}

	return &Depth{
		Asks: book.askQueue.depth(limit),
		Bids: book.bidQueue.depth(limit),
	}, nil
}

// Stats returns usage statistics for the order book.
func (book *OrderBook) Stats() *BookStats {
	return &BookStats{
		AskDepthCount: book.askQueue.depthCount(),
		AskOrderCount: book.askQueue.orderCount(),
		BidDepthCount: book.bidQueue.depthCount(),
		BidOrderCount: book.bidQueue.orderCount(),
	}
}

// Snapshot copies both sides at one instant, best price first.
// SeqID and TradeID are left zero; MatchingEngine.Snapshot fills them.
func (book *OrderBook) Snapshot() *OrderBookSnapshot {
	return book.snapshot(nil)
}

// snapshot copies both sides and, when ids is set, reads the log sequence and
// trade ID under the same locks that order every insert and match of the book.
func (book *OrderBook) snapshot(ids *logIDs) *OrderBookSnapshot {
	book.lockBoth()
	defer book.unlockBoth()

	snap := &OrderBookSnapshot{
		Ticker: book.ticker,
		Slot:   book.slot,
		Bids:   book.bidQueue.snapshotLocked(),
		Asks:   book.askQueue.snapshotLocked(),
	}
	if ids != nil {
		snap.SeqID = ids.seq.Current()
		snap.TradeID = ids.tradeID.Load()
	}
	return snap
}

// Response converts the depth into its wire form.
func (d *Depth) Response() *protocol.GetDepthResponse {
	convert := func(items []*DepthItem) []*protocol.DepthItem {
		out := make([]*protocol.DepthItem, 0, len(items))
		for _, item := range items {
			out = append(out, &protocol.DepthItem{
				Price: item.Price.String(),
				Size:  item.Size,
				Count: item.Count,
			})
		}
		return out
	}

	return &protocol.GetDepthResponse{
		UpdateID: d.UpdateID,
		Asks:     convert(d.Asks),
		Bids:     convert(d.Bids),
	}
}

// Response converts the stats into their wire form.
func (s *BookStats) Response() *protocol.GetStatsResponse {
	return &protocol.GetStatsResponse{
		AskDepthCount: s.AskDepthCount,
		AskOrderCount: s.AskOrderCount,
		BidDepthCount: s.BidDepthCount,
		BidOrderCount: s.BidOrderCount,
	}
}
