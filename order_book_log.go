package match

import (
	"sync"
	"time"

	"github.com/quagmt/udecimal"
)

// OrderBookLog represents an event in the order book.
// SequenceID is an engine-wide increasing ID for every event. Events of one
// instrument are published in SequenceID order by whoever produced them, but
// submitters and matchers publish independently, so a sink may see an open
// event after the match events that consumed it.
//
// - Open: an order entered a side queue
// - Match: a trade between the heads of both sides (the trade record)
// - Reject: an order never entered the book
type OrderBookLog struct {
	SequenceID uint64 `json:"seq_id"`
	// Sequential trade ID, only set for Match events
	TradeID uint64  `json:"trade_id,omitempty"`
	Type    LogType `json:"type"`
	Ticker  string  `json:"ticker"`
	Slot    uint32  `json:"slot"`
	// Open/Reject: order side. Match: side of the younger order.
	Side Side `json:"side"`
	// Open/Reject: order price. Match: trade price.
	Price udecimal.Decimal `json:"price"`
	// Open/Reject: order quantity. Match: traded quantity.
	Quantity uint32 `json:"quantity"`
	// Price * Quantity, only set for Match events
	Amount      udecimal.Decimal `json:"amount"`
	OrderID     string           `json:"order_id,omitempty"`
	OrderSeq    uint64           `json:"order_seq,omitempty"`
	BuyOrderID  string           `json:"buy_order_id,omitempty"`
	SellOrderID string           `json:"sell_order_id,omitempty"`
	BuySeq      uint64           `json:"buy_seq,omitempty"`
	SellSeq     uint64           `json:"sell_seq,omitempty"`
	BuyPrice    udecimal.Decimal `json:"buy_price"`
	SellPrice   udecimal.Decimal `json:"sell_price"`
	// Quantities left on each order after the trade
	BuyLeft      uint32       `json:"buy_left"`
	SellLeft     uint32       `json:"sell_left"`
	RejectReason RejectReason `json:"reject_reason,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

var bookLogPool = sync.Pool{
	New: func() any {
		return new(OrderBookLog)
	},
}

func acquireBookLog() *OrderBookLog {
	return bookLogPool.Get().(*OrderBookLog)
}

func releaseBookLog(log *OrderBookLog) {
	*log = OrderBookLog{}
	bookLogPool.Put(log)
}

func releaseBookLogs(logs []*OrderBookLog) {
	for _, log := range logs {
		releaseBookLog(log)
	}
}

func NewOpenLog(seqID uint64, slot uint32, order *Order) *OrderBookLog {
	log := acquireBookLog()
	log.SequenceID = seqID
	log.Type = LogTypeOpen
	log.Ticker = order.Ticker
	log.Slot = slot
	log.Side = order.Side
	log.Price = order.Price
	log.Quantity = order.Quantity
	log.OrderID = order.ID
	log.OrderSeq = order.Sequence
	log.CreatedAt = time.Now().UTC()
	return log
}

// NewMatchLog records a trade. buy and sell carry the quantities left after the trade.
func NewMatchLog(seqID uint64, tradeID uint64, slot uint32, buy *Order, sell *Order, price udecimal.Decimal, qty uint32, now time.Time) *OrderBookLog {
	log := acquireBookLog()
	log.SequenceID = seqID
	log.TradeID = tradeID
	log.Type = LogTypeMatch
	log.Ticker = buy.Ticker
	log.Slot = slot
	log.Side = Buy
	if sell.Sequence > buy.Sequence {
		log.Side = Sell
	}
	log.Price = price
	log.Quantity = qty
	log.Amount = price.Mul(udecimal.MustFromInt64(int64(qty), 0))
	log.BuyOrderID = buy.ID
	log.SellOrderID = sell.ID
	log.BuySeq = buy.Sequence
	log.SellSeq = sell.Sequence
	log.BuyPrice = buy.Price
	log.SellPrice = sell.Price
	log.BuyLeft = buy.Quantity
	log.SellLeft = sell.Quantity
	log.CreatedAt = now
	return log
}

func NewRejectLog(seqID uint64, ticker string, side Side, price udecimal.Decimal, qty uint32, reason RejectReason) *OrderBookLog {
	log := acquireBookLog()
	log.SequenceID = seqID
	log.Type = LogTypeReject
	log.Ticker = ticker
	log.Side = side
	log.Price = price
	log.Quantity = qty
	log.RejectReason = reason
	log.CreatedAt = time.Now().UTC()
	return log
}
