package match

import (
	"github.com/0x5487/concurrent-matching-engine/protocol"
	"github.com/quagmt/udecimal"
)

type Side = protocol.Side

const (
	Buy  Side = protocol.SideBuy
	Sell Side = protocol.SideSell
)

type LogType = protocol.LogType

const (
	LogTypeOpen   LogType = protocol.LogTypeOpen
	LogTypeMatch  LogType = protocol.LogTypeMatch
	LogTypeReject LogType = protocol.LogTypeReject
)

type RejectReason = protocol.RejectReason

const (
	RejectReasonNone             RejectReason = protocol.RejectReasonNone
	RejectReasonCapacityExceeded RejectReason = protocol.RejectReasonCapacityExceeded
	RejectReasonInvalidOrder     RejectReason = protocol.RejectReasonInvalidOrder
	RejectReasonShutdown         RejectReason = protocol.RejectReasonShutdown
)

type PricePolicy = protocol.PricePolicy

const (
	PricePolicyOlder     PricePolicy = protocol.PricePolicyOlder
	PricePolicyAggressor PricePolicy = protocol.PricePolicyAggressor
	PricePolicyMidpoint  PricePolicy = protocol.PricePolicyMidpoint
)

type MatchMode = protocol.MatchMode

const (
	MatchModeInline   MatchMode = protocol.MatchModeInline
	MatchModeDeferred MatchMode = protocol.MatchModeDeferred
)

// Order represents the state of a resting order.
// Everything except Quantity is fixed once Submit returns.
type Order struct {
	ID        string           `json:"id"`
	Side      Side             `json:"side"`
	Ticker    string           `json:"ticker"`
	Price     udecimal.Decimal `json:"price"`
	Quantity  uint32           `json:"quantity"` // Remaining quantity
	Sequence  uint64           `json:"seq"`      // Submission order, used as the time-priority tie-break
	Timestamp int64            `json:"timestamp"`
}

// OrderHandle is returned to the submitter of an accepted order.
type OrderHandle struct {
	OrderID  string `json:"order_id"`
	Sequence uint64 `json:"seq"`
	Ticker   string `json:"ticker"`
	Slot     uint32 `json:"slot"`
}

// DepthItem is one aggregated price level of a side queue.
type DepthItem struct {
	Price udecimal.Decimal
	Size  uint64
	Count int64
}

// Depth is the top of both sides of one instrument.
type Depth struct {
	UpdateID uint64       `json:"update_id"`
	Asks     []*DepthItem `json:"asks"`
	Bids     []*DepthItem `json:"bids"`
}

// BookStats contains statistics about the order book queues
type BookStats struct {
	AskDepthCount int64
	AskOrderCount int64
	BidDepthCount int64
	BidOrderCount int64
}

// DepthChange represents a change in the order book depth.
type DepthChange struct {
	Side     Side
	Price    udecimal.Decimal
	SizeDiff int64
}

// PriceLevel is one level of an AggregatedBook side.
type PriceLevel struct {
	Price udecimal.Decimal
	Size  int64
}
