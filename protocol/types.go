package protocol

// Side represents the order side (Buy/Sell).
type Side int8

const (
	SideBuy  Side = 1
	SideSell Side = 2
)

// String returns the lowercase name of the side.
func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	}
	return "unknown"
}

// Valid reports whether s is one of the two known sides.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// LogType represents the type of event log.
type LogType string

const (
	LogTypeOpen   LogType = "open"
	LogTypeMatch  LogType = "match"
	LogTypeReject LogType = "reject"
)

// RejectReason represents the reason why an order was rejected.
type RejectReason string

const (
	RejectReasonNone             RejectReason = ""
	RejectReasonCapacityExceeded RejectReason = "capacity_exceeded" // instrument table is full
	RejectReasonInvalidOrder     RejectReason = "invalid_order"     // bad quantity, price, side or ticker
	RejectReasonShutdown         RejectReason = "shutdown"
)

// PricePolicy decides which price a trade between two resting orders executes at.
type PricePolicy string

const (
	// PricePolicyOlder uses the price of the order with the lower sequence.
	PricePolicyOlder PricePolicy = "older"
	// PricePolicyAggressor uses the price of the order with the higher sequence.
	PricePolicyAggressor PricePolicy = "aggressor"
	// PricePolicyMidpoint uses the mean of the two order prices.
	PricePolicyMidpoint PricePolicy = "midpoint"
)

// MatchMode controls when matching runs relative to submission.
type MatchMode string

const (
	// MatchModeInline runs a matching pass for the instrument right after each submission.
	MatchModeInline MatchMode = "inline"
	// MatchModeDeferred leaves matching to RunMatchingPass or the background matcher.
	MatchModeDeferred MatchMode = "deferred"
)

// DepthItem is one aggregated price level.
type DepthItem struct {
	Price string `json:"price"`
	Size  uint64 `json:"size"`
	Count int64  `json:"count"`
}

// GetDepthResponse represents the state of the order book depth.
type GetDepthResponse struct {
	UpdateID uint64       `json:"update_id"`
	Asks     []*DepthItem `json:"asks"`
	Bids     []*DepthItem `json:"bids"`
}

// GetStatsResponse contains statistics about the order book queues.
type GetStatsResponse struct {
	AskDepthCount int64 `json:"ask_depth_count"`
	AskOrderCount int64 `json:"ask_order_count"`
	BidDepthCount int64 `json:"bid_depth_count"`
	BidOrderCount int64 `json:"bid_order_count"`
}
