package match

// OrderBookSnapshot contains the resting orders of a single instrument.
type OrderBookSnapshot struct {
	Ticker  string  `json:"ticker"`
	Slot    uint32  `json:"slot"`
	SeqID   uint64  `json:"seq_id"`   // Engine log sequence when the snapshot was taken
	TradeID uint64  `json:"trade_id"` // Last trade ID when the snapshot was taken
	Bids    []Order `json:"bids"`     // Ordered list of bids (best price first)
	Asks    []Order `json:"asks"`     // Ordered list of asks (best price first)
}

// RestingQuantity returns the summed remaining quantity of every order on both sides.
func (snap *OrderBookSnapshot) RestingQuantity() uint64 {
	var total uint64
	for i := range snap.Bids {
		total += uint64(snap.Bids[i].Quantity)
	}
	for i := range snap.Asks {
		total += uint64(snap.Asks[i].Quantity)
	}
	return total
}

// Crossed reports whether the best bid is at or above the best ask.
func (snap *OrderBookSnapshot) Crossed() bool {
	if len(snap.Bids) == 0 || len(snap.Asks) == 0 {
		return false
	}
	return !snap.Bids[0].Price.LessThan(snap.Asks[0].Price)
}
