package match

// CalculateDepthChanges returns the per-level size changes a log implies for
// a depth view of the book.
//
// An open adds its quantity on its own side. A match consumes the traded
// quantity from both resting orders, each at its own limit price, since the
// trade price may differ from either. Rejected orders never entered the book.
func CalculateDepthChanges(log *OrderBookLog) []DepthChange {
	switch log.Type {
	case LogTypeOpen:
		return []DepthChange{{
			Side:     log.Side,
			Price:    log.Price,
			SizeDiff: int64(log.Quantity),
		}}
	case LogTypeMatch:
		return []DepthChange{
			{
				Side:     Buy,
				Price:    log.BuyPrice,
				SizeDiff: -int64(log.Quantity),
			},
			{
				Side:     Sell,
				Price:    log.SellPrice,
				SizeDiff: -int64(log.Quantity),
			},
		}
	case LogTypeReject:
		return nil
	}

	return nil
}
