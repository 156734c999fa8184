package match

import (
	"sync/atomic"
	"time"

	"github.com/quagmt/udecimal"
)

var two = udecimal.MustFromInt64(2, 0)

// logIDs hands out the engine-wide log sequence and trade IDs.
type logIDs struct {
	seq     sequencer
	tradeID atomic.Uint64
}

// tradePrice picks the execution price of a crossing buy/sell pair.
func tradePrice(policy PricePolicy, buy, sell *Order) udecimal.Decimal {
	older, younger := buy, sell
	if sell.Sequence < buy.Sequence {
		older, younger = sell, buy
	}

	switch policy {
	case PricePolicyAggressor:
		return younger.Price
	case PricePolicyMidpoint:
		mid, err := buy.Price.Add(sell.Price).Div(two)
		if err != nil {
			return older.Price
		}
		return mid
	default:
		return older.Price
	}
}

// match crosses the two sides of the book until the best bid is below the
// best ask or a side runs dry. It returns the trade logs in execution order.
//
// Both side locks are held for the whole pass, so partially filled heads are
// decremented where they rest and keep their place. Submitters of the book
// wait for the pass to finish; other books are unaffected.
func (book *OrderBook) match(policy PricePolicy, ids *logIDs) []*OrderBookLog {
	var logs []*OrderBookLog

	book.lockBoth()
	defer book.unlockBoth()

	now := time.Now().UTC()
	for {
		buy, ok := book.bidQueue.headLocked()
		if !ok {
			break
		}
		sell, ok := book.askQueue.headLocked()
		if !ok {
			break
		}
		if buy.Price.LessThan(sell.Price) {
			break
		}

		qty := min(buy.Quantity, sell.Quantity)
		price := tradePrice(policy, &buy, &sell)

		book.bidQueue.fillHeadLocked(qty)
		book.askQueue.fillHeadLocked(qty)
		buy.Quantity -= qty
		sell.Quantity -= qty

		logs = append(logs, NewMatchLog(ids.seq.Next(), ids.tradeID.Add(1), book.slot, &buy, &sell, price, qty, now))
	}

	return logs
}
