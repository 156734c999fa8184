package match

import (
	"testing"

	"github.com/quagmt/udecimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restOrders(t *testing.T, book *OrderBook, orders ...Order) {
	t.Helper()
	ids := &logIDs{}
	for _, ord := range orders {
		_, err := book.insert(ord, ids)
		require.NoError(t, err)
	}
}

func TestMatchScenarioSweepsBestBidFirst(t *testing.T) {
	book := NewOrderBook("X", 0)
	restOrders(t, book,
		newTestOrder("b1", Buy, 101, 10, 1),
		newTestOrder("b2", Buy, 102, 5, 2),
		newTestOrder("s1", Sell, 100, 8, 3),
	)

	logs := book.match(PricePolicyOlder, &logIDs{})
	defer releaseBookLogs(logs)

	require.Len(t, logs, 2)

	assert.Equal(t, LogTypeMatch, logs[0].Type)
	assert.Equal(t, "b2", logs[0].BuyOrderID)
	assert.Equal(t, "s1", logs[0].SellOrderID)
	assert.Equal(t, uint32(5), logs[0].Quantity)
	assert.Equal(t, "102", logs[0].Price.String())
	assert.Equal(t, uint32(0), logs[0].BuyLeft)
	assert.Equal(t, uint32(3), logs[0].SellLeft)
	assert.Equal(t, Sell, logs[0].Side)

	assert.Equal(t, "b1", logs[1].BuyOrderID)
	assert.Equal(t, uint32(3), logs[1].Quantity)
	assert.Equal(t, "101", logs[1].Price.String())
	assert.Equal(t, uint32(7), logs[1].BuyLeft)
	assert.Equal(t, uint32(0), logs[1].SellLeft)

	assert.Less(t, logs[0].SequenceID, logs[1].SequenceID)
	assert.Equal(t, uint64(1), logs[0].TradeID)
	assert.Equal(t, uint64(2), logs[1].TradeID)

	snap := book.Snapshot()
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, "b1", snap.Bids[0].ID)
	assert.Equal(t, uint32(7), snap.Bids[0].Quantity)
	assert.Empty(t, snap.Asks)
}

func TestMatchNoCross(t *testing.T) {
	book := NewOrderBook("X", 0)
	restOrders(t, book,
		newTestOrder("b1", Buy, 99, 10, 1),
		newTestOrder("s1", Sell, 100, 10, 2),
	)

	logs := book.match(PricePolicyOlder, &logIDs{})
	assert.Empty(t, logs)
	assert.Equal(t, int64(1), book.Stats().BidOrderCount)
	assert.Equal(t, int64(1), book.Stats().AskOrderCount)
}

func TestMatchOneSideEmpty(t *testing.T) {
	book := NewOrderBook("X", 0)
	restOrders(t, book, newTestOrder("b1", Buy, 99, 10, 1))

	assert.Empty(t, book.match(PricePolicyOlder, &logIDs{}))

	empty := NewOrderBook("Y", 1)
	assert.Empty(t, empty.match(PricePolicyOlder, &logIDs{}))
}

func TestMatchPartialFillKeepsPriority(t *testing.T) {
	book := NewOrderBook("X", 0)
	restOrders(t, book,
		newTestOrder("s1", Sell, 100, 10, 1),
		newTestOrder("s2", Sell, 100, 10, 2),
		newTestOrder("b1", Buy, 100, 4, 3),
	)

	logs := book.match(PricePolicyOlder, &logIDs{})
	releaseBookLogs(logs)

	snap := book.Snapshot()
	require.Len(t, snap.Asks, 2)
	assert.Equal(t, "s1", snap.Asks[0].ID)
	assert.Equal(t, uint32(6), snap.Asks[0].Quantity)
	assert.Equal(t, "s2", snap.Asks[1].ID)

	// A later buy at the same price still hits the partially filled head first.
	restOrders(t, book, newTestOrder("b2", Buy, 100, 7, 4))
	logs = book.match(PricePolicyOlder, &logIDs{})
	defer releaseBookLogs(logs)

	require.Len(t, logs, 2)
	assert.Equal(t, "s1", logs[0].SellOrderID)
	assert.Equal(t, uint32(6), logs[0].Quantity)
	assert.Equal(t, "s2", logs[1].SellOrderID)
	assert.Equal(t, uint32(1), logs[1].Quantity)
}

func TestMatchExactFillClearsBoth(t *testing.T) {
	book := NewOrderBook("X", 0)
	restOrders(t, book,
		newTestOrder("s1", Sell, 100, 5, 1),
		newTestOrder("b1", Buy, 100, 5, 2),
	)

	logs := book.match(PricePolicyOlder, &logIDs{})
	defer releaseBookLogs(logs)

	require.Len(t, logs, 1)
	assert.Equal(t, "500", logs[0].Amount.String())
	assert.Equal(t, int64(0), book.Stats().BidDepthCount)
	assert.Equal(t, int64(0), book.Stats().AskDepthCount)
}

func TestTradePrice(t *testing.T) {
	older := newTestOrder("s1", Sell, 100, 1, 1)
	younger := newTestOrder("b1", Buy, 103, 1, 2)

	testCases := []struct {
		policy PricePolicy
		want   string
	}{
		{PricePolicyOlder, "100"},
		{PricePolicyAggressor, "103"},
		{PricePolicyMidpoint, "101.5"},
		{PricePolicy("unknown"), "100"},
	}

	for _, tc := range testCases {
		t.Run(string(tc.policy), func(t *testing.T) {
			got := tradePrice(tc.policy, &younger, &older)
			assert.Equal(t, tc.want, got.String())
		})
	}

	t.Run("older buy", func(t *testing.T) {
		buy := newTestOrder("b1", Buy, 105, 1, 1)
		sell := newTestOrder("s1", Sell, 100, 1, 2)
		assert.Equal(t, "105", tradePrice(PricePolicyOlder, &buy, &sell).String())
		assert.Equal(t, "100", tradePrice(PricePolicyAggressor, &buy, &sell).String())
	})
}

func TestMatchConservation(t *testing.T) {
	book := NewOrderBook("X", 0)
	orders := []Order{
		newTestOrder("b1", Buy, 105, 3, 1),
		newTestOrder("s1", Sell, 101, 4, 2),
		newTestOrder("b2", Buy, 103, 9, 3),
		newTestOrder("s2", Sell, 103, 2, 4),
		newTestOrder("s3", Sell, 99, 6, 5),
		newTestOrder("b3", Buy, 98, 1, 6),
	}
	restOrders(t, book, orders...)

	var submitted uint64
	for _, ord := range orders {
		submitted += uint64(ord.Quantity)
	}

	logs := book.match(PricePolicyMidpoint, &logIDs{})
	defer releaseBookLogs(logs)

	var traded uint64
	for _, log := range logs {
		traded += uint64(log.Quantity)
		assert.False(t, log.BuyPrice.LessThan(log.SellPrice))
		assert.False(t, log.Price.GreaterThan(log.BuyPrice))
		assert.False(t, log.Price.LessThan(log.SellPrice))
	}

	snap := book.Snapshot()
	assert.Equal(t, submitted, 2*traded+snap.RestingQuantity())
	assert.False(t, snap.Crossed())
	assertBidOrdering(t, snap.Bids)
	assertAskOrdering(t, snap.Asks)
}

func TestMatchAmountUsesTradePrice(t *testing.T) {
	book := NewOrderBook("X", 0)
	restOrders(t, book,
		Order{ID: "s1", Side: Sell, Ticker: "X", Price: udecimal.MustParse("10.25"), Quantity: 4, Sequence: 1},
		Order{ID: "b1", Side: Buy, Ticker: "X", Price: udecimal.MustParse("11"), Quantity: 4, Sequence: 2},
	)

	logs := book.match(PricePolicyOlder, &logIDs{})
	defer releaseBookLogs(logs)

	require.Len(t, logs, 1)
	assert.Equal(t, "10.25", logs[0].Price.String())
	assert.Equal(t, "41", logs[0].Amount.String())
}
