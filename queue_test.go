package match

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/quagmt/udecimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(id string, side Side, price int64, qty uint32, seq uint64) Order {
	return Order{
		ID:       id,
		Side:     side,
		Ticker:   "BTC-USDT",
		Price:    udecimal.MustFromInt64(price, 0),
		Quantity: qty,
		Sequence: seq,
	}
}

func TestBuyerQueue(t *testing.T) {
	q := NewBuyerQueue()

	require.NoError(t, q.insertSorted(newTestOrder("101", Buy, 10, 1, 1)))
	require.NoError(t, q.insertSorted(newTestOrder("201", Buy, 20, 10, 2)))
	require.NoError(t, q.insertSorted(newTestOrder("301", Buy, 30, 10, 3)))
	require.NoError(t, q.insertSorted(newTestOrder("202", Buy, 20, 100, 4)))

	assert.Equal(t, int64(4), q.orderCount())
	assert.Equal(t, int64(3), q.depthCount())

	ord, ok := q.popBest()
	require.True(t, ok)
	assert.Equal(t, "301", ord.ID)
	assert.Equal(t, "30", ord.Price.String())
	assert.Equal(t, uint32(10), ord.Quantity)

	ord, ok = q.popBest()
	require.True(t, ok)
	assert.Equal(t, "201", ord.ID)
	assert.Equal(t, "20", ord.Price.String())
	ord.Quantity = 2
	require.NoError(t, q.reinsertPartial(ord))

	ord, ok = q.popBest()
	require.True(t, ok)
	assert.Equal(t, "201", ord.ID)
	assert.Equal(t, uint32(2), ord.Quantity)

	ord, ok = q.popBest()
	require.True(t, ok)
	assert.Equal(t, "202", ord.ID)

	ord, ok = q.popBest()
	require.True(t, ok)
	assert.Equal(t, "101", ord.ID)
	assert.Equal(t, "10", ord.Price.String())

	_, ok = q.popBest()
	assert.False(t, ok)
	assert.Equal(t, int64(0), q.orderCount())
	assert.Equal(t, int64(0), q.depthCount())
}

func TestSellerQueue(t *testing.T) {
	q := NewSellerQueue()

	require.NoError(t, q.insertSorted(newTestOrder("101", Sell, 10, 1, 1)))
	require.NoError(t, q.insertSorted(newTestOrder("201", Sell, 20, 10, 2)))
	require.NoError(t, q.insertSorted(newTestOrder("301", Sell, 30, 10, 3)))
	require.NoError(t, q.insertSorted(newTestOrder("202", Sell, 20, 100, 4)))

	expected := []string{"101", "201", "202", "301"}
	for _, id := range expected {
		ord, ok := q.popBest()
		require.True(t, ok)
		assert.Equal(t, id, ord.ID)
	}

	_, ok := q.popBest()
	assert.False(t, ok)
}

func TestQueuePeekBest(t *testing.T) {
	q := NewSellerQueue()

	_, ok := q.peekBest()
	assert.False(t, ok)

	require.NoError(t, q.insertSorted(newTestOrder("a", Sell, 50, 3, 1)))
	require.NoError(t, q.insertSorted(newTestOrder("b", Sell, 40, 3, 2)))

	ord, ok := q.peekBest()
	require.True(t, ok)
	assert.Equal(t, "b", ord.ID)

	// peek does not remove
	assert.Equal(t, int64(2), q.orderCount())
}

func TestQueueSamePriceOutOfSequence(t *testing.T) {
	q := NewBuyerQueue()

	// Producers can draw sequences in one order and reach the lock in another.
	require.NoError(t, q.insertSorted(newTestOrder("s5", Buy, 100, 1, 5)))
	require.NoError(t, q.insertSorted(newTestOrder("s2", Buy, 100, 1, 2)))
	require.NoError(t, q.insertSorted(newTestOrder("s9", Buy, 100, 1, 9)))
	require.NoError(t, q.insertSorted(newTestOrder("s1", Buy, 100, 1, 1)))
	require.NoError(t, q.insertSorted(newTestOrder("s7", Buy, 100, 1, 7)))

	snap := q.toSnapshot()
	require.Len(t, snap, 5)
	ids := make([]string, 0, len(snap))
	for _, ord := range snap {
		ids = append(ids, ord.ID)
	}
	assert.Equal(t, []string{"s1", "s2", "s5", "s7", "s9"}, ids)
}

func TestQueueFillHead(t *testing.T) {
	q := NewSellerQueue()
	require.NoError(t, q.insertSorted(newTestOrder("a", Sell, 10, 5, 1)))
	require.NoError(t, q.insertSorted(newTestOrder("b", Sell, 10, 4, 2)))

	q.mu.Lock()
	q.fillHeadLocked(3)
	head, ok := q.headLocked()
	q.mu.Unlock()

	require.True(t, ok)
	assert.Equal(t, "a", head.ID)
	assert.Equal(t, uint32(2), head.Quantity)

	depth := q.depth(10)
	require.Len(t, depth, 1)
	assert.Equal(t, uint64(6), depth[0].Size)
	assert.Equal(t, int64(2), depth[0].Count)

	q.mu.Lock()
	q.fillHeadLocked(2)
	head, ok = q.headLocked()
	q.mu.Unlock()

	require.True(t, ok)
	assert.Equal(t, "b", head.ID)
	assert.Equal(t, int64(1), q.orderCount())
	assert.Equal(t, uint64(4), q.totalQuantity())
}

func TestQueueDepth(t *testing.T) {
	q := NewBuyerQueue()
	require.NoError(t, q.insertSorted(newTestOrder("a", Buy, 10, 1, 1)))
	require.NoError(t, q.insertSorted(newTestOrder("b", Buy, 30, 2, 2)))
	require.NoError(t, q.insertSorted(newTestOrder("c", Buy, 20, 3, 3)))
	require.NoError(t, q.insertSorted(newTestOrder("d", Buy, 30, 4, 4)))

	depth := q.depth(2)
	require.Len(t, depth, 2)
	assert.Equal(t, "30", depth[0].Price.String())
	assert.Equal(t, uint64(6), depth[0].Size)
	assert.Equal(t, int64(2), depth[0].Count)
	assert.Equal(t, "20", depth[1].Price.String())
	assert.Equal(t, uint64(3), depth[1].Size)

	assert.Len(t, q.depth(100), 3)
}

func TestQueueConcurrentInsert(t *testing.T) {
	const (
		producers = 8
		perWorker = 500
	)

	q := NewBuyerQueue()
	var seq sequencer
	var wg sync.WaitGroup

	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(int64(p)))
			for i := 0; i < perWorker; i++ {
				ord := newTestOrder("", Buy, int64(r.Intn(20)+1), uint32(r.Intn(9)+1), seq.Next())
				assert.NoError(t, q.insertSorted(ord))
			}
		}(p)
	}
	wg.Wait()

	snap := q.toSnapshot()
	require.Len(t, snap, producers*perWorker)
	assertBidOrdering(t, snap)
}

func TestQueueConcurrentInsertPop(t *testing.T) {
	const (
		preload   = 200
		producers = 4
		perWorker = 300
		consumers = 4
		perPopper = 250
	)

	q := NewBuyerQueue()
	var seq sequencer
	inserted := make(map[string]bool, preload+producers*perWorker)

	r := rand.New(rand.NewSource(42))
	for i := 0; i < preload; i++ {
		id := fmt.Sprintf("pre-%d", i)
		inserted[id] = true
		require.NoError(t, q.insertSorted(newTestOrder(id, Buy, int64(r.Intn(20)+1), 1, seq.Next())))
	}
	for p := 0; p < producers; p++ {
		for i := 0; i < perWorker; i++ {
			inserted[fmt.Sprintf("p%d-%d", p, i)] = true
		}
	}

	popped := make([][]Order, consumers)
	var wg sync.WaitGroup
	wg.Add(producers + consumers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(int64(p)))
			for i := 0; i < perWorker; i++ {
				ord := newTestOrder(fmt.Sprintf("p%d-%d", p, i), Buy, int64(r.Intn(20)+1), 1, seq.Next())
				assert.NoError(t, q.insertSorted(ord))
			}
		}(p)
	}
	for c := 0; c < consumers; c++ {
		go func(c int) {
			defer wg.Done()
			for i := 0; i < perPopper; i++ {
				if ord, ok := q.popBest(); ok {
					popped[c] = append(popped[c], ord)
				}
			}
		}(c)
	}
	wg.Wait()

	seen := make(map[string]int, len(inserted))
	for _, orders := range popped {
		for _, ord := range orders {
			seen[ord.ID]++
		}
	}
	remaining := q.toSnapshot()
	for _, ord := range remaining {
		seen[ord.ID]++
	}

	require.Len(t, seen, len(inserted))
	for id, n := range seen {
		assert.True(t, inserted[id], "unknown order %s", id)
		assert.Equal(t, 1, n, "order %s seen %d times", id, n)
	}
	assert.Equal(t, int64(len(remaining)), q.orderCount())
	assertBidOrdering(t, remaining)
}

// assertBidOrdering checks that prices never increase and that equal prices
// appear in ascending sequence.
func assertBidOrdering(t assert.TestingT, orders []Order) {
	for i := 1; i < len(orders); i++ {
		prev, cur := orders[i-1], orders[i]
		if !assert.False(t, cur.Price.GreaterThan(prev.Price), "bid price increased at %d", i) {
			return
		}
		if cur.Price.Equal(prev.Price) {
			if !assert.Less(t, prev.Sequence, cur.Sequence, "bid sequence out of order at %d", i) {
				return
			}
		}
	}
}

// assertAskOrdering checks that prices never decrease and that equal prices
// appear in ascending sequence.
func assertAskOrdering(t assert.TestingT, orders []Order) {
	for i := 1; i < len(orders); i++ {
		prev, cur := orders[i-1], orders[i]
		if !assert.False(t, cur.Price.LessThan(prev.Price), "ask price decreased at %d", i) {
			return
		}
		if cur.Price.Equal(prev.Price) {
			if !assert.Less(t, prev.Sequence, cur.Sequence, "ask sequence out of order at %d", i) {
				return
			}
		}
	}
}
