package match

import (
	"sync"

	"github.com/0x5487/concurrent-matching-engine/structure"
	"github.com/huandu/skiplist"
	"github.com/quagmt/udecimal"
)

// priceUnit is one price level: a chain of slab indices ordered by sequence.
type priceUnit struct {
	price     udecimal.Decimal
	chain     structure.Chain
	totalSize uint64
}

// queue is one side of one instrument.
//
// Every read or write of the level index, the chains and the order payloads
// happens under mu. Orders leave the queue only as value copies, so a slab
// index is never dereferenced after it has been freed.
type queue struct {
	mu          sync.Mutex
	side        Side
	totalOrders int64
	depths      int64
	depthList   *skiplist.SkipList
	orders      *structure.Slab[Order]
}

// NewBuyerQueue creates a new queue for buy orders (bids).
// The orders are sorted by price in descending order (highest price first).
func NewBuyerQueue() *queue {
	return &queue{
		side: Buy,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(udecimal.Decimal)
			d2, _ := rhs.(udecimal.Decimal)

			if d1.LessThan(d2) {
				return 1
			} else if d1.GreaterThan(d2) {
				return -1
			}

			return 0
		})),
		orders: structure.NewSlab[Order](defaultQueueCapacity),
	}
}

// NewSellerQueue creates a new queue for sell orders (asks).
// The orders are sorted by price in ascending order (lowest price first).
func NewSellerQueue() *queue {
	return &queue{
		side: Sell,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(udecimal.Decimal)
			d2, _ := rhs.(udecimal.Decimal)

			if d1.GreaterThan(d2) {
				return 1
			} else if d1.LessThan(d2) {
				return -1
			}

			return 0
		})),
		orders: structure.NewSlab[Order](defaultQueueCapacity),
	}
}

// insertSorted inserts an order at the position required by price-time priority.
func (q *queue) insertSorted(order Order) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.insertLocked(order)
}

// reinsertPartial puts back an order whose quantity was reduced by matching.
// Price and sequence are unchanged, so it lands where it was taken from.
func (q *queue) reinsertPartial(order Order) error {
	return q.insertSorted(order)
}

// peekBest returns a copy of the head order without removing it.
func (q *queue) peekBest() (Order, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.headLocked()
}

// popBest removes and returns the head order. ok is false when the side is empty.
func (q *queue) popBest() (Order, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	unit, idx := q.headUnitLocked()
	if unit == nil {
		return Order{}, false
	}
	ord := *q.orders.Get(idx)
	q.removeLocked(unit, idx)
	return ord, true
}

func (q *queue) insertLocked(order Order) error {
	var unit *priceUnit
	if el := q.depthList.Get(order.Price); el != nil {
		unit, _ = el.Value.(*priceUnit)
	}

	idx, err := q.orders.Alloc(order)
	if err != nil {
		return err
	}

	if unit == nil {
		unit = &priceUnit{price: order.Price, chain: structure.NewChain()}
		q.depthList.Set(order.Price, unit)
		q.depths++
	}

	// Producers draw sequences before taking the lock, so an older order can
	// arrive after a newer one at the same price. Walk from the head to the
	// first younger order in that case.
	tail := unit.chain.Tail
	if tail == structure.NullIndex || q.orders.Get(tail).Sequence < order.Sequence {
		q.orders.PushBack(&unit.chain, idx)
	} else {
		at := unit.chain.Head
		for at != structure.NullIndex && q.orders.Get(at).Sequence < order.Sequence {
			at = q.orders.Next(at)
		}
		q.orders.InsertBefore(&unit.chain, at, idx)
	}

	unit.totalSize += uint64(order.Quantity)
	q.totalOrders++
	return nil
}

func (q *queue) headUnitLocked() (*priceUnit, int32) {
	el := q.depthList.Front()
	if el == nil {
		return nil, structure.NullIndex
	}
	unit, _ := el.Value.(*priceUnit)
	return unit, unit.chain.Head
}

func (q *queue) headLocked() (Order, bool) {
	unit, idx := q.headUnitLocked()
	if unit == nil {
		return Order{}, false
	}
	return *q.orders.Get(idx), true
}

// fillHeadLocked takes qty from the head order and removes it once empty.
// qty must not exceed the head quantity.
func (q *queue) fillHeadLocked(qty uint32) {
	unit, idx := q.headUnitLocked()
	if unit == nil {
		return
	}
	ord := q.orders.Get(idx)
	ord.Quantity -= qty
	unit.totalSize -= uint64(qty)
	if ord.Quantity == 0 {
		q.removeLocked(unit, idx)
	}
}

// removeLocked unlinks and frees idx, dropping the level once it is empty.
func (q *queue) removeLocked(unit *priceUnit, idx int32) {
	unit.totalSize -= uint64(q.orders.Get(idx).Quantity)
	q.orders.Remove(&unit.chain, idx)
	q.orders.Free(idx)
	q.totalOrders--

	if unit.chain.Empty() {
		q.depthList.Remove(unit.price)
		q.depths--
	}
}

// orderCount returns the total number of orders in the queue.
func (q *queue) orderCount() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.totalOrders
}

// depthCount returns the number of price levels in the queue.
func (q *queue) depthCount() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.depths
}

// totalQuantity returns the remaining quantity summed over every level.
func (q *queue) totalQuantity() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	var total uint64
	for elem := q.depthList.Front(); elem != nil; elem = elem.Next() {
		unit, _ := elem.Value.(*priceUnit)
		total += unit.totalSize
	}
	return total
}

// toSnapshot copies the queue head to tail.
func (q *queue) toSnapshot() []Order {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

func (q *queue) snapshotLocked() []Order {
	snapshots := make([]Order, 0, q.totalOrders)

	for elem := q.depthList.Front(); elem != nil; elem = elem.Next() {
		unit, _ := elem.Value.(*priceUnit)
		q.orders.Walk(&unit.chain, func(_ int32, ord *Order) bool {
			snapshots = append(snapshots, *ord)
			return true
		})
	}

	return snapshots
}

// depth returns the order book depth up to the specified limit.
func (q *queue) depth(limit uint32) []*DepthItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := make([]*DepthItem, 0, min(limit, uint32(q.depths)))

	el := q.depthList.Front()
	for i := uint32(0); i < limit && el != nil; i++ {
		unit, _ := el.Value.(*priceUnit)
		result = append(result, &DepthItem{
			Price: unit.price,
			Size:  unit.totalSize,
			Count: int64(unit.chain.Len),
		})
		el = el.Next()
	}

	return result
}
