package structure

import "errors"

// Slab is an arena of nodes addressed by int32 index instead of pointer.
// Live nodes are threaded into doubly linked Chains through Prev/Next, free
// nodes form a singly linked free list through Next.
//
// Design:
// - Node storage is one contiguous slice; it doubles when exhausted
// - A freed index is only handed out again by a later Alloc, so any holder of
//   the owning lock never observes a node change identity underneath it
// - Slab is not safe for concurrent use; the owner provides exclusion

const (
	NullIndex           int32 = -1
	DefaultGrowthFactor       = 2 // Default expansion factor
)

var (
	ErrMaxCapacityReached = errors.New("slab: max capacity reached")
)

// SlabNode is one arena cell.
type SlabNode[T any] struct {
	Value T
	Prev  int32
	Next  int32
	live  bool
}

// SlabOptions configures the slab behavior.
type SlabOptions struct {
	// MaxCapacity sets the maximum number of nodes allowed.
	// If 0 (default), there is no limit and the slab will grow indefinitely.
	MaxCapacity int32

	// OnGrow is called when the slab expands.
	// Can be used for logging or metrics.
	OnGrow func(oldCap, newCap int32)
}

// Slab is an arena-backed store for chain nodes.
type Slab[T any] struct {
	nodes       []SlabNode[T]
	freeHead    int32
	count       int32
	maxCapacity int32
	onGrow      func(int32, int32)
}

// NewSlab creates a slab with pre-allocated capacity.
func NewSlab[T any](capacity int32) *Slab[T] {
	return NewSlabWithOptions[T](capacity, SlabOptions{})
}

// NewSlabWithOptions creates a slab with custom options.
func NewSlabWithOptions[T any](capacity int32, opts SlabOptions) *Slab[T] {
	if capacity < 1 {
		capacity = 1
	}
	if opts.MaxCapacity > 0 && capacity > opts.MaxCapacity {
		capacity = opts.MaxCapacity
	}

	s := &Slab[T]{
		nodes:       make([]SlabNode[T], capacity),
		freeHead:    0,
		maxCapacity: opts.MaxCapacity,
		onGrow:      opts.OnGrow,
	}

	for i := int32(0); i < capacity-1; i++ {
		s.nodes[i].Next = i + 1
	}
	s.nodes[capacity-1].Next = NullIndex

	return s
}

// grow expands the arena capacity.
// Returns error if max capacity would be exceeded.
func (s *Slab[T]) grow() error {
	oldCap := int32(len(s.nodes))
	newCap := oldCap * DefaultGrowthFactor

	if s.maxCapacity > 0 && newCap > s.maxCapacity {
		if oldCap >= s.maxCapacity {
			return ErrMaxCapacityReached
		}
		newCap = s.maxCapacity
	}

	if s.onGrow != nil {
		s.onGrow(oldCap, newCap)
	}

	newNodes := make([]SlabNode[T], newCap)
	copy(newNodes, s.nodes)

	for i := oldCap; i < newCap-1; i++ {
		newNodes[i].Next = i + 1
	}
	newNodes[newCap-1].Next = s.freeHead
	s.freeHead = oldCap

	s.nodes = newNodes
	return nil
}

// Alloc stores v in a free node and returns its index.
// Pointers previously returned by Get are invalid after Alloc, because the
// arena may have been reallocated.
func (s *Slab[T]) Alloc(v T) (int32, error) {
	if s.freeHead == NullIndex {
		if err := s.grow(); err != nil {
			return NullIndex, err
		}
	}
	idx := s.freeHead
	node := &s.nodes[idx]
	s.freeHead = node.Next

	node.Value = v
	node.Prev = NullIndex
	node.Next = NullIndex
	node.live = true
	s.count++
	return idx, nil
}

// Free returns a node to the free list. The node must already be unlinked
// from any chain. Freeing a dead or out of range index is a no-op.
func (s *Slab[T]) Free(idx int32) {
	if !s.Live(idx) {
		return
	}
	node := &s.nodes[idx]
	var zero T
	node.Value = zero
	node.Prev = NullIndex
	node.Next = s.freeHead
	node.live = false
	s.freeHead = idx
	s.count--
}

// Get returns a pointer to the value stored at idx.
func (s *Slab[T]) Get(idx int32) *T {
	return &s.nodes[idx].Value
}

// Live reports whether idx currently holds a value.
func (s *Slab[T]) Live(idx int32) bool {
	return idx >= 0 && int(idx) < len(s.nodes) && s.nodes[idx].live
}

// Next returns the successor of idx in its chain.
func (s *Slab[T]) Next(idx int32) int32 {
	return s.nodes[idx].Next
}

// Prev returns the predecessor of idx in its chain.
func (s *Slab[T]) Prev(idx int32) int32 {
	return s.nodes[idx].Prev
}

// Count returns the number of live nodes.
func (s *Slab[T]) Count() int32 {
	return s.count
}

// Capacity returns the current capacity of the arena.
func (s *Slab[T]) Capacity() int32 {
	return int32(len(s.nodes))
}

// Chain is a doubly linked list of slab indices.
type Chain struct {
	Head int32
	Tail int32
	Len  int32
}

// NewChain returns an empty chain.
func NewChain() Chain {
	return Chain{Head: NullIndex, Tail: NullIndex}
}

// Empty reports whether the chain has no nodes.
func (c *Chain) Empty() bool {
	return c.Head == NullIndex
}

// PushBack links idx at the tail of c.
func (s *Slab[T]) PushBack(c *Chain, idx int32) {
	node := &s.nodes[idx]
	node.Prev = c.Tail
	node.Next = NullIndex
	if c.Tail != NullIndex {
		s.nodes[c.Tail].Next = idx
	} else {
		c.Head = idx
	}
	c.Tail = idx
	c.Len++
}

// InsertBefore links idx in front of at. A NullIndex at appends.
func (s *Slab[T]) InsertBefore(c *Chain, at int32, idx int32) {
	if at == NullIndex {
		s.PushBack(c, idx)
		return
	}
	node := &s.nodes[idx]
	prev := s.nodes[at].Prev
	node.Prev = prev
	node.Next = at
	s.nodes[at].Prev = idx
	if prev != NullIndex {
		s.nodes[prev].Next = idx
	} else {
		c.Head = idx
	}
	c.Len++
}

// Remove unlinks idx from c. It does not free the node.
func (s *Slab[T]) Remove(c *Chain, idx int32) {
	node := &s.nodes[idx]
	if node.Prev != NullIndex {
		s.nodes[node.Prev].Next = node.Next
	} else {
		c.Head = node.Next
	}
	if node.Next != NullIndex {
		s.nodes[node.Next].Prev = node.Prev
	} else {
		c.Tail = node.Prev
	}
	node.Prev = NullIndex
	node.Next = NullIndex
	c.Len--
}

// Walk visits the chain head to tail until fn returns false.
func (s *Slab[T]) Walk(c *Chain, fn func(idx int32, v *T) bool) {
	for idx := c.Head; idx != NullIndex; idx = s.nodes[idx].Next {
		if !fn(idx, &s.nodes[idx].Value) {
			return
		}
	}
}
