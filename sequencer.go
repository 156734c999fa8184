package match

import "sync/atomic"

// sequencer generates strictly monotonic sequence IDs shared by every
// goroutine that holds it.
type sequencer struct {
	next atomic.Uint64
}

// Next returns the next sequence ID. The first call returns 1.
func (s *sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence.
func (s *sequencer) Current() uint64 {
	return s.next.Load()
}
