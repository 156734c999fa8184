package match

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
)

// ErrDisruptorTimeout is returned when shutdown times out
var ErrDisruptorTimeout = errors.New("disruptor: shutdown timeout")

// EventHandler consumes events in publish order on the consumer goroutine.
type EventHandler[T any] interface {
	OnEvent(event *T)
}

// RingBuffer is a multi-producer single-consumer ring.
type RingBuffer[T any] struct {
	// Cache line padding to avoid false sharing
	_                [56]byte
	producerSequence atomic.Int64
	_                [56]byte
	consumerSequence atomic.Int64
	_                [56]byte

	buffer     []T
	bufferMask int64
	capacity   int64

	// published[i] holds the sequence last committed into buffer[i].
	published []atomic.Int64

	handler    EventHandler[T]
	isShutdown atomic.Bool
	stopped    chan struct{}
}

// NewRingBuffer creates a ring; capacity must be a power of 2.
func NewRingBuffer[T any](capacity int64, handler EventHandler[T]) *RingBuffer[T] {
	if capacity <= 0 || (capacity&(capacity-1)) != 0 {
		panic("size must be a power of 2")
	}

	rb := &RingBuffer[T]{
		buffer:     make([]T, capacity),
		published:  make([]atomic.Int64, capacity),
		capacity:   capacity,
		bufferMask: capacity - 1,
		handler:    handler,
		stopped:    make(chan struct{}),
	}

	rb.producerSequence.Store(-1)
	rb.consumerSequence.Store(-1)
	for i := range rb.published {
		rb.published[i].Store(-1)
	}

	return rb
}

// Publish copies event into the ring, spinning while the ring is full.
// Returns false if the ring has been shut down.
func (rb *RingBuffer[T]) Publish(event T) bool {
	seq, slot := rb.Claim()
	if seq < 0 {
		return false
	}
	*slot = event
	rb.Commit(seq)
	return true
}

// Claim reserves the next slot. The caller fills the slot and then calls
// Commit. Returns -1 and nil after shutdown.
func (rb *RingBuffer[T]) Claim() (int64, *T) {
	for {
		if rb.isShutdown.Load() {
			return -1, nil
		}

		current := rb.producerSequence.Load()
		next := current + 1

		// A producer may not lap the consumer.
		if next-rb.capacity > rb.consumerSequence.Load() {
			runtime.Gosched()
			continue
		}

		if rb.producerSequence.CompareAndSwap(current, next) {
			return next, &rb.buffer[next&rb.bufferMask]
		}
		runtime.Gosched()
	}
}

// Commit makes a claimed slot visible to the consumer.
func (rb *RingBuffer[T]) Commit(seq int64) {
	rb.published[seq&rb.bufferMask].Store(seq)
}

// Run consumes events until Shutdown. It blocks; call it on its own goroutine.
func (rb *RingBuffer[T]) Run() {
	defer close(rb.stopped)

	next := rb.consumerSequence.Load() + 1
	for {
		available := rb.producerSequence.Load()
		shutdown := rb.isShutdown.Load()

		processed := false
		for next <= available {
			rb.consume(next)
			next++
			processed = true
		}

		if shutdown {
			// Producers that claimed before the flag flipped have now been drained.
			if next > rb.producerSequence.Load() {
				return
			}
			continue
		}

		if !processed {
			runtime.Gosched()
		}
	}
}

func (rb *RingBuffer[T]) consume(seq int64) {
	index := seq & rb.bufferMask

	// Wait until the producer of this slot has committed.
	for rb.published[index].Load() != seq {
		runtime.Gosched()
	}

	rb.handler.OnEvent(&rb.buffer[index])

	var zero T
	rb.buffer[index] = zero
	rb.consumerSequence.Store(seq)
}

// Shutdown stops new claims and waits until every claimed event is consumed.
func (rb *RingBuffer[T]) Shutdown(ctx context.Context) error {
	rb.isShutdown.Store(true)

	select {
	case <-rb.stopped:
		return nil
	case <-ctx.Done():
		return ErrDisruptorTimeout
	}
}

// ConsumerSequence returns the last consumed sequence (for monitoring).
func (rb *RingBuffer[T]) ConsumerSequence() int64 {
	return rb.consumerSequence.Load()
}

// ProducerSequence returns the last claimed sequence (for monitoring).
func (rb *RingBuffer[T]) ProducerSequence() int64 {
	return rb.producerSequence.Load()
}

// GetPendingEvents returns the number of claimed but unconsumed events.
func (rb *RingBuffer[T]) GetPendingEvents() int64 {
	return rb.producerSequence.Load() - rb.consumerSequence.Load()
}

// AsyncPublishLog hands logs to a downstream sink on a dedicated goroutine,
// so matchers return as soon as their trades are copied into the ring.
type AsyncPublishLog struct {
	rb         *RingBuffer[OrderBookLog]
	downstream PublishLog
	dropped    atomic.Int64
}

type forwardHandler struct {
	downstream PublishLog
}

func (h forwardHandler) OnEvent(log *OrderBookLog) {
	h.downstream.Publish(log)
}

// NewAsyncPublishLog starts the consumer goroutine. capacity must be a power of 2.
func NewAsyncPublishLog(capacity int64, downstream PublishLog) *AsyncPublishLog {
	a := &AsyncPublishLog{
		rb:         NewRingBuffer[OrderBookLog](capacity, forwardHandler{downstream: downstream}),
		downstream: downstream,
	}
	go a.rb.Run()
	return a
}

// Publish copies logs into the ring. Logs published after Close are dropped;
// a Publish racing Close may be lost without being counted.
func (a *AsyncPublishLog) Publish(logs ...*OrderBookLog) {
	for _, log := range logs {
		if !a.rb.Publish(*log) {
			a.dropped.Add(1)
		}
	}
}

// Dropped returns the number of logs published after Close.
func (a *AsyncPublishLog) Dropped() int64 {
	return a.dropped.Load()
}

// Pending returns the number of logs not yet handed downstream.
func (a *AsyncPublishLog) Pending() int64 {
	return a.rb.GetPendingEvents()
}

// Close flushes pending logs downstream and stops the consumer.
func (a *AsyncPublishLog) Close(ctx context.Context) error {
	return a.rb.Shutdown(ctx)
}
