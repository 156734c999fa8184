package match

import (
	"io"
	"sync"

	"github.com/0x5487/concurrent-matching-engine/protocol"
	"go.uber.org/zap"
)

// PublishLog is the trade sink: it receives order book logs (opens, trades, rejects).
//
// IMPORTANT: Implementations must either:
//  1. Process logs synchronously before returning, OR
//  2. Clone the OrderBookLog data before returning
//
// The caller recycles OrderBookLog objects to a sync.Pool after Publish returns,
// so any asynchronous processing must work with cloned data.
// Publish is called concurrently by submitters and matchers.
type PublishLog interface {
	Publish(...*OrderBookLog)
}

// MemoryPublishLog stores logs in memory, useful for testing.
type MemoryPublishLog struct {
	mu     sync.RWMutex
	Trades []*OrderBookLog
}

// NewMemoryPublishLog creates a new MemoryPublishLog.
func NewMemoryPublishLog() *MemoryPublishLog {
	return &MemoryPublishLog{
		Trades: make([]*OrderBookLog, 0),
	}
}

// Publish appends copies of logs to the in-memory slice.
func (m *MemoryPublishLog) Publish(trades ...*OrderBookLog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, trade := range trades {
		cpy := new(OrderBookLog)
		*cpy = *trade
		m.Trades = append(m.Trades, cpy)
	}
}

// Count returns the number of logs stored.
func (m *MemoryPublishLog) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Trades)
}

// Get returns the log at the specified index.
func (m *MemoryPublishLog) Get(index int) *OrderBookLog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.Trades[index]
}

// Logs returns a copy of all logs stored.
func (m *MemoryPublishLog) Logs() []*OrderBookLog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	logs := make([]*OrderBookLog, len(m.Trades))
	copy(logs, m.Trades)
	return logs
}

// LogsOfType returns the stored logs with the given type, in arrival order.
func (m *MemoryPublishLog) LogsOfType(typ LogType) []*OrderBookLog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var logs []*OrderBookLog
	for _, log := range m.Trades {
		if log.Type == typ {
			logs = append(logs, log)
		}
	}
	return logs
}

// DiscardPublishLog discards all logs, useful for benchmarking.
type DiscardPublishLog struct {
}

// NewDiscardPublishLog creates a new DiscardPublishLog.
func NewDiscardPublishLog() *DiscardPublishLog {
	return &DiscardPublishLog{}
}

// Publish does nothing.
func (p *DiscardPublishLog) Publish(trades ...*OrderBookLog) {

}

// FuncPublishLog adapts a callback to PublishLog.
// The callback must not retain the logs after it returns.
type FuncPublishLog func(logs ...*OrderBookLog)

// Publish calls f.
func (f FuncPublishLog) Publish(logs ...*OrderBookLog) {
	f(logs...)
}

// StreamPublishLog writes every log as one serialized line to w.
type StreamPublishLog struct {
	mu         sync.Mutex
	w          io.Writer
	serializer protocol.Serializer
	failures   int64
}

// NewStreamPublishLog creates a sink writing to w. A nil serializer means JSON.
func NewStreamPublishLog(w io.Writer, serializer protocol.Serializer) *StreamPublishLog {
	if serializer == nil {
		serializer = protocol.DefaultJSONSerializer{}
	}
	return &StreamPublishLog{
		w:          w,
		serializer: serializer,
	}
}

// Publish encodes and writes logs in order. Failed logs are counted and skipped.
func (s *StreamPublishLog) Publish(logs ...*OrderBookLog) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, log := range logs {
		data, err := s.serializer.Marshal(log)
		if err != nil {
			s.failures++
			logger().Error("failed to marshal order book log", zap.Uint64("seq_id", log.SequenceID), zap.Error(err))
			continue
		}
		data = append(data, '\n')
		if _, err := s.w.Write(data); err != nil {
			s.failures++
			logger().Error("failed to write order book log", zap.Uint64("seq_id", log.SequenceID), zap.Error(err))
		}
	}
}

// Failures returns the number of logs that could not be written.
func (s *StreamPublishLog) Failures() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}
