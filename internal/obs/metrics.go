package obs

import (
	"sync"
	"sync/atomic"

	"main/internal/schema"
)

const maxEventType = int(schema.EventTimer)

// Metrics collects lightweight counters for the bus and the order gate.
// All methods are nil-safe so components can run without observation.
type Metrics struct {
	eventCounts    [maxEventType + 1]uint64
	handlerPanics  uint64
	queueDrops     uint64
	queueHighWater uint64

	mu      sync.Mutex
	rejects map[string]uint64
}

// Snapshot is a point-in-time view of the metrics values.
type Snapshot struct {
	EventCounts    map[schema.EventType]uint64
	HandlerPanics  uint64
	QueueDrops     uint64
	QueueHighWater uint64
	GateRejects    map[string]uint64
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{rejects: make(map[string]uint64)}
}

// ObserveEvent counts one dispatched event.
func (m *Metrics) ObserveEvent(eventType schema.EventType) {
	if m == nil {
		return
	}
	idx := int(eventType)
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
}

// ObserveQueueDepth tracks the queue high-water mark.
func (m *Metrics) ObserveQueueDepth(depth int) {
	if m == nil || depth < 0 {
		return
	}
	d := uint64(depth)
	for {
		cur := atomic.LoadUint64(&m.queueHighWater)
		if d <= cur || atomic.CompareAndSwapUint64(&m.queueHighWater, cur, d) {
			return
		}
	}
}

// IncHandlerPanic counts one recovered handler panic.
func (m *Metrics) IncHandlerPanic() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.handlerPanics, 1)
}

// IncQueueDrop counts one event dropped by a bounded queue.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncGateReject counts one order-gate rejection by reason.
func (m *Metrics) IncGateReject(reason string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.rejects[reason]++
	m.mu.Unlock()
}

// Snapshot captures the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	snapshot := Snapshot{
		EventCounts:    make(map[schema.EventType]uint64),
		HandlerPanics:  atomic.LoadUint64(&m.handlerPanics),
		QueueDrops:     atomic.LoadUint64(&m.queueDrops),
		QueueHighWater: atomic.LoadUint64(&m.queueHighWater),
		GateRejects:    make(map[string]uint64),
	}
	for i := range m.eventCounts {
		if count := atomic.LoadUint64(&m.eventCounts[i]); count > 0 {
			snapshot.EventCounts[schema.EventType(i)] = count
		}
	}
	m.mu.Lock()
	for reason, count := range m.rejects {
		snapshot.GateRejects[reason] = count
	}
	m.mu.Unlock()
	return snapshot
}
