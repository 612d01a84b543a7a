package bus

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/yanun0323/logs"

	"main/internal/obs"
	"main/internal/schema"
)

const (
	// DefaultTimerInterval is the cadence of EventTimer publications.
	DefaultTimerInterval = time.Second

	_dequeueTimeout = time.Second
)

const (
	stateNew uint32 = iota
	stateRunning
	stateStopped
)

// Handler consumes a single event. Handler identity for registration
// idempotence is the func value itself: a named function is one handler,
// and each closure or method value is its own handler, so a.handle and
// b.handle on two receivers register independently. Re-registering or
// unregistering a closure or method value requires the same stored value;
// a fresh a.handle expression is a new value.
type Handler func(schema.Event)

type entry struct {
	key uintptr
	fn  Handler
}

// handlerKey is the address of the func value's underlying object. Named
// functions share one static object per function; closures and method
// values allocate one per value, which is exactly the identity the
// registration contract needs.
func handlerKey(h Handler) uintptr {
	return uintptr(*(*unsafe.Pointer)(unsafe.Pointer(&h)))
}

// Engine is the in-process publish/subscribe bus. A single dispatch
// goroutine drains the internal queue and invokes, in registration order,
// every handler registered for the event's exact type, then every general
// handler. A separate timer goroutine enqueues a payload-less EventTimer
// at a fixed interval.
type Engine struct {
	mu       sync.Mutex
	queue    []schema.Event
	capacity int
	notify   chan struct{}

	hmu      sync.RWMutex
	handlers map[schema.EventType][]entry
	general  []entry

	state   uint32
	stopCh  chan struct{}
	wg      sync.WaitGroup
	timer   time.Duration
	metrics *obs.Metrics
}

// NewEngine allocates a stopped engine. A zero timer interval falls back to
// DefaultTimerInterval; metrics may be nil.
func NewEngine(timerInterval time.Duration, metrics *obs.Metrics) *Engine {
	if timerInterval <= 0 {
		timerInterval = DefaultTimerInterval
	}
	return &Engine{
		notify:   make(chan struct{}, 1),
		handlers: make(map[schema.EventType][]entry),
		timer:    timerInterval,
		metrics:  metrics,
	}
}

// SetCapacity bounds the internal queue. Zero or negative means unbounded,
// the default. Must be called before Start.
func (e *Engine) SetCapacity(capacity int) {
	e.mu.Lock()
	e.capacity = capacity
	e.mu.Unlock()
}

// Put enqueues an event without blocking. Safe from any goroutine. Events
// put before Start queue up; events put after Stop are dropped and
// counted, since no dispatcher will ever drain them. When the queue is
// bounded and full the event is likewise dropped and counted.
func (e *Engine) Put(event schema.Event) {
	if atomic.LoadUint32(&e.state) == stateStopped {
		e.metrics.IncQueueDrop()
		logs.Warnf("event dropped, engine stopped. type: %s", event.Type)
		return
	}
	e.mu.Lock()
	if e.capacity > 0 && len(e.queue) >= e.capacity {
		e.mu.Unlock()
		e.metrics.IncQueueDrop()
		logs.Warnf("event dropped, queue full. type: %s", event.Type)
		return
	}
	e.queue = append(e.queue, event)
	depth := len(e.queue)
	e.mu.Unlock()

	e.metrics.ObserveQueueDepth(depth)
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

// Register subscribes a handler to one event type. Duplicate registration
// has no additional effect.
func (e *Engine) Register(eventType schema.EventType, handler Handler) {
	if handler == nil {
		return
	}
	key := handlerKey(handler)
	e.hmu.Lock()
	defer e.hmu.Unlock()
	for _, h := range e.handlers[eventType] {
		if h.key == key {
			return
		}
	}
	e.handlers[eventType] = append(e.handlers[eventType], entry{key: key, fn: handler})
}

// Unregister removes a handler from one event type. Removing an absent
// handler is a no-op.
func (e *Engine) Unregister(eventType schema.EventType, handler Handler) {
	if handler == nil {
		return
	}
	key := handlerKey(handler)
	e.hmu.Lock()
	defer e.hmu.Unlock()
	list := e.handlers[eventType]
	for i, h := range list {
		if h.key == key {
			e.handlers[eventType] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// RegisterGeneral subscribes a handler to every event type.
func (e *Engine) RegisterGeneral(handler Handler) {
	if handler == nil {
		return
	}
	key := handlerKey(handler)
	e.hmu.Lock()
	defer e.hmu.Unlock()
	for _, h := range e.general {
		if h.key == key {
			return
		}
	}
	e.general = append(e.general, entry{key: key, fn: handler})
}

// UnregisterGeneral removes a general handler.
func (e *Engine) UnregisterGeneral(handler Handler) {
	if handler == nil {
		return
	}
	key := handlerKey(handler)
	e.hmu.Lock()
	defer e.hmu.Unlock()
	for i, h := range e.general {
		if h.key == key {
			e.general = append(e.general[:i:i], e.general[i+1:]...)
			return
		}
	}
}

// Start spawns the dispatch and timer goroutines. The engine is one-shot:
// Start on a running or stopped engine is a no-op.
func (e *Engine) Start() {
	if !atomic.CompareAndSwapUint32(&e.state, stateNew, stateRunning) {
		return
	}
	e.stopCh = make(chan struct{})
	e.wg.Add(2)
	go e.runDispatch()
	go e.runTimer()
}

// Stop marks the engine stopped and joins both goroutines. In-flight
// handler execution runs to completion; later Puts are dropped. Stop must
// never be called from a handler running on the dispatch goroutine: that
// is a self-join deadlock.
func (e *Engine) Stop() {
	if !atomic.CompareAndSwapUint32(&e.state, stateRunning, stateStopped) {
		return
	}
	close(e.stopCh)
	e.wg.Wait()
}

func (e *Engine) isActive() bool {
	return atomic.LoadUint32(&e.state) == stateRunning
}

func (e *Engine) pop() (schema.Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return schema.Event{}, false
	}
	event := e.queue[0]
	e.queue = e.queue[1:]
	return event, true
}

func (e *Engine) runDispatch() {
	defer e.wg.Done()
	timeout := time.NewTimer(_dequeueTimeout)
	defer timeout.Stop()

	for e.isActive() {
		if event, ok := e.pop(); ok {
			e.process(event)
			continue
		}

		if !timeout.Stop() {
			select {
			case <-timeout.C:
			default:
			}
		}
		timeout.Reset(_dequeueTimeout)
		select {
		case <-e.stopCh:
			return
		case <-e.notify:
		case <-timeout.C:
		}
	}
}

func (e *Engine) runTimer() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.timer)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.Put(schema.NewTimerEvent())
		}
	}
}

// process fans one event out to its exact-type handlers, then to the
// general handlers, each in registration order.
func (e *Engine) process(event schema.Event) {
	e.hmu.RLock()
	typed := e.handlers[event.Type]
	general := e.general
	e.hmu.RUnlock()

	e.metrics.ObserveEvent(event.Type)
	for _, h := range typed {
		e.invoke(h, event)
	}
	for _, h := range general {
		e.invoke(h, event)
	}
}

// invoke guards a single handler call. A panicking handler is logged and
// counted, and dispatch continues: the periodic risk check depends on this
// loop staying alive indefinitely.
func (e *Engine) invoke(h entry, event schema.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.IncHandlerPanic()
			logs.Errorf("event handler panic. type: %s, err: %+v", event.Type, r)
		}
	}()
	h.fn(event)
}
