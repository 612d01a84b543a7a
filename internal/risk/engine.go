package risk

import (
	"sync"

	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/errors"
	"main/internal/obs"
	"main/internal/oms"
	"main/internal/schema"
)

var (
	ErrRiskLevel     = errors.New("risk level breached")
	ErrOrderVolume   = errors.New("order volume must be positive")
	ErrOrderSize     = errors.New("order volume over size limit")
	ErrTradeLimit    = errors.New("trade volume over limit")
	ErrOrderFlow     = errors.New("order flow over limit")
	ErrActiveOrders  = errors.New("active order count over limit")
	ErrCancelLimit   = errors.New("symbol cancel count over limit")
	ErrSelfTradeBuy  = errors.New("buy crosses own resting ask")
	ErrSelfTradeSell = errors.New("sell crosses own resting bid")
)

// Sender submits one outbound order request downstream and returns the
// platform order id, empty when nothing was sent.
type Sender func(schema.OrderRequest) string

// Gate intercepts outbound orders. Gates are composed as explicit
// middleware by the trading facade at construction time, so the chain and
// its order are visible and testable.
type Gate interface {
	Name() string
	Wrap(next Sender) Sender
}

// Engine gates every outbound order, tracks rolling PnL per symbol from
// the event stream, and on sustained breach cancels every active order and
// flattens the book.
//
// Event-driven state (trade books, cancel counts) mutates on the bus
// dispatch goroutine; the gate runs synchronously on the caller's
// goroutine, so one mutex guards both unless RelaxedCounters restores the
// historical check-then-act window.
type Engine struct {
	mu             sync.Mutex
	cfg            Config
	level          Level
	orderFlowCount int
	tradeCount     float64
	cancelCounts   map[string]int
	lastStatus     map[string]schema.Status
	tradeBooks     map[string]*TradeBook
	orderBooks     map[string]*ActiveOrderBook
	flowTimer      int
	pnlTimer       int
	cancelTimer    int

	cancelAll func(symbolKey string)
	send      Sender

	cache   *oms.Cache
	metrics *obs.Metrics
}

var _ Gate = (*Engine)(nil)

// NewEngine allocates a risk engine and registers its handlers on the bus.
// The cache provides the platform-wide active-order count; metrics may be
// nil.
func NewEngine(cfg Config, engine *bus.Engine, cache *oms.Cache, metrics *obs.Metrics) *Engine {
	e := &Engine{
		cfg:          cfg,
		cancelCounts: make(map[string]int),
		lastStatus:   make(map[string]schema.Status),
		tradeBooks:   make(map[string]*TradeBook),
		orderBooks:   make(map[string]*ActiveOrderBook),
		cache:        cache,
		metrics:      metrics,
	}
	engine.Register(schema.EventOrder, e.processOrderEvent)
	engine.Register(schema.EventTrade, e.processTradeEvent)
	engine.Register(schema.EventTick, e.processTickEvent)
	engine.Register(schema.EventTimer, e.processTimerEvent)
	return e
}

// InstallSafety wires the cancel-all and send capabilities the auto-flatten
// path uses. The sender must be the facade's gated entry point: covering
// orders are tagged OffsetCover so they bypass the gate instead of
// deadlocking against it.
func (e *Engine) InstallSafety(cancelAll func(symbolKey string), send Sender) {
	e.mu.Lock()
	e.cancelAll = cancelAll
	e.send = send
	e.mu.Unlock()
}

// UpdateConfig swaps the limit configuration at runtime.
func (e *Engine) UpdateConfig(cfg Config) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

// Config returns the current limit configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Name implements Gate.
func (e *Engine) Name() string { return "risk" }

// Wrap implements Gate: covering orders bypass every check and are split
// into chunks of at most the order size limit; everything else runs
// CheckRisk. Rejection is an empty id plus a logged reason, never a panic.
func (e *Engine) Wrap(next Sender) Sender {
	return func(req schema.OrderRequest) string {
		if req.Offset == schema.OffsetCover {
			return e.sendCover(req, next)
		}
		if err := e.CheckRisk(req); err != nil {
			e.metrics.IncGateReject(err.Error())
			logs.Warnf("order rejected. symbol: %s, reason: %s", req.SymbolKey(), err)
			return ""
		}
		return next(req)
	}
}

func (e *Engine) sendCover(req schema.OrderRequest, next Sender) string {
	e.mu.Lock()
	chunk := e.cfg.OrderSizeLimit
	e.mu.Unlock()

	lastID := ""
	remaining := req.Volume
	for remaining > 0 {
		volume := remaining
		if chunk > 0 && volume > chunk {
			volume = chunk
		}
		sub := req
		sub.Volume = volume
		lastID = next(sub)
		remaining -= volume
	}
	return lastID
}

// CheckRisk applies the layered limits to one non-covering request. A nil
// return allows the order and counts it against the flow window.
func (e *Engine) CheckRisk(req schema.OrderRequest) error {
	e.mu.Lock()
	if e.cfg.RelaxedCounters {
		snapshot := e.snapshotLocked(req)
		e.mu.Unlock()
		// Historical behavior: the check runs against a stale snapshot, so
		// concurrent callers can each pass before either increments.
		if err := snapshot.check(req); err != nil {
			return err
		}
		if snapshot.cfg.Active {
			e.mu.Lock()
			e.orderFlowCount++
			e.mu.Unlock()
		}
		return nil
	}
	defer e.mu.Unlock()
	snapshot := e.snapshotLocked(req)
	if err := snapshot.check(req); err != nil {
		return err
	}
	if snapshot.cfg.Active {
		e.orderFlowCount++
	}
	return nil
}

type gateView struct {
	cfg          Config
	level        Level
	flowCount    int
	tradeCount   float64
	activeOrders int
	cancelCount  int
	bestBid      float64
	bestAsk      float64
}

func (e *Engine) snapshotLocked(req schema.OrderRequest) gateView {
	view := gateView{
		cfg:         e.cfg,
		level:       e.levelLocked(),
		flowCount:   e.orderFlowCount,
		tradeCount:  e.tradeCount,
		cancelCount: e.cancelCounts[req.SymbolKey()],
	}
	if e.cache != nil {
		view.activeOrders = e.cache.ActiveOrderCount()
	}
	if book := e.orderBooks[req.SymbolKey()]; book != nil {
		view.bestBid = book.BestBid()
		view.bestAsk = book.BestAsk()
	}
	return view
}

func (v gateView) check(req schema.OrderRequest) error {
	cfg := v.cfg
	if !cfg.Active {
		return nil
	}
	if v.level >= LevelWarning {
		return ErrRiskLevel
	}
	if req.Volume <= 0 {
		return ErrOrderVolume
	}
	if cfg.OrderSizeLimit > 0 && req.Volume > cfg.OrderSizeLimit {
		return ErrOrderSize
	}
	if cfg.TradeLimit > 0 && v.tradeCount >= cfg.TradeLimit {
		return ErrTradeLimit
	}
	if cfg.OrderFlowLimit > 0 && v.flowCount >= cfg.OrderFlowLimit {
		return ErrOrderFlow
	}
	if cfg.ActiveOrderLimit > 0 && v.activeOrders >= cfg.ActiveOrderLimit {
		return ErrActiveOrders
	}
	if cfg.OrderCancelLimit > 0 && v.cancelCount >= cfg.OrderCancelLimit {
		return ErrCancelLimit
	}
	switch req.Direction {
	case schema.DirectionLong:
		if v.bestAsk > 0 && req.Price >= v.bestAsk {
			return ErrSelfTradeBuy
		}
	case schema.DirectionShort:
		if v.bestBid > 0 && req.Price <= v.bestBid {
			return ErrSelfTradeSell
		}
	}
	return nil
}

// Level recomputes the current severity from aggregate PnL.
func (e *Engine) Level() Level {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.levelLocked()
}

// levelLocked implements the four-step severity. CRITICAL compares
// realised PnL against the total thresholds, not a dedicated band; the
// asymmetry is intentional until confirmed otherwise.
func (e *Engine) levelLocked() Level {
	if len(e.tradeBooks) == 0 {
		return LevelZero
	}
	var realized, total float64
	tracked := false
	for _, book := range e.tradeBooks {
		if book.LongSize > 0 || book.ShortSize > 0 {
			tracked = true
		}
		realized += book.RealizedPnl
		total += book.TotalPnl
	}
	if !tracked {
		return LevelZero
	}
	cfg := e.cfg
	switch {
	case breached(realized, cfg.TotalLossLimit, cfg.TotalProfitLimit):
		return LevelCritical
	case breached(realized, cfg.RealizedLossLimit, cfg.RealizedProfitLimit),
		breached(total, cfg.TotalLossLimit, cfg.TotalProfitLimit):
		return LevelWarning
	case breached(total, cfg.RealizedLossLimit, cfg.RealizedProfitLimit):
		return LevelNormal
	default:
		return LevelZero
	}
}

// breached reports whether pnl sits at or beyond either bound. A zero
// bound is disabled.
func breached(pnl, loss, profit float64) bool {
	if loss != 0 && pnl <= loss {
		return true
	}
	return profit != 0 && pnl >= profit
}

// TradeBook returns a copy of one symbol's ledger.
func (e *Engine) TradeBook(symbolKey string) (TradeBook, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	book, ok := e.tradeBooks[symbolKey]
	if !ok {
		return TradeBook{}, false
	}
	return *book, true
}

// CancelCount returns one symbol's cancel counter.
func (e *Engine) CancelCount(symbolKey string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelCounts[symbolKey]
}

// FlowCount returns the order count of the current clearing window.
func (e *Engine) FlowCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orderFlowCount
}

func (e *Engine) processOrderEvent(event schema.Event) {
	order, ok := event.Data.(schema.Order)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	symbolKey := order.SymbolKey()
	book, ok := e.orderBooks[symbolKey]
	if !ok {
		book = NewActiveOrderBook(symbolKey)
		e.orderBooks[symbolKey] = book
	}
	book.Apply(order)

	key := order.Key()
	if order.Status == schema.StatusCancelled && e.lastStatus[key] != schema.StatusCancelled {
		e.cancelCounts[symbolKey]++
	}
	e.lastStatus[key] = order.Status
}

func (e *Engine) processTradeEvent(event schema.Event) {
	trade, ok := event.Data.(schema.Trade)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	symbolKey := trade.SymbolKey()
	book, ok := e.tradeBooks[symbolKey]
	if !ok {
		book = NewTradeBook(trade.Symbol, trade.Exchange)
		e.tradeBooks[symbolKey] = book
	}
	book.ApplyTrade(trade, e.cfg.Fee)
	e.tradeCount += trade.Volume
}

func (e *Engine) processTickEvent(event schema.Event) {
	tick, ok := event.Data.(schema.Tick)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if book, ok := e.tradeBooks[tick.SymbolKey()]; ok {
		book.MarkToMarket(tick.LastPrice)
	}
}

// processTimerEvent drives the flow-clear window, the optional cancel
// counter reset, and the periodic PnL evaluation.
func (e *Engine) processTimerEvent(event schema.Event) {
	if event.Type != schema.EventTimer {
		return
	}
	var (
		evaluate bool
		level    Level
		books    []TradeBook
	)

	e.mu.Lock()
	cfg := e.cfg
	e.flowTimer++
	if cfg.OrderFlowClear > 0 && e.flowTimer >= cfg.OrderFlowClear {
		e.flowTimer = 0
		e.orderFlowCount = 0
	}
	if cfg.CancelCountReset > 0 {
		e.cancelTimer++
		if e.cancelTimer >= cfg.CancelCountReset {
			e.cancelTimer = 0
			clear(e.cancelCounts)
		}
	}
	e.pnlTimer++
	if cfg.PnlCheckPeriod > 0 && e.pnlTimer >= cfg.PnlCheckPeriod {
		e.pnlTimer = 0
		level = e.levelLocked()
		e.level = level
		if cfg.Freeze && level >= LevelWarning {
			evaluate = true
			books = make([]TradeBook, 0, len(e.tradeBooks))
			for _, book := range e.tradeBooks {
				books = append(books, *book)
			}
		}
	}
	cancelAll := e.cancelAll
	send := e.send
	e.mu.Unlock()

	if evaluate {
		e.flatten(level, books, cancelAll, send)
	}
}

// flatten cancels every active order, then issues one market covering
// order per symbol sized to its net position. Failures here are local,
// logged events: monitoring continues and re-triggers next period while
// the breach persists.
func (e *Engine) flatten(level Level, books []TradeBook, cancelAll func(string), send Sender) {
	if cancelAll == nil || send == nil {
		logs.Errorf("risk level %s breached but safety actions not installed", level)
		return
	}
	logs.Warnf("risk level %s breached, cancelling all orders and flattening positions", level)
	cancelAll("")

	for _, book := range books {
		net := book.NetPosition()
		if net == 0 {
			continue
		}
		direction := schema.DirectionShort
		if net < 0 {
			direction = schema.DirectionLong
			net = -net
		}
		req := schema.OrderRequest{
			Symbol:    book.Symbol,
			Exchange:  book.Exchange,
			Direction: direction,
			Offset:    schema.OffsetCover,
			Type:      schema.OrderTypeMarket,
			Volume:    net,
			Reference: "risk-flatten",
		}
		if id := send(req); id == "" {
			logs.Warnf("cover order not sent. symbol: %s, volume: %v", book.SymbolKey(), net)
		}
	}
}
