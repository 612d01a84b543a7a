package gateway

import (
	"strconv"
	"sync"
	"time"

	"main/internal/bus"
	"main/internal/schema"
)

const (
	defaultSimName    = "SIM"
	defaultSimCapital = 1_000_000
)

// SimConfig controls the paper gateway.
type SimConfig struct {
	Name    string
	Capital float64
}

// Sim is an in-process paper gateway: it assigns order ids, echoes the
// order lifecycle onto the bus, fills marketable orders against the last
// published price, and maintains paper positions and a paper account. It
// exists so the core can run end to end without a broker connection.
type Sim struct {
	cfg simResolved

	mu          sync.Mutex
	nextOrderID uint64
	nextTradeID uint64
	nextQuoteID uint64
	orders      map[string]schema.Order
	quotes      map[string]schema.Quote
	positions   map[string]schema.Position
	lastPrice   map[string]float64
	balance     float64

	bus *bus.Engine
}

type simResolved struct {
	name    string
	capital float64
}

var _ Gateway = (*Sim)(nil)

// NewSim creates a paper gateway publishing onto the given bus.
func NewSim(cfg SimConfig, eventBus *bus.Engine) *Sim {
	resolved := simResolved{name: cfg.Name, capital: cfg.Capital}
	if resolved.name == "" {
		resolved.name = defaultSimName
	}
	if resolved.capital <= 0 {
		resolved.capital = defaultSimCapital
	}
	return &Sim{
		cfg:       resolved,
		orders:    make(map[string]schema.Order),
		quotes:    make(map[string]schema.Quote),
		positions: make(map[string]schema.Position),
		lastPrice: make(map[string]float64),
		balance:   resolved.capital,
		bus:       eventBus,
	}
}

// Name implements Gateway.
func (s *Sim) Name() string { return s.cfg.name }

// Connect publishes the tradable contracts and the initial paper account.
func (s *Sim) Connect(contracts ...schema.Contract) {
	for _, contract := range contracts {
		contract.Source = s.cfg.name
		s.bus.Put(schema.NewContractEvent(contract))
	}
	s.bus.Put(schema.NewAccountEvent(schema.Account{
		AccountID: "paper",
		Balance:   s.cfg.capital,
		Source:    s.cfg.name,
	}))
}

// SendOrder implements Gateway: the order is accepted as NotTraded and
// filled in full immediately when marketable against the last price.
func (s *Sim) SendOrder(req schema.OrderRequest) string {
	s.mu.Lock()
	s.nextOrderID++
	id := strconv.FormatUint(s.nextOrderID, 10)
	order := req.CreateOrder(s.cfg.name, id)
	s.mu.Unlock()

	s.bus.Put(schema.NewOrderEvent(order))

	s.mu.Lock()
	order.Status = schema.StatusNotTraded
	s.orders[id] = order
	last := s.lastPrice[req.SymbolKey()]
	events := []schema.Event{schema.NewOrderEvent(order)}
	if price, ok := marketable(order, last); ok {
		events = append(events, s.fillLocked(order, price)...)
	}
	s.mu.Unlock()

	for _, event := range events {
		s.bus.Put(event)
	}
	return id
}

// CancelOrder implements Gateway. Cancelling an unknown or terminal order
// is a logged no-op downstream, silent here.
func (s *Sim) CancelOrder(req schema.CancelRequest) {
	s.mu.Lock()
	order, ok := s.orders[req.OrderID]
	if !ok || !order.IsActive() {
		s.mu.Unlock()
		return
	}
	order.Status = schema.StatusCancelled
	order.Timestamp = time.Now()
	s.orders[req.OrderID] = order
	s.mu.Unlock()

	s.bus.Put(schema.NewOrderEvent(order))
}

// SendQuote implements Gateway: the quote rests until cancelled.
func (s *Sim) SendQuote(req schema.QuoteRequest) string {
	s.mu.Lock()
	s.nextQuoteID++
	id := strconv.FormatUint(s.nextQuoteID, 10)
	quote := schema.Quote{
		QuoteID:   id,
		Symbol:    req.Symbol,
		Exchange:  req.Exchange,
		BidPrice:  req.BidPrice,
		BidVolume: req.BidVolume,
		AskPrice:  req.AskPrice,
		AskVolume: req.AskVolume,
		Status:    schema.StatusNotTraded,
		Timestamp: time.Now(),
		Source:    s.cfg.name,
	}
	s.quotes[id] = quote
	s.mu.Unlock()

	s.bus.Put(schema.NewQuoteEvent(quote))
	return id
}

// CancelQuote implements Gateway.
func (s *Sim) CancelQuote(req schema.CancelQuoteRequest) {
	s.mu.Lock()
	quote, ok := s.quotes[req.QuoteID]
	if !ok || !quote.Status.IsActive() {
		s.mu.Unlock()
		return
	}
	quote.Status = schema.StatusCancelled
	quote.Timestamp = time.Now()
	s.quotes[req.QuoteID] = quote
	s.mu.Unlock()

	s.bus.Put(schema.NewQuoteEvent(quote))
}

// PublishTick moves the paper market: it updates the last price, publishes
// the tick, and fills any resting order that became marketable.
func (s *Sim) PublishTick(tick schema.Tick) {
	tick.Source = s.cfg.name
	if tick.Timestamp.IsZero() {
		tick.Timestamp = time.Now()
	}

	s.mu.Lock()
	s.lastPrice[tick.SymbolKey()] = tick.LastPrice
	var events []schema.Event
	for _, order := range s.orders {
		if !order.IsActive() || order.SymbolKey() != tick.SymbolKey() {
			continue
		}
		if price, ok := marketable(order, tick.LastPrice); ok {
			events = append(events, s.fillLocked(order, price)...)
		}
	}
	s.mu.Unlock()

	s.bus.Put(schema.NewTickEvent(tick))
	for _, event := range events {
		s.bus.Put(event)
	}
}

// marketable reports whether the order executes at the given last price
// and at which price. Market orders always execute; limit orders execute
// when the price crosses; stop orders trigger on adverse movement.
func marketable(order schema.Order, last float64) (float64, bool) {
	switch order.Type {
	case schema.OrderTypeMarket:
		if last > 0 {
			return last, true
		}
		return order.Price, order.Price > 0
	case schema.OrderTypeLimit:
		if last <= 0 {
			return 0, false
		}
		if order.Direction == schema.DirectionLong && order.Price >= last {
			return order.Price, true
		}
		if order.Direction == schema.DirectionShort && order.Price <= last {
			return order.Price, true
		}
		return 0, false
	case schema.OrderTypeStop:
		if last <= 0 {
			return 0, false
		}
		if order.Direction == schema.DirectionLong && last >= order.Price {
			return last, true
		}
		if order.Direction == schema.DirectionShort && last <= order.Price {
			return last, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// fillLocked fills one order in full and returns the events to publish.
// Caller holds s.mu.
func (s *Sim) fillLocked(order schema.Order, price float64) []schema.Event {
	now := time.Now()
	order.Traded = order.Volume
	order.Status = schema.StatusAllTraded
	order.Timestamp = now
	s.orders[order.OrderID] = order

	s.nextTradeID++
	trade := schema.Trade{
		TradeID:   strconv.FormatUint(s.nextTradeID, 10),
		OrderID:   order.OrderID,
		Symbol:    order.Symbol,
		Exchange:  order.Exchange,
		Direction: order.Direction,
		Offset:    order.Offset,
		Price:     price,
		Volume:    order.Volume,
		Timestamp: now,
		Source:    s.cfg.name,
	}

	position := s.applyFillLocked(trade)
	return []schema.Event{
		schema.NewOrderEvent(order),
		schema.NewTradeEvent(trade),
		schema.NewPositionEvent(position),
	}
}

// applyFillLocked keeps the paper position book: opens add to the trade's
// side, closes reduce the opposite side. Caller holds s.mu.
func (s *Sim) applyFillLocked(trade schema.Trade) schema.Position {
	direction := trade.Direction
	volume := trade.Volume
	switch trade.Offset {
	case schema.OffsetClose, schema.OffsetCloseToday, schema.OffsetCloseYesterday, schema.OffsetCover:
		direction = trade.Direction.Opposite()
		volume = -volume
	}

	key := trade.Symbol + "." + trade.Exchange + "." + direction.String()
	position, ok := s.positions[key]
	if !ok {
		position = schema.Position{
			Symbol:    trade.Symbol,
			Exchange:  trade.Exchange,
			Direction: direction,
			Source:    s.cfg.name,
		}
	}
	total := position.Volume + volume
	if total > 0 && volume > 0 {
		position.Price = (position.Price*position.Volume + trade.Price*volume) / total
	}
	position.Volume = total
	s.positions[key] = position
	return position
}
