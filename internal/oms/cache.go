package oms

import (
	"sync"

	"main/internal/bus"
	"main/internal/schema"
)

// Cache is the order management state kept current by the event stream. It
// subscribes to the domain events, performs unconditional upserts into
// keyed maps, and exposes point-in-time read accessors.
//
// All mutation happens on the bus dispatch goroutine; the RWMutex exists
// because accessors are callable from any goroutine and Go maps are unsafe
// under concurrent read/write. Accessor results are copies: callers must
// treat the entries as immutable snapshots.
type Cache struct {
	mu           sync.RWMutex
	ticks        map[string]schema.Tick
	orders       map[string]schema.Order
	trades       map[string]schema.Trade
	positions    map[string]schema.Position
	accounts     map[string]schema.Account
	contracts    map[string]schema.Contract
	quotes       map[string]schema.Quote
	activeOrders map[string]schema.Order
	converters   map[string]*Converter
}

// NewCache allocates an empty cache and registers its handlers on the bus.
func NewCache(engine *bus.Engine) *Cache {
	c := &Cache{
		ticks:        make(map[string]schema.Tick),
		orders:       make(map[string]schema.Order),
		trades:       make(map[string]schema.Trade),
		positions:    make(map[string]schema.Position),
		accounts:     make(map[string]schema.Account),
		contracts:    make(map[string]schema.Contract),
		quotes:       make(map[string]schema.Quote),
		activeOrders: make(map[string]schema.Order),
		converters:   make(map[string]*Converter),
	}
	engine.Register(schema.EventTick, c.processTickEvent)
	engine.Register(schema.EventOrder, c.processOrderEvent)
	engine.Register(schema.EventTrade, c.processTradeEvent)
	engine.Register(schema.EventPosition, c.processPositionEvent)
	engine.Register(schema.EventAccount, c.processAccountEvent)
	engine.Register(schema.EventContract, c.processContractEvent)
	engine.Register(schema.EventQuote, c.processQuoteEvent)
	return c
}

func (c *Cache) processTickEvent(event schema.Event) {
	tick, ok := event.Data.(schema.Tick)
	if !ok {
		return
	}
	c.mu.Lock()
	c.ticks[tick.SymbolKey()] = tick
	c.mu.Unlock()
}

func (c *Cache) processOrderEvent(event schema.Event) {
	order, ok := event.Data.(schema.Order)
	if !ok {
		return
	}
	c.mu.Lock()
	key := order.Key()
	c.orders[key] = order
	if order.IsActive() {
		c.activeOrders[key] = order
	} else {
		delete(c.activeOrders, key)
	}
	converter := c.converters[order.Source]
	c.mu.Unlock()

	if converter != nil {
		converter.UpdateOrder(order)
	}
}

func (c *Cache) processTradeEvent(event schema.Event) {
	trade, ok := event.Data.(schema.Trade)
	if !ok {
		return
	}
	c.mu.Lock()
	c.trades[trade.Key()] = trade
	converter := c.converters[trade.Source]
	c.mu.Unlock()

	if converter != nil {
		converter.UpdateTrade(trade)
	}
}

func (c *Cache) processPositionEvent(event schema.Event) {
	position, ok := event.Data.(schema.Position)
	if !ok {
		return
	}
	c.mu.Lock()
	c.positions[position.Key()] = position
	converter := c.converters[position.Source]
	c.mu.Unlock()

	if converter != nil {
		converter.UpdatePosition(position)
	}
}

func (c *Cache) processAccountEvent(event schema.Event) {
	account, ok := event.Data.(schema.Account)
	if !ok {
		return
	}
	c.mu.Lock()
	c.accounts[account.Key()] = account
	c.mu.Unlock()
}

// processContractEvent upserts the contract and lazily builds one offset
// converter per distinct gateway source.
func (c *Cache) processContractEvent(event schema.Event) {
	contract, ok := event.Data.(schema.Contract)
	if !ok {
		return
	}
	c.mu.Lock()
	c.contracts[contract.Key()] = contract
	if _, seen := c.converters[contract.Source]; !seen {
		c.converters[contract.Source] = NewConverter(contract.Source)
	}
	c.mu.Unlock()
}

func (c *Cache) processQuoteEvent(event schema.Event) {
	quote, ok := event.Data.(schema.Quote)
	if !ok {
		return
	}
	c.mu.Lock()
	c.quotes[quote.Key()] = quote
	c.mu.Unlock()
}

// Tick returns the latest tick for a symbol key.
func (c *Cache) Tick(symbolKey string) (schema.Tick, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tick, ok := c.ticks[symbolKey]
	return tick, ok
}

// Order returns one order by "source.orderid" key.
func (c *Cache) Order(key string) (schema.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	order, ok := c.orders[key]
	return order, ok
}

// Trade returns one trade by "source.tradeid" key.
func (c *Cache) Trade(key string) (schema.Trade, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	trade, ok := c.trades[key]
	return trade, ok
}

// Position returns one position by "symbol.exchange.direction" key.
func (c *Cache) Position(key string) (schema.Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	position, ok := c.positions[key]
	return position, ok
}

// Account returns one account by "source.accountid" key.
func (c *Cache) Account(key string) (schema.Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	account, ok := c.accounts[key]
	return account, ok
}

// Contract returns one contract by canonical "symbol.exchange" key, falling
// back to a linear scan of display names when the key lookup misses.
func (c *Cache) Contract(key string) (schema.Contract, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if contract, ok := c.contracts[key]; ok {
		return contract, true
	}
	for _, contract := range c.contracts {
		if contract.Name == key {
			return contract, true
		}
	}
	return schema.Contract{}, false
}

// Quote returns one quote by "source.quoteid" key.
func (c *Cache) Quote(key string) (schema.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	quote, ok := c.quotes[key]
	return quote, ok
}

// Converter returns the offset converter for a gateway source.
func (c *Cache) Converter(source string) (*Converter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	converter, ok := c.converters[source]
	return converter, ok
}

// AllOrders returns a snapshot of every order.
func (c *Cache) AllOrders() []schema.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]schema.Order, 0, len(c.orders))
	for _, order := range c.orders {
		out = append(out, order)
	}
	return out
}

// AllTrades returns a snapshot of every trade.
func (c *Cache) AllTrades() []schema.Trade {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]schema.Trade, 0, len(c.trades))
	for _, trade := range c.trades {
		out = append(out, trade)
	}
	return out
}

// AllPositions returns a snapshot of every position.
func (c *Cache) AllPositions() []schema.Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]schema.Position, 0, len(c.positions))
	for _, position := range c.positions {
		out = append(out, position)
	}
	return out
}

// AllAccounts returns a snapshot of every account.
func (c *Cache) AllAccounts() []schema.Account {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]schema.Account, 0, len(c.accounts))
	for _, account := range c.accounts {
		out = append(out, account)
	}
	return out
}

// AllContracts returns a snapshot of every contract.
func (c *Cache) AllContracts() []schema.Contract {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]schema.Contract, 0, len(c.contracts))
	for _, contract := range c.contracts {
		out = append(out, contract)
	}
	return out
}

// AllQuotes returns a snapshot of every quote.
func (c *Cache) AllQuotes() []schema.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]schema.Quote, 0, len(c.quotes))
	for _, quote := range c.quotes {
		out = append(out, quote)
	}
	return out
}

// AllActiveOrders returns a snapshot of orders not yet in a terminal
// status, optionally filtered by "symbol.exchange" key.
func (c *Cache) AllActiveOrders(symbolKey string) []schema.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]schema.Order, 0, len(c.activeOrders))
	for _, order := range c.activeOrders {
		if symbolKey != "" && order.SymbolKey() != symbolKey {
			continue
		}
		out = append(out, order)
	}
	return out
}

// ActiveOrderCount returns the number of non-terminal orders platform-wide.
func (c *Cache) ActiveOrderCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.activeOrders)
}
