package oms

import (
	"sync"

	"main/internal/schema"
)

// Holding tracks one symbol's locked/net position accounting inside a
// Converter. Frozen counts the volume reserved by active close orders.
type Holding struct {
	Symbol      string
	Exchange    string
	LongVolume  float64
	LongFrozen  float64
	ShortVolume float64
	ShortFrozen float64
}

// LongAvailable returns the long volume not reserved by close orders.
func (h *Holding) LongAvailable() float64 { return h.LongVolume - h.LongFrozen }

// ShortAvailable returns the short volume not reserved by close orders.
func (h *Holding) ShortAvailable() float64 { return h.ShortVolume - h.ShortFrozen }

// Converter tracks per-symbol holdings for one gateway source and splits a
// logical order request into the wire-level requests the venue's
// locking/netting rules allow. One converter exists per gateway source,
// built lazily by the cache on the first contract seen from that source.
type Converter struct {
	source string

	mu       sync.Mutex
	holdings map[string]*Holding
	orders   map[string]schema.Order
	trades   map[string]struct{}
}

// NewConverter creates an empty converter for one gateway source.
func NewConverter(source string) *Converter {
	return &Converter{
		source:   source,
		holdings: make(map[string]*Holding),
		orders:   make(map[string]schema.Order),
		trades:   make(map[string]struct{}),
	}
}

// Source returns the gateway source this converter accounts for.
func (c *Converter) Source() string { return c.source }

// Holding returns the tracked holding for a symbol key.
func (c *Converter) Holding(symbolKey string) (Holding, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.holdings[symbolKey]
	if !ok {
		return Holding{}, false
	}
	return *h, true
}

func (c *Converter) holding(symbol, exchange string) *Holding {
	key := symbol + "." + exchange
	h, ok := c.holdings[key]
	if !ok {
		h = &Holding{Symbol: symbol, Exchange: exchange}
		c.holdings[key] = h
	}
	return h
}

// UpdatePosition overwrites the tracked volume for one side.
func (c *Converter) UpdatePosition(position schema.Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.holding(position.Symbol, position.Exchange)
	switch position.Direction {
	case schema.DirectionLong:
		h.LongVolume = position.Volume
	case schema.DirectionShort:
		h.ShortVolume = position.Volume
	}
}

// UpdateOrder recomputes the frozen volume from the delta of one close
// order. Idempotent: re-applying the same order state has no effect.
func (c *Converter) UpdateOrder(order schema.Order) {
	if order.Offset == schema.OffsetNone || order.Offset == schema.OffsetOpen {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := order.Key()
	prev, seen := c.orders[key]
	if seen && prev.Status == order.Status && prev.Traded == order.Traded {
		return
	}
	c.orders[key] = order

	h := c.holding(order.Symbol, order.Exchange)
	prevFrozen := 0.0
	if seen && prev.IsActive() {
		prevFrozen = prev.Volume - prev.Traded
	}
	frozen := 0.0
	if order.IsActive() {
		frozen = order.Volume - order.Traded
	}
	delta := frozen - prevFrozen

	// Closing a long is a short-direction order and vice versa.
	switch order.Direction {
	case schema.DirectionShort:
		h.LongFrozen += delta
	case schema.DirectionLong:
		h.ShortFrozen += delta
	}
}

// UpdateTrade applies one fill to the tracked volumes. Idempotent keyed by
// trade id.
func (c *Converter) UpdateTrade(trade schema.Trade) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := trade.Key()
	if _, seen := c.trades[key]; seen {
		return
	}
	c.trades[key] = struct{}{}

	h := c.holding(trade.Symbol, trade.Exchange)
	switch trade.Offset {
	case schema.OffsetOpen:
		if trade.Direction == schema.DirectionLong {
			h.LongVolume += trade.Volume
		} else {
			h.ShortVolume += trade.Volume
		}
	case schema.OffsetClose, schema.OffsetCloseToday, schema.OffsetCloseYesterday, schema.OffsetCover:
		// A closing buy reduces the short leg, a closing sell the long leg.
		if trade.Direction == schema.DirectionLong {
			h.ShortVolume -= trade.Volume
		} else {
			h.LongVolume -= trade.Volume
		}
	}
}

// ConvertOrderRequest splits one logical request into 1..n wire requests.
// With lock accounting a close never exceeds the available opposite
// holding: the excess is flipped into an open. With net accounting an
// opening request first closes any opposite holding. Plain mode passes the
// request through untouched.
func (c *Converter) ConvertOrderRequest(req schema.OrderRequest, lock, net bool) []schema.OrderRequest {
	switch {
	case lock:
		return c.convertLock(req)
	case net:
		return c.convertNet(req)
	default:
		return []schema.OrderRequest{req}
	}
}

func (c *Converter) convertLock(req schema.OrderRequest) []schema.OrderRequest {
	if req.Offset == schema.OffsetNone || req.Offset == schema.OffsetOpen {
		return []schema.OrderRequest{req}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	h := c.holding(req.Symbol, req.Exchange)
	available := h.LongAvailable()
	if req.Direction == schema.DirectionLong {
		available = h.ShortAvailable()
	}
	if available < 0 {
		available = 0
	}
	if req.Volume <= available {
		return []schema.OrderRequest{req}
	}

	out := make([]schema.OrderRequest, 0, 2)
	if available > 0 {
		closeReq := req
		closeReq.Volume = available
		out = append(out, closeReq)
	}
	openReq := req
	openReq.Offset = schema.OffsetOpen
	openReq.Volume = req.Volume - available
	return append(out, openReq)
}

func (c *Converter) convertNet(req schema.OrderRequest) []schema.OrderRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := c.holding(req.Symbol, req.Exchange)
	opposite := h.LongAvailable()
	closeOffset := schema.OffsetClose
	if req.Direction == schema.DirectionLong {
		opposite = h.ShortAvailable()
	}
	if opposite < 0 {
		opposite = 0
	}

	closing := req.Volume
	if closing > opposite {
		closing = opposite
	}
	out := make([]schema.OrderRequest, 0, 2)
	if closing > 0 {
		closeReq := req
		closeReq.Offset = closeOffset
		closeReq.Volume = closing
		out = append(out, closeReq)
	}
	if remainder := req.Volume - closing; remainder > 0 {
		openReq := req
		openReq.Offset = schema.OffsetOpen
		openReq.Volume = remainder
		out = append(out, openReq)
	}
	return out
}
