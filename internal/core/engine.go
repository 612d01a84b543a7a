package core

import (
	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/gateway"
	"main/internal/oms"
	"main/internal/risk"
	"main/internal/schema"
)

// Engine is the trading facade. It owns no state of its own: the bus moves
// events, the cache holds them, the gateway executes, and the gate chain
// decides what may go out. All collaborators are constructor injected and
// lifecycle is owned by the composing application.
type Engine struct {
	bus     *bus.Engine
	cache   *oms.Cache
	gateway gateway.Gateway
	gates   []risk.Gate
	send    risk.Sender
}

// New builds the facade and composes the gate chain in front of the
// gateway send capability. Gates run in the given order; the first gate is
// outermost.
func New(eventBus *bus.Engine, cache *oms.Cache, gw gateway.Gateway, gates ...risk.Gate) *Engine {
	send := risk.Sender(gw.SendOrder)
	for i := len(gates) - 1; i >= 0; i-- {
		send = gates[i].Wrap(send)
	}
	return &Engine{
		bus:     eventBus,
		cache:   cache,
		gateway: gw,
		gates:   gates,
		send:    send,
	}
}

// Bus returns the event bus.
func (e *Engine) Bus() *bus.Engine { return e.bus }

// Cache returns the state cache read surface.
func (e *Engine) Cache() *oms.Cache { return e.cache }

// Gates returns the installed gate chain in composition order.
func (e *Engine) Gates() []risk.Gate { return e.gates }

// SendOrder runs one request through the gate chain. An empty id means a
// gate rejected it; the reason is logged by the gate.
func (e *Engine) SendOrder(req schema.OrderRequest) string {
	return e.send(req)
}

// CancelOrder passes a cancel through to the gateway.
func (e *Engine) CancelOrder(req schema.CancelRequest) {
	e.gateway.CancelOrder(req)
}

// SendQuote passes a two-sided quote through to the gateway.
func (e *Engine) SendQuote(req schema.QuoteRequest) string {
	return e.gateway.SendQuote(req)
}

// CancelQuote passes a quote cancel through to the gateway.
func (e *Engine) CancelQuote(req schema.CancelQuoteRequest) {
	e.gateway.CancelQuote(req)
}

// CancelAllOrders cancels every active order, optionally filtered by
// "symbol.exchange" key. An empty key cancels platform-wide.
func (e *Engine) CancelAllOrders(symbolKey string) {
	orders := e.cache.AllActiveOrders(symbolKey)
	if len(orders) == 0 {
		return
	}
	logs.Infof("cancelling %d active orders. symbol: %q", len(orders), symbolKey)
	for _, order := range orders {
		e.gateway.CancelOrder(order.CreateCancelRequest())
	}
}
