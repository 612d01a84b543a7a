package gateway

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/bus"
	"main/internal/oms"
	"main/internal/schema"
)

type simHarness struct {
	sim    *Sim
	cache  *oms.Cache
	mu     sync.Mutex
	trades []schema.Trade
	quotes []schema.Quote
}

func newSimHarness(t *testing.T) *simHarness {
	t.Helper()
	eventBus := bus.NewEngine(time.Hour, nil)
	h := &simHarness{cache: oms.NewCache(eventBus)}
	eventBus.Register(schema.EventTrade, func(event schema.Event) {
		trade, ok := event.Data.(schema.Trade)
		if !ok {
			return
		}
		h.mu.Lock()
		h.trades = append(h.trades, trade)
		h.mu.Unlock()
	})
	eventBus.Register(schema.EventQuote, func(event schema.Event) {
		quote, ok := event.Data.(schema.Quote)
		if !ok {
			return
		}
		h.mu.Lock()
		h.quotes = append(h.quotes, quote)
		h.mu.Unlock()
	})
	h.sim = NewSim(SimConfig{}, eventBus)
	eventBus.Start()
	t.Cleanup(eventBus.Stop)
	return h
}

func (h *simHarness) tradeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.trades)
}

func (h *simHarness) lastTrade() schema.Trade {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.trades[len(h.trades)-1]
}

func (h *simHarness) quoteCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.quotes)
}

func marketBuy(volume float64) schema.OrderRequest {
	return schema.OrderRequest{
		Symbol:    "BTCUSDT",
		Exchange:  "SIM",
		Direction: schema.DirectionLong,
		Offset:    schema.OffsetOpen,
		Type:      schema.OrderTypeMarket,
		Volume:    volume,
	}
}

func TestConnectPublishesContractsAndAccount(t *testing.T) {
	h := newSimHarness(t)
	h.sim.Connect(schema.Contract{Symbol: "BTCUSDT", Exchange: "SIM", Name: "Bitcoin Perp"})

	// The account event trails the contracts, so it gates the assertion.
	require.Eventually(t, func() bool {
		_, ok := h.cache.Account("SIM.paper")
		return ok
	}, time.Second, time.Millisecond)

	account, _ := h.cache.Account("SIM.paper")
	assert.Equal(t, float64(defaultSimCapital), account.Balance)

	contract, ok := h.cache.Contract("BTCUSDT.SIM")
	require.True(t, ok)
	assert.Equal(t, "SIM", contract.Source, "source stamped by the gateway")
}

func TestMarketOrderFillsAtLastPrice(t *testing.T) {
	h := newSimHarness(t)
	h.sim.PublishTick(schema.Tick{Symbol: "BTCUSDT", Exchange: "SIM", LastPrice: 100})

	id := h.sim.SendOrder(marketBuy(2))
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool { return h.tradeCount() == 1 }, time.Second, time.Millisecond)
	trade := h.lastTrade()
	assert.Equal(t, 100.0, trade.Price)
	assert.Equal(t, 2.0, trade.Volume)

	require.Eventually(t, func() bool {
		order, ok := h.cache.Order("SIM." + id)
		return ok && order.Status == schema.StatusAllTraded
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		position, ok := h.cache.Position("BTCUSDT.SIM.long")
		return ok && position.Volume == 2 && position.Price == 100
	}, time.Second, time.Millisecond)
}

func TestLimitOrderRestsThenFillsOnTick(t *testing.T) {
	h := newSimHarness(t)
	h.sim.PublishTick(schema.Tick{Symbol: "BTCUSDT", Exchange: "SIM", LastPrice: 100})

	id := h.sim.SendOrder(schema.OrderRequest{
		Symbol:    "BTCUSDT",
		Exchange:  "SIM",
		Direction: schema.DirectionLong,
		Offset:    schema.OffsetOpen,
		Type:      schema.OrderTypeLimit,
		Price:     99,
		Volume:    1,
	})

	require.Eventually(t, func() bool {
		order, ok := h.cache.Order("SIM." + id)
		return ok && order.Status == schema.StatusNotTraded
	}, time.Second, time.Millisecond)
	assert.Zero(t, h.tradeCount(), "order rests above the market")

	h.sim.PublishTick(schema.Tick{Symbol: "BTCUSDT", Exchange: "SIM", LastPrice: 98})
	require.Eventually(t, func() bool { return h.tradeCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 99.0, h.lastTrade().Price, "limit fills at its own price")
}

func TestStopOrderTriggersOnAdverseMove(t *testing.T) {
	h := newSimHarness(t)
	h.sim.PublishTick(schema.Tick{Symbol: "BTCUSDT", Exchange: "SIM", LastPrice: 100})

	h.sim.SendOrder(schema.OrderRequest{
		Symbol:    "BTCUSDT",
		Exchange:  "SIM",
		Direction: schema.DirectionLong,
		Offset:    schema.OffsetOpen,
		Type:      schema.OrderTypeStop,
		Price:     105,
		Volume:    1,
	})

	h.sim.PublishTick(schema.Tick{Symbol: "BTCUSDT", Exchange: "SIM", LastPrice: 104})
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, h.tradeCount())

	h.sim.PublishTick(schema.Tick{Symbol: "BTCUSDT", Exchange: "SIM", LastPrice: 106})
	require.Eventually(t, func() bool { return h.tradeCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 106.0, h.lastTrade().Price, "stop fills at the trigger price")
}

func TestCancelOrder(t *testing.T) {
	h := newSimHarness(t)
	h.sim.PublishTick(schema.Tick{Symbol: "BTCUSDT", Exchange: "SIM", LastPrice: 100})

	id := h.sim.SendOrder(schema.OrderRequest{
		Symbol:    "BTCUSDT",
		Exchange:  "SIM",
		Direction: schema.DirectionLong,
		Offset:    schema.OffsetOpen,
		Type:      schema.OrderTypeLimit,
		Price:     90,
		Volume:    1,
	})

	h.sim.CancelOrder(schema.CancelRequest{OrderID: id, Symbol: "BTCUSDT", Exchange: "SIM"})
	require.Eventually(t, func() bool {
		order, ok := h.cache.Order("SIM." + id)
		return ok && order.Status == schema.StatusCancelled
	}, time.Second, time.Millisecond)

	// Cancelling a terminal or unknown order changes nothing.
	h.sim.CancelOrder(schema.CancelRequest{OrderID: id})
	h.sim.CancelOrder(schema.CancelRequest{OrderID: "404"})
	assert.Empty(t, h.cache.AllActiveOrders(""))
}

func TestCloseReducesPaperPosition(t *testing.T) {
	h := newSimHarness(t)
	h.sim.PublishTick(schema.Tick{Symbol: "BTCUSDT", Exchange: "SIM", LastPrice: 100})

	h.sim.SendOrder(marketBuy(2))
	require.Eventually(t, func() bool { return h.tradeCount() == 1 }, time.Second, time.Millisecond)

	h.sim.SendOrder(schema.OrderRequest{
		Symbol:    "BTCUSDT",
		Exchange:  "SIM",
		Direction: schema.DirectionShort,
		Offset:    schema.OffsetClose,
		Type:      schema.OrderTypeMarket,
		Volume:    1,
	})
	require.Eventually(t, func() bool { return h.tradeCount() == 2 }, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		position, ok := h.cache.Position("BTCUSDT.SIM.long")
		return ok && position.Volume == 1
	}, time.Second, time.Millisecond)
}

func TestQuoteLifecycle(t *testing.T) {
	h := newSimHarness(t)
	id := h.sim.SendQuote(schema.QuoteRequest{
		Symbol:    "BTCUSDT",
		Exchange:  "SIM",
		BidPrice:  99,
		BidVolume: 1,
		AskPrice:  101,
		AskVolume: 1,
	})
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		quote, ok := h.cache.Quote("SIM." + id)
		return ok && quote.Status == schema.StatusNotTraded
	}, time.Second, time.Millisecond)

	h.sim.CancelQuote(schema.CancelQuoteRequest{QuoteID: id, Symbol: "BTCUSDT", Exchange: "SIM"})
	require.Eventually(t, func() bool {
		quote, ok := h.cache.Quote("SIM." + id)
		return ok && quote.Status == schema.StatusCancelled
	}, time.Second, time.Millisecond)

	// Cancelling again is a no-op.
	before := h.quoteCount()
	h.sim.CancelQuote(schema.CancelQuoteRequest{QuoteID: id})
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, before, h.quoteCount())
}
