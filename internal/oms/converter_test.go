package oms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

func openTrade(id string, direction schema.Direction, volume float64) schema.Trade {
	return schema.Trade{
		TradeID:   id,
		Symbol:    "IF2409",
		Exchange:  "CFFEX",
		Direction: direction,
		Offset:    schema.OffsetOpen,
		Price:     100,
		Volume:    volume,
		Source:    "SIM",
	}
}

func TestConvertLockSplitsOversizedClose(t *testing.T) {
	c := NewConverter("SIM")
	c.UpdateTrade(openTrade("1", schema.DirectionLong, 3))

	out := c.ConvertOrderRequest(schema.OrderRequest{
		Symbol:    "IF2409",
		Exchange:  "CFFEX",
		Direction: schema.DirectionShort,
		Offset:    schema.OffsetClose,
		Volume:    5,
	}, true, false)

	require.Len(t, out, 2)
	assert.Equal(t, schema.OffsetClose, out[0].Offset)
	assert.Equal(t, 3.0, out[0].Volume)
	assert.Equal(t, schema.OffsetOpen, out[1].Offset)
	assert.Equal(t, 2.0, out[1].Volume)
}

func TestConvertLockCloseWithinAvailable(t *testing.T) {
	c := NewConverter("SIM")
	c.UpdateTrade(openTrade("1", schema.DirectionLong, 5))

	req := schema.OrderRequest{
		Symbol:    "IF2409",
		Exchange:  "CFFEX",
		Direction: schema.DirectionShort,
		Offset:    schema.OffsetClose,
		Volume:    5,
	}
	out := c.ConvertOrderRequest(req, true, false)

	require.Len(t, out, 1)
	assert.Equal(t, req, out[0])
}

func TestConvertLockFrozenReducesAvailable(t *testing.T) {
	c := NewConverter("SIM")
	c.UpdateTrade(openTrade("1", schema.DirectionLong, 5))

	// A resting close order freezes part of the long leg.
	c.UpdateOrder(schema.Order{
		OrderID:   "10",
		Symbol:    "IF2409",
		Exchange:  "CFFEX",
		Direction: schema.DirectionShort,
		Offset:    schema.OffsetClose,
		Volume:    2,
		Status:    schema.StatusNotTraded,
		Source:    "SIM",
	})
	holding, ok := c.Holding("IF2409.CFFEX")
	require.True(t, ok)
	assert.Equal(t, 2.0, holding.LongFrozen)
	assert.Equal(t, 3.0, holding.LongAvailable())

	out := c.ConvertOrderRequest(schema.OrderRequest{
		Symbol:    "IF2409",
		Exchange:  "CFFEX",
		Direction: schema.DirectionShort,
		Offset:    schema.OffsetClose,
		Volume:    4,
	}, true, false)
	require.Len(t, out, 2)
	assert.Equal(t, 3.0, out[0].Volume)
	assert.Equal(t, 1.0, out[1].Volume)
}

func TestConvertNetClosesOppositeFirst(t *testing.T) {
	c := NewConverter("SIM")
	c.UpdateTrade(openTrade("1", schema.DirectionShort, 2))

	out := c.ConvertOrderRequest(schema.OrderRequest{
		Symbol:    "IF2409",
		Exchange:  "CFFEX",
		Direction: schema.DirectionLong,
		Offset:    schema.OffsetOpen,
		Volume:    5,
	}, false, true)

	require.Len(t, out, 2)
	assert.Equal(t, schema.OffsetClose, out[0].Offset)
	assert.Equal(t, 2.0, out[0].Volume)
	assert.Equal(t, schema.OffsetOpen, out[1].Offset)
	assert.Equal(t, 3.0, out[1].Volume)
}

func TestConvertPlainPassthrough(t *testing.T) {
	c := NewConverter("SIM")
	req := schema.OrderRequest{
		Symbol:    "IF2409",
		Exchange:  "CFFEX",
		Direction: schema.DirectionShort,
		Offset:    schema.OffsetClose,
		Volume:    99,
	}
	out := c.ConvertOrderRequest(req, false, false)
	require.Len(t, out, 1)
	assert.Equal(t, req, out[0])
}

func TestUpdateTradeIdempotent(t *testing.T) {
	c := NewConverter("SIM")
	trade := openTrade("1", schema.DirectionLong, 3)
	c.UpdateTrade(trade)
	c.UpdateTrade(trade)

	holding, ok := c.Holding("IF2409.CFFEX")
	require.True(t, ok)
	assert.Equal(t, 3.0, holding.LongVolume)
}

func TestUpdateOrderIdempotentAndUnfreezeOnTerminal(t *testing.T) {
	c := NewConverter("SIM")
	c.UpdateTrade(openTrade("1", schema.DirectionLong, 5))

	order := schema.Order{
		OrderID:   "10",
		Symbol:    "IF2409",
		Exchange:  "CFFEX",
		Direction: schema.DirectionShort,
		Offset:    schema.OffsetClose,
		Volume:    4,
		Status:    schema.StatusNotTraded,
		Source:    "SIM",
	}
	c.UpdateOrder(order)
	c.UpdateOrder(order)

	holding, _ := c.Holding("IF2409.CFFEX")
	assert.Equal(t, 4.0, holding.LongFrozen)

	// Partial fill keeps the remainder frozen.
	order.Status = schema.StatusPartTraded
	order.Traded = 1
	c.UpdateOrder(order)
	holding, _ = c.Holding("IF2409.CFFEX")
	assert.Equal(t, 3.0, holding.LongFrozen)

	order.Status = schema.StatusCancelled
	c.UpdateOrder(order)
	holding, _ = c.Holding("IF2409.CFFEX")
	assert.Equal(t, 0.0, holding.LongFrozen)
}

func TestUpdateOrderIgnoresOpens(t *testing.T) {
	c := NewConverter("SIM")
	c.UpdateOrder(schema.Order{
		OrderID:   "10",
		Symbol:    "IF2409",
		Exchange:  "CFFEX",
		Direction: schema.DirectionLong,
		Offset:    schema.OffsetOpen,
		Volume:    4,
		Status:    schema.StatusNotTraded,
		Source:    "SIM",
	})
	_, ok := c.Holding("IF2409.CFFEX")
	assert.False(t, ok)
}

func TestUpdateTradeCloseReducesOpposite(t *testing.T) {
	c := NewConverter("SIM")
	c.UpdateTrade(openTrade("1", schema.DirectionLong, 5))

	close := openTrade("2", schema.DirectionShort, 2)
	close.Offset = schema.OffsetClose
	c.UpdateTrade(close)

	holding, _ := c.Holding("IF2409.CFFEX")
	assert.Equal(t, 3.0, holding.LongVolume)
	assert.Equal(t, 0.0, holding.ShortVolume)
}
