package risk

import (
	"testing"

	"main/internal/schema"
)

func fill(direction schema.Direction, price, volume float64) schema.Trade {
	return schema.Trade{
		Symbol:    "IF2409",
		Exchange:  "CFFEX",
		Direction: direction,
		Price:     price,
		Volume:    volume,
	}
}

func TestTradeBookRealizedPnl(t *testing.T) {
	b := NewTradeBook("IF2409", "CFFEX")
	b.ApplyTrade(fill(schema.DirectionLong, 100, 2), 1)
	b.ApplyTrade(fill(schema.DirectionShort, 110, 2), 1)

	// matched 2, long basis 100.5, short basis 109.5
	if b.RealizedPnl != 18 {
		t.Fatalf("realized pnl = %v, want 18", b.RealizedPnl)
	}
	if b.TotalPnl != 18 {
		t.Fatalf("total pnl = %v, want 18", b.TotalPnl)
	}
	if b.NetPosition() != 0 {
		t.Fatalf("net = %v, want 0", b.NetPosition())
	}
}

func TestTradeBookPartialMatch(t *testing.T) {
	b := NewTradeBook("IF2409", "CFFEX")
	b.ApplyTrade(fill(schema.DirectionLong, 100, 2), 0)
	b.ApplyTrade(fill(schema.DirectionShort, 120, 1), 0)

	if b.RealizedPnl != 20 {
		t.Fatalf("realized pnl = %v, want 20", b.RealizedPnl)
	}
	if b.NetPosition() != 1 {
		t.Fatalf("net = %v, want 1", b.NetPosition())
	}
}

func TestMarkToMarketLeavesRealizedAlone(t *testing.T) {
	b := NewTradeBook("IF2409", "CFFEX")
	b.ApplyTrade(fill(schema.DirectionLong, 100, 1), 0)

	b.MarkToMarket(90)
	if b.TotalPnl != -10 {
		t.Fatalf("total pnl = %v, want -10", b.TotalPnl)
	}
	if b.RealizedPnl != 0 {
		t.Fatalf("realized pnl = %v, want 0", b.RealizedPnl)
	}

	b.MarkToMarket(130)
	if b.TotalPnl != 30 {
		t.Fatalf("total pnl = %v, want 30", b.TotalPnl)
	}
}

func TestSizesOnlyGrow(t *testing.T) {
	b := NewTradeBook("IF2409", "CFFEX")
	b.ApplyTrade(fill(schema.DirectionLong, 100, 3), 0)
	b.ApplyTrade(fill(schema.DirectionShort, 100, 3), 0)
	b.ApplyTrade(fill(schema.DirectionLong, 100, 1), 0)

	if b.LongSize != 4 || b.ShortSize != 3 {
		t.Fatalf("sizes = %v/%v, want 4/3", b.LongSize, b.ShortSize)
	}
}
