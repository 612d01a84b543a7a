package risk

import "main/internal/schema"

// TradeBook is one symbol's realized/unrealized PnL ledger built from
// fills. Sizes and costs only ever grow; RealizedPnl moves either way.
// Trades mutate sizes, costs and both PnL figures; ticks refresh TotalPnl
// only.
type TradeBook struct {
	Symbol      string
	Exchange    string
	LongSize    float64
	ShortSize   float64
	LongCost    float64
	ShortCost   float64
	RealizedPnl float64
	TotalPnl    float64
}

// NewTradeBook allocates an empty ledger for one contract.
func NewTradeBook(symbol, exchange string) *TradeBook {
	return &TradeBook{Symbol: symbol, Exchange: exchange}
}

// SymbolKey returns the canonical "symbol.exchange" key.
func (b *TradeBook) SymbolKey() string { return b.Symbol + "." + b.Exchange }

// ApplyTrade accumulates one fill including the fixed per-trade fee, then
// recomputes realized PnL from the matched size times the cost-basis
// spread and re-marks total PnL at the trade price.
func (b *TradeBook) ApplyTrade(trade schema.Trade, fee float64) {
	switch trade.Direction {
	case schema.DirectionLong:
		b.LongSize += trade.Volume
		b.LongCost += trade.Volume*trade.Price + fee
	case schema.DirectionShort:
		b.ShortSize += trade.Volume
		b.ShortCost += trade.Volume*trade.Price + fee
	default:
		return
	}

	matched := b.LongSize
	if b.ShortSize < matched {
		matched = b.ShortSize
	}
	if matched > 0 {
		b.RealizedPnl = matched * (b.ShortCost/b.ShortSize - b.LongCost/b.LongSize)
	}
	b.MarkToMarket(trade.Price)
}

// MarkToMarket refreshes TotalPnl against the last price. RealizedPnl is
// untouched.
func (b *TradeBook) MarkToMarket(lastPrice float64) {
	total := 0.0
	if b.LongSize > 0 {
		total += b.LongSize*lastPrice - b.LongCost
	}
	if b.ShortSize > 0 {
		total += b.ShortCost - b.ShortSize*lastPrice
	}
	b.TotalPnl = total
}

// NetPosition returns the signed net size: positive long, negative short.
func (b *TradeBook) NetPosition() float64 {
	return b.LongSize - b.ShortSize
}
