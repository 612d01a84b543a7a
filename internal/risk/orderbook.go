package risk

import "main/internal/schema"

// ActiveOrderBook tracks one symbol's best resting bid/ask derived from
// this platform's own open orders. It backs the self-trade guard only; it
// is not a market depth book.
type ActiveOrderBook struct {
	symbolKey string
	buys      map[string]float64
	sells     map[string]float64
}

// NewActiveOrderBook allocates an empty book for one symbol key.
func NewActiveOrderBook(symbolKey string) *ActiveOrderBook {
	return &ActiveOrderBook{
		symbolKey: symbolKey,
		buys:      make(map[string]float64),
		sells:     make(map[string]float64),
	}
}

// Apply inserts or updates an active order's resting price and removes the
// order once it reaches a terminal status. Removing an absent order is a
// no-op.
func (b *ActiveOrderBook) Apply(order schema.Order) {
	key := order.Key()
	if !order.IsActive() {
		delete(b.buys, key)
		delete(b.sells, key)
		return
	}
	switch order.Direction {
	case schema.DirectionLong:
		b.buys[key] = order.Price
	case schema.DirectionShort:
		b.sells[key] = order.Price
	}
}

// BestBid returns the highest resting buy price, 0 when none rest.
func (b *ActiveOrderBook) BestBid() float64 {
	best := 0.0
	for _, price := range b.buys {
		if price > best {
			best = price
		}
	}
	return best
}

// BestAsk returns the lowest resting sell price, 0 meaning "no guard".
func (b *ActiveOrderBook) BestAsk() float64 {
	best := 0.0
	for _, price := range b.sells {
		if best == 0 || price < best {
			best = price
		}
	}
	return best
}

// Len returns the number of resting orders on both sides.
func (b *ActiveOrderBook) Len() int {
	return len(b.buys) + len(b.sells)
}
