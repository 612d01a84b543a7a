package gateway

import "main/internal/schema"

// Gateway is the only surface the core needs from a broker adapter: the
// calls it accepts. Events flow back through the bus, not through return
// values.
type Gateway interface {
	Name() string
	SendOrder(req schema.OrderRequest) string
	CancelOrder(req schema.CancelRequest)
	SendQuote(req schema.QuoteRequest) string
	CancelQuote(req schema.CancelQuoteRequest)
}
