package schema

import "time"

// Direction describes the side of an order or position.
type Direction uint16

const (
	DirectionUnknown Direction = iota
	DirectionLong
	DirectionShort
)

func (d Direction) String() string {
	switch d {
	case DirectionLong:
		return "long"
	case DirectionShort:
		return "short"
	default:
		return "unknown"
	}
}

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionLong:
		return DirectionShort
	case DirectionShort:
		return DirectionLong
	default:
		return DirectionUnknown
	}
}

// Offset describes position-increasing vs position-decreasing intent,
// orthogonal to direction. OffsetCover tags an order whose purpose is to
// flatten an existing net position.
type Offset uint16

const (
	OffsetNone Offset = iota
	OffsetOpen
	OffsetClose
	OffsetCloseToday
	OffsetCloseYesterday
	OffsetCover
)

func (o Offset) String() string {
	switch o {
	case OffsetNone:
		return "none"
	case OffsetOpen:
		return "open"
	case OffsetClose:
		return "close"
	case OffsetCloseToday:
		return "close_today"
	case OffsetCloseYesterday:
		return "close_yesterday"
	case OffsetCover:
		return "cover"
	default:
		return "unknown"
	}
}

// OrderType describes order type.
type OrderType uint16

const (
	OrderTypeUnknown OrderType = iota
	OrderTypeLimit
	OrderTypeMarket
	OrderTypeStop
)

// Status tracks the order lifecycle.
//
// Allowed transitions:
//
//	Submitting -> NotTraded | Rejected
//	NotTraded  -> PartTraded | Cancelled
//	PartTraded -> PartTraded | AllTraded | Cancelled
//
// AllTraded, Cancelled and Rejected are terminal.
type Status uint16

const (
	StatusUnknown Status = iota
	StatusSubmitting
	StatusNotTraded
	StatusPartTraded
	StatusAllTraded
	StatusCancelled
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusSubmitting:
		return "submitting"
	case StatusNotTraded:
		return "not_traded"
	case StatusPartTraded:
		return "part_traded"
	case StatusAllTraded:
		return "all_traded"
	case StatusCancelled:
		return "cancelled"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// IsActive reports whether the status is non-terminal.
func (s Status) IsActive() bool {
	switch s {
	case StatusSubmitting, StatusNotTraded, StatusPartTraded:
		return true
	default:
		return false
	}
}

// Tick is the payload for EventTick.
type Tick struct {
	Symbol    string
	Exchange  string
	LastPrice float64
	Volume    float64
	BidPrice  float64
	BidVolume float64
	AskPrice  float64
	AskVolume float64
	Timestamp time.Time
	Source    string
}

// SymbolKey returns the canonical "symbol.exchange" key.
func (t Tick) SymbolKey() string { return t.Symbol + "." + t.Exchange }

// Order is the payload for EventOrder.
type Order struct {
	OrderID   string
	Symbol    string
	Exchange  string
	Direction Direction
	Offset    Offset
	Type      OrderType
	Price     float64
	Volume    float64
	Traded    float64
	Status    Status
	Timestamp time.Time
	Source    string
}

// Key returns the platform-wide "source.orderid" key.
func (o Order) Key() string { return o.Source + "." + o.OrderID }

// SymbolKey returns the canonical "symbol.exchange" key.
func (o Order) SymbolKey() string { return o.Symbol + "." + o.Exchange }

// IsActive reports whether the order has not reached a terminal status.
func (o Order) IsActive() bool { return o.Status.IsActive() }

// CreateCancelRequest builds the cancel request for this order.
func (o Order) CreateCancelRequest() CancelRequest {
	return CancelRequest{OrderID: o.OrderID, Symbol: o.Symbol, Exchange: o.Exchange}
}

// Trade is the payload for EventTrade. Immutable once created; one order may
// generate many trades whose volumes sum to at most the order volume.
type Trade struct {
	TradeID   string
	OrderID   string
	Symbol    string
	Exchange  string
	Direction Direction
	Offset    Offset
	Price     float64
	Volume    float64
	Timestamp time.Time
	Source    string
}

// Key returns the platform-wide "source.tradeid" key.
func (t Trade) Key() string { return t.Source + "." + t.TradeID }

// OrderKey returns the key of the originating order.
func (t Trade) OrderKey() string { return t.Source + "." + t.OrderID }

// SymbolKey returns the canonical "symbol.exchange" key.
func (t Trade) SymbolKey() string { return t.Symbol + "." + t.Exchange }

// Position is the payload for EventPosition. Keyed by symbol and direction,
// overwritten wholesale on each update.
type Position struct {
	Symbol    string
	Exchange  string
	Direction Direction
	Volume    float64
	Frozen    float64
	Price     float64
	Pnl       float64
	YdVolume  float64
	Source    string
}

// Key returns the "symbol.exchange.direction" key.
func (p Position) Key() string {
	return p.Symbol + "." + p.Exchange + "." + p.Direction.String()
}

// SymbolKey returns the canonical "symbol.exchange" key.
func (p Position) SymbolKey() string { return p.Symbol + "." + p.Exchange }

// Account is the payload for EventAccount.
type Account struct {
	AccountID string
	Balance   float64
	Frozen    float64
	Source    string
}

// Key returns the platform-wide "source.accountid" key.
func (a Account) Key() string { return a.Source + "." + a.AccountID }

// Available returns the balance not locked by frozen funds.
func (a Account) Available() float64 { return a.Balance - a.Frozen }

// Contract is the payload for EventContract.
type Contract struct {
	Symbol    string
	Exchange  string
	Name      string
	Size      float64
	PriceTick float64
	MinVolume float64
	StopOK    bool
	QuoteOK   bool
	Source    string
}

// Key returns the canonical "symbol.exchange" key.
func (c Contract) Key() string { return c.Symbol + "." + c.Exchange }

// Quote is the payload for EventQuote.
type Quote struct {
	QuoteID   string
	Symbol    string
	Exchange  string
	BidPrice  float64
	BidVolume float64
	AskPrice  float64
	AskVolume float64
	Status    Status
	Timestamp time.Time
	Source    string
}

// Key returns the platform-wide "source.quoteid" key.
func (q Quote) Key() string { return q.Source + "." + q.QuoteID }

// SymbolKey returns the canonical "symbol.exchange" key.
func (q Quote) SymbolKey() string { return q.Symbol + "." + q.Exchange }

// OrderRequest is a logical outbound order before gating and conversion.
type OrderRequest struct {
	Symbol    string
	Exchange  string
	Direction Direction
	Offset    Offset
	Type      OrderType
	Price     float64
	Volume    float64
	Reference string
}

// SymbolKey returns the canonical "symbol.exchange" key.
func (r OrderRequest) SymbolKey() string { return r.Symbol + "." + r.Exchange }

// CreateOrder builds the Submitting-status order echo for this request.
func (r OrderRequest) CreateOrder(source, orderID string) Order {
	return Order{
		OrderID:   orderID,
		Symbol:    r.Symbol,
		Exchange:  r.Exchange,
		Direction: r.Direction,
		Offset:    r.Offset,
		Type:      r.Type,
		Price:     r.Price,
		Volume:    r.Volume,
		Status:    StatusSubmitting,
		Timestamp: time.Now(),
		Source:    source,
	}
}

// CancelRequest asks the gateway to cancel a resting order.
type CancelRequest struct {
	OrderID  string
	Symbol   string
	Exchange string
}

// QuoteRequest is a two-sided outbound quote.
type QuoteRequest struct {
	Symbol    string
	Exchange  string
	BidPrice  float64
	BidVolume float64
	AskPrice  float64
	AskVolume float64
	Reference string
}

// CancelQuoteRequest asks the gateway to pull a resting quote.
type CancelQuoteRequest struct {
	QuoteID  string
	Symbol   string
	Exchange string
}
