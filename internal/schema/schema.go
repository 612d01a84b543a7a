package schema

// EventType defines the category of an event on the in-memory bus.
type EventType uint16

const (
	EventUnknown EventType = iota
	EventTick
	EventOrder
	EventTrade
	EventPosition
	EventAccount
	EventContract
	EventQuote
	EventTimer
	_event_end
)

func (t EventType) IsAvailable() bool {
	return t > EventUnknown && t < _event_end
}

func (t EventType) String() string {
	switch t {
	case EventTick:
		return "tick"
	case EventOrder:
		return "order"
	case EventTrade:
		return "trade"
	case EventPosition:
		return "position"
	case EventAccount:
		return "account"
	case EventContract:
		return "contract"
	case EventQuote:
		return "quote"
	case EventTimer:
		return "timer"
	default:
		return "unknown"
	}
}

// Event is the unit passed through the in-memory bus: a type tag plus the
// matching payload struct. Ownership of the payload passes to the bus at
// publish time; neither producer nor consumer mutates it afterwards.
type Event struct {
	Type EventType
	Data any
}

func NewTickEvent(t Tick) Event         { return Event{Type: EventTick, Data: t} }
func NewOrderEvent(o Order) Event       { return Event{Type: EventOrder, Data: o} }
func NewTradeEvent(t Trade) Event       { return Event{Type: EventTrade, Data: t} }
func NewPositionEvent(p Position) Event { return Event{Type: EventPosition, Data: p} }
func NewAccountEvent(a Account) Event   { return Event{Type: EventAccount, Data: a} }
func NewContractEvent(c Contract) Event { return Event{Type: EventContract, Data: c} }
func NewQuoteEvent(q Quote) Event       { return Event{Type: EventQuote, Data: q} }

// NewTimerEvent carries no payload.
func NewTimerEvent() Event { return Event{Type: EventTimer} }
