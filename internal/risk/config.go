package risk

// Config defines the layered order-gate limits and PnL bands. Fields map
// one-to-one onto the flat key-value settings document (see internal/ops).
// Loss limits are negative numbers; a band is breached when PnL moves at
// or beyond either bound.
type Config struct {
	Active           bool    `json:"active"`
	Freeze           bool    `json:"freeze"`
	OrderFlowLimit   int     `json:"order_flow_limit"`
	OrderFlowClear   int     `json:"order_flow_clear"`
	OrderSizeLimit   float64 `json:"order_size_limit"`
	TradeLimit       float64 `json:"trade_limit"`
	ActiveOrderLimit int     `json:"active_order_limit"`
	OrderCancelLimit int     `json:"order_cancel_limit"`

	TotalProfitLimit    float64 `json:"total_profit_limit"`
	RealizedProfitLimit float64 `json:"realised_profit_limit"`
	TotalLossLimit      float64 `json:"total_loss_limit"`
	RealizedLossLimit   float64 `json:"realised_loss_limit"`

	Fee            float64 `json:"fee"`
	PnlCheckPeriod int     `json:"pnl_check_period"`

	// CancelCountReset clears per-symbol cancel counters every given number
	// of seconds. 0 keeps them for process lifetime.
	CancelCountReset int `json:"cancel_count_reset"`

	// RelaxedCounters reproduces the historical unlocked check-then-act
	// gate counters for fidelity testing. Leave off in production.
	RelaxedCounters bool `json:"relaxed_counters"`
}

// DefaultConfig returns the built-in limits settings are merged onto.
func DefaultConfig() Config {
	return Config{
		Active:              true,
		Freeze:              false,
		OrderFlowLimit:      50,
		OrderFlowClear:      1,
		OrderSizeLimit:      100,
		TradeLimit:          1000,
		ActiveOrderLimit:    50,
		OrderCancelLimit:    500,
		TotalProfitLimit:    100000,
		RealizedProfitLimit: 50000,
		TotalLossLimit:      -100000,
		RealizedLossLimit:   -50000,
		Fee:                 1,
		PnlCheckPeriod:      10,
	}
}

// Level is the four-step risk severity.
type Level uint16

const (
	LevelZero Level = iota
	LevelNormal
	LevelWarning
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelZero:
		return "zero"
	case LevelNormal:
		return "normal"
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}
