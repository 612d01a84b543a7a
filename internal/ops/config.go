package ops

import (
	"encoding/json"
	"fmt"
	"os"

	"main/internal/risk"
)

// LoadRiskConfig reads the flat key-value settings document and merges it
// onto the built-in defaults: keys absent from the document keep their
// default value. An empty path or a missing file yields the defaults.
func LoadRiskConfig(path string) (risk.Config, error) {
	cfg := risk.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return risk.Config{}, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return risk.Config{}, fmt.Errorf("unmarshal risk settings %s: %w", path, err)
	}
	if err := validate(cfg); err != nil {
		return risk.Config{}, fmt.Errorf("invalid risk settings %s: %w", path, err)
	}
	return cfg, nil
}

// SaveRiskConfig serializes the full current settings set.
func SaveRiskConfig(path string, cfg risk.Config) error {
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func validate(cfg risk.Config) error {
	if cfg.OrderFlowLimit < 0 || cfg.OrderFlowClear < 0 {
		return fmt.Errorf("order flow limits must be >= 0")
	}
	if cfg.OrderSizeLimit < 0 || cfg.TradeLimit < 0 {
		return fmt.Errorf("order size and trade limits must be >= 0")
	}
	if cfg.ActiveOrderLimit < 0 || cfg.OrderCancelLimit < 0 {
		return fmt.Errorf("active order and cancel limits must be >= 0")
	}
	if cfg.PnlCheckPeriod < 0 || cfg.CancelCountReset < 0 {
		return fmt.Errorf("timer periods must be >= 0")
	}
	if cfg.TotalLossLimit > 0 || cfg.RealizedLossLimit > 0 {
		return fmt.Errorf("loss limits must be <= 0")
	}
	if cfg.TotalProfitLimit < 0 || cfg.RealizedProfitLimit < 0 {
		return fmt.Errorf("profit limits must be >= 0")
	}
	return nil
}
