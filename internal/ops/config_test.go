package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/risk"
)

func TestLoadRiskConfigMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadRiskConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, risk.DefaultConfig(), cfg)

	cfg, err = LoadRiskConfig("")
	require.NoError(t, err)
	assert.Equal(t, risk.DefaultConfig(), cfg)
}

func TestLoadRiskConfigMergesOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk_settings.json")
	doc := `{"order_size_limit": 5, "freeze": true, "total_loss_limit": -200}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadRiskConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5.0, cfg.OrderSizeLimit)
	assert.True(t, cfg.Freeze)
	assert.Equal(t, -200.0, cfg.TotalLossLimit)

	// Untouched keys keep their defaults.
	defaults := risk.DefaultConfig()
	assert.Equal(t, defaults.OrderFlowLimit, cfg.OrderFlowLimit)
	assert.Equal(t, defaults.TradeLimit, cfg.TradeLimit)
	assert.Equal(t, defaults.Active, cfg.Active)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk_settings.json")
	want := risk.DefaultConfig()
	want.OrderCancelLimit = 7
	want.RealizedLossLimit = -123.5
	want.CancelCountReset = 60

	require.NoError(t, SaveRiskConfig(path, want))
	got, err := LoadRiskConfig(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadRiskConfigRejectsBadDocuments(t *testing.T) {
	dir := t.TempDir()
	for name, doc := range map[string]string{
		"not json":            "{nope",
		"positive loss limit": `{"total_loss_limit": 100}`,
		"negative profit":     `{"total_profit_limit": -1}`,
		"negative flow limit": `{"order_flow_limit": -1}`,
		"negative period":     `{"pnl_check_period": -1}`,
	} {
		path := filepath.Join(dir, "settings.json")
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
		_, err := LoadRiskConfig(path)
		assert.Error(t, err, name)
	}
}
