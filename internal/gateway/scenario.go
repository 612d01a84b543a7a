package gateway

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"

	"main/internal/schema"
)

// Scenario seeds the paper gateway: the tradable contracts and a tick tape
// to replay. Prices are decimal strings in the document.
type Scenario struct {
	Contracts []ContractSpec `json:"contracts"`
	Ticks     []TickSpec     `json:"ticks"`
}

// ContractSpec describes one tradable contract entry.
type ContractSpec struct {
	Symbol    string          `json:"symbol"`
	Exchange  string          `json:"exchange"`
	Name      string          `json:"name"`
	Size      float64         `json:"size"`
	PriceTick decimal.Decimal `json:"priceTick"`
}

// TickSpec describes one tape entry.
type TickSpec struct {
	Symbol   string          `json:"symbol"`
	Exchange string          `json:"exchange"`
	Price    decimal.Decimal `json:"price"`
	Volume   float64         `json:"volume"`
}

// LoadScenario reads a scenario document.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, errors.Wrap(err, "read scenario").With("path", path)
	}
	var scenario Scenario
	if err := json.Unmarshal(data, &scenario); err != nil {
		return Scenario{}, errors.Wrap(err, "unmarshal scenario").With("path", path)
	}
	return scenario, nil
}

// Contract resolves the entry into the platform contract payload.
func (c ContractSpec) Contract() schema.Contract {
	return schema.Contract{
		Symbol:    c.Symbol,
		Exchange:  c.Exchange,
		Name:      c.Name,
		Size:      c.Size,
		PriceTick: toFloat(c.PriceTick),
	}
}

// Tick resolves the entry into the platform tick payload.
func (t TickSpec) Tick() schema.Tick {
	return schema.Tick{
		Symbol:    t.Symbol,
		Exchange:  t.Exchange,
		LastPrice: toFloat(t.Price),
		Volume:    t.Volume,
	}
}

func toFloat(d decimal.Decimal) float64 {
	f, err := strconv.ParseFloat(d.String(), 64)
	if err != nil {
		return 0
	}
	return f
}
