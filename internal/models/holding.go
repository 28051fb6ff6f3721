package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Holding represents a single asset position within a portfolio snapshot
type Holding struct {
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	ValueUSD  float64         `json:"usd"`
	PnLUSD    float64         `json:"pnlUsd"`
	PnLPct    float64         `json:"pnlPct"`
	Icon      string          `json:"icon,omitempty"`
	Network   string          `json:"network"`
	Sparkline []float64       `json:"sparklineData"`
}

// Validate checks the caller-supplied invariants of a holding
func (h Holding) Validate() error {
	if h.Symbol == "" {
		return fmt.Errorf("holding symbol is required")
	}
	if h.Balance.IsNegative() {
		return fmt.Errorf("holding %s: balance must be non-negative, got %s", h.Symbol, h.Balance)
	}
	if len(h.Sparkline) == 0 {
		return fmt.Errorf("holding %s: sparkline needs at least one point", h.Symbol)
	}
	if sign(h.PnLPct) != sign(h.PnLUSD) {
		return fmt.Errorf("holding %s: pnlPct %v and pnlUsd %v disagree in sign", h.Symbol, h.PnLPct, h.PnLUSD)
	}
	return nil
}

// Clone returns a deep copy of h
func (h Holding) Clone() Holding {
	c := h
	if h.Sparkline != nil {
		c.Sparkline = append([]float64(nil), h.Sparkline...)
	}
	return c
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
