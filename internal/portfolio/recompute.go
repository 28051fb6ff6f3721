package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Recompute re-derives PnLUSD and PnLPct of h from a cost basis, keeping
// ValueUSD. Amounts are rounded to cents and percentages to two places.
func Recompute(h models.Holding, costBasis float64) (models.Holding, error) {
	basis := decimal.NewFromFloat(costBasis)
	if !basis.IsPositive() {
		return models.Holding{}, apperrors.NewInvalidHoldingError(h.Symbol,
			fmt.Errorf("cost basis must be positive, got %v", costBasis))
	}

	pnl := decimal.NewFromFloat(h.ValueUSD).Sub(basis).Round(2)
	pct := decimal.Zero
	if !pnl.IsZero() {
		pct = pnl.Div(basis).Mul(hundred).Round(2)
		if pct.IsZero() {
			// keep the sign visible for tiny moves on huge positions
			pct = pnl.Div(basis).Mul(hundred)
		}
	}

	out := h.Clone()
	out.PnLUSD = pnl.InexactFloat64()
	out.PnLPct = pct.InexactFloat64()
	if err := out.Validate(); err != nil {
		return models.Holding{}, apperrors.NewInvalidHoldingError(h.Symbol, err)
	}
	return out, nil
}
