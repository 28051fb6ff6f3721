package portfolio

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/portfolio-dashboard/internal/models"
)

// genHoldings produces holdings with unique symbols and pnlPct drawn from a
// small set so ties and zeros are common.
func genHoldings() gopter.Gen {
	return gen.SliceOf(gen.IntRange(-4, 4)).Map(func(pcts []int) []models.Holding {
		out := make([]models.Holding, len(pcts))
		for i, p := range pcts {
			out[i] = holding(fmt.Sprintf("T%d", i), float64(p)*1.5)
		}
		return out
	})
}

func TestAggregateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("gainers and losers partition the non-zero holdings up to the cap", prop.ForAll(
		func(hs []models.Holding, limit int) bool {
			result, err := Aggregate(Input{Holdings: hs}, WithLimit(limit))
			if err != nil {
				return false
			}
			if len(result.Gainers) > limit || len(result.Losers) > limit {
				return false
			}

			var pos, neg int
			for _, h := range hs {
				if h.PnLPct > 0 {
					pos++
				} else if h.PnLPct < 0 {
					neg++
				}
			}
			if len(result.Gainers) != min(pos, limit) || len(result.Losers) != min(neg, limit) {
				return false
			}

			seen := map[string]bool{}
			for _, h := range result.Gainers {
				if h.PnLPct <= 0 || seen[h.Symbol] {
					return false
				}
				seen[h.Symbol] = true
			}
			for _, h := range result.Losers {
				if h.PnLPct >= 0 || seen[h.Symbol] {
					return false
				}
				seen[h.Symbol] = true
			}
			return true
		},
		genHoldings(),
		gen.IntRange(0, 6),
	))

	properties.Property("lists are ordered and ties keep input order", prop.ForAll(
		func(hs []models.Holding) bool {
			result, _ := Aggregate(Input{Holdings: hs}, WithLimit(len(hs)))
			index := map[string]int{}
			for i, h := range hs {
				index[h.Symbol] = i
			}
			ordered := func(list []models.Holding, before func(a, b float64) bool) bool {
				for i := 1; i < len(list); i++ {
					a, b := list[i-1], list[i]
					if before(b.PnLPct, a.PnLPct) {
						return false
					}
					if a.PnLPct == b.PnLPct && index[a.Symbol] > index[b.Symbol] {
						return false
					}
				}
				return true
			}
			return ordered(result.Gainers, func(a, b float64) bool { return a > b }) &&
				ordered(result.Losers, func(a, b float64) bool { return a < b })
		},
		genHoldings(),
	))

	properties.Property("aggregate is idempotent", prop.ForAll(
		func(hs []models.Holding) bool {
			a, _ := Aggregate(Input{Holdings: hs})
			b, _ := Aggregate(Input{Holdings: hs})
			return reflect.DeepEqual(a, b)
		},
		genHoldings(),
	))

	properties.TestingRun(t)
}
