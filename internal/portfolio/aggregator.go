// Package portfolio derives dashboard metrics from a holdings set and its value history.
package portfolio

import (
	"sort"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/models"
)

// DefaultLimit is the length of the gainer and loser lists
const DefaultLimit = 3

// Totals are the server-computed portfolio totals. They are reported as
// given and never re-derived from the holdings.
type Totals struct {
	TotalValue  float64 `json:"totalValue"`
	TotalPnL    float64 `json:"totalPnl"`
	TotalPnLPct float64 `json:"totalPnlPct"`
}

// Input is everything the aggregator reads
type Input struct {
	Holdings []models.Holding
	Totals   Totals
	History  []models.ValuePoint
}

// InputFromPortfolio builds an Input from a stored portfolio record
func InputFromPortfolio(p *models.PortfolioData) Input {
	if p == nil {
		return Input{}
	}
	return Input{
		Holdings: p.Tokens,
		Totals: Totals{
			TotalValue:  p.TotalValue,
			TotalPnL:    p.TotalPnL,
			TotalPnLPct: p.TotalPnLPct,
		},
		History: p.WeeklyData,
	}
}

// Snapshot is the totals plus the chronological trend series
type Snapshot struct {
	Totals
	Trend []models.ValuePoint `json:"trend"`
}

// Share is one holding's slice of the summed holding value
type Share struct {
	Symbol   string  `json:"symbol"`
	ValueUSD float64 `json:"usd"`
	Percent  float64 `json:"percent"`
}

// Result is the derived view of a portfolio
type Result struct {
	Snapshot   Snapshot         `json:"snapshot"`
	Gainers    []models.Holding `json:"gainers"`
	Losers     []models.Holding `json:"losers"`
	Allocation []Share          `json:"allocation"`
}

type options struct {
	limit    int
	validate bool
}

// Option configures Aggregate
type Option func(*options)

// WithLimit caps the gainer and loser lists. Values below zero are treated as zero.
func WithLimit(n int) Option {
	return func(o *options) {
		o.limit = max(n, 0)
	}
}

// WithValidation makes Aggregate reject holdings that break their invariants
// instead of trusting the caller.
func WithValidation() Option {
	return func(o *options) {
		o.validate = true
	}
}

// Aggregate computes the snapshot, ranked gainers and losers and the
// allocation of in. The holdings in in are never modified.
func Aggregate(in Input, opts ...Option) (*Result, error) {
	o := options{limit: DefaultLimit}
	for _, opt := range opts {
		opt(&o)
	}

	if o.validate {
		for _, h := range in.Holdings {
			if err := h.Validate(); err != nil {
				return nil, apperrors.NewInvalidHoldingError(h.Symbol, err)
			}
		}
	}

	gainers, losers := Rank(in.Holdings, o.limit)
	return &Result{
		Snapshot: Snapshot{
			Totals: in.Totals,
			Trend:  Trend(in.History),
		},
		Gainers:    gainers,
		Losers:     losers,
		Allocation: Allocate(in.Holdings),
	}, nil
}

// Rank splits holdings into gainers (pnlPct > 0, highest first) and losers
// (pnlPct < 0, lowest first), each capped at limit. Ties keep input order.
func Rank(holdings []models.Holding, limit int) (gainers, losers []models.Holding) {
	gainers = []models.Holding{}
	losers = []models.Holding{}
	for _, h := range holdings {
		switch {
		case h.PnLPct > 0:
			gainers = append(gainers, h.Clone())
		case h.PnLPct < 0:
			losers = append(losers, h.Clone())
		}
	}

	sort.SliceStable(gainers, func(i, j int) bool { return gainers[i].PnLPct > gainers[j].PnLPct })
	sort.SliceStable(losers, func(i, j int) bool { return losers[i].PnLPct < losers[j].PnLPct })

	if len(gainers) > limit {
		gainers = gainers[:limit]
	}
	if len(losers) > limit {
		losers = losers[:limit]
	}
	return gainers, losers
}

// Trend orders history chronologically. Points sharing a date collapse
// into one, keeping the value supplied last.
func Trend(history []models.ValuePoint) []models.ValuePoint {
	sorted := append([]models.ValuePoint(nil), history...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := make([]models.ValuePoint, 0, len(sorted))
	for _, p := range sorted {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

// Allocate reports each holding's share of the summed holding value, in input order
func Allocate(holdings []models.Holding) []Share {
	var total float64
	for _, h := range holdings {
		total += h.ValueUSD
	}

	shares := make([]Share, len(holdings))
	for i, h := range holdings {
		shares[i] = Share{Symbol: h.Symbol, ValueUSD: h.ValueUSD}
		if total != 0 {
			shares[i].Percent = h.ValueUSD / total * 100
		}
	}
	return shares
}
