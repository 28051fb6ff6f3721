package models

import "time"

// ValuePoint is one point of the portfolio value history
type ValuePoint struct {
	Date  Date    `json:"date"`
	Value float64 `json:"value"`
}

// PortfolioData is the stored portfolio record of a user
type PortfolioData struct {
	TotalValue  float64      `json:"totalValue"`
	TotalPnL    float64      `json:"totalPnl"`
	TotalPnLPct float64      `json:"totalPnlPct"`
	Tokens      []Holding    `json:"tokens"`
	WeeklyData  []ValuePoint `json:"weeklyData"`
	UpdatedAt   *time.Time   `json:"updated_at,omitempty"`
}
