// Package sample holds the demo portfolio, ledger and greeting used to
// seed new users and as fixtures in tests.
package sample

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
)

// GreetingID is the fixed ID of the default assistant greeting
const GreetingID = "1"

// Greeting is the first assistant message shown to a user with no history
const Greeting = "Hello! I'm your AI portfolio assistant. I can help you analyze your holdings, " +
	"identify trends, and suggest optimizations. What would you like to know about your portfolio?"

// GreetingMessage returns the default history for a user with no stored messages
func GreetingMessage(now time.Time) models.ConversationMessage {
	return models.ConversationMessage{
		ID:        GreetingID,
		Role:      types.RoleAssistant,
		Content:   Greeting,
		Timestamp: now.UTC(),
	}
}

// Holdings returns the six demo holdings
func Holdings() []models.Holding {
	return []models.Holding{
		{
			Symbol: "ETH", Name: "Ethereum", Balance: decimal.RequireFromString("2.143"),
			ValueUSD: 6300.5, PnLUSD: 350.25, PnLPct: 5.9,
			Icon:      "https://cryptologos.cc/logos/ethereum-eth-logo.png",
			Network:   "Ethereum",
			Sparkline: []float64{100, 120, 110, 130, 125, 140, 135},
		},
		{
			Symbol: "BTC", Name: "Bitcoin", Balance: decimal.RequireFromString("0.125"),
			ValueUSD: 7400, PnLUSD: -120, PnLPct: -1.59,
			Icon:      "https://cryptologos.cc/logos/bitcoin-btc-logo.png",
			Network:   "Bitcoin",
			Sparkline: []float64{100, 95, 98, 92, 88, 85, 90},
		},
		{
			Symbol: "UNI", Name: "Uniswap", Balance: decimal.NewFromInt(250),
			ValueUSD: 2100, PnLUSD: 250, PnLPct: 13.5,
			Icon:      "https://cryptologos.cc/logos/uniswap-uni-logo.png",
			Network:   "Ethereum",
			Sparkline: []float64{100, 105, 115, 120, 118, 125, 130},
		},
		{
			Symbol: "USDC", Name: "USD Coin", Balance: decimal.NewFromInt(5000),
			ValueUSD: 5000, PnLUSD: 0, PnLPct: 0,
			Icon:      "https://cryptologos.cc/logos/usd-coin-usdc-logo.png",
			Network:   "Ethereum",
			Sparkline: []float64{100, 100, 100, 100, 100, 100, 100},
		},
		{
			Symbol: "MATIC", Name: "Polygon", Balance: decimal.NewFromInt(1500),
			ValueUSD: 1350, PnLUSD: 75, PnLPct: 5.88,
			Icon:      "https://cryptologos.cc/logos/polygon-matic-logo.png",
			Network:   "Polygon",
			Sparkline: []float64{100, 102, 98, 105, 108, 106, 110},
		},
		{
			Symbol: "LINK", Name: "Chainlink", Balance: decimal.NewFromInt(80),
			ValueUSD: 1200, PnLUSD: -45, PnLPct: -3.61,
			Icon:      "https://cryptologos.cc/logos/chainlink-link-logo.png",
			Network:   "Ethereum",
			Sparkline: []float64{100, 98, 95, 92, 94, 91, 89},
		},
	}
}

// WeeklyData returns the demo seven-day value history
func WeeklyData() []models.ValuePoint {
	values := []float64{22800, 23100, 22950, 23200, 23450, 23300, 23350.5}
	out := make([]models.ValuePoint, len(values))
	for i, v := range values {
		out[i] = models.ValuePoint{Date: models.NewDate(2025, time.August, 15+i), Value: v}
	}
	return out
}

// Portfolio returns the demo portfolio record
func Portfolio() *models.PortfolioData {
	return &models.PortfolioData{
		TotalValue:  23350.5,
		TotalPnL:    510.25,
		TotalPnLPct: 2.23,
		Tokens:      Holdings(),
		WeeklyData:  WeeklyData(),
	}
}

// EmptyPortfolio is what a user without a stored portfolio sees
func EmptyPortfolio() *models.PortfolioData {
	return &models.PortfolioData{
		Tokens:     []models.Holding{},
		WeeklyData: []models.ValuePoint{},
	}
}

// Transactions returns the demo ledger, newest first
func Transactions() []models.Transaction {
	return []models.Transaction{
		{
			ID: "1", Date: models.NewDate(2025, time.August, 21),
			Hash: "0x5a3b2c1d4e5f6789abcdef123456789012345678901234567890123456789def",
			Type: types.TypeSwap, Tokens: "ETH → USDC", Amount: "0.5 ETH", USD: 1550,
			Status: types.StatusSuccess, Network: "Ethereum",
		},
		{
			ID: "2", Date: models.NewDate(2025, time.August, 20),
			Hash: "0x1c2d3e4f5a6b7c8d9e0f1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d",
			Type: types.TypeSend, Tokens: "USDC", Amount: "1000 USDC", USD: 1000,
			Status: types.StatusPending, Network: "Ethereum",
		},
		{
			ID: "3", Date: models.NewDate(2025, time.August, 19),
			Hash: "0x9f8e7d6c5b4a39281f0e9d8c7b6a5948372615049382746105938274615039",
			Type: types.TypeBuy, Tokens: "UNI", Amount: "50 UNI", USD: 420,
			Status: types.StatusSuccess, Network: "Ethereum",
		},
		{
			ID: "4", Date: models.NewDate(2025, time.August, 18),
			Hash: "0x7f6e5d4c3b2a1908f7e6d5c4b3a2190e8f7d6c5b4a3918e7f6d5c4b3a2109f8e",
			Type: types.TypeReceive, Tokens: "ETH", Amount: "1.2 ETH", USD: 3720,
			Status: types.StatusSuccess, Network: "Ethereum",
		},
		{
			ID: "5", Date: models.NewDate(2025, time.August, 17),
			Hash: "0x8e7d6c5b4a39281f0e9d8c7b6a5948372615049382746105938274615039f8e7",
			Type: types.TypeSwap, Tokens: "BTC → ETH", Amount: "0.05 BTC", USD: 2960,
			Status: types.StatusFailed, Network: "Bitcoin",
		},
	}
}
