package models

import "github.com/portfolio-dashboard/internal/types"

// Transaction is an immutable ledger record
type Transaction struct {
	ID      string                  `json:"id"`
	Date    Date                    `json:"date"`
	Hash    string                  `json:"hash"`
	Type    types.TransactionType   `json:"type"`
	Tokens  string                  `json:"tokens"`
	Amount  string                  `json:"amount"`
	USD     float64                 `json:"usd"`
	Status  types.TransactionStatus `json:"status"`
	Network string                  `json:"network"`
}
