// Package types provides common type definitions for the portfolio dashboard.
package types

import "fmt"

// TransactionType is the ledger category of a transaction
type TransactionType string

const (
	// TypeSwap represents a token-for-token exchange
	TypeSwap TransactionType = "Swap"
	// TypeSend represents an outgoing transfer
	TypeSend TransactionType = "Send"
	// TypeReceive represents an incoming transfer
	TypeReceive TransactionType = "Receive"
	// TypeBuy represents a fiat purchase
	TypeBuy TransactionType = "Buy"
	// TypeSell represents a fiat sale
	TypeSell TransactionType = "Sell"
)

// TransactionTypes lists every transaction type in display order
var TransactionTypes = []TransactionType{TypeSwap, TypeSend, TypeReceive, TypeBuy, TypeSell}

// ParseTransactionType converts a label into a TransactionType
func ParseTransactionType(s string) (TransactionType, error) {
	for _, t := range TransactionTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown transaction type: %q", s)
}

// TransactionStatus represents transaction execution status
type TransactionStatus string

const (
	// StatusSuccess represents a confirmed transaction
	StatusSuccess TransactionStatus = "Success"
	// StatusPending represents a transaction not yet confirmed
	StatusPending TransactionStatus = "Pending"
	// StatusFailed represents a reverted or rejected transaction
	StatusFailed TransactionStatus = "Failed"
)

// TransactionStatuses lists every status in display order
var TransactionStatuses = []TransactionStatus{StatusSuccess, StatusPending, StatusFailed}

// ParseTransactionStatus converts a label into a TransactionStatus
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	for _, st := range TransactionStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown transaction status: %q", s)
}

// FilterAll is the categorical filter value that matches every type or status
const FilterAll = "all"

// SortKey selects the ledger column used for ordering
type SortKey string

const (
	// SortByDate orders by calendar date
	SortByDate SortKey = "date"
	// SortByValue orders by USD value
	SortByValue SortKey = "value"
)

// SortDirection represents ascending or descending order
type SortDirection string

const (
	// SortAsc orders smallest first
	SortAsc SortDirection = "asc"
	// SortDesc orders largest first
	SortDesc SortDirection = "desc"
)

// Reverse returns the opposite direction
func (d SortDirection) Reverse() SortDirection {
	if d == SortDesc {
		return SortAsc
	}
	return SortDesc
}

// Role identifies the author of a conversation message
type Role string

const (
	// RoleUser is a message typed by the user
	RoleUser Role = "user"
	// RoleAssistant is a reply produced by the assistant
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
