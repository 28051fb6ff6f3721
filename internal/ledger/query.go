// Package ledger searches, filters, sorts and pages a transaction collection.
package ledger

import (
	"fmt"
	"strings"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/types"
)

const (
	// DefaultPageSize is the number of rows on a ledger page
	DefaultPageSize = 10
	// MaxPageSize bounds PageSize so page offsets stay small
	MaxPageSize = 100
)

// Query describes one view of the ledger
type Query struct {
	SearchText    string              `json:"searchText"`
	TypeFilter    string              `json:"typeFilter"`
	StatusFilter  string              `json:"statusFilter"`
	SortKey       types.SortKey       `json:"sortKey"`
	SortDirection types.SortDirection `json:"sortDirection"`
	PageNumber    int                 `json:"pageNumber"`
	PageSize      int                 `json:"pageSize"`
}

// DefaultQuery is the initial ledger view: everything, newest first, first page
func DefaultQuery() Query {
	return Query{
		TypeFilter:    types.FilterAll,
		StatusFilter:  types.FilterAll,
		SortKey:       types.SortByDate,
		SortDirection: types.SortDesc,
		PageNumber:    1,
		PageSize:      DefaultPageSize,
	}
}

// Normalize trims the search text and fills unset fields from DefaultQuery.
// Negative page values are left alone so Validate can reject them.
func (q Query) Normalize() Query {
	def := DefaultQuery()
	q.SearchText = strings.TrimSpace(q.SearchText)
	if q.TypeFilter == "" {
		q.TypeFilter = def.TypeFilter
	}
	if q.StatusFilter == "" {
		q.StatusFilter = def.StatusFilter
	}
	if q.SortKey == "" {
		q.SortKey = def.SortKey
	}
	if q.SortDirection == "" {
		q.SortDirection = def.SortDirection
	}
	if q.PageNumber == 0 {
		q.PageNumber = def.PageNumber
	}
	if q.PageSize == 0 {
		q.PageSize = def.PageSize
	}
	return q
}

// Validate rejects unknown filters and sort settings, page values below 1
// and page sizes above MaxPageSize
func (q Query) Validate() error {
	if q.TypeFilter != types.FilterAll {
		if _, err := types.ParseTransactionType(q.TypeFilter); err != nil {
			return apperrors.NewInvalidParameterError("typeFilter", err.Error())
		}
	}
	if q.StatusFilter != types.FilterAll {
		if _, err := types.ParseTransactionStatus(q.StatusFilter); err != nil {
			return apperrors.NewInvalidParameterError("statusFilter", err.Error())
		}
	}
	switch q.SortKey {
	case types.SortByDate, types.SortByValue:
	default:
		return apperrors.NewInvalidParameterError("sortKey", "must be 'date' or 'value'")
	}
	switch q.SortDirection {
	case types.SortAsc, types.SortDesc:
	default:
		return apperrors.NewInvalidParameterError("sortDirection", "must be 'asc' or 'desc'")
	}
	if q.PageNumber < 1 {
		return apperrors.NewInvalidParameterError("pageNumber", "must be at least 1")
	}
	if q.PageSize < 1 {
		return apperrors.NewInvalidParameterError("pageSize", "must be at least 1")
	}
	if q.PageSize > MaxPageSize {
		return apperrors.NewInvalidParameterError("pageSize", fmt.Sprintf("must be at most %d", MaxPageSize))
	}
	return nil
}

// ToggleSort mirrors a click on a sortable column header: the active column
// flips direction, a new column starts descending. The page resets to 1.
func (q Query) ToggleSort(key types.SortKey) Query {
	if q.SortKey == key {
		q.SortDirection = q.SortDirection.Reverse()
	} else {
		q.SortKey = key
		q.SortDirection = types.SortDesc
	}
	q.PageNumber = 1
	return q
}

// CacheKey is a stable string form of the query
func (q Query) CacheKey() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%d|%d",
		strings.ToLower(q.SearchText), q.TypeFilter, q.StatusFilter,
		q.SortKey, q.SortDirection, q.PageNumber, q.PageSize)
}
