package api

import (
	"net/http"
	"net/url"
	"strconv"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/ledger"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
)

// pageWindowSize is the number of page links offered around the current page
const pageWindowSize = 5

// ReplaceTransactionsRequest is the body of POST /api/transactions
type ReplaceTransactionsRequest struct {
	Transactions []models.Transaction `json:"transactions"`
}

// LedgerPageResponse is one ledger page plus pagination hints
type LedgerPageResponse struct {
	*ledger.Page
	Pages   []int `json:"pages"`
	HasNext bool  `json:"hasNext"`
	HasPrev bool  `json:"hasPrev"`
}

// handleGetTransactions handles GET /api/transactions
func (s *Server) handleGetTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.Transactions(r.Context(), requestUser(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, txs)
}

// handleReplaceTransactions handles POST /api/transactions
func (s *Server) handleReplaceTransactions(w http.ResponseWriter, r *http.Request) {
	var req ReplaceTransactionsRequest
	if err := parseJSONBody(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if req.Transactions == nil {
		respondServiceError(w, r, apperrors.NewInvalidParameterError("transactions", "is required"))
		return
	}

	if err := s.ledger.ReplaceTransactions(r.Context(), requestUser(r), req.Transactions); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// handleQueryTransactions handles GET /api/transactions/query
//
// Parameters: search, type, status, sort (date|value), direction (asc|desc),
// page and pageSize. Omitted parameters take the default ledger view.
func (s *Server) handleQueryTransactions(w http.ResponseWriter, r *http.Request) {
	q, err := parseLedgerQuery(r.URL.Query())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	page, err := s.ledger.Query(r.Context(), requestUser(r), q)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, LedgerPageResponse{
		Page:    page,
		Pages:   ledger.PageWindow(page.PageNumber, page.PageCount, pageWindowSize),
		HasNext: page.HasNext(),
		HasPrev: page.HasPrev(),
	})
}

func parseLedgerQuery(values url.Values) (ledger.Query, error) {
	q := ledger.Query{
		SearchText:    values.Get("search"),
		TypeFilter:    values.Get("type"),
		StatusFilter:  values.Get("status"),
		SortKey:       types.SortKey(values.Get("sort")),
		SortDirection: types.SortDirection(values.Get("direction")),
	}

	var err error
	if q.PageNumber, err = intParam(values, "page"); err != nil {
		return q, err
	}
	if q.PageSize, err = intParam(values, "pageSize"); err != nil {
		return q, err
	}
	return q, nil
}

// intParam parses an optional integer parameter; absent means zero
func intParam(values url.Values, name string) (int, error) {
	raw := values.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewInvalidParameterError(name, "must be an integer")
	}
	return n, nil
}
