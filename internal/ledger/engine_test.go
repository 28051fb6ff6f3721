package ledger

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/sample"
	"github.com/portfolio-dashboard/internal/types"
)

func ids(txs []models.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}

func TestRun_SearchUni(t *testing.T) {
	q := Query{
		SearchText:    "uni",
		TypeFilter:    "all",
		StatusFilter:  "all",
		SortKey:       types.SortByDate,
		SortDirection: types.SortDesc,
		PageNumber:    1,
		PageSize:      10,
	}

	page, err := Run(sample.Transactions(), q)
	require.NoError(t, err)

	require.Len(t, page.Items, 1)
	assert.Equal(t, "3", page.Items[0].ID)
	assert.Equal(t, types.TypeBuy, page.Items[0].Type)
	assert.Equal(t, 1, page.MatchCount)
	assert.Equal(t, 1, page.PageCount)
}

func TestRun_Filters(t *testing.T) {
	tests := []struct {
		name  string
		query func(q Query) Query
		want  []string
	}{
		{
			name:  "default query is newest first",
			query: func(q Query) Query { return q },
			want:  []string{"1", "2", "3", "4", "5"},
		},
		{
			name:  "type filter",
			query: func(q Query) Query { q.TypeFilter = "Swap"; return q },
			want:  []string{"1", "5"},
		},
		{
			name:  "status filter",
			query: func(q Query) Query { q.StatusFilter = "Success"; return q },
			want:  []string{"1", "3", "4"},
		},
		{
			name: "type and status must both hold",
			query: func(q Query) Query {
				q.TypeFilter = "Swap"
				q.StatusFilter = "Failed"
				return q
			},
			want: []string{"5"},
		},
		{
			name:  "search matches the type label case-insensitively",
			query: func(q Query) Query { q.SearchText = "RECEIVE"; return q },
			want:  []string{"4"},
		},
		{
			name:  "search matches the hash",
			query: func(q Query) Query { q.SearchText = "0x5A3B"; return q },
			want:  []string{"1"},
		},
		{
			name:  "search matches the token pair",
			query: func(q Query) Query { q.SearchText = "eth"; return q },
			want:  []string{"1", "4", "5"},
		},
		{
			name:  "no matches",
			query: func(q Query) Query { q.SearchText = "doge"; return q },
			want:  []string{},
		},
		{
			name: "value ascending",
			query: func(q Query) Query {
				q.SortKey = types.SortByValue
				q.SortDirection = types.SortAsc
				return q
			},
			want: []string{"3", "2", "1", "5", "4"},
		},
		{
			name: "date ascending",
			query: func(q Query) Query {
				q.SortDirection = types.SortAsc
				return q
			},
			want: []string{"5", "4", "3", "2", "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := Run(sample.Transactions(), tt.query(DefaultQuery()))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page.Items))
			assert.Equal(t, len(tt.want), page.MatchCount)
		})
	}
}

func TestRun_DateSortIsChronological(t *testing.T) {
	// lexical order of these strings would put 2025-10-1 before 2025-9-30
	txs := []models.Transaction{
		{ID: "a", Date: models.MustParseDate("2025-10-1"), Type: types.TypeBuy, Status: types.StatusSuccess},
		{ID: "b", Date: models.MustParseDate("2025-9-30"), Type: types.TypeBuy, Status: types.StatusSuccess},
	}
	q := DefaultQuery()
	q.SortDirection = types.SortAsc

	page, err := Run(txs, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(page.Items))
}

func TestRun_Pagination(t *testing.T) {
	txs := make([]models.Transaction, 23)
	for i := range txs {
		txs[i] = models.Transaction{
			ID:     string(rune('a' + i)),
			Date:   models.NewDate(2025, time.January, i+1),
			Type:   types.TypeSend,
			Status: types.StatusSuccess,
		}
	}

	q := DefaultQuery()
	q.SortDirection = types.SortAsc

	page, err := Run(txs, q)
	require.NoError(t, err)
	assert.Equal(t, 23, page.MatchCount)
	assert.Equal(t, 3, page.PageCount)
	assert.Len(t, page.Items, 10)
	assert.True(t, page.HasNext())
	assert.False(t, page.HasPrev())

	q.PageNumber = 3
	page, err = Run(txs, q)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, "u", page.Items[0].ID)
	assert.False(t, page.HasNext())

	q.PageNumber = 4
	page, err = Run(txs, q)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 3, page.PageCount)
}

func TestRun_HugePageNumber(t *testing.T) {
	q := DefaultQuery()
	q.PageSize = MaxPageSize

	for _, pageNumber := range []int{2, math.MaxInt / MaxPageSize, math.MaxInt} {
		q.PageNumber = pageNumber
		page, err := Run(sample.Transactions(), q)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Equal(t, 1, page.PageCount)
		assert.Equal(t, 5, page.MatchCount)
	}
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		n, size, want int
	}{
		{0, 10, 0},
		{5, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{23, 10, 3},
		{5, math.MaxInt, 1},
		{math.MaxInt, 1, math.MaxInt},
		{math.MaxInt, 2, math.MaxInt/2 + 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pageCount(tt.n, tt.size), "pageCount(%d, %d)", tt.n, tt.size)
	}
}

func TestRun_RejectsInvalidQuery(t *testing.T) {
	tests := []struct {
		name  string
		query func(q Query) Query
		param string
	}{
		{"page zero", func(q Query) Query { q.PageNumber = 0; return q }, "pageNumber"},
		{"negative page", func(q Query) Query { q.PageNumber = -2; return q }, "pageNumber"},
		{"page size zero", func(q Query) Query { q.PageSize = 0; return q }, "pageSize"},
		{"page size above max", func(q Query) Query { q.PageSize = MaxPageSize + 1; return q }, "pageSize"},
		{"page size max int", func(q Query) Query { q.PageSize = math.MaxInt; return q }, "pageSize"},
		{"unknown type", func(q Query) Query { q.TypeFilter = "Stake"; return q }, "typeFilter"},
		{"unknown status", func(q Query) Query { q.StatusFilter = "Done"; return q }, "statusFilter"},
		{"unknown sort key", func(q Query) Query { q.SortKey = "hash"; return q }, "sortKey"},
		{"unknown direction", func(q Query) Query { q.SortDirection = "up"; return q }, "sortDirection"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := Run(sample.Transactions(), tt.query(DefaultQuery()))
			require.Error(t, err)
			assert.Nil(t, page)

			catErr := apperrors.Categorize(err)
			assert.Equal(t, apperrors.CodeInvalidParameter, catErr.Code)
			assert.Equal(t, tt.param, catErr.Details["parameter"])
		})
	}
}

func TestRun_DoesNotMutateInput(t *testing.T) {
	txs := sample.Transactions()
	q := DefaultQuery()
	q.SortKey = types.SortByValue

	_, err := Run(txs, q)
	require.NoError(t, err)
	assert.Equal(t, sample.Transactions(), txs)
}

func TestQuery_Normalize(t *testing.T) {
	q := Query{SearchText: "  uni ", PageNumber: -1}.Normalize()

	assert.Equal(t, "uni", q.SearchText)
	assert.Equal(t, types.FilterAll, q.TypeFilter)
	assert.Equal(t, types.FilterAll, q.StatusFilter)
	assert.Equal(t, types.SortByDate, q.SortKey)
	assert.Equal(t, types.SortDesc, q.SortDirection)
	assert.Equal(t, -1, q.PageNumber)
	assert.Equal(t, DefaultPageSize, q.PageSize)
	assert.Error(t, q.Validate())

	assert.Equal(t, DefaultQuery(), Query{}.Normalize())
}

func TestQuery_ToggleSort(t *testing.T) {
	q := DefaultQuery()
	q.PageNumber = 3

	q = q.ToggleSort(types.SortByDate)
	assert.Equal(t, types.SortAsc, q.SortDirection)
	assert.Equal(t, 1, q.PageNumber)

	q = q.ToggleSort(types.SortByValue)
	assert.Equal(t, types.SortByValue, q.SortKey)
	assert.Equal(t, types.SortDesc, q.SortDirection)
}

func TestQuery_CacheKey(t *testing.T) {
	a := DefaultQuery()
	b := DefaultQuery()
	assert.Equal(t, a.CacheKey(), b.CacheKey())

	b.PageNumber = 2
	assert.NotEqual(t, a.CacheKey(), b.CacheKey())
}

func TestTruncateHash(t *testing.T) {
	hash := "0x5a3b2c1d4e5f6789abcdef123456789012345678901234567890123456789def"
	assert.Equal(t, "0x5a3b2c...789def", TruncateHash(hash, HashHead, HashTail))
	assert.Equal(t, "0xabc", TruncateHash("0xabc", HashHead, HashTail))
}

func TestPageWindow(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3, 4, 5}, PageWindow(1, 12, 5))
	assert.Equal(t, []int{4, 5, 6, 7, 8}, PageWindow(6, 12, 5))
	assert.Equal(t, []int{8, 9, 10, 11, 12}, PageWindow(12, 12, 5))
	assert.Equal(t, []int{1, 2}, PageWindow(2, 2, 5))
	assert.Equal(t, []int{}, PageWindow(1, 0, 5))
}
