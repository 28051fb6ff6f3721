package ledger

import (
	"slices"
	"sort"
	"strings"

	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
)

// Page is one slice of the filtered, sorted ledger
type Page struct {
	Items      []models.Transaction `json:"items"`
	MatchCount int                  `json:"matchCount"`
	PageCount  int                  `json:"pageCount"`
	PageNumber int                  `json:"pageNumber"`
	PageSize   int                  `json:"pageSize"`
}

// HasNext reports whether a later page exists
func (p *Page) HasNext() bool { return p.PageNumber < p.PageCount }

// HasPrev reports whether an earlier page exists
func (p *Page) HasPrev() bool { return p.PageNumber > 1 }

// Run applies q to txs and returns the requested page. txs is not modified.
// A page past the end is empty rather than an error.
func Run(txs []models.Transaction, q Query) (*Page, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	matches := Filter(txs, q)
	Sort(matches, q.SortKey, q.SortDirection)

	page := &Page{
		Items:      []models.Transaction{},
		MatchCount: len(matches),
		PageCount:  pageCount(len(matches), q.PageSize),
		PageNumber: q.PageNumber,
		PageSize:   q.PageSize,
	}

	// PageNumber-1 < PageCount keeps the offset below len(matches)
	if q.PageNumber-1 < page.PageCount {
		start := (q.PageNumber - 1) * q.PageSize
		end := start + min(q.PageSize, len(matches)-start)
		page.Items = matches[start:end]
	}
	return page, nil
}

// pageCount is ceil(n/size) without the overflow of n+size-1
func pageCount(n, size int) int {
	count := n / size
	if n%size != 0 {
		count++
	}
	return count
}

// Matches reports whether tx satisfies the search text and both categorical filters of q
func Matches(tx models.Transaction, q Query) bool {
	if q.TypeFilter != types.FilterAll && string(tx.Type) != q.TypeFilter {
		return false
	}
	if q.StatusFilter != types.FilterAll && string(tx.Status) != q.StatusFilter {
		return false
	}

	needle := strings.ToLower(q.SearchText)
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(tx.Hash), needle) ||
		strings.Contains(strings.ToLower(tx.Tokens), needle) ||
		strings.Contains(strings.ToLower(string(tx.Type)), needle)
}

// Filter returns a new slice holding the transactions that match q, in input order
func Filter(txs []models.Transaction, q Query) []models.Transaction {
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if Matches(tx, q) {
			out = append(out, tx)
		}
	}
	return out
}

// Sort orders txs in place. Ascending is a stable sort on the key and
// descending is its exact reverse, so equal keys always land in the same
// relative positions for identical input.
func Sort(txs []models.Transaction, key types.SortKey, dir types.SortDirection) {
	less := func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) }
	if key == types.SortByValue {
		less = func(i, j int) bool { return txs[i].USD < txs[j].USD }
	}
	sort.SliceStable(txs, less)
	if dir == types.SortDesc {
		slices.Reverse(txs)
	}
}
