package ledger

// Hash display widths used by the ledger table
const (
	HashHead = 8
	HashTail = 6
)

// TruncateHash shortens hash to its first head and last tail characters
// joined by "...". Hashes that would not get shorter are returned as is.
func TruncateHash(hash string, head, tail int) string {
	if head < 0 || tail < 0 || len(hash) <= head+tail+3 {
		return hash
	}
	return hash[:head] + "..." + hash[len(hash)-tail:]
}

// PageWindow returns up to size consecutive page numbers for the pagination
// bar, keeping current as close to the middle as the bounds allow.
func PageWindow(current, total, size int) []int {
	n := min(total, size)
	if n <= 0 {
		return []int{}
	}
	first := current - n/2
	first = max(first, 1)
	first = min(first, total-n+1)

	pages := make([]int, n)
	for i := range pages {
		pages[i] = first + i
	}
	return pages
}
