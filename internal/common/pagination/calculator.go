package pagination

import (
	"math"

	"community-hub/internal/backend"
)

// MaxPage returns the largest page whose row range fits in an int for limit.
func MaxPage(limit int) int {
	if limit < 1 {
		return math.MaxInt
	}
	return math.MaxInt / limit
}

// CalculateOffset returns the row offset of a 1-based page.
//
// Examples:
//   - Page 1, Limit 20 -> Offset 0
//   - Page 2, Limit 20 -> Offset 20
//
// Pages beyond MaxPage(limit) are clamped so the offset never overflows.
func CalculateOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	page = min(page, MaxPage(limit))
	return (page - 1) * limit
}

// CalculateRange returns the inclusive row window of a 1-based page,
// [(page-1)*limit, page*limit-1].
//
// Examples:
//   - Page 1, Limit 20 -> [0, 19]
//   - Page 2, Limit 20 -> [20, 39]
func CalculateRange(page, limit int) backend.Range {
	from := CalculateOffset(page, limit)
	return backend.Range{From: from, To: from + limit - 1}
}

// CalculateTotalPages returns ceil(total / limit), and at least 1.
func CalculateTotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 1
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
