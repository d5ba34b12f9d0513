package feed

import (
	"strings"

	"community-hub/internal/common/pagination"
)

// Sort is the ordering of the general post list.
type Sort string

// Supported post orderings.
const (
	SortLatest   Sort = "latest"
	SortTrending Sort = "trending"
)

// ParseSort maps s to a Sort, falling back to SortLatest for anything unknown.
func ParseSort(s string) Sort {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case SortTrending:
		return SortTrending
	default:
		return SortLatest
	}
}

// PostsParams selects a page of the general post list.
type PostsParams struct {
	Sort  Sort
	Page  int
	Limit int
}

// EventsParams selects a page of events.
type EventsParams struct {
	Page     int
	Limit    int
	Upcoming bool
}

// MarketplaceParams selects a page of available marketplace items.
// An empty Category means all categories.
type MarketplaceParams struct {
	Category string
	Page     int
	Limit    int
}

// BusinessParams selects a page of the business directory.
// An empty Category means all categories.
type BusinessParams struct {
	Category string
	Page     int
	Limit    int
}

// Page is one page of rows with its pagination metadata.
type Page[T any] struct {
	Items      []T
	Pagination pagination.Metadata
}
