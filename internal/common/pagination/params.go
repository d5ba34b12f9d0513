package pagination

import (
	"fmt"
	"net/http"
	"strconv"
)

// Params represents pagination query parameters.
type Params struct {
	Page  int // 1-based page number
	Limit int // Items per page
}

// Range returns the inclusive backend row window for p.
func (p Params) Range() (from, to int) {
	r := CalculateRange(p.Page, p.Limit)
	return r.From, r.To
}

// ParseQueryParams parses the page and limit query parameters, applying
// defaults from config for missing ones. Malformed or out-of-range values
// are an error.
func ParseQueryParams(r *http.Request, config Config) (Params, error) {
	params := Params{
		Page:  config.DefaultPage,
		Limit: config.DefaultLimit,
	}

	q := r.URL.Query()
	if pageStr := q.Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			return params, fmt.Errorf("invalid query parameter: page must be a positive integer")
		}
		params.Page = page
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > config.MaxLimit {
			return params, fmt.Errorf("invalid query parameter: limit must be between 1 and %d", config.MaxLimit)
		}
		params.Limit = limit
	}

	if maxPage := config.maxPage(params.Limit); params.Page > maxPage {
		return params, fmt.Errorf("invalid query parameter: page must not exceed %d", maxPage)
	}

	return params, nil
}
