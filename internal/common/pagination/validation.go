package pagination

import "fmt"

// Validate validates pagination parameters against the configuration.
func (p Params) Validate(config Config) error {
	if p.Page < 1 {
		return fmt.Errorf("page must be a positive integer")
	}
	if p.Limit < 1 || p.Limit > config.MaxLimit {
		return fmt.Errorf("limit must be between 1 and %d", config.MaxLimit)
	}
	if maxPage := config.maxPage(p.Limit); p.Page > maxPage {
		return fmt.Errorf("page must not exceed %d", maxPage)
	}
	return nil
}

// WithDefaults fills in and clamps p:
//   - page < 1 becomes config.DefaultPage
//   - limit < 1 becomes config.DefaultLimit
//   - limit > config.MaxLimit is capped
//   - page > config.MaxPage is capped
func (p Params) WithDefaults(config Config) Params {
	if p.Page < 1 {
		p.Page = config.DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = config.DefaultLimit
	}
	if config.MaxLimit > 0 && p.Limit > config.MaxLimit {
		p.Limit = config.MaxLimit
	}
	p.Page = min(p.Page, config.maxPage(p.Limit))
	return p
}

// maxPage is the configured page cap, further bounded so the row range of
// the page fits in an int. A zero MaxPage only applies the overflow bound.
func (c Config) maxPage(limit int) int {
	bound := MaxPage(limit)
	if c.MaxPage > 0 {
		return min(c.MaxPage, bound)
	}
	return bound
}
