package pagination

// Metadata contains pagination metadata included in API responses.
// Total and TotalPages are only present when the backend reported an exact count.
type Metadata struct {
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Total      *int64 `json:"total,omitempty"`
	TotalPages int    `json:"total_pages,omitempty"`
}

// NewMetadata builds metadata for params. total may be nil.
func NewMetadata(params Params, total *int64) Metadata {
	m := Metadata{Page: params.Page, Limit: params.Limit, Total: total}
	if total != nil {
		m.TotalPages = CalculateTotalPages(*total, params.Limit)
	}
	return m
}
