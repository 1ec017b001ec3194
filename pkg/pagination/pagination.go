package pagination

const (
	// DefaultPage is the first page, used when none is provided.
	DefaultPage = 1
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 50
	// MaxLimit caps how many rows any page can request.
	MaxLimit = 100
)

// Params holds offset pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Normalize applies defaults and caps.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	p.Limit = NormalizeLimit(p.Limit)
	return p
}

// Offset is the number of rows to skip for the page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Meta describes where a page sits in the full result set.
type Meta struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

// NewMeta computes page metadata. An empty result still reports one page.
func NewMeta(p Params, total int64) Meta {
	n := p.Normalize()
	totalPages := int((total + int64(n.Limit) - 1) / int64(n.Limit))
	if totalPages == 0 {
		totalPages = 1
	}
	return Meta{
		Page:        n.Page,
		Limit:       n.Limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     n.Page < totalPages,
		HasPrevious: n.Page > 1,
	}
}
