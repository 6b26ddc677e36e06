package models

const (
	PageDefaultLimit = 20
	PageMaxLimit     = 100
)

type Page struct {
	Page  int `query:"page" json:"page"`
	Limit int `query:"limit" json:"limit"`
}

func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = PageDefaultLimit
	}
	if p.Limit > PageMaxLimit {
		p.Limit = PageMaxLimit
	}
	return p
}

func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

type Paginated[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPaginated[T any](items []T, page Page, total int) *Paginated[T] {
	page = page.Normalize()
	if items == nil {
		items = []T{}
	}
	return &Paginated[T]{
		Items:      items,
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      total,
		TotalPages: (total + page.Limit - 1) / page.Limit,
	}
}
