package dto

const (
	DefaultPageSize = 5
	MaxPageSize     = 100
)

// PageQuery is the page-number pagination accepted by every list endpoint
type PageQuery struct {
	Page     int `query:"page"`
	PageSize int `query:"page_size"`
}

// Normalize applies defaults and clamps page_size to MaxPageSize
func (q PageQuery) Normalize() PageQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

// PaginationMeta is returned in the meta field of list responses
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func NewPaginationMeta(q PageQuery, total int64) PaginationMeta {
	totalPages := 0
	if q.PageSize > 0 {
		totalPages = int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	}
	return PaginationMeta{Page: q.Page, PageSize: q.PageSize, Total: total, TotalPages: totalPages}
}
