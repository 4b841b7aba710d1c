package dto

// PageQuery is the shared pagination query binding.
type PageQuery struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.PerPage
}

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	PerPage     int   `json:"per_page"`
}

func NewPaginationMeta(page, perPage int, total int64) PaginationMeta {
	totalPages := int(total) / perPage
	if int(total)%perPage != 0 {
		totalPages++
	}
	return PaginationMeta{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		PerPage:     perPage,
	}
}

type Paginated[T any] struct {
	Items []T            `json:"items"`
	Meta  PaginationMeta `json:"meta"`
}

func NewPaginated[T any](items []T, page, perPage int, total int64) Paginated[T] {
	return Paginated[T]{Items: items, Meta: NewPaginationMeta(page, perPage, total)}
}
