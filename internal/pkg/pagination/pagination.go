// Package pagination содержит общие параметры постраничной выдачи.
package pagination

import "math"

const (
	DefaultLimit = 20
	MaxLimit     = 100
	DefaultPage  = 1
	// MaxPage - номер страницы, при котором смещение ещё помещается в int.
	MaxPage = math.MaxInt / MaxLimit
)

// Params - номер страницы (с единицы) и размер страницы.
type Params struct {
	Page  int
	Limit int
}

// New нормализует page и limit: некорректные значения заменяются дефолтами,
// limit ограничен MaxLimit, page - MaxPage.
func New(page, limit int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

// Offset возвращает смещение для SQL OFFSET.
func (p Params) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Meta - метаданные пагинации в ответе API.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewMeta считает количество страниц по общему числу записей.
func NewMeta(p Params, total int) Meta {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}
	return Meta{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
