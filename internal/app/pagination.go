package app

const (
	DefaultPage        = 1
	DefaultLimit       = 10
	DefaultMaxPageSize = 100
)

type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// NormalizePage applique les valeurs par défaut (1/10) et borne limit à maxLimit.
func NormalizePage(page, limit, maxLimit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if maxLimit <= 0 {
		maxLimit = DefaultMaxPageSize
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func offsetOf(page, limit int) int {
	return (page - 1) * limit
}

func newPage[T any](items []T, total, page, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Page[T]{Items: items, Total: total, Page: page, Limit: limit, TotalPages: totalPages}
}
