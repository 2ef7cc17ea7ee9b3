package util

import (
	"math"
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// Calculate clamps page and size and returns the matching row window.
// offset+limit never exceeds math.MaxInt32.
func Calculate(page, size int) (offset, limit, normPage int) {
	if size < 1 || size > MaxPageSize {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	if maxPage := math.MaxInt32 / size; page > maxPage {
		page = maxPage
	}
	return (page - 1) * size, size, page
}

func TotalPages(total int64, size int) int64 {
	if size <= 0 {
		return 0
	}
	return (total + int64(size) - 1) / int64(size)
}
