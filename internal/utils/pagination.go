// Package utils provides small helpers shared by the HTTP layer.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s (surrounding spaces ignored) as an int, returning def
// when s is empty or not a number.
//
//	utils.AtoiDefault("42", 0) // 42
//	utils.AtoiDefault("", 10)  // 10
//	utils.AtoiDefault("x", 5)  // 5
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// PageBounds returns the [lo, hi) slice bounds of page (1-based) over n items.
// Pages past the end yield lo == hi == n. page and pageSize below 1 are
// treated as 1.
func PageBounds(n, page, pageSize int) (lo, hi int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	lo = (page - 1) * pageSize
	if lo > n || lo < 0 {
		return n, n
	}
	hi = lo + pageSize
	if hi > n {
		hi = n
	}
	return lo, hi
}
