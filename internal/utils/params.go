// Package utils provides small, generic helpers used across layers,
// independent of any domain logic.
package utils

import "strconv"

// AtoiDefault converts s to an int, returning def when s is empty or not a
// valid integer.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampPage normalizes 1-based page/pageSize query values: pages below 1
// become 1, sizes outside (0, max] become def.
func ClampPage(page, pageSize, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > max {
		pageSize = def
	}
	return page, pageSize
}
