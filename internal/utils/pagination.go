// Package utils holds small parsing helpers for request parameters.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as a base-10 int, returning def when s is blank or
// not a number. Surrounding whitespace is ignored.
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

// ClampPage parses 1-based page and size query values. Missing or invalid
// values fall back to page 1 and defSize; size is bounded to [1, maxSize].
func ClampPage(pageStr, sizeStr string, defSize, maxSize int) (page, size int) {
	page = max(AtoiDefault(pageStr, 1), 1)
	size = min(max(AtoiDefault(sizeStr, defSize), 1), maxSize)
	return page, size
}
