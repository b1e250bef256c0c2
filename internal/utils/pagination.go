// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// PageParams normalizes raw page / per_page query values for list
// endpoints: page is at least 1, per_page is clamped to [1, max] and
// defaults to def when absent or unparsable.
func PageParams(rawPage, rawPerPage string, def, max int) (page, perPage int) {
	page = AtoiDefault(rawPage, 1)
	if page < 1 {
		page = 1
	}
	perPage = AtoiDefault(rawPerPage, def)
	if perPage < 1 {
		perPage = def
	}
	if perPage > max {
		perPage = max
	}
	return page, perPage
}
