// internal/app/system/normalize/normalize.go

// Package normalize centralizes input normalization so stores and handlers
// agree on canonical forms (emails lowercased, names trimmed, etc.).
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace but preserves case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Phone trims surrounding whitespace. No format validation here; intake
// accepts whatever the participant typed.
func Phone(s string) string {
	return strings.TrimSpace(s)
}

// Gender lowercases and trims a gender value before validation.
func Gender(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Status lowercases and trims a status value before validation.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a free-form query parameter, preserving case.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
