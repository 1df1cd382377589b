package domain

import "strings"

// NormalizeEmail lowercases an address and strips surrounding whitespace.
// The normalized form is the subscriber uniqueness key, so every lookup,
// insert and delete must go through this first.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail applies the minimal syntactic check used at subscription time:
// the address must contain "@" and "." and be at least 5 characters long
// after normalization. This is deliberately not RFC validation; the mail
// provider is the final arbiter of deliverability.
func ValidEmail(email string) bool {
	email = NormalizeEmail(email)
	return len(email) >= 5 && strings.Contains(email, "@") && strings.Contains(email, ".")
}
