package utils

import "strings"

// NormalizeEmail lowercases and trims an address for comparison and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailSet builds a lookup set of normalized addresses, skipping blanks.
func EmailSet(emails []string) map[string]bool {
	set := make(map[string]bool, len(emails))
	for _, e := range emails {
		if e = NormalizeEmail(e); e != "" {
			set[e] = true
		}
	}
	return set
}
