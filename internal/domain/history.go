package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// MaxRecentlyViewed caps the recently viewed list.
	MaxRecentlyViewed = 10
	// MaxRecentSearches caps the recent search list.
	MaxRecentSearches = 8
)

// searchKey is the case-insensitive identity of a query: its lowercase form.
// Casers keep state between calls, so each call builds its own.
func searchKey(q string) string {
	return cases.Lower(language.Und).String(q)
}

// PushRecentlyViewed returns a new list with p at the front, any earlier
// entry with the same ID removed, truncated to MaxRecentlyViewed.
func PushRecentlyViewed(list []Product, p Product) []Product {
	out := make([]Product, 0, min(len(list)+1, MaxRecentlyViewed))
	out = append(out, p)
	for _, item := range list {
		if len(out) == MaxRecentlyViewed {
			break
		}
		if item.ID != p.ID {
			out = append(out, item)
		}
	}
	return out
}

// PushSearch returns a new list with the trimmed query at the front and any
// case-insensitively equal entry removed, truncated to MaxRecentSearches.
// The second result is false when the query is blank and list is returned
// unchanged.
func PushSearch(list []string, q string) ([]string, bool) {
	q = strings.TrimSpace(q)
	if q == "" {
		return list, false
	}
	key := searchKey(q)

	out := make([]string, 0, min(len(list)+1, MaxRecentSearches))
	out = append(out, q)
	for _, item := range list {
		if len(out) == MaxRecentSearches {
			break
		}
		if searchKey(item) != key {
			out = append(out, item)
		}
	}
	return out, true
}
