package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Snapshots are JSON documents compatible with the storefront's earlier
// browser-side storage, so existing payloads rehydrate unchanged.
//
// Every Decode function returns the entity default when data is empty or
// malformed; ok is false in that case so the caller can log the fallback.

// Encode serializes an entity snapshot.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func isBlank(data []byte) bool {
	t := bytes.TrimSpace(data)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// DecodeCart decodes a cart snapshot. Lines with a non-positive quantity are
// dropped and lines are re-keyed by their product ID.
func DecodeCart(data []byte) (Cart, bool) {
	if isBlank(data) {
		return Cart{}, len(bytes.TrimSpace(data)) == 0
	}
	var raw map[int64]CartLine
	if err := json.Unmarshal(data, &raw); err != nil {
		return Cart{}, false
	}
	cart := make(Cart, len(raw))
	for _, line := range raw {
		if line.Qty <= 0 {
			continue
		}
		cart[line.Product.ID] = line
	}
	return cart, true
}

// DecodeWishlist decodes a wishlist snapshot, re-keyed by product ID.
func DecodeWishlist(data []byte) (Wishlist, bool) {
	if isBlank(data) {
		return Wishlist{}, len(bytes.TrimSpace(data)) == 0
	}
	var raw map[int64]Product
	if err := json.Unmarshal(data, &raw); err != nil {
		return Wishlist{}, false
	}
	wl := make(Wishlist, len(raw))
	for _, p := range raw {
		wl[p.ID] = p
	}
	return wl, true
}

// DecodeRecentlyViewed decodes the recently viewed list, keeping the first
// entry per product ID and capping at MaxRecentlyViewed.
func DecodeRecentlyViewed(data []byte) ([]Product, bool) {
	if isBlank(data) {
		return []Product{}, len(bytes.TrimSpace(data)) == 0
	}
	var list []Product
	if err := json.Unmarshal(data, &list); err != nil {
		return []Product{}, false
	}
	out := make([]Product, 0, min(len(list), MaxRecentlyViewed))
	seen := make(map[int64]bool, len(list))
	for _, p := range list {
		if len(out) == MaxRecentlyViewed {
			break
		}
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out, true
}

// DecodeRecentSearches decodes the recent search list. Entries are trimmed,
// blank and case-insensitive repeats are dropped, and the list is capped at
// MaxRecentSearches.
func DecodeRecentSearches(data []byte) ([]string, bool) {
	if isBlank(data) {
		return []string{}, len(bytes.TrimSpace(data)) == 0
	}
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return []string{}, false
	}
	list := make([]string, 0, min(len(raw), MaxRecentSearches))
	seen := make(map[string]bool, len(raw))
	for _, q := range raw {
		if len(list) == MaxRecentSearches {
			break
		}
		q = strings.TrimSpace(q)
		key := searchKey(q)
		if q == "" || seen[key] {
			continue
		}
		seen[key] = true
		list = append(list, q)
	}
	return list, true
}

// DecodeFilters decodes a filters snapshot on top of DefaultFilters, so
// fields absent from older snapshots keep their default. An unknown sort
// order falls back to SortNew.
func DecodeFilters(data []byte) (ProductFilters, bool) {
	if isBlank(data) {
		return DefaultFilters(), len(bytes.TrimSpace(data)) == 0
	}
	f := DefaultFilters()
	if err := json.Unmarshal(data, &f); err != nil {
		return DefaultFilters(), false
	}
	if !f.SortBy.Valid() {
		f.SortBy = SortNew
	}
	return f, true
}
