// Package sorting orders property result sets for display.
package sorting

import (
	"fmt"
	"sort"
	"strings"

	"property-browser/internal/common/errors"
	"property-browser/internal/models"
)

// Key selects the display order.
type Key string

const (
	Newest    Key = "newest"
	PriceLow  Key = "price-low"
	PriceHigh Key = "price-high"

	Default = Newest
)

// Keys lists every supported key.
var Keys = []Key{Newest, PriceLow, PriceHigh}

// ParseKey validates user input. An empty string selects Default.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Default, nil
	}
	for _, k := range Keys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", errors.NewValidationError(fmt.Sprintf("unknown sort key %q", s))
}

// Sort returns a new, stably sorted slice. Unknown keys keep input order.
func Sort(props []models.Property, key Key) []models.Property {
	out := make([]models.Property, len(props))
	copy(out, props)

	var less func(a, b models.Property) bool
	switch key {
	case Newest:
		less = func(a, b models.Property) bool { return a.ListingDate.After(b.ListingDate) }
	case PriceLow:
		less = func(a, b models.Property) bool { return a.Price < b.Price }
	case PriceHigh:
		less = func(a, b models.Property) bool { return a.Price > b.Price }
	default:
		return out
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
