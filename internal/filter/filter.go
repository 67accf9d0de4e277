// Package filter reduces a property set to the listings matching a FilterSpec.
package filter

import (
	"strings"

	"property-browser/internal/models"
)

// Apply returns the properties matching spec, in input order.
func Apply(props []models.Property, spec models.FilterSpec) []models.Property {
	spec = spec.Normalize()
	out := make([]models.Property, 0, len(props))
	for _, p := range props {
		if matches(p, spec) {
			out = append(out, p)
		}
	}
	return out
}

// Matches reports whether p satisfies every present constraint of spec.
func Matches(p models.Property, spec models.FilterSpec) bool {
	return matches(p, spec.Normalize())
}

// matches expects a normalized spec.
func matches(p models.Property, spec models.FilterSpec) bool {
	if spec.PriceMin != nil && p.Price < *spec.PriceMin {
		return false
	}
	if spec.PriceMax != nil && p.Price > *spec.PriceMax {
		return false
	}
	if spec.BedroomsMin != nil && p.Bedrooms < *spec.BedroomsMin {
		return false
	}
	if spec.BathroomsMin != nil && p.Bathrooms < *spec.BathroomsMin {
		return false
	}
	if spec.SquareFeetMin != nil && p.SquareFeet < *spec.SquareFeetMin {
		return false
	}
	if len(spec.PropertyTypes) > 0 && !containsType(spec.PropertyTypes, p.PropertyType) {
		return false
	}
	if spec.Query != "" && !MatchesQuery(p, spec.Query) {
		return false
	}
	return true
}

func containsType(types []string, t string) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// MatchesQuery is a case-insensitive substring match over title, address and description.
func MatchesQuery(p models.Property, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{p.Title, p.Address, p.Description} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
