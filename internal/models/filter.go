// internal/models/filter.go
package models

import "strings"

// FilterSpec narrows a property set. Nil pointers and an empty PropertyTypes
// slice mean "no constraint"; all present constraints are ANDed.
type FilterSpec struct {
	PriceMin      *int     `json:"priceMin,omitempty"`
	PriceMax      *int     `json:"priceMax,omitempty"`
	BedroomsMin   *int     `json:"bedroomsMin,omitempty"`
	BathroomsMin  *float64 `json:"bathroomsMin,omitempty"`
	PropertyTypes []string `json:"propertyTypes,omitempty"`
	SquareFeetMin *int     `json:"squareFeetMin,omitempty"`
	Query         string   `json:"query,omitempty"`
}

// Normalize returns a copy where zero numeric bounds are unset, the query is
// trimmed and blank property types are dropped. Zero is treated as "not
// provided", so a minimum of 0 cannot be expressed.
func (f FilterSpec) Normalize() FilterSpec {
	out := FilterSpec{
		PriceMin:      positiveInt(f.PriceMin),
		PriceMax:      positiveInt(f.PriceMax),
		BedroomsMin:   positiveInt(f.BedroomsMin),
		SquareFeetMin: positiveInt(f.SquareFeetMin),
		Query:         strings.TrimSpace(f.Query),
	}
	if f.BathroomsMin != nil && *f.BathroomsMin > 0 {
		v := *f.BathroomsMin
		out.BathroomsMin = &v
	}
	for _, t := range f.PropertyTypes {
		if t = strings.TrimSpace(t); t != "" {
			out.PropertyTypes = append(out.PropertyTypes, t)
		}
	}
	return out
}

func positiveInt(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	n := *v
	return &n
}

// IsEmpty reports whether the spec matches every property.
func (f FilterSpec) IsEmpty() bool {
	return f.ActiveCount() == 0
}

// ActiveCount is the number of constraints in effect.
func (f FilterSpec) ActiveCount() int {
	n := f.Normalize()
	count := 0
	for _, set := range []bool{
		n.PriceMin != nil,
		n.PriceMax != nil,
		n.BedroomsMin != nil,
		n.BathroomsMin != nil,
		len(n.PropertyTypes) > 0,
		n.SquareFeetMin != nil,
		n.Query != "",
	} {
		if set {
			count++
		}
	}
	return count
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
