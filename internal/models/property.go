// internal/models/property.go
package models

import (
	"strings"
	"time"
)

// Property is a single listing. ID is the join key for saved properties.
type Property struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Price        int       `json:"price"`
	Address      string    `json:"address"`
	Bedrooms     int       `json:"bedrooms"`
	Bathrooms    float64   `json:"bathrooms"`
	SquareFeet   int       `json:"squareFeet"`
	PropertyType string    `json:"propertyType"`
	Images       []string  `json:"images"`
	Description  string    `json:"description"`
	Features     []string  `json:"features"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	YearBuilt    int       `json:"yearBuilt"`
	ListingDate  time.Time `json:"listingDate"`
}

// Clone returns a deep copy so callers can't mutate store-owned slices.
func (p Property) Clone() Property {
	out := p
	if p.Images != nil {
		out.Images = append([]string(nil), p.Images...)
	}
	if p.Features != nil {
		out.Features = append([]string(nil), p.Features...)
	}
	return out
}

// PropertyPatch is a partial update. Nil fields are left unchanged.
type PropertyPatch struct {
	Title        *string    `json:"title,omitempty"`
	Price        *int       `json:"price,omitempty"`
	Address      *string    `json:"address,omitempty"`
	Bedrooms     *int       `json:"bedrooms,omitempty"`
	Bathrooms    *float64   `json:"bathrooms,omitempty"`
	SquareFeet   *int       `json:"squareFeet,omitempty"`
	PropertyType *string    `json:"propertyType,omitempty"`
	Images       []string   `json:"images,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Features     []string   `json:"features,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	YearBuilt    *int       `json:"yearBuilt,omitempty"`
	ListingDate  *time.Time `json:"listingDate,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (pp PropertyPatch) IsEmpty() bool {
	return pp.Title == nil && pp.Price == nil && pp.Address == nil &&
		pp.Bedrooms == nil && pp.Bathrooms == nil && pp.SquareFeet == nil &&
		pp.PropertyType == nil && pp.Images == nil && pp.Description == nil &&
		pp.Features == nil && pp.Latitude == nil && pp.Longitude == nil &&
		pp.YearBuilt == nil && pp.ListingDate == nil
}

// Apply returns p with the patch's set fields written over it.
func (pp PropertyPatch) Apply(p Property) Property {
	out := p.Clone()
	if pp.Title != nil {
		out.Title = *pp.Title
	}
	if pp.Price != nil {
		out.Price = *pp.Price
	}
	if pp.Address != nil {
		out.Address = *pp.Address
	}
	if pp.Bedrooms != nil {
		out.Bedrooms = *pp.Bedrooms
	}
	if pp.Bathrooms != nil {
		out.Bathrooms = *pp.Bathrooms
	}
	if pp.SquareFeet != nil {
		out.SquareFeet = *pp.SquareFeet
	}
	if pp.PropertyType != nil {
		out.PropertyType = *pp.PropertyType
	}
	if pp.Images != nil {
		out.Images = append([]string(nil), pp.Images...)
	}
	if pp.Description != nil {
		out.Description = *pp.Description
	}
	if pp.Features != nil {
		out.Features = append([]string(nil), pp.Features...)
	}
	if pp.Latitude != nil {
		out.Latitude = *pp.Latitude
	}
	if pp.Longitude != nil {
		out.Longitude = *pp.Longitude
	}
	if pp.YearBuilt != nil {
		out.YearBuilt = *pp.YearBuilt
	}
	if pp.ListingDate != nil {
		out.ListingDate = *pp.ListingDate
	}
	return out
}

// SplitList parses a newline-delimited list as stored by the record API and
// the SQL tables. Blank lines are dropped and the result is never nil.
func SplitList(s string) []string {
	out := []string{}
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// JoinList is the inverse of SplitList.
func JoinList(items []string) string {
	return strings.Join(items, "\n")
}
