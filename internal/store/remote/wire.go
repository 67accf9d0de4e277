package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"property-browser/internal/models"
)

var propertyColumns = []string{
	"Name", "title", "price", "address", "bedrooms", "bathrooms", "square_feet",
	"property_type", "images", "description", "features", "latitude", "longitude",
	"year_built", "listing_date",
}

var savedPropertyColumns = []string{"Name", "property_id", "saved_date"}

// flexInt accepts JSON numbers, numeric strings and null.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
		if len(b) == 0 {
			*f = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	*f = flexInt(math.Round(v))
	return nil
}

// flexFloat accepts JSON numbers, numeric strings and null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
		if len(b) == 0 {
			*f = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	*f = flexFloat(v)
	return nil
}

type propertyRecord struct {
	ID           flexInt   `json:"Id"`
	Name         string    `json:"Name,omitempty"`
	Title        string    `json:"title"`
	Price        flexInt   `json:"price"`
	Address      string    `json:"address"`
	Bedrooms     flexInt   `json:"bedrooms"`
	Bathrooms    flexFloat `json:"bathrooms"`
	SquareFeet   flexInt   `json:"square_feet"`
	PropertyType string    `json:"property_type"`
	Images       string    `json:"images"`
	Description  string    `json:"description"`
	Features     string    `json:"features"`
	Latitude     flexFloat `json:"latitude"`
	Longitude    flexFloat `json:"longitude"`
	YearBuilt    flexInt   `json:"year_built"`
	ListingDate  string    `json:"listing_date"`
}

func (r propertyRecord) toModel() models.Property {
	return models.Property{
		ID:           int(r.ID),
		Title:        r.Title,
		Price:        int(r.Price),
		Address:      r.Address,
		Bedrooms:     int(r.Bedrooms),
		Bathrooms:    float64(r.Bathrooms),
		SquareFeet:   int(r.SquareFeet),
		PropertyType: r.PropertyType,
		Images:       models.SplitList(r.Images),
		Description:  r.Description,
		Features:     models.SplitList(r.Features),
		Latitude:     float64(r.Latitude),
		Longitude:    float64(r.Longitude),
		YearBuilt:    int(r.YearBuilt),
		ListingDate:  parseTime(r.ListingDate),
	}
}

// propertyCreateRecord is the create payload; the record id is server-assigned.
func propertyCreateRecord(p models.Property, now time.Time) map[string]interface{} {
	listed := p.ListingDate
	if listed.IsZero() {
		listed = now
	}
	return map[string]interface{}{
		"Name":          p.Title,
		"title":         p.Title,
		"price":         p.Price,
		"address":       p.Address,
		"bedrooms":      p.Bedrooms,
		"bathrooms":     p.Bathrooms,
		"square_feet":   p.SquareFeet,
		"property_type": p.PropertyType,
		"images":        models.JoinList(p.Images),
		"description":   p.Description,
		"features":      models.JoinList(p.Features),
		"latitude":      p.Latitude,
		"longitude":     p.Longitude,
		"year_built":    p.YearBuilt,
		"listing_date":  listed.UTC().Format(time.RFC3339),
	}
}

// propertyPatchRecord carries only the fields the patch sets.
func propertyPatchRecord(id int, patch models.PropertyPatch) map[string]interface{} {
	rec := map[string]interface{}{"Id": id}
	if patch.Title != nil {
		rec["title"] = *patch.Title
	}
	if patch.Price != nil {
		rec["price"] = *patch.Price
	}
	if patch.Address != nil {
		rec["address"] = *patch.Address
	}
	if patch.Bedrooms != nil {
		rec["bedrooms"] = *patch.Bedrooms
	}
	if patch.Bathrooms != nil {
		rec["bathrooms"] = *patch.Bathrooms
	}
	if patch.SquareFeet != nil {
		rec["square_feet"] = *patch.SquareFeet
	}
	if patch.PropertyType != nil {
		rec["property_type"] = *patch.PropertyType
	}
	if patch.Images != nil {
		rec["images"] = models.JoinList(patch.Images)
	}
	if patch.Description != nil {
		rec["description"] = *patch.Description
	}
	if patch.Features != nil {
		rec["features"] = models.JoinList(patch.Features)
	}
	if patch.Latitude != nil {
		rec["latitude"] = *patch.Latitude
	}
	if patch.Longitude != nil {
		rec["longitude"] = *patch.Longitude
	}
	if patch.YearBuilt != nil {
		rec["year_built"] = *patch.YearBuilt
	}
	if patch.ListingDate != nil {
		rec["listing_date"] = patch.ListingDate.UTC().Format(time.RFC3339)
	}
	return rec
}

type savedPropertyRecord struct {
	ID         flexInt `json:"Id"`
	Name       string  `json:"Name,omitempty"`
	PropertyID flexInt `json:"property_id"`
	SavedDate  string  `json:"saved_date"`
}

func (r savedPropertyRecord) toModel() models.SavedProperty {
	return models.SavedProperty{
		ID:         int(r.ID),
		PropertyID: int(r.PropertyID),
		SavedDate:  parseTime(r.SavedDate),
	}
}

func decodeProperty(raw json.RawMessage) (models.Property, error) {
	var rec propertyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.Property{}, fmt.Errorf("decode property record: %w", err)
	}
	return rec.toModel(), nil
}

func decodeProperties(raws []json.RawMessage) ([]models.Property, error) {
	out := make([]models.Property, 0, len(raws))
	for _, raw := range raws {
		p, err := decodeProperty(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func decodeSavedProperty(raw json.RawMessage) (models.SavedProperty, error) {
	var rec savedPropertyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.SavedProperty{}, fmt.Errorf("decode saved_property record: %w", err)
	}
	return rec.toModel(), nil
}

func decodeSavedProperties(raws []json.RawMessage) ([]models.SavedProperty, error) {
	out := make([]models.SavedProperty, 0, len(raws))
	for _, raw := range raws {
		s, err := decodeSavedProperty(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseTime returns the zero time when s matches none of the known layouts.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
