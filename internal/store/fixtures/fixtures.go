// Package fixtures holds the seed listings and bookmarks used by the mock
// property store and the local saved-property store.
package fixtures

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"property-browser/internal/models"
)

//go:embed properties.json
var propertiesJSON []byte

//go:embed saved_properties.json
var savedPropertiesJSON []byte

// Properties returns a fresh copy of the seed listings.
func Properties() []models.Property {
	var props []models.Property
	if err := json.Unmarshal(propertiesJSON, &props); err != nil {
		panic(fmt.Sprintf("fixtures: decode properties.json: %v", err))
	}
	return props
}

// SavedProperties returns a fresh copy of the seed bookmarks.
func SavedProperties() []models.SavedProperty {
	var saved []models.SavedProperty
	if err := json.Unmarshal(savedPropertiesJSON, &saved); err != nil {
		panic(fmt.Sprintf("fixtures: decode saved_properties.json: %v", err))
	}
	return saved
}
