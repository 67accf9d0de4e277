// Package validation checks property payloads against JSON schemas before
// they reach a store.
package validation

import (
	"fmt"
	"strings"

	"property-browser/internal/common/errors"
	"property-browser/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

var propertyFields = map[string]interface{}{
	"title":        map[string]interface{}{"type": "string", "minLength": 1},
	"price":        map[string]interface{}{"type": "integer", "minimum": 0},
	"address":      map[string]interface{}{"type": "string", "minLength": 1},
	"bedrooms":     map[string]interface{}{"type": "integer", "minimum": 0},
	"bathrooms":    map[string]interface{}{"type": "number", "minimum": 0, "multipleOf": 0.5},
	"squareFeet":   map[string]interface{}{"type": "integer", "minimum": 0},
	"propertyType": map[string]interface{}{"type": "string", "minLength": 1},
	"images":       map[string]interface{}{"type": []string{"array", "null"}, "items": map[string]interface{}{"type": "string"}},
	"description":  map[string]interface{}{"type": "string"},
	"features":     map[string]interface{}{"type": []string{"array", "null"}, "items": map[string]interface{}{"type": "string"}},
	"latitude":     map[string]interface{}{"type": "number", "minimum": -90, "maximum": 90},
	"longitude":    map[string]interface{}{"type": "number", "minimum": -180, "maximum": 180},
	"yearBuilt":    map[string]interface{}{"type": "integer", "minimum": 0},
	"listingDate":  map[string]interface{}{"type": "string"},
}

// PropertySchema validates a full property on create.
var PropertySchema = map[string]interface{}{
	"type":       "object",
	"properties": propertyFields,
	"required":   []string{"title", "price", "address", "propertyType"},
}

// PropertyPatchSchema validates a partial update; every field is optional.
var PropertyPatchSchema = map[string]interface{}{
	"type":       "object",
	"properties": propertyFields,
}

var (
	propertySchema      = mustCompile(PropertySchema)
	propertyPatchSchema = mustCompile(PropertyPatchSchema)
)

func mustCompile(schema map[string]interface{}) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("invalid built-in schema: %v", err))
	}
	return s
}

// ValidateProperty returns a VALIDATION_FAILED error when p is malformed.
func ValidateProperty(p models.Property) error {
	return validate(propertySchema, p)
}

// ValidatePropertyPatch returns a VALIDATION_FAILED error when patch is malformed.
func ValidatePropertyPatch(patch models.PropertyPatch) error {
	return validate(propertyPatchSchema, patch)
}

func validate(schema *gojsonschema.Schema, doc interface{}) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return errors.NewValidationError(fmt.Sprintf("validation error: %v", err))
	}

	if !result.Valid() {
		msgs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			msgs[i] = desc.String()
		}
		return errors.NewValidationError(strings.Join(msgs, "; "))
	}

	return nil
}
