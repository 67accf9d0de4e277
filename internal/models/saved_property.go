// internal/models/saved_property.go
package models

import "time"

// SavedProperty is a bookmark. At most one exists per PropertyID.
type SavedProperty struct {
	ID         int       `json:"id"`
	PropertyID int       `json:"propertyId"`
	SavedDate  time.Time `json:"savedDate"`
}

// SavedPropertyPatch corrects a bookmark in place.
type SavedPropertyPatch struct {
	PropertyID *int       `json:"propertyId,omitempty"`
	SavedDate  *time.Time `json:"savedDate,omitempty"`
}

// Apply returns s with the patch's set fields written over it.
func (sp SavedPropertyPatch) Apply(s SavedProperty) SavedProperty {
	if sp.PropertyID != nil {
		s.PropertyID = *sp.PropertyID
	}
	if sp.SavedDate != nil {
		s.SavedDate = *sp.SavedDate
	}
	return s
}
