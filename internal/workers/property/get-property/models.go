// internal/workers/property/get-property/models.go
package getproperty

import "property-browser/internal/models"

type Input struct {
	PropertyID int `json:"propertyId"`
}

type Output struct {
	Property models.Property `json:"property"`
	IsSaved  bool            `json:"isSaved"`
}
