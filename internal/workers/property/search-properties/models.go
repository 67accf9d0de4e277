// internal/workers/property/search-properties/models.go
package searchproperties

import "property-browser/internal/models"

// Input carries loosely typed filters straight from the form or process.
type Input struct {
	Filters map[string]interface{} `json:"filters"`
	SortBy  string                 `json:"sortBy"`
}

type Output struct {
	Properties    []models.Property `json:"properties"`
	TotalCount    int               `json:"totalCount"`
	ActiveFilters int               `json:"activeFilters"`
	Filters       models.FilterSpec `json:"filters"`
	SortBy        string            `json:"sortBy"`
}
