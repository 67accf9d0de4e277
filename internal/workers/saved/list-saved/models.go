// internal/workers/saved/list-saved/models.go
package listsaved

import "property-browser/internal/models"

type Input struct {
	Prune bool `json:"prune"`
}

type Output struct {
	Properties         []models.Property      `json:"properties"`
	SavedProperties    []models.SavedProperty `json:"savedProperties"`
	MissingPropertyIDs []int                  `json:"missingPropertyIds"`
	FailedPropertyIDs  []int                  `json:"failedPropertyIds"`
	PrunedPropertyIDs  []int                  `json:"prunedPropertyIds"`
	TotalCount         int                    `json:"totalCount"`
}
