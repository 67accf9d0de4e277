// internal/workers/saved/toggle-saved/models.go
package togglesaved

const (
	ActionSave   = "save"
	ActionUnsave = "unsave"
	ActionToggle = "toggle"
)

type Input struct {
	PropertyID int    `json:"propertyId"`
	Action     string `json:"action"`
}

type Output struct {
	PropertyID int    `json:"propertyId"`
	Saved      bool   `json:"saved"`
	Action     string `json:"action"`
}
