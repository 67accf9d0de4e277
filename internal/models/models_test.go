package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilterSpec_ActiveCount(t *testing.T) {
	tests := []struct {
		name string
		spec FilterSpec
		want int
	}{
		{"empty", FilterSpec{}, 0},
		{"zero bounds are unset", FilterSpec{PriceMin: Int(0), BathroomsMin: Float(0), SquareFeetMin: Int(0)}, 0},
		{"blank query", FilterSpec{Query: "   "}, 0},
		{"blank types", FilterSpec{PropertyTypes: []string{"", " "}}, 0},
		{"price range", FilterSpec{PriceMin: Int(300000), PriceMax: Int(600000)}, 2},
		{"types count once", FilterSpec{PropertyTypes: []string{"Condo", "House"}}, 1},
		{
			name: "all",
			spec: FilterSpec{
				PriceMin: Int(1), PriceMax: Int(2), BedroomsMin: Int(1), BathroomsMin: Float(1.5),
				PropertyTypes: []string{"House"}, SquareFeetMin: Int(500), Query: "lake",
			},
			want: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.spec.ActiveCount())
			assert.Equal(t, tt.want == 0, tt.spec.IsEmpty())
		})
	}
}

func TestFilterSpec_NormalizeDoesNotAlias(t *testing.T) {
	floor := 100
	spec := FilterSpec{PriceMin: &floor, Query: "  loft ", PropertyTypes: []string{" Condo "}}

	n := spec.Normalize()
	floor = 5

	assert.Equal(t, 100, *n.PriceMin)
	assert.Equal(t, "loft", n.Query)
	assert.Equal(t, []string{"Condo"}, n.PropertyTypes)
}

func TestPropertyPatch_Apply(t *testing.T) {
	listed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	base := Property{ID: 4, Title: "Old", Price: 100, Images: []string{"a.jpg"}, ListingDate: listed}

	patch := PropertyPatch{Title: String("New"), Price: Int(250), Features: []string{"Pool"}}
	got := patch.Apply(base)

	assert.Equal(t, 4, got.ID)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, 250, got.Price)
	assert.Equal(t, []string{"Pool"}, got.Features)
	assert.Equal(t, []string{"a.jpg"}, got.Images)
	assert.Equal(t, listed, got.ListingDate)
	assert.Equal(t, "Old", base.Title)

	got.Images[0] = "changed.jpg"
	assert.Equal(t, "a.jpg", base.Images[0])
}

func TestPropertyPatch_IsEmpty(t *testing.T) {
	assert.True(t, PropertyPatch{}.IsEmpty())
	assert.False(t, PropertyPatch{Bedrooms: Int(0)}.IsEmpty())
}

func TestSavedPropertyPatch_Apply(t *testing.T) {
	when := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	got := SavedPropertyPatch{SavedDate: &when}.Apply(SavedProperty{ID: 1, PropertyID: 3})
	assert.Equal(t, SavedProperty{ID: 1, PropertyID: 3, SavedDate: when}, got)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Pool", "Garage"}, SplitList("Pool\n\n  Garage  \n"))
	assert.Equal(t, []string{}, SplitList(""))
	assert.Equal(t, "Pool\nGarage", JoinList(SplitList(JoinList([]string{"Pool", "Garage"}))))
}
