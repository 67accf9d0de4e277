package validation

import (
	stderrors "errors"
	"testing"
	"time"

	"property-browser/internal/common/errors"
	"property-browser/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createValidProperty() models.Property {
	return models.Property{
		Title:        "Lakeside Cottage",
		Price:        425000,
		Address:      "12 Shore Rd, Madison, WI",
		Bedrooms:     3,
		Bathrooms:    2.5,
		SquareFeet:   1850,
		PropertyType: "House",
		Images:       []string{"https://img.example.com/1.jpg"},
		Latitude:     43.07,
		Longitude:    -89.4,
		YearBuilt:    1978,
		ListingDate:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestValidateProperty(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(p *models.Property)
		wantErr     bool
		errContains string
	}{
		{name: "valid", mutate: func(p *models.Property) {}},
		{name: "nil slices allowed", mutate: func(p *models.Property) { p.Images = nil; p.Features = nil }},
		{name: "missing title", mutate: func(p *models.Property) { p.Title = "" }, wantErr: true, errContains: "title"},
		{name: "negative price", mutate: func(p *models.Property) { p.Price = -1 }, wantErr: true, errContains: "price"},
		{name: "quarter bath", mutate: func(p *models.Property) { p.Bathrooms = 1.25 }, wantErr: true, errContains: "bathrooms"},
		{name: "latitude out of range", mutate: func(p *models.Property) { p.Latitude = 91 }, wantErr: true, errContains: "latitude"},
		{name: "missing type", mutate: func(p *models.Property) { p.PropertyType = "" }, wantErr: true, errContains: "propertyType"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := createValidProperty()
			tt.mutate(&p)

			err := ValidateProperty(p)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrValidationFailed))
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestValidatePropertyPatch(t *testing.T) {
	assert.NoError(t, ValidatePropertyPatch(models.PropertyPatch{}))
	assert.NoError(t, ValidatePropertyPatch(models.PropertyPatch{Price: models.Int(1)}))

	err := ValidatePropertyPatch(models.PropertyPatch{Bedrooms: models.Int(-2)})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrValidationFailed))

	err = ValidatePropertyPatch(models.PropertyPatch{Title: models.String("")})
	require.Error(t, err)
}
