// Package store defines the capability interfaces for property and
// saved-property persistence. Concrete variants live in the subpackages and
// are chosen at composition time.
package store

import (
	"context"
	"sort"
	"time"

	"property-browser/internal/common/metrics"
	"property-browser/internal/models"
)

// PropertyStore serves listings. GetAll and Search return newest first.
type PropertyStore interface {
	GetAll(ctx context.Context) ([]models.Property, error)
	GetByID(ctx context.Context, id int) (*models.Property, error)
	Search(ctx context.Context, spec models.FilterSpec) ([]models.Property, error)
	Create(ctx context.Context, p models.Property) (*models.Property, error)
	Update(ctx context.Context, id int, patch models.PropertyPatch) (*models.Property, error)
	Delete(ctx context.Context, id int) error
}

// SavedPropertyStore serves bookmarks. GetAll returns the most recently saved
// first and at most one bookmark exists per property.
type SavedPropertyStore interface {
	GetAll(ctx context.Context) ([]models.SavedProperty, error)
	GetByID(ctx context.Context, id int) (*models.SavedProperty, error)
	IsSaved(ctx context.Context, propertyID int) (bool, error)
	Save(ctx context.Context, propertyID int) (*models.SavedProperty, error)
	Unsave(ctx context.Context, propertyID int) (*models.SavedProperty, error)
	Create(ctx context.Context, s models.SavedProperty) (*models.SavedProperty, error)
	Update(ctx context.Context, id int, patch models.SavedPropertyPatch) (*models.SavedProperty, error)
	Delete(ctx context.Context, id int) error
}

// Observe records the outcome and latency of a store call. Use it deferred
// with a named error result:
//
//	defer store.Observe("postgres", "get_all", time.Now(), &err)
func Observe(backend, operation string, start time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	metrics.StoreOperations.WithLabelValues(backend, operation, metrics.Outcome(err)).Inc()
	metrics.StoreOperationDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}

// SortNewestFirst orders props by ListingDate descending, then ID ascending.
func SortNewestFirst(props []models.Property) {
	sort.SliceStable(props, func(i, j int) bool {
		a, b := props[i], props[j]
		if !a.ListingDate.Equal(b.ListingDate) {
			return a.ListingDate.After(b.ListingDate)
		}
		return a.ID < b.ID
	})
}

// SortRecentlySaved orders bookmarks by SavedDate descending, then ID ascending.
func SortRecentlySaved(saved []models.SavedProperty) {
	sort.SliceStable(saved, func(i, j int) bool {
		a, b := saved[i], saved[j]
		if !a.SavedDate.Equal(b.SavedDate) {
			return a.SavedDate.After(b.SavedDate)
		}
		return a.ID < b.ID
	})
}
