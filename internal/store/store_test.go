package store

import (
	"errors"
	"testing"
	"time"

	"property-browser/internal/common/metrics"
	"property-browser/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSortNewestFirst(t *testing.T) {
	d1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.Add(24 * time.Hour)
	props := []models.Property{
		{ID: 5, ListingDate: d1},
		{ID: 3, ListingDate: d2},
		{ID: 1, ListingDate: d1},
	}

	SortNewestFirst(props)

	assert.Equal(t, 3, props[0].ID)
	assert.Equal(t, 1, props[1].ID)
	assert.Equal(t, 5, props[2].ID)
}

func TestSortRecentlySaved(t *testing.T) {
	d1 := time.Date(2024, 3, 17, 19, 30, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 18, 9, 0, 0, 0, time.UTC)
	saved := []models.SavedProperty{
		{ID: 2, PropertyID: 7, SavedDate: d1},
		{ID: 1, PropertyID: 2, SavedDate: d2},
	}

	SortRecentlySaved(saved)

	assert.Equal(t, 2, saved[0].PropertyID)
	assert.Equal(t, 7, saved[1].PropertyID)
}

func TestObserve(t *testing.T) {
	okBefore := testutil.ToFloat64(metrics.StoreOperations.WithLabelValues("unit", "get_all", "ok"))
	errBefore := testutil.ToFloat64(metrics.StoreOperations.WithLabelValues("unit", "get_all", "error"))

	var err error
	Observe("unit", "get_all", time.Now(), &err)
	err = errors.New("boom")
	Observe("unit", "get_all", time.Now(), &err)
	Observe("unit", "get_all", time.Now(), nil)

	assert.Equal(t, okBefore+2, testutil.ToFloat64(metrics.StoreOperations.WithLabelValues("unit", "get_all", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(metrics.StoreOperations.WithLabelValues("unit", "get_all", "error")))
}
