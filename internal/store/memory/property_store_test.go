package memory

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"property-browser/internal/common/errors"
	"property-browser/internal/common/logger"
	"property-browser/internal/filter"
	"property-browser/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestStore(t *testing.T) *PropertyStore {
	return NewSeededPropertyStore(logger.NewTestLogger(t))
}

func ids(props []models.Property) []int {
	out := make([]int, len(props))
	for i, p := range props {
		out[i] = p.ID
	}
	return out
}

func validProperty() models.Property {
	return models.Property{
		Title:        "Garden Duplex",
		Price:        410000,
		Address:      "77 Elm St, Austin, TX",
		Bedrooms:     3,
		Bathrooms:    2,
		SquareFeet:   1600,
		PropertyType: "Townhouse",
	}
}

// ==========================
// Reads
// ==========================

func TestPropertyStore_GetAll_NewestFirst(t *testing.T) {
	s := createTestStore(t)

	props, err := s.GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{7, 1, 5, 10, 3, 9, 2, 4, 6, 8}, ids(props))
}

func TestPropertyStore_GetByID(t *testing.T) {
	s := createTestStore(t)

	p, err := s.GetByID(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 890000, p.Price)

	_, err = s.GetByID(context.Background(), 404)
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}

func TestPropertyStore_GetByID_ReturnsCopy(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	p, err := s.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotEmpty(t, p.Images)
	p.Images[0] = "mutated"
	p.Title = "mutated"

	again, err := s.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again.Title)
	assert.NotEqual(t, "mutated", again.Images[0])
}

func TestPropertyStore_Search(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	t.Run("empty spec equals GetAll", func(t *testing.T) {
		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		got, err := s.Search(ctx, models.FilterSpec{})
		require.NoError(t, err)
		assert.Equal(t, ids(all), ids(got))
	})

	t.Run("condos in range newest first", func(t *testing.T) {
		got, err := s.Search(ctx, models.FilterSpec{
			PriceMin:      models.Int(300000),
			PriceMax:      models.Int(600000),
			PropertyTypes: []string{"Condo"},
		})
		require.NoError(t, err)
		assert.Equal(t, []int{7, 1, 9}, ids(got))
	})

	t.Run("sound and complete", func(t *testing.T) {
		spec := models.FilterSpec{BedroomsMin: models.Int(3), Query: "austin"}
		got, err := s.Search(ctx, spec)
		require.NoError(t, err)

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		var want []int
		for _, p := range all {
			if filter.Matches(p, spec) {
				want = append(want, p.ID)
			}
		}
		assert.ElementsMatch(t, want, ids(got))
	})
}

func TestPropertyStore_CancelledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetAll(ctx)
	assert.True(t, stderrors.Is(err, errors.ErrBackendFailure))
}

// ==========================
// Mutations
// ==========================

func TestPropertyStore_Create(t *testing.T) {
	s := createTestStore(t)
	fixed := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	created, err := s.Create(ctx, validProperty())
	require.NoError(t, err)
	assert.Equal(t, 11, created.ID)
	assert.Equal(t, fixed, created.ListingDate)

	got, err := s.GetByID(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, "Garden Duplex", got.Title)

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, all[0].ID, "newest listing comes first")
}

func TestPropertyStore_Create_Validation(t *testing.T) {
	s := createTestStore(t)

	bad := validProperty()
	bad.Title = ""
	bad.Bathrooms = 1.3

	_, err := s.Create(context.Background(), bad)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrValidationFailed))
}

func TestPropertyStore_Update(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	updated, err := s.Update(ctx, 5, models.PropertyPatch{Price: models.Int(240000)})
	require.NoError(t, err)
	assert.Equal(t, 240000, updated.Price)
	assert.Equal(t, 5, updated.ID)
	assert.Equal(t, "Apartment", updated.PropertyType)

	_, err = s.Update(ctx, 99, models.PropertyPatch{Price: models.Int(1)})
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))

	_, err = s.Update(ctx, 5, models.PropertyPatch{Title: models.String("")})
	assert.True(t, stderrors.Is(err, errors.ErrValidationFailed))
}

func TestPropertyStore_Delete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, 2))
	_, err := s.GetByID(ctx, 2)
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))

	err = s.Delete(ctx, 2)
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}

func TestPropertyStore_ConcurrentCreatesGetDistinctIDs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	idsCh := make(chan int, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := s.Create(ctx, validProperty())
			if assert.NoError(t, err) {
				idsCh <- p.ID
			}
		}()
	}
	wg.Wait()
	close(idsCh)

	seen := make(map[int]bool)
	for id := range idsCh {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, 20)
}
