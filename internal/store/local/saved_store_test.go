package local

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"property-browser/internal/common/errors"
	"property-browser/internal/common/logger"
	"property-browser/internal/kv"
	"property-browser/internal/models"
	"property-browser/internal/store/fixtures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var testNow = time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)

func createTestStore(t *testing.T, handle kv.Store, opts ...Option) *SavedPropertyStore {
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewSavedPropertyStore(handle, logger.NewTestLogger(t), opts...)
}

// flakyKV fails Set while failWrites is true.
type flakyKV struct {
	*kv.Memory
	mu         sync.Mutex
	failWrites bool
	failReads  bool
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	fail := f.failReads
	f.mu.Unlock()
	if fail {
		return nil, stderrors.New("disk unavailable")
	}
	return f.Memory.Get(ctx, key)
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	fail := f.failWrites
	f.mu.Unlock()
	if fail {
		return stderrors.New("disk full")
	}
	return f.Memory.Set(ctx, key, value)
}

func propertyIDs(saved []models.SavedProperty) []int {
	out := make([]int, len(saved))
	for i, s := range saved {
		out[i] = s.PropertyID
	}
	return out
}

// ==========================
// Loading and seeding
// ==========================

func TestSavedStore_SeedsWhenKeyAbsent(t *testing.T) {
	s := createTestStore(t, kv.NewMemory(), WithSeed(fixtures.SavedProperties()))

	all, err := s.GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 7}, propertyIDs(all), "most recently saved first")
}

func TestSavedStore_EmptyWithoutSeed(t *testing.T) {
	s := createTestStore(t, kv.NewMemory())

	all, err := s.GetAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestSavedStore_LoadsPersistedState(t *testing.T) {
	handle := kv.NewMemory()
	payload, _ := json.Marshal([]models.SavedProperty{{ID: 4, PropertyID: 9, SavedDate: testNow}})
	require.NoError(t, handle.Set(context.Background(), "custom", payload))

	s := createTestStore(t, handle, WithStorageKey("custom"), WithSeed(fixtures.SavedProperties()))
	saved, err := s.IsSaved(context.Background(), 9)
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = s.IsSaved(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, saved, "seed is ignored once the key exists")
}

func TestSavedStore_CorruptPayload(t *testing.T) {
	handle := kv.NewMemory()
	require.NoError(t, handle.Set(context.Background(), DefaultStorageKey, []byte("{not json")))

	s := createTestStore(t, handle)
	_, err := s.GetAll(context.Background())
	assert.True(t, stderrors.Is(err, errors.ErrBackendFailure))
}

func TestSavedStore_ReadFailure(t *testing.T) {
	handle := &flakyKV{Memory: kv.NewMemory(), failReads: true}
	s := createTestStore(t, handle)

	_, err := s.IsSaved(context.Background(), 1)
	assert.True(t, stderrors.Is(err, errors.ErrBackendFailure))
}

func TestSavedStore_SurvivesRestart(t *testing.T) {
	handle, err := kv.NewFile(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first := createTestStore(t, handle, WithSeed(fixtures.SavedProperties()))
	_, err = first.Save(ctx, 5)
	require.NoError(t, err)
	_, err = first.Unsave(ctx, 7)
	require.NoError(t, err)

	second := createTestStore(t, handle, WithSeed(fixtures.SavedProperties()))
	all, err := second.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 2}, propertyIDs(all))
}

// ==========================
// Save / Unsave
// ==========================

func TestSavedStore_SaveThenIsSaved(t *testing.T) {
	s := createTestStore(t, kv.NewMemory(), WithSeed(fixtures.SavedProperties()))
	ctx := context.Background()

	saved, err := s.Save(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, saved.ID)
	assert.Equal(t, 4, saved.PropertyID)
	assert.Equal(t, testNow, saved.SavedDate)

	ok, err := s.IsSaved(ctx, 4)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Save(ctx, 4)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrAlreadySaved))
	assert.Contains(t, err.Error(), "Property already saved")
}

func TestSavedStore_SaveInvalidID(t *testing.T) {
	s := createTestStore(t, kv.NewMemory())
	_, err := s.Save(context.Background(), 0)
	assert.True(t, stderrors.Is(err, errors.ErrValidationFailed))
}

func TestSavedStore_UnsaveNeverSaved(t *testing.T) {
	s := createTestStore(t, kv.NewMemory())
	_, err := s.Unsave(context.Background(), 3)
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}

func TestSavedStore_SaveThenUnsaveRestoresState(t *testing.T) {
	s := createTestStore(t, kv.NewMemory(), WithSeed(fixtures.SavedProperties()))
	ctx := context.Background()

	before, err := s.GetAll(ctx)
	require.NoError(t, err)

	_, err = s.Save(ctx, 10)
	require.NoError(t, err)
	removed, err := s.Unsave(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, removed.PropertyID)

	after, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSavedStore_ConcurrentSaveSameProperty(t *testing.T) {
	s := createTestStore(t, kv.NewMemory())
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Save(ctx, 8)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if stderrors.Is(err, errors.ErrAlreadySaved) {
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 15, dupes)
}

// ==========================
// Persistence failures
// ==========================

func TestSavedStore_FailedPersistRollsBack(t *testing.T) {
	handle := &flakyKV{Memory: kv.NewMemory()}
	s := createTestStore(t, handle, WithSeed(fixtures.SavedProperties()))
	ctx := context.Background()

	handle.failWrites = true
	_, err := s.Save(ctx, 3)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrBackendFailure))

	_, err = s.Unsave(ctx, 2)
	require.Error(t, err)

	handle.failWrites = false
	ok, err := s.IsSaved(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.IsSaved(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSavedStore_WritesFullCollection(t *testing.T) {
	handle := kv.NewMemory()
	s := createTestStore(t, handle, WithSeed(fixtures.SavedProperties()))
	ctx := context.Background()

	_, err := s.Save(ctx, 1)
	require.NoError(t, err)

	raw, err := handle.Get(ctx, DefaultStorageKey)
	require.NoError(t, err)
	var persisted []models.SavedProperty
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.ElementsMatch(t, []int{2, 7, 1}, propertyIDs(persisted))
}

// ==========================
// Admin operations
// ==========================

func TestSavedStore_CreateRoutesThroughSave(t *testing.T) {
	s := createTestStore(t, kv.NewMemory(), WithSeed(fixtures.SavedProperties()))
	ctx := context.Background()
	when := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	created, err := s.Create(ctx, models.SavedProperty{ID: 99, PropertyID: 6, SavedDate: when})
	require.NoError(t, err)
	assert.Equal(t, 3, created.ID)
	assert.Equal(t, when, created.SavedDate)

	_, err = s.Create(ctx, models.SavedProperty{PropertyID: 6})
	assert.True(t, stderrors.Is(err, errors.ErrAlreadySaved))
}

func TestSavedStore_Update(t *testing.T) {
	s := createTestStore(t, kv.NewMemory(), WithSeed(fixtures.SavedProperties()))
	ctx := context.Background()

	updated, err := s.Update(ctx, 1, models.SavedPropertyPatch{PropertyID: models.Int(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.PropertyID)

	_, err = s.Update(ctx, 1, models.SavedPropertyPatch{PropertyID: models.Int(7)})
	assert.True(t, stderrors.Is(err, errors.ErrAlreadySaved))

	_, err = s.Update(ctx, 1, models.SavedPropertyPatch{PropertyID: models.Int(3)})
	assert.NoError(t, err, "keeping the same property is not a duplicate")

	_, err = s.Update(ctx, 42, models.SavedPropertyPatch{})
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}

func TestSavedStore_GetByIDAndDelete(t *testing.T) {
	s := createTestStore(t, kv.NewMemory(), WithSeed(fixtures.SavedProperties()))
	ctx := context.Background()

	got, err := s.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 7, got.PropertyID)

	require.NoError(t, s.Delete(ctx, 2))
	_, err = s.GetByID(ctx, 2)
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
	assert.True(t, stderrors.Is(s.Delete(ctx, 2), errors.ErrNotFound))
}
