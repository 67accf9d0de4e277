// Package local keeps the saved-property collection in a single JSON document
// behind an injected kv.Store persistence handle.
package local

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"property-browser/internal/common/errors"
	"property-browser/internal/common/logger"
	"property-browser/internal/kv"
	"property-browser/internal/models"
	"property-browser/internal/store"
)

const (
	Backend = "local"

	// DefaultStorageKey is the key the whole collection is stored under.
	DefaultStorageKey = "realestate_saved_properties"
)

// SavedPropertyStore loads lazily on first use. After every mutation the
// full collection is rewritten; if that write fails the in-memory state is
// rolled back so memory and the handle never diverge.
type SavedPropertyStore struct {
	mu     sync.Mutex
	handle kv.Store
	key    string
	seed   []models.SavedProperty
	logger logger.Logger
	now    func() time.Time

	loaded bool
	items  []models.SavedProperty
}

var _ store.SavedPropertyStore = (*SavedPropertyStore)(nil)

type Option func(*SavedPropertyStore)

// WithStorageKey overrides DefaultStorageKey.
func WithStorageKey(key string) Option {
	return func(s *SavedPropertyStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithSeed sets the collection used when the key has never been written.
func WithSeed(seed []models.SavedProperty) Option {
	return func(s *SavedPropertyStore) {
		s.seed = append([]models.SavedProperty(nil), seed...)
	}
}

// WithClock replaces time.Now for SavedDate stamps.
func WithClock(now func() time.Time) Option {
	return func(s *SavedPropertyStore) { s.now = now }
}

func NewSavedPropertyStore(handle kv.Store, log logger.Logger, opts ...Option) *SavedPropertyStore {
	s := &SavedPropertyStore{
		handle: handle,
		key:    DefaultStorageKey,
		logger: logger.ForComponent(log, "local-saved-store"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// load must be called with mu held.
func (s *SavedPropertyStore) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	data, err := s.handle.Get(ctx, s.key)
	switch {
	case stderrors.Is(err, kv.ErrNotFound):
		s.items = append([]models.SavedProperty(nil), s.seed...)
		s.logger.Info("no persisted saved properties, using seed", map[string]interface{}{
			"key":   s.key,
			"count": len(s.items),
		})
	case err != nil:
		return errors.Backend(Backend, "load", err)
	default:
		var items []models.SavedProperty
		if err := json.Unmarshal(data, &items); err != nil {
			return errors.NewBackendFailureError(Backend, "load", fmt.Errorf("decode %s: %w", s.key, err))
		}
		s.items = items
	}

	s.loaded = true
	return nil
}

// commit persists next and installs it. Must be called with mu held.
func (s *SavedPropertyStore) commit(ctx context.Context, op string, next []models.SavedProperty) error {
	if next == nil {
		next = []models.SavedProperty{}
	}
	data, err := json.Marshal(next)
	if err != nil {
		return errors.NewBackendFailureError(Backend, op, err)
	}
	if err := s.handle.Set(ctx, s.key, data); err != nil {
		s.logger.Error("persist saved properties failed, state unchanged", map[string]interface{}{
			"operation": op,
			"error":     err,
		})
		return errors.Backend(Backend, op, err)
	}
	s.items = next
	return nil
}

func (s *SavedPropertyStore) clone() []models.SavedProperty {
	return append([]models.SavedProperty(nil), s.items...)
}

func (s *SavedPropertyStore) indexOfProperty(propertyID int) int {
	for i, item := range s.items {
		if item.PropertyID == propertyID {
			return i
		}
	}
	return -1
}

func (s *SavedPropertyStore) indexOfID(id int) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (s *SavedPropertyStore) nextID() int {
	next := 1
	for _, item := range s.items {
		if item.ID >= next {
			next = item.ID + 1
		}
	}
	return next
}

func (s *SavedPropertyStore) GetAll(ctx context.Context) (saved []models.SavedProperty, err error) {
	defer store.Observe(Backend, "get_all", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.load(ctx); err != nil {
		return nil, err
	}
	out := s.clone()
	if out == nil {
		out = []models.SavedProperty{}
	}
	store.SortRecentlySaved(out)
	return out, nil
}

func (s *SavedPropertyStore) GetByID(ctx context.Context, id int) (saved *models.SavedProperty, err error) {
	defer store.Observe(Backend, "get_by_id", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.load(ctx); err != nil {
		return nil, err
	}
	i := s.indexOfID(id)
	if i < 0 {
		return nil, errors.NewNotFoundError("saved property", id)
	}
	out := s.items[i]
	return &out, nil
}

func (s *SavedPropertyStore) IsSaved(ctx context.Context, propertyID int) (saved bool, err error) {
	defer store.Observe(Backend, "is_saved", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.load(ctx); err != nil {
		return false, err
	}
	return s.indexOfProperty(propertyID) >= 0, nil
}

func (s *SavedPropertyStore) Save(ctx context.Context, propertyID int) (saved *models.SavedProperty, err error) {
	defer store.Observe(Backend, "save", time.Now(), &err)
	return s.save(ctx, "save", propertyID, time.Time{})
}

// Create routes through Save. A non-zero SavedDate is kept; the ID is
// always assigned by the store.
func (s *SavedPropertyStore) Create(ctx context.Context, sp models.SavedProperty) (saved *models.SavedProperty, err error) {
	defer store.Observe(Backend, "create", time.Now(), &err)
	return s.save(ctx, "create", sp.PropertyID, sp.SavedDate)
}

func (s *SavedPropertyStore) save(ctx context.Context, op string, propertyID int, savedDate time.Time) (*models.SavedProperty, error) {
	if propertyID <= 0 {
		return nil, errors.NewValidationError(fmt.Sprintf("propertyId must be positive, got %d", propertyID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	if s.indexOfProperty(propertyID) >= 0 {
		return nil, errors.NewAlreadySavedError(propertyID)
	}

	if savedDate.IsZero() {
		savedDate = s.now().UTC()
	}
	item := models.SavedProperty{
		ID:         s.nextID(),
		PropertyID: propertyID,
		SavedDate:  savedDate,
	}
	if err := s.commit(ctx, op, append(s.clone(), item)); err != nil {
		return nil, err
	}

	s.logger.Info("property saved", map[string]interface{}{
		"propertyId": propertyID,
		"savedId":    item.ID,
	})
	return &item, nil
}

func (s *SavedPropertyStore) Unsave(ctx context.Context, propertyID int) (removed *models.SavedProperty, err error) {
	defer store.Observe(Backend, "unsave", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.load(ctx); err != nil {
		return nil, err
	}
	i := s.indexOfProperty(propertyID)
	if i < 0 {
		return nil, errors.NewNotFoundError("saved property", propertyID)
	}
	item := s.items[i]

	next := append(s.clone()[:i:i], s.items[i+1:]...)
	if err = s.commit(ctx, "unsave", next); err != nil {
		return nil, err
	}

	s.logger.Info("property unsaved", map[string]interface{}{"propertyId": propertyID})
	return &item, nil
}

// Update corrects a bookmark in place. Moving it onto a property that is
// already bookmarked fails with ALREADY_SAVED.
func (s *SavedPropertyStore) Update(ctx context.Context, id int, patch models.SavedPropertyPatch) (updated *models.SavedProperty, err error) {
	defer store.Observe(Backend, "update", time.Now(), &err)

	if patch.PropertyID != nil && *patch.PropertyID <= 0 {
		return nil, errors.NewValidationError(fmt.Sprintf("propertyId must be positive, got %d", *patch.PropertyID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.load(ctx); err != nil {
		return nil, err
	}
	i := s.indexOfID(id)
	if i < 0 {
		return nil, errors.NewNotFoundError("saved property", id)
	}

	item := patch.Apply(s.items[i])
	if j := s.indexOfProperty(item.PropertyID); j >= 0 && j != i {
		return nil, errors.NewAlreadySavedError(item.PropertyID)
	}

	next := s.clone()
	next[i] = item
	if err = s.commit(ctx, "update", next); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *SavedPropertyStore) Delete(ctx context.Context, id int) (err error) {
	defer store.Observe(Backend, "delete", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.load(ctx); err != nil {
		return err
	}
	i := s.indexOfID(id)
	if i < 0 {
		return errors.NewNotFoundError("saved property", id)
	}

	next := append(s.clone()[:i:i], s.items[i+1:]...)
	return s.commit(ctx, "delete", next)
}
