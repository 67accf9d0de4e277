// Package memory is the mock property backend: an in-process collection
// seeded from the embedded fixtures.
package memory

import (
	"context"
	"sync"
	"time"

	"property-browser/internal/common/errors"
	"property-browser/internal/common/logger"
	"property-browser/internal/common/validation"
	"property-browser/internal/filter"
	"property-browser/internal/models"
	"property-browser/internal/store"
	"property-browser/internal/store/fixtures"
)

const Backend = "mock"

// PropertyStore is safe for concurrent use. Every check-then-write runs under
// a single lock.
type PropertyStore struct {
	mu     sync.RWMutex
	props  map[int]models.Property
	logger logger.Logger
	now    func() time.Time
}

var _ store.PropertyStore = (*PropertyStore)(nil)

// NewPropertyStore returns a store holding a copy of seed.
func NewPropertyStore(seed []models.Property, log logger.Logger) *PropertyStore {
	props := make(map[int]models.Property, len(seed))
	for _, p := range seed {
		props[p.ID] = p.Clone()
	}
	return &PropertyStore{
		props:  props,
		logger: logger.ForComponent(log, "memory-property-store"),
		now:    time.Now,
	}
}

// NewSeededPropertyStore returns a store holding the fixture listings.
func NewSeededPropertyStore(log logger.Logger) *PropertyStore {
	return NewPropertyStore(fixtures.Properties(), log)
}

func (s *PropertyStore) snapshot() []models.Property {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Property, 0, len(s.props))
	for _, p := range s.props {
		out = append(out, p.Clone())
	}
	store.SortNewestFirst(out)
	return out
}

func (s *PropertyStore) GetAll(ctx context.Context) (props []models.Property, err error) {
	defer store.Observe(Backend, "get_all", time.Now(), &err)
	if err = ctx.Err(); err != nil {
		return nil, errors.Backend(Backend, "get_all", err)
	}
	return s.snapshot(), nil
}

func (s *PropertyStore) GetByID(ctx context.Context, id int) (prop *models.Property, err error) {
	defer store.Observe(Backend, "get_by_id", time.Now(), &err)
	if err = ctx.Err(); err != nil {
		return nil, errors.Backend(Backend, "get_by_id", err)
	}

	s.mu.RLock()
	p, ok := s.props[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError("property", id)
	}
	out := p.Clone()
	return &out, nil
}

func (s *PropertyStore) Search(ctx context.Context, spec models.FilterSpec) (props []models.Property, err error) {
	defer store.Observe(Backend, "search", time.Now(), &err)
	if err = ctx.Err(); err != nil {
		return nil, errors.Backend(Backend, "search", err)
	}
	return filter.Apply(s.snapshot(), spec), nil
}

// Create assigns max(ID)+1 and defaults ListingDate to now.
func (s *PropertyStore) Create(ctx context.Context, p models.Property) (prop *models.Property, err error) {
	defer store.Observe(Backend, "create", time.Now(), &err)
	if err = ctx.Err(); err != nil {
		return nil, errors.Backend(Backend, "create", err)
	}
	if err = validation.ValidateProperty(p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := 1
	for id := range s.props {
		if id >= next {
			next = id + 1
		}
	}
	p = p.Clone()
	p.ID = next
	if p.ListingDate.IsZero() {
		p.ListingDate = s.now().UTC()
	}
	s.props[p.ID] = p

	s.logger.Info("property created", map[string]interface{}{"propertyId": p.ID})
	out := p.Clone()
	return &out, nil
}

func (s *PropertyStore) Update(ctx context.Context, id int, patch models.PropertyPatch) (prop *models.Property, err error) {
	defer store.Observe(Backend, "update", time.Now(), &err)
	if err = ctx.Err(); err != nil {
		return nil, errors.Backend(Backend, "update", err)
	}
	if err = validation.ValidatePropertyPatch(patch); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.props[id]
	if !ok {
		return nil, errors.NewNotFoundError("property", id)
	}
	updated := patch.Apply(current)
	updated.ID = id
	if err = validation.ValidateProperty(updated); err != nil {
		return nil, err
	}
	s.props[id] = updated

	out := updated.Clone()
	return &out, nil
}

func (s *PropertyStore) Delete(ctx context.Context, id int) (err error) {
	defer store.Observe(Backend, "delete", time.Now(), &err)
	if err = ctx.Err(); err != nil {
		return errors.Backend(Backend, "delete", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.props[id]; !ok {
		return errors.NewNotFoundError("property", id)
	}
	delete(s.props, id)

	s.logger.Info("property deleted", map[string]interface{}{"propertyId": id})
	return nil
}
