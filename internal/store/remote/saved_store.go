package remote

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"property-browser/internal/common/errors"
	"property-browser/internal/common/logger"
	"property-browser/internal/models"
	"property-browser/internal/store"
)

// SavedPropertyStore reads and writes the "saved_property" table. The API
// has no uniqueness constraint, so check-then-write is serialised in process.
type SavedPropertyStore struct {
	mu     sync.Mutex
	client *Client
	logger logger.Logger
	now    func() time.Time
}

var _ store.SavedPropertyStore = (*SavedPropertyStore)(nil)

func NewSavedPropertyStore(client *Client, log logger.Logger) *SavedPropertyStore {
	return &SavedPropertyStore{
		client: client,
		logger: logger.ForComponent(log, "remote-saved-store"),
		now:    time.Now,
	}
}

func (s *SavedPropertyStore) fetch(ctx context.Context, where []Condition) ([]models.SavedProperty, error) {
	raws, err := s.client.Fetch(ctx, TableSavedProperty, FetchParams{
		Fields:  Fields(savedPropertyColumns...),
		Where:   where,
		OrderBy: []OrderBy{{FieldName: "saved_date", SortType: "DESC"}},
	})
	if err != nil {
		return nil, err
	}
	saved, err := decodeSavedProperties(raws)
	if err != nil {
		return nil, errors.NewBackendFailureError(Backend, "decode saved properties", err)
	}
	store.SortRecentlySaved(saved)
	return saved, nil
}

func (s *SavedPropertyStore) byProperty(ctx context.Context, propertyID int) (*models.SavedProperty, error) {
	saved, err := s.fetch(ctx, []Condition{{
		FieldName: "property_id",
		Operator:  OpEqualTo,
		Values:    []string{strconv.Itoa(propertyID)},
	}})
	if err != nil {
		return nil, err
	}
	for _, sp := range saved {
		if sp.PropertyID == propertyID {
			return &sp, nil
		}
	}
	return nil, nil
}

func (s *SavedPropertyStore) GetAll(ctx context.Context) (saved []models.SavedProperty, err error) {
	defer store.Observe(Backend, "get_all", time.Now(), &err)
	return s.fetch(ctx, nil)
}

func (s *SavedPropertyStore) GetByID(ctx context.Context, id int) (saved *models.SavedProperty, err error) {
	defer store.Observe(Backend, "get_by_id", time.Now(), &err)

	raw, err := s.client.Get(ctx, TableSavedProperty, id)
	if err != nil {
		if errors.CodeOf(err) == errors.ErrCodeNotFound {
			return nil, errors.NewNotFoundError("saved property", id)
		}
		return nil, err
	}
	sp, err := decodeSavedProperty(raw)
	if err != nil {
		return nil, errors.NewBackendFailureError(Backend, "decode saved property", err)
	}
	return &sp, nil
}

func (s *SavedPropertyStore) IsSaved(ctx context.Context, propertyID int) (saved bool, err error) {
	defer store.Observe(Backend, "is_saved", time.Now(), &err)

	sp, err := s.byProperty(ctx, propertyID)
	if err != nil {
		return false, err
	}
	return sp != nil, nil
}

func (s *SavedPropertyStore) Save(ctx context.Context, propertyID int) (saved *models.SavedProperty, err error) {
	defer store.Observe(Backend, "save", time.Now(), &err)
	return s.save(ctx, propertyID, time.Time{})
}

func (s *SavedPropertyStore) Create(ctx context.Context, sp models.SavedProperty) (saved *models.SavedProperty, err error) {
	defer store.Observe(Backend, "create", time.Now(), &err)
	return s.save(ctx, sp.PropertyID, sp.SavedDate)
}

func (s *SavedPropertyStore) save(ctx context.Context, propertyID int, savedDate time.Time) (*models.SavedProperty, error) {
	if propertyID <= 0 {
		return nil, errors.NewValidationError(fmt.Sprintf("propertyId must be positive, got %d", propertyID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.byProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.NewAlreadySavedError(propertyID)
	}

	if savedDate.IsZero() {
		savedDate = s.now()
	}
	raw, err := s.client.Create(ctx, TableSavedProperty, map[string]interface{}{
		"Name":        fmt.Sprintf("Saved Property %d", propertyID),
		"property_id": propertyID,
		"saved_date":  savedDate.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	sp, err := decodeSavedProperty(raw)
	if err != nil {
		return nil, errors.NewBackendFailureError(Backend, "decode saved property", err)
	}

	s.logger.Info("property saved", map[string]interface{}{"propertyId": propertyID, "savedId": sp.ID})
	return &sp, nil
}

func (s *SavedPropertyStore) Unsave(ctx context.Context, propertyID int) (removed *models.SavedProperty, err error) {
	defer store.Observe(Backend, "unsave", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.byProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errors.NewNotFoundError("saved property", propertyID)
	}
	if err = s.client.Delete(ctx, TableSavedProperty, existing.ID); err != nil {
		return nil, err
	}

	s.logger.Info("property unsaved", map[string]interface{}{"propertyId": propertyID})
	return existing, nil
}

func (s *SavedPropertyStore) Update(ctx context.Context, id int, patch models.SavedPropertyPatch) (updated *models.SavedProperty, err error) {
	defer store.Observe(Backend, "update", time.Now(), &err)

	if patch.PropertyID != nil && *patch.PropertyID <= 0 {
		return nil, errors.NewValidationError(fmt.Sprintf("propertyId must be positive, got %d", *patch.PropertyID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err = s.client.Get(ctx, TableSavedProperty, id); err != nil {
		if errors.CodeOf(err) == errors.ErrCodeNotFound {
			return nil, errors.NewNotFoundError("saved property", id)
		}
		return nil, err
	}

	rec := map[string]interface{}{"Id": id}
	if patch.PropertyID != nil {
		other, err := s.byProperty(ctx, *patch.PropertyID)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != id {
			return nil, errors.NewAlreadySavedError(*patch.PropertyID)
		}
		rec["property_id"] = *patch.PropertyID
	}
	if patch.SavedDate != nil {
		rec["saved_date"] = patch.SavedDate.UTC().Format(time.RFC3339)
	}

	raw, err := s.client.Update(ctx, TableSavedProperty, rec)
	if err != nil {
		return nil, err
	}
	sp, err := decodeSavedProperty(raw)
	if err != nil {
		return nil, errors.NewBackendFailureError(Backend, "decode saved property", err)
	}
	return &sp, nil
}

func (s *SavedPropertyStore) Delete(ctx context.Context, id int) (err error) {
	defer store.Observe(Backend, "delete", time.Now(), &err)

	if _, err = s.client.Get(ctx, TableSavedProperty, id); err != nil {
		if errors.CodeOf(err) == errors.ErrCodeNotFound {
			return errors.NewNotFoundError("saved property", id)
		}
		return err
	}
	return s.client.Delete(ctx, TableSavedProperty, id)
}
