package remote

import (
	"context"
	"strconv"
	"time"

	"property-browser/internal/common/errors"
	"property-browser/internal/common/logger"
	"property-browser/internal/common/validation"
	"property-browser/internal/filter"
	"property-browser/internal/models"
	"property-browser/internal/store"
)

// PropertyStore reads and writes the "property" table.
type PropertyStore struct {
	client *Client
	logger logger.Logger
	now    func() time.Time
}

var _ store.PropertyStore = (*PropertyStore)(nil)

func NewPropertyStore(client *Client, log logger.Logger) *PropertyStore {
	return &PropertyStore{
		client: client,
		logger: logger.ForComponent(log, "remote-property-store"),
		now:    time.Now,
	}
}

func newestFirst() []OrderBy {
	return []OrderBy{{FieldName: "listing_date", SortType: "DESC"}}
}

// searchConditions pushes the numeric and type constraints down to the API.
// The free-text query is evaluated locally because the API only matches it
// against the title.
func searchConditions(spec models.FilterSpec) []Condition {
	var where []Condition
	addInt := func(field, op string, v *int) {
		if v != nil {
			where = append(where, Condition{FieldName: field, Operator: op, Values: []string{strconv.Itoa(*v)}})
		}
	}

	addInt("price", OpGreaterThanOrEqualTo, spec.PriceMin)
	addInt("price", OpLessThanOrEqualTo, spec.PriceMax)
	addInt("bedrooms", OpGreaterThanOrEqualTo, spec.BedroomsMin)
	if spec.BathroomsMin != nil {
		where = append(where, Condition{
			FieldName: "bathrooms",
			Operator:  OpGreaterThanOrEqualTo,
			Values:    []string{strconv.FormatFloat(*spec.BathroomsMin, 'f', -1, 64)},
		})
	}
	if len(spec.PropertyTypes) > 0 {
		where = append(where, Condition{
			FieldName: "property_type",
			Operator:  OpExactMatch,
			Values:    append([]string(nil), spec.PropertyTypes...),
		})
	}
	addInt("square_feet", OpGreaterThanOrEqualTo, spec.SquareFeetMin)
	return where
}

func (s *PropertyStore) fetch(ctx context.Context, where []Condition) ([]models.Property, error) {
	raws, err := s.client.Fetch(ctx, TableProperty, FetchParams{
		Fields:  Fields(propertyColumns...),
		Where:   where,
		OrderBy: newestFirst(),
	})
	if err != nil {
		return nil, err
	}
	props, err := decodeProperties(raws)
	if err != nil {
		return nil, errors.NewBackendFailureError(Backend, "decode properties", err)
	}
	store.SortNewestFirst(props)
	return props, nil
}

func (s *PropertyStore) GetAll(ctx context.Context) (props []models.Property, err error) {
	defer store.Observe(Backend, "get_all", time.Now(), &err)
	return s.fetch(ctx, nil)
}

func (s *PropertyStore) GetByID(ctx context.Context, id int) (prop *models.Property, err error) {
	defer store.Observe(Backend, "get_by_id", time.Now(), &err)

	raw, err := s.client.Get(ctx, TableProperty, id)
	if err != nil {
		if errors.CodeOf(err) == errors.ErrCodeNotFound {
			return nil, errors.NewNotFoundError("property", id)
		}
		return nil, err
	}
	p, err := decodeProperty(raw)
	if err != nil {
		return nil, errors.NewBackendFailureError(Backend, "decode property", err)
	}
	return &p, nil
}

// Search re-applies the full filter to the API result so that matching is
// exact regardless of how the API evaluates its conditions.
func (s *PropertyStore) Search(ctx context.Context, spec models.FilterSpec) (props []models.Property, err error) {
	defer store.Observe(Backend, "search", time.Now(), &err)

	spec = spec.Normalize()
	candidates, err := s.fetch(ctx, searchConditions(spec))
	if err != nil {
		return nil, err
	}
	return filter.Apply(candidates, spec), nil
}

func (s *PropertyStore) Create(ctx context.Context, p models.Property) (prop *models.Property, err error) {
	defer store.Observe(Backend, "create", time.Now(), &err)

	if err = validation.ValidateProperty(p); err != nil {
		return nil, err
	}
	raw, err := s.client.Create(ctx, TableProperty, propertyCreateRecord(p, s.now().UTC()))
	if err != nil {
		return nil, err
	}
	created, err := decodeProperty(raw)
	if err != nil {
		return nil, errors.NewBackendFailureError(Backend, "decode property", err)
	}

	s.logger.Info("property created", map[string]interface{}{"propertyId": created.ID})
	return &created, nil
}

func (s *PropertyStore) Update(ctx context.Context, id int, patch models.PropertyPatch) (prop *models.Property, err error) {
	defer store.Observe(Backend, "update", time.Now(), &err)

	if err = validation.ValidatePropertyPatch(patch); err != nil {
		return nil, err
	}
	if _, err = s.client.Get(ctx, TableProperty, id); err != nil {
		if errors.CodeOf(err) == errors.ErrCodeNotFound {
			return nil, errors.NewNotFoundError("property", id)
		}
		return nil, err
	}

	raw, err := s.client.Update(ctx, TableProperty, propertyPatchRecord(id, patch))
	if err != nil {
		return nil, err
	}
	updated, err := decodeProperty(raw)
	if err != nil {
		return nil, errors.NewBackendFailureError(Backend, "decode property", err)
	}
	return &updated, nil
}

func (s *PropertyStore) Delete(ctx context.Context, id int) (err error) {
	defer store.Observe(Backend, "delete", time.Now(), &err)

	if _, err = s.client.Get(ctx, TableProperty, id); err != nil {
		if errors.CodeOf(err) == errors.ErrCodeNotFound {
			return errors.NewNotFoundError("property", id)
		}
		return err
	}
	if err = s.client.Delete(ctx, TableProperty, id); err != nil {
		return err
	}

	s.logger.Info("property deleted", map[string]interface{}{"propertyId": id})
	return nil
}
