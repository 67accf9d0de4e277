package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"property-browser/internal/common/errors"
	"property-browser/internal/common/logger"
	"property-browser/internal/models"
	"property-browser/internal/store"
)

const savedColumns = `id, property_id, saved_date`

// SavedPropertyStore relies on the UNIQUE(property_id) constraint, so
// concurrent saves of the same property resolve in the database.
type SavedPropertyStore struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

var _ store.SavedPropertyStore = (*SavedPropertyStore)(nil)

func NewSavedPropertyStore(db *sql.DB, log logger.Logger) *SavedPropertyStore {
	return &SavedPropertyStore{
		db:     db,
		logger: logger.ForComponent(log, "postgres-saved-store"),
		now:    time.Now,
	}
}

func scanSaved(row scanner) (models.SavedProperty, error) {
	var sp models.SavedProperty
	if err := row.Scan(&sp.ID, &sp.PropertyID, &sp.SavedDate); err != nil {
		return models.SavedProperty{}, err
	}
	sp.SavedDate = sp.SavedDate.UTC()
	return sp, nil
}

func (s *SavedPropertyStore) GetAll(ctx context.Context) (saved []models.SavedProperty, err error) {
	defer store.Observe(Backend, "get_all", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+savedColumns+` FROM saved_properties ORDER BY saved_date DESC, id ASC`)
	if err != nil {
		return nil, classify("get_all", err)
	}
	defer rows.Close()

	saved = []models.SavedProperty{}
	for rows.Next() {
		sp, err := scanSaved(rows)
		if err != nil {
			return nil, classify("get_all", err)
		}
		saved = append(saved, sp)
	}
	if err = rows.Err(); err != nil {
		return nil, classify("get_all", err)
	}
	return saved, nil
}

func (s *SavedPropertyStore) GetByID(ctx context.Context, id int) (saved *models.SavedProperty, err error) {
	defer store.Observe(Backend, "get_by_id", time.Now(), &err)

	sp, err := scanSaved(s.db.QueryRowContext(ctx,
		`SELECT `+savedColumns+` FROM saved_properties WHERE id = $1`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("saved property", id)
	}
	if err != nil {
		return nil, classify("get_by_id", err)
	}
	return &sp, nil
}

func (s *SavedPropertyStore) IsSaved(ctx context.Context, propertyID int) (saved bool, err error) {
	defer store.Observe(Backend, "is_saved", time.Now(), &err)

	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM saved_properties WHERE property_id = $1)`, propertyID).Scan(&saved)
	if err != nil {
		return false, classify("is_saved", err)
	}
	return saved, nil
}

func (s *SavedPropertyStore) Save(ctx context.Context, propertyID int) (saved *models.SavedProperty, err error) {
	defer store.Observe(Backend, "save", time.Now(), &err)
	return s.insert(ctx, "save", propertyID, time.Time{})
}

func (s *SavedPropertyStore) Create(ctx context.Context, sp models.SavedProperty) (saved *models.SavedProperty, err error) {
	defer store.Observe(Backend, "create", time.Now(), &err)
	return s.insert(ctx, "create", sp.PropertyID, sp.SavedDate)
}

func (s *SavedPropertyStore) insert(ctx context.Context, op string, propertyID int, savedDate time.Time) (*models.SavedProperty, error) {
	if propertyID <= 0 {
		return nil, errors.NewValidationError(fmt.Sprintf("propertyId must be positive, got %d", propertyID))
	}
	if savedDate.IsZero() {
		savedDate = s.now().UTC()
	}

	sp, err := scanSaved(s.db.QueryRowContext(ctx,
		`INSERT INTO saved_properties (property_id, saved_date) VALUES ($1, $2) RETURNING `+savedColumns,
		propertyID, savedDate))
	if isUniqueViolation(err) {
		return nil, errors.NewAlreadySavedError(propertyID)
	}
	if err != nil {
		return nil, classify(op, err)
	}

	s.logger.Info("property saved", map[string]interface{}{"propertyId": propertyID, "savedId": sp.ID})
	return &sp, nil
}

func (s *SavedPropertyStore) Unsave(ctx context.Context, propertyID int) (removed *models.SavedProperty, err error) {
	defer store.Observe(Backend, "unsave", time.Now(), &err)

	sp, err := scanSaved(s.db.QueryRowContext(ctx,
		`DELETE FROM saved_properties WHERE property_id = $1 RETURNING `+savedColumns, propertyID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("saved property", propertyID)
	}
	if err != nil {
		return nil, classify("unsave", err)
	}

	s.logger.Info("property unsaved", map[string]interface{}{"propertyId": propertyID})
	return &sp, nil
}

func (s *SavedPropertyStore) Update(ctx context.Context, id int, patch models.SavedPropertyPatch) (updated *models.SavedProperty, err error) {
	defer store.Observe(Backend, "update", time.Now(), &err)

	if patch.PropertyID != nil && *patch.PropertyID <= 0 {
		return nil, errors.NewValidationError(fmt.Sprintf("propertyId must be positive, got %d", *patch.PropertyID))
	}

	var (
		propertyID sql.NullInt64
		savedDate  sql.NullTime
	)
	if patch.PropertyID != nil {
		propertyID = sql.NullInt64{Int64: int64(*patch.PropertyID), Valid: true}
	}
	if patch.SavedDate != nil {
		savedDate = sql.NullTime{Time: patch.SavedDate.UTC(), Valid: true}
	}

	sp, err := scanSaved(s.db.QueryRowContext(ctx, `
		UPDATE saved_properties
		SET property_id = COALESCE($2, property_id), saved_date = COALESCE($3, saved_date)
		WHERE id = $1
		RETURNING `+savedColumns,
		id, propertyID, savedDate))
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, errors.NewNotFoundError("saved property", id)
	case isUniqueViolation(err) && patch.PropertyID != nil:
		return nil, errors.NewAlreadySavedError(*patch.PropertyID)
	case err != nil:
		return nil, classify("update", err)
	}
	return &sp, nil
}

func (s *SavedPropertyStore) Delete(ctx context.Context, id int) (err error) {
	defer store.Observe(Backend, "delete", time.Now(), &err)

	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_properties WHERE id = $1`, id)
	if err != nil {
		return classify("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("delete", err)
	}
	if n == 0 {
		return errors.NewNotFoundError("saved property", id)
	}
	return nil
}
