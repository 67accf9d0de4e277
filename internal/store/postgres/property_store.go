package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"property-browser/internal/common/errors"
	"property-browser/internal/common/logger"
	"property-browser/internal/common/validation"
	"property-browser/internal/models"
	"property-browser/internal/store"

	"github.com/lib/pq"
)

const propertyColumns = `id, title, price, address, bedrooms, bathrooms, square_feet,
	property_type, images, description, features, latitude, longitude,
	year_built, listing_date`

const newestFirst = ` ORDER BY listing_date DESC, id ASC`

type PropertyStore struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

var _ store.PropertyStore = (*PropertyStore)(nil)

func NewPropertyStore(db *sql.DB, log logger.Logger) *PropertyStore {
	return &PropertyStore{
		db:     db,
		logger: logger.ForComponent(log, "postgres-property-store"),
		now:    time.Now,
	}
}

func scanProperty(row scanner) (models.Property, error) {
	var (
		p        models.Property
		images   string
		features string
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Price, &p.Address, &p.Bedrooms, &p.Bathrooms, &p.SquareFeet,
		&p.PropertyType, &images, &p.Description, &features, &p.Latitude, &p.Longitude,
		&p.YearBuilt, &p.ListingDate,
	)
	if err != nil {
		return models.Property{}, err
	}
	p.Images = models.SplitList(images)
	p.Features = models.SplitList(features)
	p.ListingDate = p.ListingDate.UTC()
	return p, nil
}

func (s *PropertyStore) query(ctx context.Context, op, query string, args ...interface{}) ([]models.Property, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	props := []models.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		props = append(props, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return props, nil
}

func (s *PropertyStore) GetAll(ctx context.Context) (props []models.Property, err error) {
	defer store.Observe(Backend, "get_all", time.Now(), &err)
	return s.query(ctx, "get_all", `SELECT `+propertyColumns+` FROM properties`+newestFirst)
}

func (s *PropertyStore) GetByID(ctx context.Context, id int) (prop *models.Property, err error) {
	defer store.Observe(Backend, "get_by_id", time.Now(), &err)

	p, err := scanProperty(s.db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("property", id)
	}
	if err != nil {
		return nil, classify("get_by_id", err)
	}
	return &p, nil
}

// escapeLike makes user input literal inside an ILIKE pattern.
var escapeLike = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// BuildWhere compiles a FilterSpec into a WHERE clause and its positional
// arguments. An empty spec yields an empty clause.
func BuildWhere(spec models.FilterSpec) (string, []interface{}) {
	spec = spec.Normalize()

	var (
		clauses []string
		args    []interface{}
	)
	add := func(format string, v interface{}) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}

	if spec.PriceMin != nil {
		add("price >= $%d", *spec.PriceMin)
	}
	if spec.PriceMax != nil {
		add("price <= $%d", *spec.PriceMax)
	}
	if spec.BedroomsMin != nil {
		add("bedrooms >= $%d", *spec.BedroomsMin)
	}
	if spec.BathroomsMin != nil {
		add("bathrooms >= $%d", *spec.BathroomsMin)
	}
	if len(spec.PropertyTypes) > 0 {
		add("property_type = ANY($%d)", pq.Array(spec.PropertyTypes))
	}
	if spec.SquareFeetMin != nil {
		add("square_feet >= $%d", *spec.SquareFeetMin)
	}
	if spec.Query != "" {
		args = append(args, "%"+escapeLike.Replace(spec.Query)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR address ILIKE $%d OR description ILIKE $%d)", n, n, n))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *PropertyStore) Search(ctx context.Context, spec models.FilterSpec) (props []models.Property, err error) {
	defer store.Observe(Backend, "search", time.Now(), &err)

	where, args := BuildWhere(spec)
	return s.query(ctx, "search", `SELECT `+propertyColumns+` FROM properties`+where+newestFirst, args...)
}

func (s *PropertyStore) Create(ctx context.Context, p models.Property) (prop *models.Property, err error) {
	defer store.Observe(Backend, "create", time.Now(), &err)

	if err = validation.ValidateProperty(p); err != nil {
		return nil, err
	}
	if p.ListingDate.IsZero() {
		p.ListingDate = s.now().UTC()
	}

	created, err := scanProperty(s.db.QueryRowContext(ctx, `
		INSERT INTO properties (title, price, address, bedrooms, bathrooms, square_feet,
			property_type, images, description, features, latitude, longitude,
			year_built, listing_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+propertyColumns,
		p.Title, p.Price, p.Address, p.Bedrooms, p.Bathrooms, p.SquareFeet,
		p.PropertyType, models.JoinList(p.Images), p.Description, models.JoinList(p.Features),
		p.Latitude, p.Longitude, p.YearBuilt, p.ListingDate,
	))
	if err != nil {
		return nil, classify("create", err)
	}

	s.logger.Info("property created", map[string]interface{}{"propertyId": created.ID})
	return &created, nil
}

// Update reads the row under FOR UPDATE, applies the patch and validates
// the merged result before writing it back in the same transaction.
func (s *PropertyStore) Update(ctx context.Context, id int, patch models.PropertyPatch) (prop *models.Property, err error) {
	defer store.Observe(Backend, "update", time.Now(), &err)

	if err = validation.ValidatePropertyPatch(patch); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("update", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := scanProperty(tx.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = $1 FOR UPDATE`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("property", id)
	}
	if err != nil {
		return nil, classify("update", err)
	}

	merged := patch.Apply(current)
	if err = validation.ValidateProperty(merged); err != nil {
		return nil, err
	}

	updated, err := scanProperty(tx.QueryRowContext(ctx, `
		UPDATE properties SET title = $2, price = $3, address = $4, bedrooms = $5,
			bathrooms = $6, square_feet = $7, property_type = $8, images = $9,
			description = $10, features = $11, latitude = $12, longitude = $13,
			year_built = $14, listing_date = $15
		WHERE id = $1
		RETURNING `+propertyColumns,
		id, merged.Title, merged.Price, merged.Address, merged.Bedrooms,
		merged.Bathrooms, merged.SquareFeet, merged.PropertyType, models.JoinList(merged.Images),
		merged.Description, models.JoinList(merged.Features), merged.Latitude, merged.Longitude,
		merged.YearBuilt, merged.ListingDate,
	))
	if err != nil {
		return nil, classify("update", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, classify("update", err)
	}
	return &updated, nil
}

func (s *PropertyStore) Delete(ctx context.Context, id int) (err error) {
	defer store.Observe(Backend, "delete", time.Now(), &err)

	res, err := s.db.ExecContext(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return classify("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("delete", err)
	}
	if n == 0 {
		return errors.NewNotFoundError("property", id)
	}

	s.logger.Info("property deleted", map[string]interface{}{"propertyId": id})
	return nil
}
