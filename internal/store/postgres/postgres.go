// Package postgres stores properties and saved properties in PostgreSQL
// using the tables created by database.Schema.
package postgres

import (
	stderrors "errors"

	"property-browser/internal/common/errors"

	"github.com/lib/pq"
)

const Backend = "postgres"

const uniqueViolation = "23505"

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// classify maps a driver error onto the backend error taxonomy.
func classify(op string, err error) error {
	return errors.Backend(Backend, op, err)
}
