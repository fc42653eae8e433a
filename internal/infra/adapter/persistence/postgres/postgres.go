// Package postgres implements the engine's repositories on PostgreSQL through
// database/sql and the pgx stdlib driver.
//
// Every table carries a tenant column; each query is scoped to one tenant.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"notify-engine/internal/observability/metrics"
	"notify-engine/internal/repository"
)

// pgUndefinedTable is the SQLSTATE raised for a missing relation.
const pgUndefinedTable = "42P01"

// queryer is satisfied by *sql.DB and *circuitbreaker.DBCircuitBreaker.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// IsUndefinedTable reports whether err is PostgreSQL's "relation does not exist".
func IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}

// wrapErr prefixes err with op and maps undefined-table errors to
// repository.ErrTableNotFound.
func wrapErr(op string, err error) error {
	if IsUndefinedTable(err) {
		return fmt.Errorf("%s: %w: %w", op, repository.ErrTableNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// timed runs fn and records its duration under operation.
func timed(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordDBQuery(operation, time.Since(start), err)
	return err
}
