package sqlengine

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/bookshare/lending/lending"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapError translates driver errors into the lending error taxonomy.
// Unique violations become lending.ErrConflict, dangling references become lending.ErrNotFound,
// and everything else is a lending.ErrStoreFailure. The driver error stays in the chain.
func (s *Store) mapError(err error) error {
	switch classify(err) {
	case pgUniqueViolation:
		return errors.Join(lending.ErrConflict, err)
	case pgForeignKeyViolation:
		return errors.Join(lending.ErrNotFound, err)
	}

	return errors.Join(lending.ErrStoreFailure, err)
}

// classify returns the SQLSTATE-like code of a constraint violation or "" for any other error.
func classify(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return pgUniqueViolation
		case sqlite3.ErrConstraintForeignKey:
			return pgForeignKeyViolation
		}
	}

	return ""
}
