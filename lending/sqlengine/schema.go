package sqlengine

import (
	"context"
	"time"
)

const actionMigrate = "migrate"

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id             UUID PRIMARY KEY,
		owner_id       UUID NOT NULL REFERENCES users (id),
		title          TEXT NOT NULL,
		author         TEXT NOT NULL,
		book_condition TEXT NOT NULL,
		genre          TEXT NOT NULL DEFAULT '',
		description    TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL DEFAULT 'own' CHECK (status IN ('own', 'available')),
		requested_by   UUID NULL REFERENCES users (id),
		version        BIGINT NOT NULL CHECK (version > 0),
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS books_owner_id_idx ON books (owner_id)`,
	`CREATE INDEX IF NOT EXISTS books_requested_by_idx ON books (requested_by)`,
	`CREATE TABLE IF NOT EXISTS request_entries (
		id           UUID PRIMARY KEY,
		owner_id     UUID NOT NULL REFERENCES users (id),
		book_id      UUID NOT NULL REFERENCES books (id),
		requested_by UUID NOT NULL REFERENCES users (id),
		message      TEXT NOT NULL DEFAULT '',
		completed    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS request_entries_owner_id_idx ON request_entries (owner_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS request_entries_one_pending_per_book
		ON request_entries (book_id) WHERE NOT completed`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id             TEXT PRIMARY KEY,
		owner_id       TEXT NOT NULL REFERENCES users (id),
		title          TEXT NOT NULL,
		author         TEXT NOT NULL,
		book_condition TEXT NOT NULL,
		genre          TEXT NOT NULL DEFAULT '',
		description    TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL DEFAULT 'own' CHECK (status IN ('own', 'available')),
		requested_by   TEXT NULL REFERENCES users (id),
		version        INTEGER NOT NULL CHECK (version > 0),
		created_at     DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS books_owner_id_idx ON books (owner_id)`,
	`CREATE INDEX IF NOT EXISTS books_requested_by_idx ON books (requested_by)`,
	`CREATE TABLE IF NOT EXISTS request_entries (
		id           TEXT PRIMARY KEY,
		owner_id     TEXT NOT NULL REFERENCES users (id),
		book_id      TEXT NOT NULL REFERENCES books (id),
		requested_by TEXT NOT NULL REFERENCES users (id),
		message      TEXT NOT NULL DEFAULT '',
		completed    BOOLEAN NOT NULL DEFAULT 0,
		created_at   DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS request_entries_owner_id_idx ON request_entries (owner_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS request_entries_one_pending_per_book
		ON request_entries (book_id) WHERE NOT completed`,
}

var postgresTruncate = []string{
	`TRUNCATE TABLE request_entries, books, users`,
}

var sqliteTruncate = []string{
	`DELETE FROM request_entries`,
	`DELETE FROM books`,
	`DELETE FROM users`,
}

// Migrate creates the tables and indexes if they do not exist yet. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	statements := postgresSchema
	if s.dialect == DialectSQLite {
		statements = sqliteSchema
	}

	start := time.Now()
	if err := s.execStatements(ctx, statements); err != nil {
		return err
	}

	s.logOperation(ctx, logMsgSchemaMigrated,
		logAttrDialect, string(s.dialect),
		logAttrStatementCount, len(statements),
		logAttrDurationMS, toMilliseconds(time.Since(start)),
	)

	return nil
}

// Truncate removes all rows from all tables. Intended for tests and local resets.
func (s *Store) Truncate(ctx context.Context) error {
	statements := postgresTruncate
	if s.dialect == DialectSQLite {
		statements = sqliteTruncate
	}

	return s.execStatements(ctx, statements)
}

// execStatements runs raw DDL/DML statements in one transaction.
func (s *Store) execStatements(ctx context.Context, statements []string) error {
	tx, beginErr := s.db.Begin(ctx)
	if beginErr != nil {
		s.logError(ctx, logMsgBeginTxFailed, beginErr)
		return s.mapError(beginErr)
	}

	for _, statement := range statements {
		start := time.Now()
		_, execErr := tx.Exec(ctx, statement)
		s.logQueryWithDuration(ctx, statement, actionMigrate, time.Since(start))

		if execErr != nil {
			s.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, statement)
			s.rollback(ctx, tx)

			return s.mapError(execErr)
		}
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		s.logError(ctx, logMsgCommitTxFailed, commitErr)
		return s.mapError(commitErr)
	}

	return nil
}
