package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/bookshare/lending/lending"
	"github.com/bookshare/lending/lending/sqlengine/internal/adapters"
)

// Dialect names the SQL flavor a Store speaks.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

const (
	tableUsers          = "users"
	tableBooks          = "books"
	tableRequestEntries = "request_entries"

	colID            = "id"
	colName          = "name"
	colEmail         = "email"
	colPasswordHash  = "password_hash"
	colOwnerID       = "owner_id"
	colTitle         = "title"
	colAuthor        = "author"
	colCondition     = "book_condition"
	colGenre         = "genre"
	colDescription   = "description"
	colStatus        = "status"
	colRequestedBy   = "requested_by"
	colVersion       = "version"
	colBookID        = "book_id"
	colMessage       = "message"
	colCompleted     = "completed"
	colCreatedAt     = "created_at"
	funcLower        = "LOWER"
	likeWildcard     = "%"
	likeEscape       = `\`
	initialVersion   = uint(1)
	txRollbackPrefix = "rollback: "
)

const (
	logMsgBuildQueryFailed    = "failed to build query"
	logMsgDBQueryFailed       = "database query execution failed"
	logMsgDBExecFailed        = "database execution failed"
	logMsgCloseRowsFailed     = "failed to close database rows"
	logMsgScanRowFailed       = "failed to scan database row"
	logMsgRowsAffectedFailed  = "failed to get rows affected count"
	logMsgBeginTxFailed       = "failed to begin transaction"
	logMsgCommitTxFailed      = "failed to commit transaction"
	logMsgRollbackTxFailed    = "failed to roll back transaction"
	logMsgConcurrencyConflict = "concurrency conflict detected"
	logMsgSchemaMigrated      = "schema migrated"
	logMsgSQLExecuted         = "executed sql for: "
	logMsgOperation           = "lending store operation: "
	logAttrError              = "error"
	logAttrQuery              = "query"
	logAttrDurationMS         = "duration_ms"
	logAttrBookID             = "book_id"
	logAttrExpectedVersion    = "expected_version"
	logAttrActualVersion      = "actual_version"
	logAttrDialect            = "dialect"
	logAttrStatementCount     = "statement_count"
)

const (
	metricStoreDuration        = "lending_store_operation_duration_seconds"
	metricStoreErrors          = "lending_store_errors_total"
	metricConcurrencyConflicts = "lending_store_concurrency_conflicts_total"
	labelAction                = "action"
	labelStatus                = "status"
	statusSuccess              = "success"
	statusError                = "error"
)

// Store implements lending.Store on top of a SQL database.
type Store struct {
	db               adapters.DBAdapter
	dialect          Dialect
	builder          goqu.DialectWrapper
	logger           lending.Logger
	contextualLogger lending.ContextualLogger
	metricsCollector lending.MetricsCollector
}

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithLogger sets the logger for the Store.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: concurrency conflicts, migrations (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger lending.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger; it takes precedence over the plain Logger.
func WithContextualLogger(logger lending.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
func WithMetrics(collector lending.MetricsCollector) Option {
	return func(s *Store) error {
		s.metricsCollector = collector
		return nil
	}
}

// NewStoreFromPGXPool creates a new PostgreSQL Store using a pgx Pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, lending.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), DialectPostgres, options)
}

// NewStoreFromSQLDB creates a new Store using a sql.DB opened for the given dialect.
func NewStoreFromSQLDB(db *sql.DB, dialect Dialect, options ...Option) (*Store, error) {
	if db == nil {
		return nil, lending.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), dialect, options)
}

// NewStoreFromSQLX creates a new Store using a sqlx.DB opened for the given dialect.
func NewStoreFromSQLX(db *sqlx.DB, dialect Dialect, options ...Option) (*Store, error) {
	if db == nil {
		return nil, lending.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), dialect, options)
}

func newStore(db adapters.DBAdapter, dialect Dialect, options []Option) (*Store, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, errors.Join(lending.ErrUnsupportedDialect, errors.New(string(dialect)))
	}

	s := &Store{
		db:      db,
		dialect: dialect,
		builder: goqu.Dialect(string(dialect)),
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Dialect returns the SQL dialect of the Store.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Stores returns stores that run each statement on its own, outside any transaction.
func (s *Store) Stores() lending.Stores {
	return s.storesFor(s.db)
}

// WithinTx runs fn in one database transaction.
// The transaction commits if fn returns nil and rolls back otherwise, also when fn panics.
func (s *Store) WithinTx(ctx context.Context, fn lending.TxFunc) error {
	tx, beginErr := s.db.Begin(ctx)
	if beginErr != nil {
		s.logError(ctx, logMsgBeginTxFailed, beginErr)
		return s.mapError(beginErr)
	}

	committed := false
	defer func() {
		if !committed {
			s.rollback(ctx, tx)
		}
	}()

	if err := fn(ctx, s.storesFor(tx)); err != nil {
		return err
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		s.logError(ctx, logMsgCommitTxFailed, commitErr)
		return s.mapError(commitErr)
	}
	committed = true

	return nil
}

func (s *Store) rollback(ctx context.Context, tx adapters.DBTx) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, sql.ErrTxDone) && !errors.Is(err, pgx.ErrTxClosed) {
		s.logWarn(ctx, logMsgRollbackTxFailed, logAttrError, txRollbackPrefix+err.Error())
	}
}

func (s *Store) storesFor(q adapters.Querier) lending.Stores {
	sess := session{store: s, q: q}

	return lending.Stores{
		Books:  bookRepository{sess},
		Ledger: ledgerRepository{sess},
		Users:  userRepository{sess},
	}
}

// now is the timestamp used for rows created without an explicit CreatedAt.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
