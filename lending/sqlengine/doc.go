// Package sqlengine provides the SQL implementation of the lending stores.
//
// One Store serves books, request ledgers and users. It runs on PostgreSQL (through a
// pgxpool.Pool, a database/sql DB with lib/pq or an sqlx.DB) or on SQLite through
// mattn/go-sqlite3. All statements are built with goqu for the selected dialect.
//
// Book rows carry a version column. Every update is a compare-and-swap on that version,
// so a writer that read a stale row gets lending.ErrConcurrencyConflict instead of silently
// overwriting a concurrent change. A partial unique index guarantees that at most one
// incomplete request entry exists per book.
//
// Basic usage:
//
//	store, err := sqlengine.NewStoreFromPGXPool(pool, sqlengine.WithLogger(logger))
//	if err != nil { ... }
//	if err := store.Migrate(ctx); err != nil { ... }
//
//	err = store.WithinTx(ctx, func(ctx context.Context, stores lending.Stores) error {
//		book, err := stores.Books.Get(ctx, bookID)
//		...
//	})
package sqlengine
