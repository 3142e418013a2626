package config

import (
	"context"
	"fmt"

	"github.com/bookshare/lending/lending/sqlengine"
)

// OpenStore connects to the configured database and returns the store plus a function that
// releases the connection.
func (c Config) OpenStore(ctx context.Context, options ...sqlengine.Option) (*sqlengine.Store, func(), error) {
	switch c.Engine {
	case EngineSQLite:
		db, err := SQLiteDB(ctx, c.SQLitePath)
		if err != nil {
			return nil, nil, err
		}

		store, err := sqlengine.NewStoreFromSQLDB(db, sqlengine.DialectSQLite, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return store, func() { _ = db.Close() }, nil

	case EnginePGXPool:
		pool, err := PostgresPGXPool(ctx, c.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}

		store, err := sqlengine.NewStoreFromPGXPool(pool, options...)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}

		return store, pool.Close, nil

	case EngineSQLDB:
		db, err := PostgresSQLDB(ctx, c.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}

		store, err := sqlengine.NewStoreFromSQLDB(db, sqlengine.DialectPostgres, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return store, func() { _ = db.Close() }, nil

	case EngineSQLXDB:
		db, err := PostgresSQLX(ctx, c.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}

		store, err := sqlengine.NewStoreFromSQLX(db, sqlengine.DialectPostgres, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return store, func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("%w: unsupported engine %q", ErrInvalidConfig, c.Engine)
	}
}
