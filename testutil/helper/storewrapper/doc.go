// Package storewrapper creates lending stores for tests, switched by the ENGINE_TYPE environment variable.
//
// Supported values: "sqlite" (default), "pgx.pool", "sql.db" and "sqlx.db". The PostgreSQL engines
// connect to LENDING_POSTGRES_DSN and truncate all tables before handing out the store, so packages
// that share one database must not run in parallel (go test -p 1).
package storewrapper
