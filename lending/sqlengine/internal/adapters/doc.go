// Package adapters provide database adapter implementations for the SQL lending store.
//
// The adapters support pgx.Pool, sql.DB and sqlx.DB behind one DBAdapter interface, so the
// store works the same with any of them. Each adapter can also open a transaction whose
// handle offers the same Query/Exec surface as the adapter itself.
package adapters
