// Package workflow implements the lending workflow engine.
//
// The Engine enforces the book state machine (list, delist, request, grant, reject) and keeps a
// book and the request ledger consistent: every mutating operation reads the current state,
// decides with a pure function and applies all changes in one store transaction. Book updates
// are optimistic; a lost version race is retried a bounded number of times with exponential
// backoff, after which the caller gets lending.ErrConflict.
//
// Errors returned by the Engine wrap the sentinels of package lending; use lending.OutcomeOf to
// map them to a result tag.
package workflow
