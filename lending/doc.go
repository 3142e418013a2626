// Package lending provides the core types and contracts for a book lending and
// ownership-transfer workflow.
//
// Owners list books they own, other users request a listed book, and the owner either
// grants the pending request (which transfers ownership) or rejects it. This package
// defines the data model shared by the store engines and the workflow engine:
//
//   - Book: a physical book with an owner, a listing status and an optional requester
//   - RequestEntry: one incoming request in an owner's request ledger
//   - User: a participant that can own and request books
//
// It also defines the store contracts (BookStore, LedgerStore, UserStore, Transactor),
// the sentinel error taxonomy used across all packages, and the observability interfaces
// that the engines accept via functional options.
//
// Common usage pattern:
//
//	store, _ := sqlengine.NewStoreFromPGXPool(pool)
//	engine, _ := workflow.NewEngine(store)
//
//	book, err := engine.RequestBook(ctx, bookID, callerID, "would love to read this")
//	switch lending.OutcomeOf(err) {
//	case lending.OutcomeConflict:
//		// somebody else was faster
//	}
package lending
