package lending

import (
	"context"

	"github.com/google/uuid"
)

// BookMutator changes a book in place as part of BookStore.Update.
type BookMutator func(book *Book)

// BookStore persists book records.
type BookStore interface {
	Get(ctx context.Context, bookID uuid.UUID) (Book, error)
	Create(ctx context.Context, book Book) (Book, error)

	// Update applies mutate to the stored book and writes it back guarded by a version check.
	// It fails with ErrConcurrencyConflict if the stored version is not expectedVersion
	// (unless expectedVersion is AnyVersion) or if the row changed between read and write.
	Update(ctx context.Context, bookID uuid.UUID, expectedVersion uint, mutate BookMutator) (Book, error)
	Delete(ctx context.Context, bookID uuid.UUID, expectedVersion uint) error

	ListByOwner(ctx context.Context, ownerID uuid.UUID) (Books, error)
	ListRequestedBy(ctx context.Context, userID uuid.UUID) (Books, error)
	ListAvailable(ctx context.Context) (Books, error)
	ListAll(ctx context.Context) (Books, error)
	Search(ctx context.Context, field string, pattern string) (Books, error)
}

// LedgerStore persists request entries, each belonging to the ledger of one owner.
type LedgerStore interface {
	AppendEntry(ctx context.Context, entry RequestEntry) (RequestEntry, error)
	FindIncompleteEntry(ctx context.Context, ownerID uuid.UUID, bookID uuid.UUID) (RequestEntry, error)
	FindIncompleteEntryAnyOwner(ctx context.Context, bookID uuid.UUID) (RequestEntry, error)

	// MarkCompleted flips an incomplete entry to completed. It returns ErrNotFound
	// if there is no such entry or it was already completed.
	MarkCompleted(ctx context.Context, entryID uuid.UUID) error
	RemoveEntry(ctx context.Context, entryID uuid.UUID) error
	RemoveEntriesForBook(ctx context.Context, ownerID uuid.UUID, bookID uuid.UUID) (int64, error)
	RemoveAllEntriesForBook(ctx context.Context, bookID uuid.UUID) (int64, error)

	// ListForOwner returns the ledger of ownerID, incomplete entries first, each group newest first.
	ListForOwner(ctx context.Context, ownerID uuid.UUID) (RequestEntries, error)
	ListIncomplete(ctx context.Context) (RequestEntries, error)
}

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, user User) (User, error)
	Get(ctx context.Context, userID uuid.UUID) (User, error)
}

// Stores bundles the stores that take part in one transaction.
type Stores struct {
	Books  BookStore
	Ledger LedgerStore
	Users  UserStore
}

// TxFunc is the unit of work executed by a Transactor.
type TxFunc func(ctx context.Context, stores Stores) error

// Transactor runs a unit of work atomically across all stores.
// If fn returns an error, every change made through the supplied stores is rolled back.
type Transactor interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// Store is the complete persistence collaborator of the workflow engine.
// The stores returned by Stores operate outside any transaction and are meant for reads.
type Store interface {
	Transactor
	Stores() Stores
}
