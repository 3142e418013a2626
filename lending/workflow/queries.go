package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/bookshare/lending/lending"
)

// BookView is a book as seen by a browsing user.
type BookView struct {
	lending.Book
	IsRequestedByCaller bool `json:"isRequestedByCaller"`
}

// RequestView is a ledger entry with the title of its book and the name of its requester.
type RequestView struct {
	lending.RequestEntry
	BookTitle     string `json:"bookTitle"`
	RequesterName string `json:"requesterName"`
}

// GetBook returns one book.
func (e *Engine) GetBook(ctx context.Context, bookID uuid.UUID) (lending.Book, error) {
	return e.store.Stores().Books.Get(ctx, bookID)
}

// IncomingRequests returns the ledger of ownerID: pending requests first, then resolved ones,
// each group newest first.
func (e *Engine) IncomingRequests(ctx context.Context, ownerID uuid.UUID) (lending.RequestEntries, error) {
	stores := e.store.Stores()

	if _, err := stores.Users.Get(ctx, ownerID); err != nil {
		return nil, err
	}

	entries, err := stores.Ledger.ListForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return lending.SortLedger(entries), nil
}

// IncomingRequestDetails returns the same ledger as IncomingRequests, each entry joined with the
// title of its book and the name of its requester. All reads share one transaction.
func (e *Engine) IncomingRequestDetails(ctx context.Context, ownerID uuid.UUID) ([]RequestView, error) {
	var views []RequestView

	err := e.store.WithinTx(ctx, func(ctx context.Context, stores lending.Stores) error {
		if _, err := stores.Users.Get(ctx, ownerID); err != nil {
			return err
		}

		entries, err := stores.Ledger.ListForOwner(ctx, ownerID)
		if err != nil {
			return err
		}

		titles := make(map[uuid.UUID]string)
		names := make(map[uuid.UUID]string)
		views = make([]RequestView, 0, len(entries))

		for _, entry := range lending.SortLedger(entries) {
			if _, ok := titles[entry.BookID]; !ok {
				book, getErr := stores.Books.Get(ctx, entry.BookID)
				if getErr != nil {
					return getErr
				}
				titles[entry.BookID] = book.Title
			}

			if _, ok := names[entry.RequestedByID]; !ok {
				requester, getErr := stores.Users.Get(ctx, entry.RequestedByID)
				if getErr != nil {
					return getErr
				}
				names[entry.RequestedByID] = requester.Name
			}

			views = append(views, RequestView{
				RequestEntry:  entry,
				BookTitle:     titles[entry.BookID],
				RequesterName: names[entry.RequestedByID],
			})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return views, nil
}

// BooksOwnedBy returns all books of userID.
func (e *Engine) BooksOwnedBy(ctx context.Context, userID uuid.UUID) (lending.Books, error) {
	return e.store.Stores().Books.ListByOwner(ctx, userID)
}

// BooksRequestedBy returns the books userID currently has an outstanding request for.
func (e *Engine) BooksRequestedBy(ctx context.Context, userID uuid.UUID) (lending.Books, error) {
	return e.store.Stores().Books.ListRequestedBy(ctx, userID)
}

// AvailableBooks returns all listed books.
func (e *Engine) AvailableBooks(ctx context.Context) (lending.Books, error) {
	return e.store.Stores().Books.ListAvailable(ctx)
}

// BrowseBooks returns all books, each flagged whether callerID has requested it.
func (e *Engine) BrowseBooks(ctx context.Context, callerID uuid.UUID) ([]BookView, error) {
	books, err := e.store.Stores().Books.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]BookView, 0, len(books))
	for _, book := range books {
		views = append(views, BookView{Book: book, IsRequestedByCaller: book.IsRequestedBy(callerID)})
	}

	return views, nil
}

// SearchBooks returns books whose title, author or genre contains pattern, ignoring case.
func (e *Engine) SearchBooks(ctx context.Context, field string, pattern string) (lending.Books, error) {
	return e.store.Stores().Books.Search(ctx, field, pattern)
}
