package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/bookshare/lending/lending"
)

// RequestBook records a request by requesterID for a listed book. The entry is appended to the
// ledger of the current owner and the book is marked as requested, atomically.
//
// Errors: lending.ErrNotFound (book or requester), lending.ErrForbidden (own book),
// lending.ErrConflict (already requested, also when another request won a race),
// lending.ErrInvalidState (not listed).
func (e *Engine) RequestBook(
	ctx context.Context,
	bookID uuid.UUID,
	requesterID uuid.UUID,
	message string,
) (lending.RequestEntry, error) {

	var appended lending.RequestEntry

	err := e.execute(ctx, CommandRequestBook, bookAttrs(bookID, requesterID), func(ctx context.Context, stores lending.Stores) error {
		book, err := stores.Books.Get(ctx, bookID)
		if err != nil {
			return err
		}

		if _, err = stores.Users.Get(ctx, requesterID); err != nil {
			return err
		}

		if err = decideRequest(book, requesterID); err != nil {
			return err
		}

		if _, err = stores.Books.Update(ctx, bookID, book.Version, func(b *lending.Book) {
			b.RequestedByID = lending.Requester(requesterID)
		}); err != nil {
			return err
		}

		appended, err = stores.Ledger.AppendEntry(ctx, lending.RequestEntry{
			ID:            uuid.New(),
			OwnerID:       book.OwnerID,
			BookID:        bookID,
			RequestedByID: requesterID,
			Message:       message,
			CreatedAt:     e.now(),
		})

		return err
	})

	return appended, err
}
