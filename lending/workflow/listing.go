package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/bookshare/lending/lending"
)

// ListBook offers an unlisted book for requests.
//
// Errors: lending.ErrNotFound, lending.ErrForbidden (caller is not the owner),
// lending.ErrInvalidState (already listed).
func (e *Engine) ListBook(ctx context.Context, bookID uuid.UUID, callerID uuid.UUID) (lending.Book, error) {
	var listed lending.Book

	err := e.execute(ctx, CommandListBook, bookAttrs(bookID, callerID), func(ctx context.Context, stores lending.Stores) error {
		book, err := stores.Books.Get(ctx, bookID)
		if err != nil {
			return err
		}

		if err = decideList(book, callerID); err != nil {
			return err
		}

		listed, err = stores.Books.Update(ctx, bookID, book.Version, func(b *lending.Book) {
			b.Status = lending.StatusAvailable
		})

		return err
	})

	return listed, err
}

// DelistBook withdraws a listed book. A pending request is cancelled: its ledger entry is
// removed and the requester is cleared, in the same transaction.
//
// Errors: lending.ErrNotFound, lending.ErrForbidden, lending.ErrInvalidState (not listed).
func (e *Engine) DelistBook(ctx context.Context, bookID uuid.UUID, callerID uuid.UUID) (lending.Book, error) {
	var delisted lending.Book

	err := e.execute(ctx, CommandDelistBook, bookAttrs(bookID, callerID), func(ctx context.Context, stores lending.Stores) error {
		book, err := stores.Books.Get(ctx, bookID)
		if err != nil {
			return err
		}

		if err = decideDelist(book, callerID); err != nil {
			return err
		}

		pending, err := findPending(ctx, stores.Ledger, bookID)
		if err != nil {
			return err
		}

		if pending.found {
			if err = stores.Ledger.RemoveEntry(ctx, pending.entry.ID); err != nil {
				return err
			}
		}

		delisted, err = stores.Books.Update(ctx, bookID, book.Version, func(b *lending.Book) {
			b.Status = lending.StatusOwn
			b.RequestedByID = lending.NoRequester()
		})

		return err
	})

	return delisted, err
}
