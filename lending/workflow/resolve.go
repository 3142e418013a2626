package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/bookshare/lending/lending"
)

// GrantRequest accepts the pending request of newOwnerID and transfers the book to them.
// The entry is completed and the book becomes owned by newOwnerID, unlisted and unrequested,
// atomically.
//
// Errors: lending.ErrNotFound (no pending request by newOwnerID, also when it was already
// granted), lending.ErrForbidden (caller is not the owner).
func (e *Engine) GrantRequest(
	ctx context.Context,
	bookID uuid.UUID,
	callerID uuid.UUID,
	newOwnerID uuid.UUID,
) (lending.Book, error) {

	attrs := bookAttrs(bookID, callerID)
	attrs[LogAttrNewOwnerID] = newOwnerID.String()

	var granted lending.Book

	err := e.execute(ctx, CommandGrantRequest, attrs, func(ctx context.Context, stores lending.Stores) error {
		book, err := stores.Books.Get(ctx, bookID)
		if err != nil {
			return err
		}

		pending, err := findPending(ctx, stores.Ledger, bookID)
		if err != nil {
			return err
		}

		if err = decideGrant(book, pending, callerID, newOwnerID); err != nil {
			return err
		}

		if err = stores.Ledger.MarkCompleted(ctx, pending.entry.ID); err != nil {
			return err
		}

		granted, err = stores.Books.Update(ctx, bookID, book.Version, func(b *lending.Book) {
			b.OwnerID = newOwnerID
			b.Status = lending.StatusOwn
			b.RequestedByID = lending.NoRequester()
		})

		return err
	})

	return granted, err
}

// RejectRequest declines the pending request of a book. The entry is completed and the
// requester cleared; the book stays listed.
//
// Errors: lending.ErrNotFound, lending.ErrForbidden.
func (e *Engine) RejectRequest(ctx context.Context, bookID uuid.UUID, callerID uuid.UUID) (lending.Book, error) {
	var rejected lending.Book

	err := e.execute(ctx, CommandRejectRequest, bookAttrs(bookID, callerID), func(ctx context.Context, stores lending.Stores) error {
		book, err := stores.Books.Get(ctx, bookID)
		if err != nil {
			return err
		}

		pending, err := findPending(ctx, stores.Ledger, bookID)
		if err != nil {
			return err
		}

		if err = decideReject(book, pending, callerID); err != nil {
			return err
		}

		if err = stores.Ledger.MarkCompleted(ctx, pending.entry.ID); err != nil {
			return err
		}

		rejected, err = stores.Books.Update(ctx, bookID, book.Version, func(b *lending.Book) {
			b.RequestedByID = lending.NoRequester()
		})

		return err
	})

	return rejected, err
}
