package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bookshare/lending/lending"
)

// NewBook is the input of AddBook.
type NewBook struct {
	OwnerID     uuid.UUID `validate:"required"`
	Title       string    `validate:"required,max=500"`
	Author      string    `validate:"required,max=300"`
	Condition   string    `validate:"required,max=100"`
	Genre       string    `validate:"max=100"`
	Description string    `validate:"max=5000"`
}

// AddBook creates an unlisted book owned by an existing user.
//
// Errors: lending.ErrInvalidInput (missing owner, title, author or condition),
// lending.ErrNotFound (owner does not exist).
func (e *Engine) AddBook(ctx context.Context, input NewBook) (lending.Book, error) {
	if err := e.validate.StructCtx(ctx, input); err != nil {
		return lending.Book{}, fmt.Errorf("%w: %w", lending.ErrInvalidInput, err)
	}

	attrs := map[string]string{LogAttrCallerID: input.OwnerID.String()}

	var created lending.Book

	err := e.execute(ctx, CommandAddBook, attrs, func(ctx context.Context, stores lending.Stores) error {
		if _, err := stores.Users.Get(ctx, input.OwnerID); err != nil {
			return err
		}

		var err error
		created, err = stores.Books.Create(ctx, lending.Book{
			ID:          uuid.New(),
			OwnerID:     input.OwnerID,
			Title:       input.Title,
			Author:      input.Author,
			Condition:   input.Condition,
			Genre:       input.Genre,
			Description: input.Description,
			Status:      lending.StatusOwn,
			CreatedAt:   e.now(),
		})

		return err
	})

	return created, err
}

// DeleteBook removes a book and every ledger entry that refers to it, in all ledgers.
//
// Errors: lending.ErrNotFound, lending.ErrForbidden.
func (e *Engine) DeleteBook(ctx context.Context, bookID uuid.UUID, callerID uuid.UUID) error {
	return e.execute(ctx, CommandDeleteBook, bookAttrs(bookID, callerID), func(ctx context.Context, stores lending.Stores) error {
		book, err := stores.Books.Get(ctx, bookID)
		if err != nil {
			return err
		}

		if err = decideDelete(book, callerID); err != nil {
			return err
		}

		if _, err = stores.Ledger.RemoveAllEntriesForBook(ctx, bookID); err != nil {
			return err
		}

		return stores.Books.Delete(ctx, bookID, book.Version)
	})
}
