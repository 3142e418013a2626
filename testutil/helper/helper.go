package helper

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bookshare/lending/lending"
)

// FixedClock returns a clock that always reports at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func GivenUniqueID(t testing.TB) uuid.UUID {
	id, err := uuid.NewV7()
	require.NoError(t, err, "error in arranging test data")

	return id
}

func FixtureUser(name string) lending.User {
	return lending.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        strings.ToLower(name) + "-" + uuid.NewString()[:8] + "@example.org",
		PasswordHash: "$2a$04$fixturefixturefixturefixturefixturefixturefixturefixt",
	}
}

func FixtureBook(ownerID uuid.UUID) lending.Book {
	return lending.Book{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       "Learning Domain-Driven Design",
		Author:      "Vlad Khononov",
		Condition:   "good",
		Genre:       "software",
		Description: "First Edition, O'Reilly Media",
		Status:      lending.StatusOwn,
	}
}

func GivenUser(t testing.TB, ctx context.Context, store lending.Store, name string) lending.User {
	user, err := store.Stores().Users.Create(ctx, FixtureUser(name))
	require.NoError(t, err, "error in arranging test data")

	return user
}

func GivenBook(t testing.TB, ctx context.Context, store lending.Store, ownerID uuid.UUID) lending.Book {
	book, err := store.Stores().Books.Create(ctx, FixtureBook(ownerID))
	require.NoError(t, err, "error in arranging test data")

	return book
}

func GivenListedBook(t testing.TB, ctx context.Context, store lending.Store, ownerID uuid.UUID) lending.Book {
	fixture := FixtureBook(ownerID)
	fixture.Status = lending.StatusAvailable

	book, err := store.Stores().Books.Create(ctx, fixture)
	require.NoError(t, err, "error in arranging test data")

	return book
}

// GivenRequestedBook creates a listed book with a pending request by requesterID,
// consistent in both the book and the owner's ledger.
func GivenRequestedBook(
	t testing.TB,
	ctx context.Context,
	store lending.Store,
	ownerID uuid.UUID,
	requesterID uuid.UUID,
) (lending.Book, lending.RequestEntry) {

	var (
		book  lending.Book
		entry lending.RequestEntry
	)

	err := store.WithinTx(ctx, func(ctx context.Context, stores lending.Stores) error {
		fixture := FixtureBook(ownerID)
		fixture.Status = lending.StatusAvailable
		fixture.RequestedByID = lending.Requester(requesterID)

		var err error
		if book, err = stores.Books.Create(ctx, fixture); err != nil {
			return err
		}

		entry, err = stores.Ledger.AppendEntry(ctx, lending.RequestEntry{
			OwnerID:       ownerID,
			BookID:        book.ID,
			RequestedByID: requesterID,
			Message:       "may I borrow it?",
		})

		return err
	})
	require.NoError(t, err, "error in arranging test data")

	return book, entry
}
