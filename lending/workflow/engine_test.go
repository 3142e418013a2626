package workflow_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bookshare/lending/lending"
	"github.com/bookshare/lending/lending/workflow"
	. "github.com/bookshare/lending/testutil/helper"
	"github.com/bookshare/lending/testutil/helper/storewrapper"
)

func givenEngine(t *testing.T, options ...workflow.Option) (*workflow.Engine, lending.Store) {
	t.Helper()

	store := storewrapper.CreateWrapperWithTestConfig(t).GetStore()

	engine, err := workflow.NewEngine(store, append([]workflow.Option{workflow.WithBcryptCost(bcrypt.MinCost)}, options...)...)
	require.NoError(t, err, "error creating engine")

	return engine, store
}

func assertConsistent(t *testing.T, engine *workflow.Engine) {
	t.Helper()

	violations, err := engine.AuditInvariants(context.Background())
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func Test_NewEngine_WithoutStore_Fails(t *testing.T) {
	// act
	_, err := workflow.NewEngine(nil)

	// assert
	assert.ErrorIs(t, err, lending.ErrNilStore)
}

func Test_NewEngine_WithInvalidOptions_Fails(t *testing.T) {
	// arrange
	store := storewrapper.CreateWrapperWithTestConfig(t).GetStore()

	// act
	_, costErr := workflow.NewEngine(store, workflow.WithBcryptCost(bcrypt.MaxCost+1))
	_, clockErr := workflow.NewEngine(store, workflow.WithClock(nil))

	// assert
	assert.Error(t, costErr)
	assert.Error(t, clockErr)
}

func Test_Lending_ListRequestGrant_TransfersOwnership(t *testing.T) {
	// arrange
	ctx := context.Background()
	engine, store := givenEngine(t)
	owner := GivenUser(t, ctx, store, "Olga")
	reader := GivenUser(t, ctx, store, "Ulf")
	book := GivenBook(t, ctx, store, owner.ID)

	// act
	listed, listErr := engine.ListBook(ctx, book.ID, owner.ID)
	entry, requestErr := engine.RequestBook(ctx, book.ID, reader.ID, "may I borrow it?")
	ledgerBeforeGrant, ledgerErr := engine.IncomingRequests(ctx, owner.ID)
	granted, grantErr := engine.GrantRequest(ctx, book.ID, owner.ID, reader.ID)

	// assert
	require.NoError(t, listErr)
	require.NoError(t, requestErr)
	require.NoError(t, ledgerErr)
	require.NoError(t, grantErr)

	assert.Equal(t, lending.StatusAvailable, listed.Status)
	assert.Equal(t, owner.ID, entry.OwnerID)
	assert.Equal(t, reader.ID, entry.RequestedByID)
	require.Len(t, ledgerBeforeGrant, 1)
	assert.Equal(t, entry.ID, ledgerBeforeGrant[0].ID)
	assert.False(t, ledgerBeforeGrant[0].Completed)

	assert.Equal(t, reader.ID, granted.OwnerID)
	assert.Equal(t, lending.StatusOwn, granted.Status)
	assert.False(t, granted.IsRequested())

	ledgerAfterGrant, err := engine.IncomingRequests(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, ledgerAfterGrant, 1)
	assert.True(t, ledgerAfterGrant[0].Completed)

	readerLedger, err := engine.IncomingRequests(ctx, reader.ID)
	require.NoError(t, err)
	assert.Empty(t, readerLedger)

	assertConsistent(t, engine)
}

func Test_Lending_RequestAfterGrant_IsInvalidState(t *testing.T) {
	// arrange
	ctx := context.Background()
	engine, store := givenEngine(t)
	owner := GivenUser(t, ctx, store, "Olga")
	reader := GivenUser(t, ctx, store, "Ulf")
	stranger := GivenUser(t, ctx, store, "Sven")
	book, _ := GivenRequestedBook(t, ctx, store, owner.ID, reader.ID)
	_, err := engine.GrantRequest(ctx, book.ID, owner.ID, reader.ID)
	require.NoError(t, err, "error in arranging test data")

	// act
	_, strangerErr := engine.RequestBook(ctx, book.ID, stranger.ID, "")
	_, formerOwnerErr := engine.RequestBook(ctx, book.ID, owner.ID, "")

	// assert
	assert.ErrorIs(t, strangerErr, lending.ErrInvalidState)
	assert.ErrorIs(t, formerOwnerErr, lending.ErrInvalidState)
	assertConsistent(t, engine)
}

func Test_Lending_GrantTwice_IsNotFound(t *testing.T) {
	// arrange
	ctx := context.Background()
	engine, store := givenEngine(t)
	owner := GivenUser(t, ctx, store, "Olga")
	reader := GivenUser(t, ctx, store, "Ulf")
	book, _ := GivenRequestedBook(t, ctx, store, owner.ID, reader.ID)
	_, err := engine.GrantRequest(ctx, book.ID, owner.ID, reader.ID)
	require.NoError(t, err, "error in arranging test data")

	// act
	_, err = engine.GrantRequest(ctx, book.ID, owner.ID, reader.ID)

	// assert
	assert.ErrorIs(t, err, lending.ErrNotFound)
	assert.Equal(t, lending.OutcomeNotFound, lending.OutcomeOf(err))
	assertConsistent(t, engine)
}

func Test_Lending_Grant_ForAnotherUser_IsNotFound(t *testing.T) {
	// arrange
	ctx := context.Background()
	engine, store := givenEngine(t)
	owner := GivenUser(t, ctx, store, "Olga")
	reader := GivenUser(t, ctx, store, "Ulf")
	stranger := GivenUser(t, ctx, store, "Sven")
	book, _ := GivenRequestedBook(t, ctx, store, owner.ID, reader.ID)

	// act
	_, err := engine.GrantRequest(ctx, book.ID, owner.ID, stranger.ID)

	// assert
	assert.ErrorIs(t, err, lending.ErrNotFound)
	unchanged, getErr := engine.GetBook(ctx, book.ID)
	require.NoError(t, getErr)
	assert.Equal(t, owner.ID, unchanged.OwnerID)
	assert.True(t, unchanged.IsRequestedBy(reader.ID))
}

func Test_Lending_ConcurrentRequests_ExactlyOneWins(t *testing.T) {
	// arrange
	ctx := context.Background()
	engine, store := givenEngine(t)
	owner := GivenUser(t, ctx, store, "Olga")
	book := GivenListedBook(t, ctx, store, owner.ID)

	const contenders = 4
	requesters := make([]lending.User, contenders)
	for i := range requesters {
		requesters[i] = GivenUser(t, ctx, store, "Reader")
	}

	errs := make([]error, contenders)
	start := make(chan struct{})
	var wg sync.WaitGroup

	// act
	for i := range requesters {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = engine.RequestBook(ctx, book.ID, requesters[i].ID, "")
		}(i)
	}
	close(start)
	wg.Wait()

	// assert
	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}

		assert.ErrorIs(t, err, lending.ErrConflict)
	}

	assert.Equal(t, 1, successes)

	ledger, err := engine.IncomingRequests(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	stored, err := engine.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsRequestedBy(ledger[0].RequestedByID))
	assertConsistent(t, engine)
}

func Test_Lending_ConcurrentGrantAndReject_ExactlyOneWins(t *testing.T) {
	// arrange
	ctx := context.Background()
	engine, store := givenEngine(t)
	owner := GivenUser(t, ctx, store, "Olga")
	reader := GivenUser(t, ctx, store, "Ulf")
	book, entry := GivenRequestedBook(t, ctx, store, owner.ID, reader.ID)

	const contenders = 6
	errs := make([]error, contenders)
	start := make(chan struct{})
	var wg sync.WaitGroup

	// act
	for i := range contenders {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			if i%2 == 0 {
				_, errs[i] = engine.GrantRequest(ctx, book.ID, owner.ID, reader.ID)
			} else {
				_, errs[i] = engine.RejectRequest(ctx, book.ID, owner.ID)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	// assert
	winner := -1
	for i, err := range errs {
		if err == nil {
			assert.Equal(t, -1, winner, "only one grant or reject may succeed")
			winner = i
			continue
		}

		assert.ErrorIs(t, err, lending.ErrNotFound)
	}
	require.NotEqual(t, -1, winner, "one grant or reject must succeed")

	stored, err := engine.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsRequested())

	if winner%2 == 0 {
		assert.Equal(t, reader.ID, stored.OwnerID)
		assert.Equal(t, lending.StatusOwn, stored.Status)
	} else {
		assert.Equal(t, owner.ID, stored.OwnerID)
		assert.Equal(t, lending.StatusAvailable, stored.Status)
	}

	ledger, err := engine.IncomingRequests(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, entry.ID, ledger[0].ID)
	assert.True(t, ledger[0].Completed)
	assertConsistent(t, engine)
}

func Test_Lending_ConcurrentDelistAndRequest_LeaveNoPendingRequest(t *testing.T) {
	// arrange
	ctx := context.Background()
	engine, store := givenEngine(t)
	owner := GivenUser(t, ctx, store, "Olga")
	reader := GivenUser(t, ctx, store, "Ulf")
	book := GivenListedBook(t, ctx, store, owner.ID)

	var delistErr, requestErr error
	start := make(chan struct{})
	var wg sync.WaitGroup

	// act
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		_, delistErr = engine.DelistBook(ctx, book.ID, owner.ID)
	}()
	go func() {
		defer wg.Done()
		<-start
		_, requestErr = engine.RequestBook(ctx, book.ID, reader.ID, "")
	}()
	close(start)
	wg.Wait()

	// assert
	require.NoError(t, delistErr, "delisting cancels a pending request, so it never loses")
	if requestErr != nil {
		assert.ErrorIs(t, requestErr, lending.ErrInvalidState)
	}

	stored, err := engine.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, lending.StatusOwn, stored.Status)
	assert.False(t, stored.IsRequested())

	ledger, err := engine.IncomingRequests(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, ledger, "a cancelled request is removed from the ledger")
	assertConsistent(t, engine)
}

func Test_Lending_RequestBook_Failures(t *testing.T) {
	ctx := context.Background()
	engine, store := givenEngine(t)
	owner := GivenUser(t, ctx, store, "Olga")
	reader := GivenUser(t, ctx, store, "Ulf")
	stranger := GivenUser(t, ctx, store, "Sven")
	unlisted := GivenBook(t, ctx, store, owner.ID)
	listed := GivenListedBook(t, ctx, store, owner.ID)
	requested, _ := GivenRequestedBook(t, ctx, store, owner.ID, reader.ID)

	testCases := []struct {
		name        string
		bookID      uuid.UUID
		requesterID uuid.UUID
		wantErr     error
	}{
		{name: "unknown book", bookID: GivenUniqueID(t), requesterID: reader.ID, wantErr: lending.ErrNotFound},
		{name: "unknown requester", bookID: listed.ID, requesterID: GivenUniqueID(t), wantErr: lending.ErrNotFound},
		{name: "own book", bookID: listed.ID, requesterID: owner.ID, wantErr: lending.ErrForbidden},
		{name: "already requested", bookID: requested.ID, requesterID: stranger.ID, wantErr: lending.ErrConflict},
		{name: "requested again by the same user", bookID: requested.ID, requesterID: reader.ID, wantErr: lending.ErrConflict},
		{name: "not listed", bookID: unlisted.ID, requesterID: reader.ID, wantErr: lending.ErrInvalidState},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, err := engine.RequestBook(ctx, tc.bookID, tc.requesterID, "")

			// assert
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	assertConsistent(t, engine)
}

func Test_Lending_ListAndDelist_Failures(t *testing.T) {
	// arrange
	ctx := context.Background()
	engine, store := givenEngine(t)
	owner := GivenUser(t, ctx, store, "Olga")
	stranger := GivenUser(t, ctx, store, "Sven")
	unlisted := GivenBook(t, ctx, store, owner.ID)
	listed := GivenListedBook(t, ctx, store, owner.ID)

	// act
	_, listUnknownErr := engine.ListBook(ctx, GivenUniqueID(t), owner.ID)
	_, listForeignErr := engine.ListBook(ctx, unlisted.ID, stranger.ID)
	_, listTwiceErr := engine.ListBook(ctx, listed.ID, owner.ID)
	_, delistForeignErr := engine.DelistBook(ctx, listed.ID, stranger.ID)
	_, delistUnlistedErr := engine.DelistBook(ctx, unlisted.ID, owner.ID)

	// assert
	assert.ErrorIs(t, listUnknownErr, lending.ErrNotFound)
	assert.ErrorIs(t, listForeignErr, lending.ErrForbidden)
	assert.ErrorIs(t, listTwiceErr, lending.ErrInvalidState)
	assert.ErrorIs(t, delistForeignErr, lending.ErrForbidden)
	assert.ErrorIs(t, delistUnlistedErr, lending.ErrInvalidState)
}

func Test_Lending_Reject_KeepsBookListedAndClearsRequester(t *testing.T) {
	// arrange
	ctx := context.Background()
	engine, store := givenEngine(t)
	owner := GivenUser(t, ctx, store, "Olga")
	reader := GivenUser(t, ctx, store, "Ulf")
	book, entry := GivenRequestedBook(t, ctx, store, owner.ID, reader.ID)

	// act
	rejected, err := engine.RejectRequest(ctx, book.ID, owner.ID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, lending.StatusAvailable, rejected.Status)
	assert.False(t, rejected.IsRequested())
	assert.Equal(t, owner.ID, rejected.OwnerID)

	ledger, err := engine.IncomingRequests(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, entry.ID, ledger[0].ID)
	assert.True(t, ledger[0].Completed)

	_, err = engine.RequestBook(ctx, book.ID, reader.ID, "second try")
	assert.NoError(t, err)
	assertConsistent(t, engine)
}

func Test_Lending_Reject_Failures(t *testing.T) {
	// arrange
	ctx := context.Background()
	engine, store := givenEngine(t)
	owner := GivenUser(t, ctx, store, "Olga")
	reader := GivenUser(t, ctx, store, "Ulf")
	listed := GivenListedBook(t, ctx, store, owner.ID)
	requested, _ := GivenRequestedBook(t, ctx, store, owner.ID, reader.ID)

	// act
	_, foreignErr := engine.RejectRequest(ctx, requested.ID, reader.ID)
	_, noRequestErr := engine.RejectRequest(ctx, listed.ID, owner.ID)
	_, unknownErr := engine.RejectRequest(ctx, GivenUniqueID(t), owner.ID)

	// assert
	assert.ErrorIs(t, foreignErr, lending.ErrForbidden)
	assert.ErrorIs(t, noRequestErr, lending.ErrNotFound)
	assert.ErrorIs(t, unknownErr, lending.ErrNotFound)
	assertConsistent(t, engine)
}

func Test_Lending_Delist_CancelsPendingRequest(t *testing.T) {
	// arrange
	ctx := context.Background()
	engine, store := givenEngine(t)
	owner := GivenUser(t, ctx, store, "Olga")
	reader := GivenUser(t, ctx, store, "Ulf")
	book, _ := GivenRequestedBook(t, ctx, store, owner.ID, reader.ID)

	// act
	delisted, err := engine.DelistBook(ctx, book.ID, owner.ID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, lending.StatusOwn, delisted.Status)
	assert.False(t, delisted.IsRequested())

	ledger, err := engine.IncomingRequests(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, ledger)

	requestedByReader, err := engine.BooksRequestedBy(ctx, reader.ID)
	require.NoError(t, err)
	assert.Empty(t, requestedByReader)
	assertConsistent(t, engine)
}

func Test_Lending_DeleteBook_RemovesLedgerEntries(t *testing.T) {
	// arrange
	ctx := context.Background()
	engine, store := givenEngine(t)
	owner := GivenUser(t, ctx, store, "Olga")
	reader := GivenUser(t, ctx, store, "Ulf")
	book, _ := GivenRequestedBook(t, ctx, store, owner.ID, reader.ID)

	// act
	foreignErr := engine.DeleteBook(ctx, book.ID, reader.ID)
	err := engine.DeleteBook(ctx, book.ID, owner.ID)

	// assert
	assert.ErrorIs(t, foreignErr, lending.ErrForbidden)
	require.NoError(t, err)

	_, getErr := engine.GetBook(ctx, book.ID)
	assert.ErrorIs(t, getErr, lending.ErrNotFound)

	ledger, ledgerErr := engine.IncomingRequests(ctx, owner.ID)
	require.NoError(t, ledgerErr)
	assert.Empty(t, ledger)

	assert.ErrorIs(t, engine.DeleteBook(ctx, book.ID, owner.ID), lending.ErrNotFound)
	assertConsistent(t, engine)
}

func Test_Lending_AddBook(t *testing.T) {
	// arrange
	ctx := context.Background()
	createdAt := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	engine, store := givenEngine(t, workflow.WithClock(FixedClock(createdAt)))
	owner := GivenUser(t, ctx, store, "Olga")

	// act
	book, err := engine.AddBook(ctx, workflow.NewBook{
		OwnerID:   owner.ID,
		Title:     "The Go Programming Language",
		Author:    "Alan Donovan",
		Condition: "like new",
		Genre:     "programming",
	})

	// assert
	require.NoError(t, err)
	assert.Equal(t, lending.StatusOwn, book.Status)
	assert.False(t, book.IsRequested())
	assert.True(t, createdAt.Equal(book.CreatedAt))

	owned, err := engine.BooksOwnedBy(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, book.ID, owned[0].ID)
}

func Test_Lending_AddBook_Failures(t *testing.T) {
	ctx := context.Background()
	engine, store := givenEngine(t)
	owner := GivenUser(t, ctx, store, "Olga")

	testCases := []struct {
		name    string
		input   workflow.NewBook
		wantErr error
	}{
		{name: "missing title", input: workflow.NewBook{OwnerID: owner.ID, Author: "A", Condition: "good"}, wantErr: lending.ErrInvalidInput},
		{name: "missing owner", input: workflow.NewBook{Title: "T", Author: "A", Condition: "good"}, wantErr: lending.ErrInvalidInput},
		{name: "unknown owner", input: workflow.NewBook{OwnerID: GivenUniqueID(t), Title: "T", Author: "A", Condition: "good"}, wantErr: lending.ErrNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, err := engine.AddBook(ctx, tc.input)

			// assert
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func Test_Lending_RegisterUser(t *testing.T) {
	// arrange
	ctx := context.Background()
	engine, _ := givenEngine(t)

	// act
	user, err := engine.RegisterUser(ctx, workflow.NewUser{Name: " Olga ", Email: "Olga@Example.org", Password: "correct horse"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, "Olga", user.Name)
	assert.Equal(t, "olga@example.org", user.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse")))

	_, duplicateErr := engine.RegisterUser(ctx, workflow.NewUser{Name: "Other", Email: "OLGA@example.org", Password: "another secret"})
	assert.ErrorIs(t, duplicateErr, lending.ErrConflict)
}

func Test_Lending_RegisterUser_InvalidInput(t *testing.T) {
	ctx := context.Background()
	engine, _ := givenEngine(t)

	testCases := []struct {
		name  string
		input workflow.NewUser
	}{
		{name: "missing name", input: workflow.NewUser{Email: "a@example.org", Password: "long enough"}},
		{name: "malformed email", input: workflow.NewUser{Name: "A", Email: "not-an-email", Password: "long enough"}},
		{name: "short password", input: workflow.NewUser{Name: "A", Email: "a@example.org", Password: "short"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, err := engine.RegisterUser(ctx, tc.input)

			// assert
			assert.ErrorIs(t, err, lending.ErrInvalidInput)
		})
	}
}

func Test_Lending_Queries(t *testing.T) {
	// arrange
	ctx := context.Background()
	engine, store := givenEngine(t)
	owner := GivenUser(t, ctx, store, "Olga")
	reader := GivenUser(t, ctx, store, "Ulf")
	unlisted := GivenBook(t, ctx, store, owner.ID)
	listed := GivenListedBook(t, ctx, store, owner.ID)
	requested, _ := GivenRequestedBook(t, ctx, store, owner.ID, reader.ID)

	// act
	views, browseErr := engine.BrowseBooks(ctx, reader.ID)
	available, availableErr := engine.AvailableBooks(ctx)
	requestedByReader, requestedErr := engine.BooksRequestedBy(ctx, reader.ID)
	found, searchErr := engine.SearchBooks(ctx, "author", "KHONONOV")
	_, unknownOwnerErr := engine.IncomingRequests(ctx, GivenUniqueID(t))

	// assert
	require.NoError(t, browseErr)
	require.NoError(t, availableErr)
	require.NoError(t, requestedErr)
	require.NoError(t, searchErr)
	assert.ErrorIs(t, unknownOwnerErr, lending.ErrNotFound)

	flags := make(map[uuid.UUID]bool, len(views))
	for _, view := range views {
		flags[view.ID] = view.IsRequestedByCaller
	}
	assert.Equal(t, map[uuid.UUID]bool{unlisted.ID: false, listed.ID: false, requested.ID: true}, flags)

	assert.Len(t, available, 2)
	require.Len(t, requestedByReader, 1)
	assert.Equal(t, requested.ID, requestedByReader[0].ID)
	assert.Len(t, found, 3)
}

func Test_Lending_IncomingRequests_PendingFirstThenNewestFirst(t *testing.T) {
	// arrange
	ctx := context.Background()
	clock := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	engine, store := givenEngine(t, workflow.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	owner := GivenUser(t, ctx, store, "Olga")
	reader := GivenUser(t, ctx, store, "Ulf")
	first := GivenListedBook(t, ctx, store, owner.ID)
	second := GivenListedBook(t, ctx, store, owner.ID)
	third := GivenListedBook(t, ctx, store, owner.ID)

	firstEntry, err := engine.RequestBook(ctx, first.ID, reader.ID, "")
	require.NoError(t, err, "error in arranging test data")
	secondEntry, err := engine.RequestBook(ctx, second.ID, reader.ID, "")
	require.NoError(t, err, "error in arranging test data")
	thirdEntry, err := engine.RequestBook(ctx, third.ID, reader.ID, "")
	require.NoError(t, err, "error in arranging test data")
	_, err = engine.RejectRequest(ctx, third.ID, owner.ID)
	require.NoError(t, err, "error in arranging test data")

	// act
	ledger, err := engine.IncomingRequests(ctx, owner.ID)

	// assert
	require.NoError(t, err)
	require.Len(t, ledger, 3)
	assert.Equal(t, []uuid.UUID{secondEntry.ID, firstEntry.ID, thirdEntry.ID},
		[]uuid.UUID{ledger[0].ID, ledger[1].ID, ledger[2].ID})
}

func Test_Lending_IncomingRequestDetails_AddsBookTitleAndRequesterName(t *testing.T) {
	// arrange
	ctx := context.Background()
	engine, store := givenEngine(t)
	owner := GivenUser(t, ctx, store, "Olga")
	reader := GivenUser(t, ctx, store, "Ulf")
	other := GivenUser(t, ctx, store, "Sven")
	requested, entry := GivenRequestedBook(t, ctx, store, owner.ID, reader.ID)
	rejected, rejectedEntry := GivenRequestedBook(t, ctx, store, owner.ID, other.ID)
	_, err := engine.RejectRequest(ctx, rejected.ID, owner.ID)
	require.NoError(t, err, "error in arranging test data")

	// act
	views, err := engine.IncomingRequestDetails(ctx, owner.ID)
	_, unknownOwnerErr := engine.IncomingRequestDetails(ctx, GivenUniqueID(t))

	// assert
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, entry.ID, views[0].ID)
	assert.False(t, views[0].Completed)
	assert.Equal(t, requested.Title, views[0].BookTitle)
	assert.Equal(t, "Ulf", views[0].RequesterName)
	assert.Equal(t, rejectedEntry.ID, views[1].ID)
	assert.True(t, views[1].Completed)
	assert.Equal(t, "Sven", views[1].RequesterName)
	assert.ErrorIs(t, unknownOwnerErr, lending.ErrNotFound)
}

func Test_Lending_Observability(t *testing.T) {
	// arrange
	ctx := context.Background()
	logHandler := NewTestLogHandler(false)
	metrics := NewMetricsCollectorSpy()
	tracing := NewTracingCollectorSpy()
	engine, store := givenEngine(t,
		workflow.WithLogger(slog.New(logHandler)),
		workflow.WithMetrics(metrics),
		workflow.WithTracing(tracing),
	)
	owner := GivenUser(t, ctx, store, "Olga")
	stranger := GivenUser(t, ctx, store, "Sven")
	book := GivenBook(t, ctx, store, owner.ID)

	// act
	_, okErr := engine.ListBook(ctx, book.ID, owner.ID)
	_, failedErr := engine.DelistBook(ctx, book.ID, stranger.ID)

	// assert
	require.NoError(t, okErr)
	require.ErrorIs(t, failedErr, lending.ErrForbidden)

	assert.True(t, logHandler.HasDebugLogWithMessage(workflow.LogMsgCommandStarted).
		WithAttr(workflow.LogAttrCommandType, workflow.CommandListBook).
		WithAttr(workflow.LogAttrBookID, book.ID.String()).
		Assert())
	assert.True(t, logHandler.HasInfoLogWithMessage(workflow.LogMsgCommandCompleted).
		WithAttr(workflow.LogAttrCommandType, workflow.CommandListBook).
		WithAttr(workflow.LogAttrOutcome, "ok").
		WithDurationMS().
		Assert())
	assert.True(t, logHandler.HasWarnLogWithMessage(workflow.LogMsgCommandFailed).
		WithAttr(workflow.LogAttrCommandType, workflow.CommandDelistBook).
		WithAttr(workflow.LogAttrOutcome, "forbidden").
		WithAttrKey(workflow.LogAttrError).
		Assert())

	assert.Equal(t, 1, metrics.CounterCount(workflow.MetricCommandCalls,
		map[string]string{workflow.LogAttrCommandType: workflow.CommandListBook, workflow.LogAttrOutcome: "ok"}))
	assert.Equal(t, 1, metrics.DurationCount(workflow.MetricCommandDuration,
		map[string]string{workflow.LogAttrCommandType: workflow.CommandDelistBook, workflow.LogAttrOutcome: "forbidden"}))

	spans := tracing.GetSpanRecords()
	require.Len(t, spans, 2)
	assert.Equal(t, workflow.SpanNamePrefix+workflow.CommandListBook, spans[0].Name)
	assert.Equal(t, book.ID.String(), spans[0].StartAttributes[workflow.LogAttrBookID])
	assert.True(t, spans[0].Finished)
	assert.Equal(t, "OK", spans[0].Status)
	assert.Equal(t, "ERROR", spans[1].Status)
	assert.Equal(t, "forbidden", spans[1].EndAttributes[workflow.LogAttrOutcome])
}
