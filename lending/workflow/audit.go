package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bookshare/lending/lending"
)

// ViolationKind classifies an inconsistency between books and ledgers.
type ViolationKind string

const (
	ViolationRequestWithoutEntry  ViolationKind = "request_without_entry"
	ViolationEntryWithoutRequest  ViolationKind = "entry_without_request"
	ViolationMultiplePending      ViolationKind = "multiple_pending_entries"
	ViolationRequesterMismatch    ViolationKind = "requester_mismatch"
	ViolationLedgerOwnerMismatch  ViolationKind = "ledger_owner_mismatch"
	ViolationRequestedButUnlisted ViolationKind = "requested_but_unlisted"
	ViolationEntryForUnknownBook  ViolationKind = "entry_for_unknown_book"
)

// Violation is one inconsistency found by AuditInvariants.
type Violation struct {
	BookID uuid.UUID     `json:"bookId"`
	Kind   ViolationKind `json:"kind"`
	Detail string        `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: book %s: %s", v.Kind, v.BookID, v.Detail)
}

// AuditInvariants reads all books and pending entries in one transaction and reports every book
// where "requested" and "exactly one pending entry in the owner's ledger" disagree.
// An empty result means the data is consistent.
func (e *Engine) AuditInvariants(ctx context.Context) ([]Violation, error) {
	var (
		books   lending.Books
		pending lending.RequestEntries
	)

	err := e.store.WithinTx(ctx, func(ctx context.Context, stores lending.Stores) error {
		var err error

		if books, err = stores.Books.ListAll(ctx); err != nil {
			return err
		}

		pending, err = stores.Ledger.ListIncomplete(ctx)

		return err
	})
	if err != nil {
		return nil, err
	}

	return findViolations(books, pending), nil
}

// findViolations compares books with their incomplete ledger entries.
func findViolations(books lending.Books, pending lending.RequestEntries) []Violation {
	violations := make([]Violation, 0)
	pendingByBook := make(map[uuid.UUID]lending.RequestEntries)

	for _, entry := range pending {
		pendingByBook[entry.BookID] = append(pendingByBook[entry.BookID], entry)
	}

	known := make(map[uuid.UUID]bool, len(books))

	for _, book := range books {
		known[book.ID] = true
		entries := pendingByBook[book.ID]

		switch {
		case book.IsRequested() && len(entries) == 0:
			violations = append(violations, Violation{BookID: book.ID, Kind: ViolationRequestWithoutEntry,
				Detail: fmt.Sprintf("requested by %s but no pending entry", book.RequestedByID.UUID)})

		case !book.IsRequested() && len(entries) > 0:
			violations = append(violations, Violation{BookID: book.ID, Kind: ViolationEntryWithoutRequest,
				Detail: fmt.Sprintf("%d pending entries but no requester", len(entries))})

		case len(entries) > 1:
			violations = append(violations, Violation{BookID: book.ID, Kind: ViolationMultiplePending,
				Detail: fmt.Sprintf("%d pending entries", len(entries))})
		}

		if book.IsRequested() && book.Status != lending.StatusAvailable {
			violations = append(violations, Violation{BookID: book.ID, Kind: ViolationRequestedButUnlisted,
				Detail: fmt.Sprintf("requested while status is %s", book.Status)})
		}

		for _, entry := range entries {
			if book.IsRequested() && entry.RequestedByID != book.RequestedByID.UUID {
				violations = append(violations, Violation{BookID: book.ID, Kind: ViolationRequesterMismatch,
					Detail: fmt.Sprintf("entry %s requested by %s, book by %s", entry.ID, entry.RequestedByID, book.RequestedByID.UUID)})
			}

			if entry.OwnerID != book.OwnerID {
				violations = append(violations, Violation{BookID: book.ID, Kind: ViolationLedgerOwnerMismatch,
					Detail: fmt.Sprintf("entry %s in ledger of %s, book owned by %s", entry.ID, entry.OwnerID, book.OwnerID)})
			}
		}
	}

	for bookID, entries := range pendingByBook {
		if !known[bookID] {
			violations = append(violations, Violation{BookID: bookID, Kind: ViolationEntryForUnknownBook,
				Detail: fmt.Sprintf("%d pending entries", len(entries))})
		}
	}

	return violations
}
