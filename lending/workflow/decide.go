package workflow

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/bookshare/lending/lending"
)

const (
	failureReasonNotOwner          = "caller is not the owner of the book"
	failureReasonAlreadyListed     = "book is already listed"
	failureReasonNotListed         = "book is not listed"
	failureReasonSelfRequest       = "owner cannot request their own book"
	failureReasonAlreadyRequested  = "book is already requested"
	failureReasonNoPendingRequest  = "no pending request for this book"
	failureReasonRequesterMismatch = "no pending request from this user"
	failureReasonForeignLedger     = "pending request belongs to another owner's ledger"
)

// pendingRequest is the incomplete ledger entry of a book, if there is one.
type pendingRequest struct {
	entry lending.RequestEntry
	found bool
}

// decideList allows listing an unlisted book by its owner.
func decideList(book lending.Book, callerID uuid.UUID) error {
	if !book.IsOwnedBy(callerID) {
		return failure(lending.ErrForbidden, failureReasonNotOwner)
	}

	if book.Status != lending.StatusOwn {
		return failure(lending.ErrInvalidState, failureReasonAlreadyListed)
	}

	return nil
}

// decideDelist allows withdrawing a listed book by its owner.
// A pending request does not block it; the request is cancelled with the listing.
func decideDelist(book lending.Book, callerID uuid.UUID) error {
	if !book.IsOwnedBy(callerID) {
		return failure(lending.ErrForbidden, failureReasonNotOwner)
	}

	if book.Status != lending.StatusAvailable {
		return failure(lending.ErrInvalidState, failureReasonNotListed)
	}

	return nil
}

// decideRequest implements the business rules for requesting a book.
//
//	GIVEN: an existing book and an existing requester
//	ERROR: Forbidden if the requester owns the book
//	ERROR: Conflict if the book already has an outstanding request
//	ERROR: InvalidState if the book is not listed
func decideRequest(book lending.Book, requesterID uuid.UUID) error {
	if book.IsOwnedBy(requesterID) {
		return failure(lending.ErrForbidden, failureReasonSelfRequest)
	}

	if book.IsRequested() {
		return failure(lending.ErrConflict, failureReasonAlreadyRequested)
	}

	if book.Status != lending.StatusAvailable {
		return failure(lending.ErrInvalidState, failureReasonNotListed)
	}

	return nil
}

// decideGrant implements the business rules for granting a request.
// A missing pending request is NotFound for everybody, so the loser of a grant or reject race
// and a former owner granting again both see NotFound. Ownership is checked before the
// requester, so only the owner learns who the pending request is from.
func decideGrant(book lending.Book, pending pendingRequest, callerID uuid.UUID, newOwnerID uuid.UUID) error {
	if !pending.found {
		return failure(lending.ErrNotFound, failureReasonNoPendingRequest)
	}

	if !book.IsOwnedBy(callerID) {
		return failure(lending.ErrForbidden, failureReasonNotOwner)
	}

	if pending.entry.RequestedByID != newOwnerID {
		return failure(lending.ErrNotFound, failureReasonRequesterMismatch)
	}

	if pending.entry.OwnerID != book.OwnerID {
		return failure(lending.ErrNotFound, failureReasonForeignLedger)
	}

	return nil
}

// decideReject implements the business rules for rejecting the pending request of a book.
// The check order matches decideGrant.
func decideReject(book lending.Book, pending pendingRequest, callerID uuid.UUID) error {
	if !pending.found {
		return failure(lending.ErrNotFound, failureReasonNoPendingRequest)
	}

	if !book.IsOwnedBy(callerID) {
		return failure(lending.ErrForbidden, failureReasonNotOwner)
	}

	if pending.entry.OwnerID != book.OwnerID {
		return failure(lending.ErrNotFound, failureReasonForeignLedger)
	}

	return nil
}

// decideDelete allows the owner to delete a book in any state.
func decideDelete(book lending.Book, callerID uuid.UUID) error {
	if !book.IsOwnedBy(callerID) {
		return failure(lending.ErrForbidden, failureReasonNotOwner)
	}

	return nil
}

func failure(sentinel error, reason string) error {
	return fmt.Errorf("%w: %s", sentinel, reason)
}
