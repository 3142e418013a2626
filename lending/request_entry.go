package lending

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// RequestEntry is one incoming request in the ledger of the user who owned the book at request time.
//
// An entry is created incomplete and is only ever mutated by flipping Completed to true
// (grant or reject). Across the whole system at most one incomplete entry exists per BookID.
type RequestEntry struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       uuid.UUID `json:"ownerId"`
	BookID        uuid.UUID `json:"bookId"`
	RequestedByID uuid.UUID `json:"requestedById"`
	Message       string    `json:"message,omitempty"`
	Completed     bool      `json:"completed"`
	CreatedAt     time.Time `json:"createdAt"`
}

// RequestEntries is an alias type for a slice of RequestEntry.
type RequestEntries = []RequestEntry

// SortLedger orders entries the way an owner's ledger is presented:
// incomplete entries first, then completed ones, each group newest first.
// The input slice is not modified.
func SortLedger(entries RequestEntries) RequestEntries {
	sorted := make(RequestEntries, len(entries))
	copy(sorted, entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Completed != sorted[j].Completed {
			return !sorted[i].Completed
		}

		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	return sorted
}
