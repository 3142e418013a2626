package lending

import (
	"time"

	"github.com/google/uuid"
)

// BookStatus is the listing status of a book.
type BookStatus string

const (
	// StatusOwn means the book is not offered for lending.
	StatusOwn BookStatus = "own"

	// StatusAvailable means the owner listed the book and it is open for requests.
	StatusAvailable BookStatus = "available"
)

// AnyVersion can be passed as expected version to skip the optimistic version check.
const AnyVersion uint = 0

// Valid reports whether s is one of the known statuses.
func (s BookStatus) Valid() bool {
	return s == StatusOwn || s == StatusAvailable
}

func (s BookStatus) String() string {
	return string(s)
}

// Book is a physical book owned by exactly one user.
//
// RequestedByID is set iff there is exactly one incomplete RequestEntry for this book.
// Version is the optimistic concurrency revision, incremented by every successful update.
type Book struct {
	ID            uuid.UUID     `json:"id"`
	OwnerID       uuid.UUID     `json:"ownerId"`
	Title         string        `json:"title"`
	Author        string        `json:"author"`
	Condition     string        `json:"condition"`
	Genre         string        `json:"genre,omitempty"`
	Description   string        `json:"description,omitempty"`
	Status        BookStatus    `json:"status"`
	RequestedByID uuid.NullUUID `json:"requestedById"`
	Version       uint          `json:"version"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// IsRequested reports whether the book has an outstanding request.
func (b Book) IsRequested() bool {
	return b.RequestedByID.Valid
}

// IsRequestedBy reports whether the outstanding request (if any) was made by userID.
func (b Book) IsRequestedBy(userID uuid.UUID) bool {
	return b.RequestedByID.Valid && b.RequestedByID.UUID == userID
}

// IsOwnedBy reports whether userID is the owner of record.
func (b Book) IsOwnedBy(userID uuid.UUID) bool {
	return b.OwnerID == userID
}

// Requester builds the optional requester value for userID.
func Requester(userID uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: userID, Valid: true}
}

// NoRequester is the absent requester.
func NoRequester() uuid.NullUUID {
	return uuid.NullUUID{}
}

// Books is an alias type for a slice of Book.
type Books = []Book
