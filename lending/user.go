package lending

import (
	"time"

	"github.com/google/uuid"
)

// User is a participant who can own and request books.
// PasswordHash is an opaque credential and is never serialized.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
