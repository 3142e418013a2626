package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/bookshare/lending/lending"
)

// NewUser is the input of RegisterUser.
type NewUser struct {
	Name     string `validate:"required,max=200"`
	Email    string `validate:"required,email,max=320"`
	Password string `validate:"required,min=8,max=72"`
}

// RegisterUser creates a user with a bcrypt hashed password.
//
// Errors: lending.ErrInvalidInput, lending.ErrConflict (email already registered).
func (e *Engine) RegisterUser(ctx context.Context, input NewUser) (lending.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)

	if err := e.validate.StructCtx(ctx, input); err != nil {
		return lending.User{}, fmt.Errorf("%w: %w", lending.ErrInvalidInput, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), e.bcryptCost)
	if err != nil {
		return lending.User{}, errors.Join(lending.ErrInvalidInput, err)
	}

	var created lending.User

	err = e.execute(ctx, CommandRegisterUser, map[string]string{}, func(ctx context.Context, stores lending.Stores) error {
		var createErr error
		created, createErr = stores.Users.Create(ctx, lending.User{
			Name:         input.Name,
			Email:        input.Email,
			PasswordHash: string(hash),
			CreatedAt:    e.now(),
		})

		return createErr
	})

	return created, err
}
