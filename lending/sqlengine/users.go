package sqlengine

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/bookshare/lending/lending"
)

const (
	actionCreateUser = "create user"
	actionGetUser    = "get user"
)

type userRepository struct {
	session
}

// Create stores a new user. A duplicate email yields lending.ErrConflict.
func (r userRepository) Create(ctx context.Context, user lending.User) (lending.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}

	user.CreatedAt = user.CreatedAt.UTC()

	insertStmt := r.store.builder.Insert(tableUsers).
		Rows(goqu.Record{
			colID:           user.ID.String(),
			colName:         user.Name,
			colEmail:        user.Email,
			colPasswordHash: user.PasswordHash,
			colCreatedAt:    user.CreatedAt,
		}).
		Prepared(true)

	if _, err := r.exec(ctx, actionCreateUser, insertStmt); err != nil {
		return lending.User{}, err
	}

	return user, nil
}

func (r userRepository) Get(ctx context.Context, userID uuid.UUID) (lending.User, error) {
	selectStmt := r.store.builder.From(tableUsers).
		Select(colID, colName, colEmail, colPasswordHash, colCreatedAt).
		Where(goqu.C(colID).Eq(userID.String())).
		Prepared(true)

	rows, err := r.query(ctx, actionGetUser, selectStmt)
	if err != nil {
		return lending.User{}, err
	}
	defer r.closeRows(ctx, rows)

	if !rows.Next() {
		if iterErr := rows.Err(); iterErr != nil {
			return lending.User{}, r.scanFailed(ctx, iterErr)
		}

		return lending.User{}, fmt.Errorf("%w: user %s", lending.ErrNotFound, userID)
	}

	var (
		rawID     string
		user      lending.User
		createdAt time.Time
	)

	if scanErr := rows.Scan(&rawID, &user.Name, &user.Email, &user.PasswordHash, &createdAt); scanErr != nil {
		return lending.User{}, r.scanFailed(ctx, scanErr)
	}

	id, parseErr := uuid.Parse(rawID)
	if parseErr != nil {
		return lending.User{}, r.scanFailed(ctx, parseErr)
	}

	user.ID = id
	user.CreatedAt = createdAt.UTC()

	return user, nil
}
