package sqlengine

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/bookshare/lending/lending"
)

const (
	actionAppendEntry   = "append request entry"
	actionFindEntry     = "find request entry"
	actionCompleteEntry = "complete request entry"
	actionRemoveEntries = "remove request entries"
	actionListEntries   = "list request entries"
)

var entryColumns = []any{
	colID, colOwnerID, colBookID, colRequestedBy, colMessage, colCompleted, colCreatedAt,
}

type ledgerRepository struct {
	session
}

type entryRow struct {
	id          string
	ownerID     string
	bookID      string
	requestedBy string
	message     string
	completed   bool
	createdAt   time.Time
}

// AppendEntry stores a new entry. A second incomplete entry for the same book is rejected
// by the database with lending.ErrConflict.
func (r ledgerRepository) AppendEntry(ctx context.Context, entry lending.RequestEntry) (lending.RequestEntry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now()
	}

	entry.CreatedAt = entry.CreatedAt.UTC()

	insertStmt := r.store.builder.Insert(tableRequestEntries).
		Rows(goqu.Record{
			colID:          entry.ID.String(),
			colOwnerID:     entry.OwnerID.String(),
			colBookID:      entry.BookID.String(),
			colRequestedBy: entry.RequestedByID.String(),
			colMessage:     entry.Message,
			colCompleted:   entry.Completed,
			colCreatedAt:   entry.CreatedAt,
		}).
		Prepared(true)

	if _, err := r.exec(ctx, actionAppendEntry, insertStmt); err != nil {
		return lending.RequestEntry{}, err
	}

	return entry, nil
}

func (r ledgerRepository) FindIncompleteEntry(
	ctx context.Context,
	ownerID uuid.UUID,
	bookID uuid.UUID,
) (lending.RequestEntry, error) {

	return r.findOne(ctx,
		goqu.C(colOwnerID).Eq(ownerID.String()),
		goqu.C(colBookID).Eq(bookID.String()),
		goqu.C(colCompleted).IsFalse(),
	)
}

func (r ledgerRepository) FindIncompleteEntryAnyOwner(ctx context.Context, bookID uuid.UUID) (lending.RequestEntry, error) {
	return r.findOne(ctx,
		goqu.C(colBookID).Eq(bookID.String()),
		goqu.C(colCompleted).IsFalse(),
	)
}

// MarkCompleted flips the entry only while it is still incomplete, so of two racing
// grant or reject attempts exactly one affects a row.
func (r ledgerRepository) MarkCompleted(ctx context.Context, entryID uuid.UUID) error {
	updateStmt := r.store.builder.Update(tableRequestEntries).
		Set(goqu.Record{colCompleted: true}).
		Where(
			goqu.C(colID).Eq(entryID.String()),
			goqu.C(colCompleted).IsFalse(),
		).
		Prepared(true)

	rowsAffected, err := r.exec(ctx, actionCompleteEntry, updateStmt)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: incomplete request entry %s", lending.ErrNotFound, entryID)
	}

	return nil
}

func (r ledgerRepository) RemoveEntry(ctx context.Context, entryID uuid.UUID) error {
	rowsAffected, err := r.remove(ctx, goqu.C(colID).Eq(entryID.String()))
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: request entry %s", lending.ErrNotFound, entryID)
	}

	return nil
}

func (r ledgerRepository) RemoveEntriesForBook(ctx context.Context, ownerID uuid.UUID, bookID uuid.UUID) (int64, error) {
	return r.remove(ctx,
		goqu.C(colOwnerID).Eq(ownerID.String()),
		goqu.C(colBookID).Eq(bookID.String()),
	)
}

func (r ledgerRepository) RemoveAllEntriesForBook(ctx context.Context, bookID uuid.UUID) (int64, error) {
	return r.remove(ctx, goqu.C(colBookID).Eq(bookID.String()))
}

func (r ledgerRepository) ListForOwner(ctx context.Context, ownerID uuid.UUID) (lending.RequestEntries, error) {
	return r.list(ctx, goqu.C(colOwnerID).Eq(ownerID.String()))
}

func (r ledgerRepository) ListIncomplete(ctx context.Context) (lending.RequestEntries, error) {
	return r.list(ctx, goqu.C(colCompleted).IsFalse())
}

func (r ledgerRepository) findOne(ctx context.Context, conditions ...exp.Expression) (lending.RequestEntry, error) {
	entries, err := r.list(ctx, conditions...)
	if err != nil {
		return lending.RequestEntry{}, err
	}

	if len(entries) == 0 {
		return lending.RequestEntry{}, fmt.Errorf("%w: incomplete request entry", lending.ErrNotFound)
	}

	return entries[0], nil
}

func (r ledgerRepository) remove(ctx context.Context, conditions ...exp.Expression) (int64, error) {
	deleteStmt := r.store.builder.Delete(tableRequestEntries).Where(conditions...).Prepared(true)

	return r.exec(ctx, actionRemoveEntries, deleteStmt)
}

// list returns matching entries, incomplete ones first, each group newest first.
func (r ledgerRepository) list(ctx context.Context, conditions ...exp.Expression) (lending.RequestEntries, error) {
	selectStmt := r.store.builder.From(tableRequestEntries).
		Select(entryColumns...).
		Where(conditions...).
		Order(goqu.C(colCompleted).Asc(), goqu.C(colCreatedAt).Desc(), goqu.C(colID).Asc()).
		Prepared(true)

	rows, err := r.query(ctx, actionListEntries, selectStmt)
	if err != nil {
		return nil, err
	}
	defer r.closeRows(ctx, rows)

	entries := make(lending.RequestEntries, 0)

	for rows.Next() {
		var row entryRow

		scanErr := rows.Scan(&row.id, &row.ownerID, &row.bookID, &row.requestedBy, &row.message, &row.completed, &row.createdAt)
		if scanErr != nil {
			return nil, r.scanFailed(ctx, scanErr)
		}

		entry, convErr := row.toEntry()
		if convErr != nil {
			return nil, r.scanFailed(ctx, convErr)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, r.scanFailed(ctx, err)
	}

	return entries, nil
}

func (row entryRow) toEntry() (lending.RequestEntry, error) {
	ids := make([]uuid.UUID, 0, 4)

	for _, raw := range []string{row.id, row.ownerID, row.bookID, row.requestedBy} {
		id, err := uuid.Parse(raw)
		if err != nil {
			return lending.RequestEntry{}, err
		}

		ids = append(ids, id)
	}

	return lending.RequestEntry{
		ID:            ids[0],
		OwnerID:       ids[1],
		BookID:        ids[2],
		RequestedByID: ids[3],
		Message:       row.message,
		Completed:     row.completed,
		CreatedAt:     row.createdAt.UTC(),
	}, nil
}
