package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/bookshare/lending/lending"
	"github.com/bookshare/lending/lending/sqlengine/internal/adapters"
)

const (
	actionGetBook        = "get book"
	actionCreateBook     = "create book"
	actionUpdateBook     = "update book"
	actionDeleteBook     = "delete book"
	actionListBooks      = "list books"
	actionSearchBooks    = "search books"
	searchFieldTitle     = "title"
	searchFieldAuthor    = "author"
	searchFieldGenre     = "genre"
	logMsgBookVersionCAS = "book version changed concurrently"
)

var bookColumns = []any{
	colID, colOwnerID, colTitle, colAuthor, colCondition, colGenre, colDescription,
	colStatus, colRequestedBy, colVersion, colCreatedAt,
}

// likeEscaper makes LIKE wildcards in a search pattern match literally.
var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// searchableColumns maps public search field names to columns.
var searchableColumns = map[string]string{
	searchFieldTitle:  colTitle,
	searchFieldAuthor: colAuthor,
	searchFieldGenre:  colGenre,
}

type bookRepository struct {
	session
}

type bookRow struct {
	id          string
	ownerID     string
	title       string
	author      string
	condition   string
	genre       string
	description string
	status      string
	requestedBy sql.NullString
	version     int64
	createdAt   time.Time
}

func (r bookRepository) Get(ctx context.Context, bookID uuid.UUID) (lending.Book, error) {
	books, err := r.list(ctx, actionGetBook, goqu.C(colID).Eq(bookID.String()))
	if err != nil {
		return lending.Book{}, err
	}

	if len(books) == 0 {
		return lending.Book{}, fmt.Errorf("%w: book %s", lending.ErrNotFound, bookID)
	}

	return books[0], nil
}

func (r bookRepository) Create(ctx context.Context, book lending.Book) (lending.Book, error) {
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}

	if book.CreatedAt.IsZero() {
		book.CreatedAt = now()
	}

	book.CreatedAt = book.CreatedAt.UTC()
	book.Version = initialVersion

	if book.Status == "" {
		book.Status = lending.StatusOwn
	}

	record := bookRecord(book)
	record[colID] = book.ID.String()
	record[colCreatedAt] = book.CreatedAt

	insertStmt := r.store.builder.Insert(tableBooks).Rows(record).Prepared(true)
	if _, err := r.exec(ctx, actionCreateBook, insertStmt); err != nil {
		return lending.Book{}, err
	}

	return book, nil
}

func (r bookRepository) Update(
	ctx context.Context,
	bookID uuid.UUID,
	expectedVersion uint,
	mutate lending.BookMutator,
) (lending.Book, error) {

	current, err := r.Get(ctx, bookID)
	if err != nil {
		return lending.Book{}, err
	}

	if expectedVersion != lending.AnyVersion && current.Version != expectedVersion {
		return lending.Book{}, r.versionConflict(ctx, actionUpdateBook, bookID, expectedVersion, current.Version)
	}

	updated := current
	mutate(&updated)
	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt
	updated.Version = current.Version + 1

	record := bookRecord(updated)
	record[colVersion] = updated.Version

	updateStmt := r.store.builder.Update(tableBooks).
		Set(record).
		Where(
			goqu.C(colID).Eq(bookID.String()),
			goqu.C(colVersion).Eq(current.Version),
		).
		Prepared(true)

	rowsAffected, err := r.exec(ctx, actionUpdateBook, updateStmt)
	if err != nil {
		return lending.Book{}, err
	}

	if rowsAffected == 0 {
		latest, getErr := r.Get(ctx, bookID)
		if getErr != nil {
			return lending.Book{}, getErr
		}

		return lending.Book{}, r.versionConflict(ctx, actionUpdateBook, bookID, current.Version, latest.Version)
	}

	return updated, nil
}

func (r bookRepository) Delete(ctx context.Context, bookID uuid.UUID, expectedVersion uint) error {
	conditions := []exp.Expression{goqu.C(colID).Eq(bookID.String())}
	if expectedVersion != lending.AnyVersion {
		conditions = append(conditions, goqu.C(colVersion).Eq(expectedVersion))
	}

	deleteStmt := r.store.builder.Delete(tableBooks).Where(conditions...).Prepared(true)

	rowsAffected, err := r.exec(ctx, actionDeleteBook, deleteStmt)
	if err != nil {
		return err
	}

	if rowsAffected > 0 {
		return nil
	}

	current, getErr := r.Get(ctx, bookID)
	if getErr != nil {
		return getErr
	}

	return r.versionConflict(ctx, actionDeleteBook, bookID, expectedVersion, current.Version)
}

func (r bookRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) (lending.Books, error) {
	return r.list(ctx, actionListBooks, goqu.C(colOwnerID).Eq(ownerID.String()))
}

func (r bookRepository) ListRequestedBy(ctx context.Context, userID uuid.UUID) (lending.Books, error) {
	return r.list(ctx, actionListBooks, goqu.C(colRequestedBy).Eq(userID.String()))
}

func (r bookRepository) ListAvailable(ctx context.Context) (lending.Books, error) {
	return r.list(ctx, actionListBooks, goqu.C(colStatus).Eq(lending.StatusAvailable.String()))
}

func (r bookRepository) ListAll(ctx context.Context) (lending.Books, error) {
	return r.list(ctx, actionListBooks)
}

// Search returns the books whose field contains pattern, ignoring case.
// Only title, author and genre are searchable.
func (r bookRepository) Search(ctx context.Context, field string, pattern string) (lending.Books, error) {
	column, ok := searchableColumns[field]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %q", lending.ErrInvalidInput, lending.ErrInvalidSearchField, field)
	}

	needle := likeWildcard + likeEscaper.Replace(strings.ToLower(pattern)) + likeWildcard
	condition := goqu.L("? LIKE ? ESCAPE '"+likeEscape+"'", goqu.Func(funcLower, goqu.C(column)), needle)

	return r.list(ctx, actionSearchBooks, condition)
}

func (r bookRepository) list(ctx context.Context, action string, conditions ...exp.Expression) (lending.Books, error) {
	selectStmt := r.store.builder.From(tableBooks).
		Select(bookColumns...).
		Where(conditions...).
		Order(goqu.C(colCreatedAt).Desc(), goqu.C(colID).Asc()).
		Prepared(true)

	rows, err := r.query(ctx, action, selectStmt)
	if err != nil {
		return nil, err
	}
	defer r.closeRows(ctx, rows)

	return r.scanBooks(ctx, rows)
}

func (r bookRepository) scanBooks(ctx context.Context, rows adapters.DBRows) (lending.Books, error) {
	books := make(lending.Books, 0)

	for rows.Next() {
		var row bookRow

		scanErr := rows.Scan(
			&row.id, &row.ownerID, &row.title, &row.author, &row.condition, &row.genre, &row.description,
			&row.status, &row.requestedBy, &row.version, &row.createdAt,
		)
		if scanErr != nil {
			return nil, r.scanFailed(ctx, scanErr)
		}

		book, convErr := row.toBook()
		if convErr != nil {
			return nil, r.scanFailed(ctx, convErr)
		}

		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, r.scanFailed(ctx, err)
	}

	return books, nil
}

func (r bookRepository) versionConflict(
	ctx context.Context,
	action string,
	bookID uuid.UUID,
	expectedVersion uint,
	actualVersion uint,
) error {

	r.store.logOperation(ctx, logMsgConcurrencyConflict,
		logAttrBookID, bookID.String(),
		logAttrExpectedVersion, expectedVersion,
		logAttrActualVersion, actualVersion,
	)
	r.store.recordConcurrencyConflict(action)

	return fmt.Errorf("%w: %s %s", lending.ErrConcurrencyConflict, logMsgBookVersionCAS, bookID)
}

// bookRecord holds the mutable columns of a book.
func bookRecord(book lending.Book) goqu.Record {
	record := goqu.Record{
		colOwnerID:     book.OwnerID.String(),
		colTitle:       book.Title,
		colAuthor:      book.Author,
		colCondition:   book.Condition,
		colGenre:       book.Genre,
		colDescription: book.Description,
		colStatus:      book.Status.String(),
		colRequestedBy: nil,
		colVersion:     book.Version,
	}

	if book.RequestedByID.Valid {
		record[colRequestedBy] = book.RequestedByID.UUID.String()
	}

	return record
}

func (row bookRow) toBook() (lending.Book, error) {
	id, err := uuid.Parse(row.id)
	if err != nil {
		return lending.Book{}, err
	}

	ownerID, err := uuid.Parse(row.ownerID)
	if err != nil {
		return lending.Book{}, err
	}

	requestedBy, err := parseNullUUID(row.requestedBy)
	if err != nil {
		return lending.Book{}, err
	}

	status := lending.BookStatus(row.status)
	if !status.Valid() {
		return lending.Book{}, fmt.Errorf("unknown book status %q", row.status)
	}

	if row.version < 1 {
		return lending.Book{}, errors.New("book version must be positive")
	}

	return lending.Book{
		ID:            id,
		OwnerID:       ownerID,
		Title:         row.title,
		Author:        row.author,
		Condition:     row.condition,
		Genre:         row.genre,
		Description:   row.description,
		Status:        status,
		RequestedByID: requestedBy,
		Version:       uint(row.version),
		CreatedAt:     row.createdAt.UTC(),
	}, nil
}

func parseNullUUID(value sql.NullString) (uuid.NullUUID, error) {
	if !value.Valid || value.String == "" {
		return uuid.NullUUID{}, nil
	}

	id, err := uuid.Parse(value.String)
	if err != nil {
		return uuid.NullUUID{}, err
	}

	return uuid.NullUUID{UUID: id, Valid: true}, nil
}
