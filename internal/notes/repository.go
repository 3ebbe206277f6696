package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"example.com/notes-api/internal/db"
	"example.com/notes-api/internal/stringsx"
)

// Preparer is the query-execution capability the repository needs.
// *sql.DB, *sql.Conn and *sql.Tx all satisfy it.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type Repository struct {
	now func() time.Time

	stmtList   *sql.Stmt
	stmtGet    *sql.Stmt
	stmtCreate *sql.Stmt
	stmtUpdate *sql.Stmt
	stmtDelete *sql.Stmt
	stmtSearch *sql.Stmt
}

type Option func(*Repository)

// WithClock replaces the time source used for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

func NewRepository(ctx context.Context, conn Preparer, dialect db.Dialect, opts ...Option) (*Repository, error) {
	q, ok := queries[dialect]
	if !ok {
		return nil, fmt.Errorf("notes: unsupported dialect %q", dialect)
	}

	r := &Repository{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}

	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&r.stmtList, q.list},
		{&r.stmtGet, q.get},
		{&r.stmtCreate, q.create},
		{&r.stmtUpdate, q.update},
		{&r.stmtDelete, q.delete},
		{&r.stmtSearch, q.search},
	}
	for _, s := range stmts {
		stmt, err := conn.PrepareContext(ctx, s.query)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("notes: prepare statement: %w", err)
		}
		*s.dst = stmt
	}

	return r, nil
}

func (r *Repository) Close() error {
	for _, s := range []*sql.Stmt{r.stmtList, r.stmtGet, r.stmtCreate, r.stmtUpdate, r.stmtDelete, r.stmtSearch} {
		if s != nil {
			_ = s.Close()
		}
	}
	return nil
}

// List returns every note, most recently updated first.
func (r *Repository) List(ctx context.Context) ([]Note, error) {
	rows, err := r.stmtList.QueryContext(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	defer rows.Close()

	out, err := scanNotes(rows)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	return out, nil
}

// Get returns ErrNotFound for unknown and for malformed ids alike.
func (r *Repository) Get(ctx context.Context, id string) (Note, error) {
	nid, ok := ParseID(id)
	if !ok {
		return Note{}, ErrNotFound
	}

	n, err := scanNote(r.stmtGet.QueryRowContext(ctx, nid))
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, &StoreError{Op: "get", Err: err}
	}
	return n, nil
}

func (r *Repository) Create(ctx context.Context, title, content string) (Note, error) {
	if err := (NoteInput{Title: title, Content: content}).Validate(); err != nil {
		return Note{}, err
	}

	n, err := scanNote(r.stmtCreate.QueryRowContext(ctx, title, content, r.timestamp()))
	if err != nil {
		return Note{}, &StoreError{Op: "create", Err: err}
	}
	return n, nil
}

// Update replaces title and content wholesale. A missing row is reported as
// ErrNotFound based on the UPDATE itself, with no separate lookup.
func (r *Repository) Update(ctx context.Context, id, title, content string) (Note, error) {
	if err := (NoteInput{Title: title, Content: content}).Validate(); err != nil {
		return Note{}, err
	}
	nid, ok := ParseID(id)
	if !ok {
		return Note{}, ErrNotFound
	}

	n, err := scanNote(r.stmtUpdate.QueryRowContext(ctx, title, content, r.timestamp(), nid))
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, &StoreError{Op: "update", Err: err}
	}
	return n, nil
}

// Delete returns the number of rows removed, 0 when nothing matched.
func (r *Repository) Delete(ctx context.Context, id string) (int64, error) {
	nid, ok := ParseID(id)
	if !ok {
		return 0, nil
	}

	res, err := r.stmtDelete.ExecContext(ctx, nid)
	if err != nil {
		return 0, &StoreError{Op: "delete", Err: err}
	}
	a, err := res.RowsAffected()
	if err != nil {
		return 0, &StoreError{Op: "delete", Err: err}
	}
	return a, nil
}

// Search matches the trimmed query as a literal, case-insensitive substring
// of title or content.
func (r *Repository) Search(ctx context.Context, query string) ([]Note, error) {
	if stringsx.IsEmpty(query) {
		return nil, &ValidationError{Message: msgMissingQuery}
	}

	rows, err := r.stmtSearch.QueryContext(ctx, stringsx.Contains(strings.TrimSpace(query)))
	if err != nil {
		return nil, &StoreError{Op: "search", Err: err}
	}
	defer rows.Close()

	out, err := scanNotes(rows)
	if err != nil {
		return nil, &StoreError{Op: "search", Err: err}
	}
	return out, nil
}

// ParseID converts a path id into a note id. Only positive base-10 integers
// in canonical form are valid: no sign, no leading zeros.
func ParseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 || strconv.FormatInt(id, 10) != s {
		return 0, false
	}
	return id, true
}

// timestamp is truncated to microseconds, the resolution Postgres stores.
func (r *Repository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(s rowScanner) (Note, error) {
	var n Note
	err := s.Scan(&n.ID, &n.Title, &n.Content, scanTime{&n.CreatedAt}, scanTime{&n.UpdatedAt})
	return n, err
}

func scanNotes(rows *sql.Rows) ([]Note, error) {
	out := make([]Note, 0, 32)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
