package notes

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"example.com/notes-api/internal/db"
)

// fakeClock advances one second on every reading so ordering by updated_at
// is deterministic.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func (c *fakeClock) Rewind(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(-d)
}

type fataler interface {
	Fatalf(format string, args ...any)
}

// openSQLiteRepo returns a repository over a fresh in-memory database. The
// returned func releases both.
func openSQLiteRepo(t fataler, opts ...Option) (*Repository, func()) {
	ctx := context.Background()

	conn, err := db.Open(ctx, "sqlite://:memory:", 1, 1, 0, 0)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.EnsureSchema(ctx); err != nil {
		_ = conn.Close()
		t.Fatalf("ensure schema: %v", err)
	}
	repo, err := NewRepository(ctx, conn.SQL, conn.Dialect, opts...)
	if err != nil {
		_ = conn.Close()
		t.Fatalf("new repository: %v", err)
	}
	return repo, func() {
		_ = repo.Close()
		_ = conn.Close()
	}
}

func newTestRepo(t *testing.T, opts ...Option) *Repository {
	t.Helper()
	repo, closeFn := openSQLiteRepo(t, opts...)
	t.Cleanup(closeFn)
	return repo
}

func titleGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`[A-Za-z0-9][A-Za-z0-9 .,!?'%_\\-]{0,60}`)
}

func contentGenerator() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.Just(""),
		rapid.StringMatching(`[\p{L}\p{N} .,!?'%_\\\n-]{1,200}`),
	)
}

func testCreate_Roundtrip_Properties(t *rapid.T) {
	repo, closeFn := openSQLiteRepo(t, WithClock(newFakeClock().Now))
	defer closeFn()
	ctx := context.Background()

	title := titleGenerator().Draw(t, "title")
	content := contentGenerator().Draw(t, "content")

	n, err := repo.Create(ctx, title, content)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if n.ID <= 0 {
		t.Fatalf("expected a positive id, got %d", n.ID)
	}
	if n.Title != title || n.Content != content {
		t.Fatalf("fields mismatch: got %q/%q, want %q/%q", n.Title, n.Content, title, content)
	}
	if n.CreatedAt.IsZero() || !n.CreatedAt.Equal(n.UpdatedAt) {
		t.Fatalf("created_at %v and updated_at %v should be equal and set", n.CreatedAt, n.UpdatedAt)
	}

	got, err := repo.Get(ctx, formatID(n.ID))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !sameNote(got, n) {
		t.Fatalf("Get returned %+v, want %+v", got, n)
	}

	again, err := repo.Create(ctx, title, content)
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}
	if again.ID == n.ID {
		t.Fatalf("id %d reused", n.ID)
	}
}

func TestCreate_Roundtrip_Properties(t *testing.T) {
	rapid.Check(t, testCreate_Roundtrip_Properties)
}

func testCreate_RejectsBlankTitle_Properties(t *rapid.T) {
	repo, closeFn := openSQLiteRepo(t)
	defer closeFn()
	ctx := context.Background()

	title := rapid.StringMatching(`[ \t\r\n]{0,8}`).Draw(t, "title")
	content := contentGenerator().Draw(t, "content")

	_, err := repo.Create(ctx, title, content)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if verr.Message != "title is required" {
		t.Fatalf("unexpected message %q", verr.Message)
	}

	items, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("blank title reached storage: %+v", items)
	}
}

func TestCreate_RejectsBlankTitle_Properties(t *testing.T) {
	rapid.Check(t, testCreate_RejectsBlankTitle_Properties)
}

func testSearch_CaseInsensitiveSubstring_Properties(t *rapid.T) {
	repo, closeFn := openSQLiteRepo(t, WithClock(newFakeClock().Now))
	defer closeFn()
	ctx := context.Background()

	text := []rune(rapid.StringMatching(`[\p{L}0-9%_\\]{1,30}`).Draw(t, "text"))
	start := rapid.IntRange(0, len(text)-1).Draw(t, "start")
	end := rapid.IntRange(start+1, len(text)).Draw(t, "end")
	inTitle := rapid.Bool().Draw(t, "inTitle")

	var n Note
	var err error
	if inTitle {
		n, err = repo.Create(ctx, string(text), "")
	} else {
		n, err = repo.Create(ctx, "unrelated", string(text))
	}
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	query := strings.ToUpper(string(text[start:end]))
	if rapid.Bool().Draw(t, "lower") {
		query = strings.ToLower(query)
	}
	// A few letters (dotted capital I and friends) do not survive an
	// upper/lower round trip; those queries are no longer case variants.
	if !strings.Contains(db.CaseFold(string(text)), db.CaseFold(query)) {
		return
	}

	found, err := repo.Search(ctx, "  "+query+" ")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, f := range found {
		if f.ID == n.ID {
			return
		}
	}
	t.Fatalf("search %q did not return note %+v", query, n)
}

func TestSearch_CaseInsensitiveSubstring_Properties(t *testing.T) {
	rapid.Check(t, testSearch_CaseInsensitiveSubstring_Properties)
}

func TestRepository_List_OrderedByUpdatedAt(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, WithClock(newFakeClock().Now))

	empty, err := repo.List(ctx)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)

	a, err := repo.Create(ctx, "A", "first")
	require.NoError(t, err)
	b, err := repo.Create(ctx, "B", "second")
	require.NoError(t, err)

	items, err := repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{b.ID, a.ID}, ids(items))

	_, err = repo.Update(ctx, formatID(a.ID), "A2", "first again")
	require.NoError(t, err)

	items, err = repo.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{a.ID, b.ID}, ids(items))
}

func TestRepository_Get_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, id := range []string{"1", "999", "0", "-1", "abc", "", "1.5", "99999999999999999999"} {
		_, err := repo.Get(ctx, id)
		require.ErrorIs(t, err, ErrNotFound, id)
	}
}

func TestRepository_Get_NonCanonicalID(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	n, err := repo.Create(ctx, "first", "")
	require.NoError(t, err)
	require.Equal(t, int64(1), n.ID)

	for _, id := range []string{"+1", "01", "0001", " 1", "1 "} {
		_, err := repo.Get(ctx, id)
		require.ErrorIs(t, err, ErrNotFound, id)

		_, err = repo.Update(ctx, id, "changed", "")
		require.ErrorIs(t, err, ErrNotFound, id)

		affected, err := repo.Delete(ctx, id)
		require.NoError(t, err)
		require.Equal(t, int64(0), affected, id)
	}

	got, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, "first", got.Title)
}

func TestRepository_Update(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	repo := newTestRepo(t, WithClock(clock.Now))

	n, err := repo.Create(ctx, "Test", "Hello")
	require.NoError(t, err)

	updated, err := repo.Update(ctx, formatID(n.ID), "Modified", "")
	require.NoError(t, err)
	require.Equal(t, n.ID, updated.ID)
	require.Equal(t, "Modified", updated.Title)
	require.Equal(t, "", updated.Content)
	require.Equal(t, n.CreatedAt, updated.CreatedAt)
	require.True(t, updated.UpdatedAt.After(n.UpdatedAt))

	got, err := repo.Get(ctx, formatID(n.ID))
	require.NoError(t, err)
	require.Equal(t, updated, got)

	// A clock that went backwards still never yields updated_at < created_at.
	clock.Rewind(time.Hour)
	back, err := repo.Update(ctx, formatID(n.ID), "Back", "")
	require.NoError(t, err)
	require.False(t, back.UpdatedAt.Before(back.CreatedAt))
}

func TestRepository_Update_ValidationAndNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	n, err := repo.Create(ctx, "keep", "")
	require.NoError(t, err)

	_, err = repo.Update(ctx, formatID(n.ID), "  ", "x")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = repo.Update(ctx, formatID(n.ID), strings.Repeat("x", 256), "")
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "title must be at most 255 characters", verr.Message)

	_, err = repo.Update(ctx, "12345", "t", "c")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Update(ctx, "nope", "t", "c")
	require.ErrorIs(t, err, ErrNotFound)

	got, err := repo.Get(ctx, formatID(n.ID))
	require.NoError(t, err)
	require.Equal(t, "keep", got.Title)
}

func TestRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	n, err := repo.Create(ctx, "gone", "soon")
	require.NoError(t, err)

	affected, err := repo.Delete(ctx, formatID(n.ID))
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	_, err = repo.Get(ctx, formatID(n.ID))
	require.ErrorIs(t, err, ErrNotFound)

	affected, err = repo.Delete(ctx, formatID(n.ID))
	require.NoError(t, err)
	require.Equal(t, int64(0), affected)

	affected, err = repo.Delete(ctx, "not-an-id")
	require.NoError(t, err)
	require.Equal(t, int64(0), affected)

	// Ids are not handed out again after a delete.
	next, err := repo.Create(ctx, "next", "")
	require.NoError(t, err)
	require.Greater(t, next.ID, n.ID)
}

func TestRepository_Search(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, WithClock(newFakeClock().Now))

	hello, err := repo.Create(ctx, "Hello World", "")
	require.NoError(t, err)
	say, err := repo.Create(ctx, "Greeting", "say hello")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "Other", "nothing to see")
	require.NoError(t, err)

	found, err := repo.Search(ctx, "hello")
	require.NoError(t, err)
	require.Equal(t, []int64{say.ID, hello.ID}, ids(found))

	found, err = repo.Search(ctx, "zzz")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Empty(t, found)

	for _, q := range []string{"", "   ", "\t"} {
		_, err = repo.Search(ctx, q)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, msgMissingQuery, verr.Message)
	}
}

func TestRepository_Search_UnicodeCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, WithClock(newFakeClock().Now))

	n, err := repo.Create(ctx, "Élan Ärger", "ПРИВЕТ мир")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "plain", "ascii only")
	require.NoError(t, err)

	for _, q := range []string{"élan", "ÉLAN", "ärger", "привет", "МИР", "Élan ä"} {
		found, err := repo.Search(ctx, q)
		require.NoError(t, err, q)
		require.Equal(t, []int64{n.ID}, ids(found), q)
	}
}

func TestRepository_Search_WildcardsMatchLiterally(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, WithClock(newFakeClock().Now))

	pct, err := repo.Create(ctx, "100% done", "")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "1000 done", "")
	require.NoError(t, err)
	under, err := repo.Create(ctx, "snake_case", "")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "snakeXcase", "")
	require.NoError(t, err)

	found, err := repo.Search(ctx, "0%")
	require.NoError(t, err)
	require.Equal(t, []int64{pct.ID}, ids(found))

	found, err = repo.Search(ctx, "e_c")
	require.NoError(t, err)
	require.Equal(t, []int64{under.ID}, ids(found))
}

func TestRepository_StoreErrorWrapsCause(t *testing.T) {
	ctx := context.Background()
	repo, closeFn := openSQLiteRepo(t)
	closeFn()

	_, err := repo.List(ctx)
	var serr *StoreError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, "list", serr.Op)
	require.NotNil(t, errors.Unwrap(err))
}

func TestNewRepository_UnknownDialect(t *testing.T) {
	_, err := NewRepository(context.Background(), nil, db.Dialect("mysql"))
	require.Error(t, err)
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"1", 1, true},
		{"42", 42, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{" 1", 0, false},
		{"+1", 0, false},
		{"01", 0, false},
		{"0001", 0, false},
		{"9223372036854775807", 9223372036854775807, true},
	}
	for _, tt := range tests {
		got, ok := ParseID(tt.in)
		require.Equal(t, tt.ok, ok, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

func sameNote(a, b Note) bool {
	return a.ID == b.ID && a.Title == b.Title && a.Content == b.Content &&
		a.CreatedAt.Equal(b.CreatedAt) && a.UpdatedAt.Equal(b.UpdatedAt)
}

func ids(items []Note) []int64 {
	out := make([]int64, 0, len(items))
	for _, n := range items {
		out = append(out, n.ID)
	}
	return out
}
