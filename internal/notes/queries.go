package notes

import (
	"strings"

	"example.com/notes-api/internal/db"
)

type querySet struct {
	list, get, create, update, delete, search string
}

const noteColumns = `id, title, COALESCE(content, ''), created_at, updated_at`

var postgresQueries = querySet{
	list: `
		SELECT ` + noteColumns + `
		FROM notes
		ORDER BY updated_at DESC, id DESC
	`,
	get: `
		SELECT ` + noteColumns + `
		FROM notes
		WHERE id = $1
	`,
	create: `
		INSERT INTO notes (title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING ` + noteColumns,
	update: `
		UPDATE notes
		SET title = $1, content = $2, updated_at = GREATEST($3, created_at)
		WHERE id = $4
		RETURNING ` + noteColumns,
	delete: `DELETE FROM notes WHERE id = $1`,
	search: `
		SELECT ` + noteColumns + `
		FROM notes
		WHERE title ILIKE $1 ESCAPE '\' OR COALESCE(content, '') ILIKE $1 ESCAPE '\'
		ORDER BY updated_at DESC, id DESC
	`,
}

// SQLite has no ILIKE and its LIKE only folds ASCII, so search compares both
// sides through the casefold function registered by the db package. It also
// has no GREATEST, only the two-argument scalar max.
var sqliteQueries = sqliteParams(querySet{
	list:   postgresQueries.list,
	get:    postgresQueries.get,
	create: postgresQueries.create,
	update: `
		UPDATE notes
		SET title = $1, content = $2, updated_at = max($3, created_at)
		WHERE id = $4
		RETURNING ` + noteColumns,
	delete: postgresQueries.delete,
	search: `
		SELECT ` + noteColumns + `
		FROM notes
		WHERE casefold(title) LIKE casefold($1) ESCAPE '\'
			OR casefold(COALESCE(content, '')) LIKE casefold($1) ESCAPE '\'
		ORDER BY updated_at DESC, id DESC
	`,
})

var queries = map[db.Dialect]querySet{
	db.Postgres: postgresQueries,
	db.SQLite:   sqliteQueries,
}

// sqliteParams rewrites $N placeholders to SQLite's ?N form.
func sqliteParams(q querySet) querySet {
	r := strings.NewReplacer("$", "?")
	return querySet{
		list:   r.Replace(q.list),
		get:    r.Replace(q.get),
		create: r.Replace(q.create),
		update: r.Replace(q.update),
		delete: r.Replace(q.delete),
		search: r.Replace(q.search),
	}
}
