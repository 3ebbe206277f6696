package db

import (
	"database/sql"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// sqliteDriver is go-sqlite3 with the casefold SQL function installed on
// every connection. SQLite's own LIKE and lower() only fold ASCII.
const sqliteDriver = "sqlite3_notes"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("casefold", CaseFold, true)
		},
	})
}

// CaseFold maps s to a form in which strings differing only by letter case
// compare equal, for any script. Upper-casing first folds variants such as
// the Greek final sigma and the long s that lower-casing alone keeps apart.
func CaseFold(s string) string {
	return strings.ToLower(strings.ToUpper(s))
}

func (d Dialect) driver() string {
	if d == SQLite {
		return sqliteDriver
	}
	return string(d)
}
