// Package repository holds the MySQL data access layer. Every lookup that
// finds no row returns ErrNotFound so the layers above never depend on
// database/sql sentinels.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist. Ownership
// oracles return it for a missing resource; callers treat it as a deny.
var ErrNotFound = errors.New("not found")

// Unique-constraint violations surfaced by user and quiz writes.
var (
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
	ErrURLTokenExists = errors.New("url token already exists")
)

// mysqlDuplicateKey is ER_DUP_ENTRY.
const mysqlDuplicateKey = 1062

// duplicateKey reports whether err is a duplicate-key violation and, when it
// is, returns the MySQL message naming the offending index.
func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateKey {
		return strings.ToLower(me.Message), true
	}
	return "", false
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
