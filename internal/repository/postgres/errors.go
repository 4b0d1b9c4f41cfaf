package postgres

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"club-recruitment-service/internal/domain"
)

const pqUniqueViolation = "23505"

// isUniqueViolation reports unique constraint failures from either driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// notFoundOr maps sql.ErrNoRows to a domain NotFound error.
func notFoundOr(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewNotFound(what + " not found")
	}
	return err
}

// rollback is deferred by transactional methods; it is a no-op after commit.
func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}
