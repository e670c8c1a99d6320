// Package repository defines the persistence contracts of the back office
// and their MySQL implementation.  The sentinel values below let services
// tell apart the failure scenarios they translate into API errors.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique key
// (MySQL error 1062).
var ErrDuplicate = errors.New("duplicate")

// ErrReferenced is returned when a delete or update is rejected because
// other rows still reference the target (MySQL errors 1451 and 1452).
var ErrReferenced = errors.New("referenced")

// mapErr translates driver errors into the sentinels above.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1062:
			return ErrDuplicate
		case 1451, 1452:
			return ErrReferenced
		}
	}
	return err
}
