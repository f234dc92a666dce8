// Package repository owns persistence for customers, mechanics, inventory
// items and service tickets.  Absence and uniqueness failures are reported
// through the sentinel values below so that handlers can distinguish them
// with errors.Is and map them onto HTTP status codes.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

// Not-found sentinels.  Handlers translate these into HTTP 404.
var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrMechanicNotFound = errors.New("mechanic not found")
	ErrTicketNotFound   = errors.New("service ticket not found")
	ErrItemNotFound     = errors.New("inventory item not found")
)

// Uniqueness sentinels.  Handlers translate these into HTTP 409.
var (
	ErrEmailExists        = errors.New("email already exists")
	ErrMechanicNameExists = errors.New("mechanic name already exists")
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isUniqueViolation reports whether err was raised by a UNIQUE or PRIMARY KEY
// constraint in either supported driver.
func isUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
