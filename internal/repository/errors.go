// Package repository holds the MySQL access code of calendar-server.
// The sentinel values below let handlers tell failure scenarios apart:
// ErrEmailExists becomes a 409 on registration, ErrEventNotFound a 404
// on delete.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrEmailExists is returned when a registration uses an email that
// already belongs to an account.
var ErrEmailExists = errors.New("email already exists")

// ErrEventNotFound is returned when an event does not exist or is
// owned by someone else. The two cases are not distinguished so
// callers cannot probe for foreign ids.
var ErrEventNotFound = errors.New("event not found")

// ErrTokenInvalid is returned for refresh tokens that are unknown,
// revoked or expired.
var ErrTokenInvalid = errors.New("refresh token invalid")

// isDuplicate reports a MySQL unique-key violation (error 1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
