// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios.
// Missing rows are reported as sql.ErrNoRows.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when an insert collides with an existing
// unique value, such as creating a category whose name is taken.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by UserRepo.Create for a taken email.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicateReview is returned when a booking already carries a review.
var ErrDuplicateReview = errors.New("review already exists for booking")

// isDuplicate reports whether err is a unique-key violation.  MySQL signals
// it with error 1062; SQLite (used by the tests) with a message.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
