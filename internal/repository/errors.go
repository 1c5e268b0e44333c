// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to perform an operation on someone else's account,
// while ErrEmailExists signals a unique-constraint violation on
// the users.email column.
package repository

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmailExists is returned when an insert hits the unique email
// constraint. Handlers translate this into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a lookup matches no row. Handlers
// translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on an account they do not own or lack the role for. Handlers
// translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrAlreadyDeleted is returned when soft-deleting an account whose
// deleted flag is already set. The operation is rejected rather
// than repeated.
var ErrAlreadyDeleted = errors.New("account already deleted")

// CooldownError is returned when a new OTP is requested while the
// previous code for the same email is still valid. Remaining is the
// time left until a new code may be issued.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("otp cooldown active, retry in %ds", int(e.Remaining.Seconds()))
}

// AsCooldown unwraps err into a *CooldownError when possible.
func AsCooldown(err error) (*CooldownError, bool) {
	var ce *CooldownError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
