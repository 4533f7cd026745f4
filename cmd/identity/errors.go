package identity

import "errors"

// ErrUserNotFound is returned when no user matches the given selector.
var ErrUserNotFound = errors.New("user not found")
