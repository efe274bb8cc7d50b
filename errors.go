package horum

import "errors"

// ErrInvalidInput is returned when a user-supplied argument fails validation.
var ErrInvalidInput = errors.New("horum: invalid input")

// ErrNotFound is returned when a requested thread or board is not archived.
var ErrNotFound = errors.New("horum: not found")
