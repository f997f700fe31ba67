package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist in the
// store.
var ErrNotFound = errors.New("record not found")
