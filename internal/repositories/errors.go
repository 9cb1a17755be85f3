package repositories

import "errors"

// ErrNotFound is returned when a lookup matches no record. Read paths treat
// backend failure shapes and empty results separately; callers that need the
// distinction check with errors.Is.
var ErrNotFound = errors.New("record not found")
