package builder

import "errors"

// ErrStateIntegrity marks a session whose draft no longer matches its cursor
// (missing pending line, edit index out of range, unknown state). The session
// is unrecoverable: the dispatcher abandons the draft and returns the user to
// the top-level menu rather than crashing.
var ErrStateIntegrity = errors.New("builder state integrity violation")
