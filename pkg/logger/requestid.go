package logger

import "github.com/google/uuid"

// generateRequestID mints a correlation id for gateway requests that arrive
// without an X-Request-ID header.
func generateRequestID() string {
	return uuid.NewString()
}
