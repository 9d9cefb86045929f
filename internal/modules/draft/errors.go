package draft

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("draft not found")
	ErrNotHolder  = errors.New("caller does not hold the lease")
)

// LockedError reports a lease conflict together with the current holder so
// callers can render "in use by X until Y".
type LockedError struct {
	HolderID    int64
	HolderLabel string
	ExpiresAt   time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("draft locked by %s (id %d) until %s", e.HolderLabel, e.HolderID, e.ExpiresAt.Format(time.RFC3339))
}
