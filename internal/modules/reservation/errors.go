package reservation

import "errors"

var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("reservation not found")
	ErrAlreadyConfirmed = errors.New("reservation already confirmed")
	ErrBusy             = errors.New("allocation retries exhausted")
)
