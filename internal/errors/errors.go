package errors

import (
	"errors"
	"fmt"
)

// Common error types for the editorial console
var (
	// Authentication errors
	ErrInputRejected = errors.New("input rejected")
	ErrNotLoggedIn   = errors.New("not logged in")

	// Flow errors
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrNoPendingConflict  = errors.New("no pending session conflict")
	ErrInvalidOTPFormat   = errors.New("otp must be exactly 6 digits")
	ErrOTPRejected        = errors.New("otp rejected by server")
	ErrResendWindowOpen   = errors.New("resend window has not elapsed")

	// Gateway errors
	ErrRequestInFlight = errors.New("request already in flight")
	ErrBackendRejected = errors.New("backend rejected request")
	ErrSessionLost     = errors.New("session lost")
	ErrNoResponse      = errors.New("no response from server")

	// Menu errors
	ErrEmptyMenu          = errors.New("menu descriptor is empty")
	ErrDuplicateMenuEntry = errors.New("duplicate menu entry identifier")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
