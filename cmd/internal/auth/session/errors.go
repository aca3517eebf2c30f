package session

import (
	"errors"
	"fmt"
)

var (
	// ErrBadCredentials is returned by Login for an unknown user or a wrong password.
	ErrBadCredentials = errors.New("bad credentials")

	// ErrTokenNotFound is returned by Refresh when the refresh token matches no handle.
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrExpired is returned by Refresh when the handle has expired. The handle is gone afterwards.
	ErrExpired = errors.New("refresh token expired")

	// ErrUserLookupFailed is returned by Refresh when the handle's owner cannot be loaded.
	ErrUserLookupFailed = errors.New("refresh token owner lookup failed")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// UserLookupError carries the owner id of a handle whose user could not be loaded.
type UserLookupError struct {
	UserID string
	Err    error
}

func (e *UserLookupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: user %s", ErrUserLookupFailed.Error(), e.UserID)
	}
	return fmt.Sprintf("%s: user %s: %v", ErrUserLookupFailed.Error(), e.UserID, e.Err)
}

func (e *UserLookupError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUserLookupFailed}
	}
	return []error{ErrUserLookupFailed, e.Err}
}
