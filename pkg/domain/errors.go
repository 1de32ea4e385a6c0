package domain

import "errors"

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrSessionExpired       = errors.New("session expired")

	// ErrInvalidCredentials deliberately covers both "unknown user" and
	// "wrong password" so that login responses do not allow account
	// enumeration.
	ErrInvalidCredentials = errors.New("invalid username/email or password")

	ErrAccountInactive = errors.New("account is inactive")
)

// ValidationError marks bad caller input. It maps to a 400-class response and
// its message is safe to show to the caller.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
