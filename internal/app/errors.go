package app

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks request input the service refuses before touching storage.
	ErrValidation = errors.New("validation failed")

	// ErrIncorrectCredentials is returned by Login for an unknown email or a wrong password alike.
	ErrIncorrectCredentials = errors.New("incorrect username or password")
	// ErrMissingCredentials means the session cookies were not presented.
	ErrMissingCredentials = errors.New("could not validate credentials")
	// ErrInvalidCredentials covers every other authentication failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRefreshTokenReuse is an ErrInvalidCredentials raised when a superseded refresh token is presented.
	ErrRefreshTokenReuse = fmt.Errorf("%w: refresh token reuse detected", ErrInvalidCredentials)

	// ErrInvalidSettlement is a charge event whose metadata cannot be settled.
	ErrInvalidSettlement = errors.New("invalid settlement data")
	// ErrSettlementMismatch is a charge whose school and admin shares do not add up to the total.
	ErrSettlementMismatch = errors.New("settlement amounts do not add up")
	// ErrAdminWalletNotConfigured means no platform admin wallet is set to receive the admin share.
	ErrAdminWalletNotConfigured = errors.New("platform admin wallet is not configured")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
