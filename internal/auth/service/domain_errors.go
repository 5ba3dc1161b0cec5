package service

import (
	"net/http"

	commonerrors "github.com/ddanilenko/inkpost/internal/common/errors"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// responses never reveal which accounts exist.
	ErrInvalidCredentials = commonerrors.NewDomainError(
		"INVALID_CREDENTIALS",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"invalid email or password",
	)

	// ErrRefreshTokenMismatch means the presented refresh token is not the
	// one currently on record: either it was already rotated away (replay)
	// or the session was logged out.
	ErrRefreshTokenMismatch = commonerrors.NewDomainError(
		"REFRESH_TOKEN_MISMATCH",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"refresh token is no longer valid",
	)
)
