package auth

import (
	"fmt"

	"github.com/Algorisys-Technologies/app-portal/internal/apperr"
)

var (
	ErrInvalidToken       = fmt.Errorf("%w: invalid or expired token", apperr.ErrUnauthenticated)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthenticated)
	ErrRefreshRejected    = fmt.Errorf("%w: invalid or expired refresh token", apperr.ErrUnauthenticated)
	ErrUserNotFound       = fmt.Errorf("%w: user not found in organization", apperr.ErrNotFound)
	ErrInvalidResetToken  = fmt.Errorf("%w: invalid or expired reset token", apperr.ErrInvalidArgument)
	ErrAlreadyRegistered  = fmt.Errorf("%w: organization or user already exists", apperr.ErrConflict)
)
