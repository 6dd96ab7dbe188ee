package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Organizations() OrganizationStore
	Users() UserStore
}

// OrganizationStore manages organizations.
type OrganizationStore interface {
	// Register creates org and its first user atomically, filling in their IDs and timestamps.
	Register(ctx context.Context, org *Organization, admin *User) error
}

// UserStore manages users and their token state.
//
// The conditional writes (RotateRefreshToken, ConsumeResetToken) must be a
// single atomic compare-and-set; they report false when nothing matched.
type UserStore interface {
	FindByEmail(ctx context.Context, orgID int64, email string) (*User, error)
	FindByRefreshDigest(ctx context.Context, digest string, now time.Time) (*User, error)
	SetRefreshToken(ctx context.Context, userID int64, digest string, expiresAt time.Time) error
	RotateRefreshToken(ctx context.Context, userID int64, oldDigest, newDigest string, expiresAt, now time.Time) (bool, error)
	ClearRefreshToken(ctx context.Context, userID int64) error
	SetResetToken(ctx context.Context, userID int64, digest string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, orgID int64, digest, passwordHash string, now time.Time) (bool, error)
}
