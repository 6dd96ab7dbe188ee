package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/Algorisys-Technologies/app-portal/internal/apperr"
)

const (
	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultResetTTL   = time.Hour

	resetTokenBytes = 32
)

// Service implements the session-token lifecycle: login, logout, refresh
// rotation and password reset.
type Service struct {
	store Store
	codec *Codec
	now   func() time.Time

	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithResetTTL configures how long a password reset token stays usable.
func WithResetTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.resetTTL = ttl
		}
		return nil
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs Service with optional configuration.
func NewService(store Store, codec *Codec, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if codec == nil {
		return nil, errors.New("auth: codec is required")
	}
	svc := &Service{
		store:      store,
		codec:      codec,
		now:        time.Now,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		resetTTL:   defaultResetTTL,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	if svc.accessTTL >= svc.refreshTTL {
		return nil, errors.New("auth: access ttl must be shorter than refresh ttl")
	}
	return svc, nil
}

// Register creates an organization together with its first admin user.
func (s *Service) Register(ctx context.Context, reg Registration) (Organization, error) {
	reg.OrgName = strings.TrimSpace(reg.OrgName)
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)
	reg.Usage = strings.TrimSpace(reg.Usage)
	email, err := normalizeEmail(reg.Email)
	if err != nil {
		return Organization{}, err
	}
	switch {
	case reg.OrgName == "":
		return Organization{}, apperr.Invalid("org_name is required")
	case reg.FirstName == "" || reg.LastName == "":
		return Organization{}, apperr.Invalid("first_name and last_name are required")
	case reg.Usage == "":
		return Organization{}, apperr.Invalid("usage is required")
	case reg.OrgSize < 0:
		return Organization{}, apperr.Invalid("org_size must not be negative")
	}
	if err := validatePassword(reg.Password); err != nil {
		return Organization{}, err
	}

	hash, err := HashPassword(reg.Password)
	if err != nil {
		return Organization{}, apperr.Internal("hash password", err)
	}
	org := Organization{
		Name:      reg.OrgName,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Email:     email,
		Size:      reg.OrgSize,
		Usage:     reg.Usage,
	}
	admin := User{
		RoleID:       RoleAdmin,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.store.Organizations().Register(ctx, &org, &admin); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return Organization{}, err
		}
		return Organization{}, apperr.Internal("register organization", err)
	}
	return org, nil
}

// Login checks credentials of an active user of orgID and issues a token pair.
// The refresh token is persisted so it can later be rotated.
func (s *Service) Login(ctx context.Context, email, password string, orgID int64) (TokenPair, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return TokenPair{}, err
	}
	if password == "" {
		return TokenPair{}, apperr.Invalid("password is required")
	}
	if orgID <= 0 {
		return TokenPair{}, apperr.Invalid("org_id is required")
	}

	user, err := s.store.Users().FindByEmail(ctx, orgID, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			burnPasswordCheck(password)
			return TokenPair{}, ErrUserNotFound
		}
		return TokenPair{}, apperr.Internal("find user", err)
	}
	if !user.Active {
		burnPasswordCheck(password)
		return TokenPair{}, ErrUserNotFound
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	pair, digest, err := s.mintPair(identityOf(user))
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.Users().SetRefreshToken(ctx, user.ID, digest, pair.RefreshExpiresAt); err != nil {
		return TokenPair{}, apperr.Internal("store refresh token", err)
	}
	return pair, nil
}

// Authenticate verifies an access token and returns its identity.
func (s *Service) Authenticate(_ context.Context, accessToken string) (Identity, error) {
	return s.codec.Verify(accessToken, AccessToken)
}

// Logout revokes the caller's refresh token. The access token itself stays
// valid until it expires. Calling Logout again is harmless.
func (s *Service) Logout(ctx context.Context, accessToken string) (Identity, error) {
	id, err := s.codec.Verify(accessToken, AccessToken)
	if err != nil {
		return Identity{}, err
	}
	if err := s.store.Users().ClearRefreshToken(ctx, id.UserID); err != nil {
		return Identity{}, apperr.Internal("clear refresh token", err)
	}
	return id, nil
}

// Refresh exchanges a stored, unexpired refresh token for a new pair and
// rotates the stored value. Only one caller can win a given token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, Identity, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, Identity{}, ErrRefreshRejected
	}
	now := s.now()
	digest := digestToken(refreshToken)

	users := s.store.Users()
	user, err := users.FindByRefreshDigest(ctx, digest, now)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return TokenPair{}, Identity{}, ErrRefreshRejected
		}
		return TokenPair{}, Identity{}, apperr.Internal("find refresh token", err)
	}
	claimed, err := s.codec.Verify(refreshToken, RefreshToken)
	if err != nil || claimed.UserID != user.ID || !user.Active {
		return TokenPair{}, Identity{}, ErrRefreshRejected
	}

	id := identityOf(user)
	pair, newDigest, err := s.mintPair(id)
	if err != nil {
		return TokenPair{}, Identity{}, err
	}
	rotated, err := users.RotateRefreshToken(ctx, user.ID, digest, newDigest, pair.RefreshExpiresAt, now)
	if err != nil {
		return TokenPair{}, Identity{}, apperr.Internal("rotate refresh token", err)
	}
	if !rotated {
		return TokenPair{}, Identity{}, ErrRefreshRejected
	}
	return pair, id, nil
}

// RequestPasswordReset issues a one-time reset token for the user and returns
// it for out-of-band delivery.
func (s *Service) RequestPasswordReset(ctx context.Context, email string, orgID int64) (string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}
	if orgID <= 0 {
		return "", apperr.Invalid("org_id is required")
	}
	user, err := s.store.Users().FindByEmail(ctx, orgID, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", apperr.Internal("find user", err)
	}

	raw := make([]byte, resetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", apperr.Internal("generate reset token", err)
	}
	token := hex.EncodeToString(raw)
	if err := s.store.Users().SetResetToken(ctx, user.ID, digestToken(token), s.now().Add(s.resetTTL)); err != nil {
		return "", apperr.Internal("store reset token", err)
	}
	return token, nil
}

// ResetPassword consumes a reset token and replaces the password. It also
// revokes the user's refresh token.
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string, orgID int64) error {
	resetToken = strings.TrimSpace(resetToken)
	if resetToken == "" {
		return apperr.Invalid("resetToken is required")
	}
	if orgID <= 0 {
		return apperr.Invalid("org_id is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return apperr.Internal("hash password", err)
	}
	ok, err := s.store.Users().ConsumeResetToken(ctx, orgID, digestToken(resetToken), hash, s.now())
	if err != nil {
		return apperr.Internal("consume reset token", err)
	}
	if !ok {
		return ErrInvalidResetToken
	}
	return nil
}

// mintPair issues both tokens for id and returns the digest of the refresh token.
func (s *Service) mintPair(id Identity) (TokenPair, string, error) {
	access, accessExp, err := s.codec.Issue(id, AccessToken, s.accessTTL)
	if err != nil {
		return TokenPair{}, "", apperr.Internal("issue access token", err)
	}
	refresh, refreshExp, err := s.codec.Issue(id, RefreshToken, s.refreshTTL)
	if err != nil {
		return TokenPair{}, "", apperr.Internal("issue refresh token", err)
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, digestToken(refresh), nil
}

func digestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperr.Invalid("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apperr.Invalid("email is malformed")
	}
	return email, nil
}

func validatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return apperr.Invalid("password is required")
	}
	if len(password) > maxPasswordBytes {
		return apperr.Invalid("password must be at most %d bytes", maxPasswordBytes)
	}
	return nil
}
