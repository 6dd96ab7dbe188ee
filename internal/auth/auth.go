package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultIssuer = "app-portal"

// TokenClass separates access from refresh tokens. Each class has its own signing key.
type TokenClass string

const (
	AccessToken  TokenClass = "access"
	RefreshToken TokenClass = "refresh"
)

// Claims represents JWT claims used across the service.
type Claims struct {
	UserID    int64      `json:"uid"`
	OrgID     int64      `json:"org"`
	RoleID    int64      `json:"role"`
	Email     string     `json:"email,omitempty"`
	TokenType TokenClass `json:"token_type"`
	jwt.RegisteredClaims
}

// Codec signs and verifies HS256 tokens.
type Codec struct {
	keys   map[TokenClass][]byte
	issuer string
	now    func() time.Time
}

// CodecOption configures Codec behavior.
type CodecOption func(*Codec)

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			c.issuer = issuer
		}
	}
}

// WithCodecClock overrides the time source (useful for tests).
func WithCodecClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec builds a codec from the access and refresh signing secrets.
// The secrets must be non-empty and distinct.
func NewCodec(accessSecret, refreshSecret string, opts ...CodecOption) (*Codec, error) {
	accessSecret = strings.TrimSpace(accessSecret)
	refreshSecret = strings.TrimSpace(refreshSecret)
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("auth: access and refresh secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	c := &Codec{
		keys: map[TokenClass][]byte{
			AccessToken:  []byte(accessSecret),
			RefreshToken: []byte(refreshSecret),
		},
		issuer: defaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token of the given class for id, valid for ttl.
func (c *Codec) Issue(id Identity, class TokenClass, ttl time.Duration) (string, time.Time, error) {
	key, ok := c.keys[class]
	if !ok {
		return "", time.Time{}, fmt.Errorf("auth: unknown token class %q", class)
	}
	if id.UserID <= 0 {
		return "", time.Time{}, errors.New("auth: user id is required")
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("auth: ttl must be greater than zero")
	}

	now := c.now().UTC().Truncate(time.Second)
	exp := now.Add(ttl)
	claims := Claims{
		UserID:    id.UserID,
		OrgID:     id.OrgID,
		RoleID:    id.RoleID,
		Email:     id.Email,
		TokenType: class,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature, class, issuer and expiry. Every failure is ErrInvalidToken.
func (c *Codec) Verify(token string, class TokenClass) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	key, ok := c.keys[class]
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return key, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if err := c.validateClaims(claims, class); err != nil {
		return Identity{}, ErrInvalidToken
	}
	return Identity{
		UserID: claims.UserID,
		OrgID:  claims.OrgID,
		RoleID: claims.RoleID,
		Email:  claims.Email,
	}, nil
}

// validateClaims applies the time checks explicitly so a token is accepted up
// to and including its expiry second, and never after.
func (c *Codec) validateClaims(claims *Claims, class TokenClass) error {
	if claims.TokenType != class {
		return fmt.Errorf("unexpected token type: %s", claims.TokenType)
	}
	if claims.Issuer != c.issuer {
		return fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	if claims.UserID <= 0 || claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return errors.New("subject mismatch")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	now := c.now().UTC()
	if now.After(claims.ExpiresAt.Time) {
		return errors.New("token expired")
	}
	if claims.NotBefore != nil && now.Before(claims.NotBefore.Time) {
		return errors.New("token not yet valid")
	}
	// Allow a small clock skew of 5 seconds when validating issued-at.
	if claims.IssuedAt.Time.After(now.Add(5 * time.Second)) {
		return errors.New("token issued in the future")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}
	return nil
}
