// Package license answers whether an organization holds a license for an
// application at the current time.
package license

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Algorisys-Technologies/app-portal/internal/apperr"
)

// License grants an organization the use of one application within
// [StartDate, EndDate]. Licenses are never mutated by the portal.
type License struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"org_id"`
	ApplicationID  int64     `json:"app_id"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
}

// ActiveAt reports whether now falls inside the license window, bounds included.
func (l License) ActiveAt(now time.Time) bool {
	return !now.Before(l.StartDate) && !now.After(l.EndDate)
}

// Result is the outcome of a license check. License is nil when Valid is false.
type Result struct {
	Valid   bool     `json:"valid"`
	License *License `json:"license,omitempty"`
}

// Store looks up licenses.
type Store interface {
	// FindActive returns the license of orgID for appID whose window contains
	// now, or apperr.ErrNotFound.
	FindActive(ctx context.Context, orgID, appID int64, now time.Time) (License, error)
}

// Service checks licenses against a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("license: store is required")
	}
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ParseAppID validates the raw app_id parameter.
func ParseAppID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apperr.Invalid("app_id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("app_id must be a positive integer")
	}
	return id, nil
}

// CheckLicense reports whether orgID currently holds a license for appID.
// A missing license is a normal outcome and yields Result{Valid: false}.
func (s *Service) CheckLicense(ctx context.Context, orgID, appID int64) (Result, error) {
	if orgID <= 0 {
		return Result{}, apperr.ErrUnauthenticated
	}
	if appID <= 0 {
		return Result{}, apperr.Invalid("app_id must be a positive integer")
	}
	lic, err := s.store.FindActive(ctx, orgID, appID, s.now().UTC())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Result{Valid: false}, nil
		}
		return Result{}, apperr.Internal("find license", err)
	}
	return Result{Valid: true, License: &lic}, nil
}
