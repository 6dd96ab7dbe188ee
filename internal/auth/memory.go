package auth

import (
	"context"
	"sync"
	"time"

	"github.com/Algorisys-Technologies/app-portal/internal/apperr"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a process-local Store used for development runs without a
// database and by tests. Conditional writes hold the lock for the whole
// compare-and-set, matching the PostgreSQL semantics.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	nextOrg int64
	nextUsr int64
	orgs    map[int64]Organization
	users   map[int64]User
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:   time.Now,
		orgs:  make(map[int64]Organization),
		users: make(map[int64]User),
	}
}

func (s *MemoryStore) Organizations() OrganizationStore { return memOrgs{s} }
func (s *MemoryStore) Users() UserStore                 { return memUsers{s} }

// PutUser inserts or replaces a user and returns the stored copy.
func (s *MemoryStore) PutUser(u User) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.nextUsr++
		u.ID = s.nextUsr
	} else if u.ID > s.nextUsr {
		s.nextUsr = u.ID
	}
	now := s.now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u
}

// User returns a copy of the stored user.
func (s *MemoryStore) User(id int64) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok
}

type memOrgs struct{ s *MemoryStore }

func (m memOrgs) Register(_ context.Context, org *Organization, admin *User) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.orgs {
		if existing.Name == org.Name {
			return ErrAlreadyRegistered
		}
	}
	now := s.now().UTC()
	s.nextOrg++
	org.ID = s.nextOrg
	org.CreatedAt, org.UpdatedAt = now, now
	s.orgs[org.ID] = *org

	s.nextUsr++
	admin.ID = s.nextUsr
	admin.OrganizationID = org.ID
	admin.CreatedAt, admin.UpdatedAt = now, now
	s.users[admin.ID] = *admin
	return nil
}

type memUsers struct{ s *MemoryStore }

func (m memUsers) FindByEmail(_ context.Context, orgID int64, email string) (*User, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.OrganizationID == orgID && u.Email == email {
			return &u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m memUsers) FindByRefreshDigest(_ context.Context, digest string, now time.Time) (*User, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if refreshMatches(u, digest, now) {
			return &u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m memUsers) SetRefreshToken(_ context.Context, userID int64, digest string, expiresAt time.Time) error {
	return m.update(userID, func(u *User) {
		u.RefreshTokenHash = digest
		u.RefreshExpiresAt = &expiresAt
	})
}

func (m memUsers) RotateRefreshToken(_ context.Context, userID int64, oldDigest, newDigest string, expiresAt, now time.Time) (bool, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || !refreshMatches(u, oldDigest, now) {
		return false, nil
	}
	u.RefreshTokenHash = newDigest
	u.RefreshExpiresAt = &expiresAt
	u.UpdatedAt = s.now().UTC()
	s.users[userID] = u
	return true, nil
}

func (m memUsers) ClearRefreshToken(_ context.Context, userID int64) error {
	return m.update(userID, func(u *User) {
		u.RefreshTokenHash = ""
		u.RefreshExpiresAt = nil
	})
}

func (m memUsers) SetResetToken(_ context.Context, userID int64, digest string, expiresAt time.Time) error {
	return m.update(userID, func(u *User) {
		u.ResetTokenHash = digest
		u.ResetExpiresAt = &expiresAt
	})
}

func (m memUsers) ConsumeResetToken(_ context.Context, orgID int64, digest, passwordHash string, now time.Time) (bool, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.OrganizationID != orgID || u.ResetTokenHash == "" || u.ResetTokenHash != digest {
			continue
		}
		if u.ResetExpiresAt == nil || u.ResetExpiresAt.Before(now) {
			return false, nil
		}
		u.PasswordHash = passwordHash
		u.ResetTokenHash, u.ResetExpiresAt = "", nil
		u.RefreshTokenHash, u.RefreshExpiresAt = "", nil
		u.UpdatedAt = s.now().UTC()
		s.users[id] = u
		return true, nil
	}
	return false, nil
}

// update mutates a user in place. Unknown IDs are a no-op, like an UPDATE matching no rows.
func (m memUsers) update(userID int64, fn func(*User)) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	fn(&u)
	u.UpdatedAt = s.now().UTC()
	s.users[userID] = u
	return nil
}

func refreshMatches(u User, digest string, now time.Time) bool {
	if u.RefreshTokenHash == "" || u.RefreshTokenHash != digest {
		return false
	}
	return u.RefreshExpiresAt != nil && !u.RefreshExpiresAt.Before(now)
}
