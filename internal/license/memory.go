package license

import (
	"context"
	"sync"
	"time"

	"github.com/Algorisys-Technologies/app-portal/internal/apperr"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps licenses in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	licenses []License
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Add stores a license and returns it with its assigned ID.
func (s *MemoryStore) Add(l License) License {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	l.ID = s.nextID
	s.licenses = append(s.licenses, l)
	return l
}

func (s *MemoryStore) FindActive(_ context.Context, orgID, appID int64, now time.Time) (License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best  License
		found bool
	)
	for _, l := range s.licenses {
		if l.OrganizationID != orgID || l.ApplicationID != appID || !l.ActiveAt(now) {
			continue
		}
		if !found || l.EndDate.After(best.EndDate) {
			best, found = l, true
		}
	}
	if !found {
		return License{}, apperr.ErrNotFound
	}
	return best, nil
}
