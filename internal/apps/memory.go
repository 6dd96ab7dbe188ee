package apps

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Algorisys-Technologies/app-portal/internal/apperr"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps applications in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	now    func() time.Time
	nextID int64
	apps   map[int64]Application
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now, apps: make(map[int64]Application)}
}

func (s *MemoryStore) List(_ context.Context, orgID int64) ([]Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Application
	for _, a := range s.apps {
		if a.OrganizationID == orgID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, orgID, id int64) (Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.apps[id]
	if !ok || a.OrganizationID != orgID {
		return Application{}, apperr.ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) Create(_ context.Context, app *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := s.now().UTC()
	app.ID = s.nextID
	app.CreatedAt, app.UpdatedAt = now, now
	s.apps[app.ID] = *app
	return nil
}

func (s *MemoryStore) Update(_ context.Context, app *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.apps[app.ID]
	if !ok || cur.OrganizationID != app.OrganizationID {
		return apperr.ErrNotFound
	}
	cur.Name, cur.Description, cur.URL = app.Name, app.Description, app.URL
	cur.UpdatedAt = s.now().UTC()
	s.apps[cur.ID] = cur
	*app = cur
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, orgID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[id]
	if !ok || a.OrganizationID != orgID {
		return apperr.ErrNotFound
	}
	delete(s.apps, id)
	return nil
}

func (s *MemoryStore) SetImage(_ context.Context, orgID, id int64, imageURL string) (Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[id]
	if !ok || a.OrganizationID != orgID {
		return Application{}, apperr.ErrNotFound
	}
	a.ImageURL = imageURL
	a.UpdatedAt = s.now().UTC()
	s.apps[id] = a
	return a, nil
}
