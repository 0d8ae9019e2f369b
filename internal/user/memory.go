package user

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"herodex.org/internal/ids"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps users in process memory for tests and DSN-less runs.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User)}
}

func (s *MemoryStore) List(_ context.Context, page Page) ([]User, error) {
	page = page.normalized()

	s.mu.RLock()
	all := make([]User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, u)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		vi, vj := userField(all[i], page.OrderBy), userField(all[j], page.OrderBy)
		if page.Desc {
			return strings.Compare(vi, vj) > 0
		}
		return strings.Compare(vi, vj) < 0
	})

	if page.Skip >= len(all) {
		return []User{}, nil
	}
	all = all[page.Skip:]
	if page.Limit > 0 && len(all) > page.Limit {
		all = all[:page.Limit]
	}
	return all, nil
}

func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *MemoryStore) Find(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Create(_ context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.Role == "" {
		u.Role = RoleRegular
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) Update(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range s.users {
		if id != u.ID && existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func userField(u User, field string) string {
	switch field {
	case "firstName":
		return u.FirstName
	case "lastName":
		return u.LastName
	case "email":
		return u.Email
	case "role":
		return u.Role
	case "createdAt":
		return u.CreatedAt.Format(time.RFC3339Nano)
	case "updatedAt":
		return u.UpdatedAt.Format(time.RFC3339Nano)
	default:
		return u.ID
	}
}
