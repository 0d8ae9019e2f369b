package hero

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"herodex.org/internal/ids"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps heroes in process memory. It backs the HTTP tests and is
// a convenient fallback when no database DSN is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	heroes map[string]Hero
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{heroes: make(map[string]Hero)}
}

func (s *MemoryStore) List(_ context.Context, page Page) ([]Hero, error) {
	page = page.normalized()

	s.mu.RLock()
	all := make([]Hero, 0, len(s.heroes))
	for _, h := range s.heroes {
		all = append(all, h)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		less := lessByField(all[i], all[j], page.OrderBy)
		if page.Desc {
			return !less && !equalByField(all[i], all[j], page.OrderBy)
		}
		return less
	})

	if page.Skip >= len(all) {
		return []Hero{}, nil
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
	return len(s.heroes), nil
}

func (s *MemoryStore) Find(_ context.Context, id string) (*Hero, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.heroes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &h, nil
}

func (s *MemoryStore) FindByName(_ context.Context, heroName string) (*Hero, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.heroes {
		if h.HeroName == heroName {
			copied := h
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Create(_ context.Context, h *Hero) error {
	if h.ID == "" {
		h.ID = ids.New()
	}
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.heroes {
		if existing.HeroName == h.HeroName {
			return ErrNameTaken
		}
	}
	s.heroes[h.ID] = *h
	return nil
}

func (s *MemoryStore) Update(_ context.Context, h *Hero) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.heroes[h.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range s.heroes {
		if id != h.ID && existing.HeroName == h.HeroName {
			return ErrNameTaken
		}
	}
	h.UpdatedAt = time.Now().UTC()
	s.heroes[h.ID] = *h
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.heroes[id]; !ok {
		return ErrNotFound
	}
	delete(s.heroes, id)
	return nil
}

func lessByField(a, b Hero, field string) bool {
	switch field {
	case "createdAt":
		return a.CreatedAt.Before(b.CreatedAt)
	case "updatedAt":
		return a.UpdatedAt.Before(b.UpdatedAt)
	default:
		return strings.Compare(fieldValue(a, field), fieldValue(b, field)) < 0
	}
}

func equalByField(a, b Hero, field string) bool {
	switch field {
	case "createdAt":
		return a.CreatedAt.Equal(b.CreatedAt)
	case "updatedAt":
		return a.UpdatedAt.Equal(b.UpdatedAt)
	default:
		return fieldValue(a, field) == fieldValue(b, field)
	}
}

func fieldValue(h Hero, field string) string {
	switch field {
	case "heroName":
		return h.HeroName
	case "realName":
		return h.RealName
	case "studio":
		return h.Studio
	case "gender":
		return h.Gender
	case "nationality":
		return h.Nationality
	case "powers":
		return h.Powers
	default:
		return h.ID
	}
}
