package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fekuna/affiliate-catalog-service/internal/model"
)

// MemoryStore keeps categories and keywords in maps. It backs tests and the
// offline tooling; it is safe for concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	categories map[int64]model.Category
	keywords   []model.CategoryKeyword
	nextID     int64

	// Err, when set, is returned by every read. Lets callers exercise
	// storage-unavailable paths.
	Err error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{categories: map[int64]model.Category{}}
}

// PutCategory inserts or replaces a category.
func (s *MemoryStore) PutCategory(c model.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
}

func (s *MemoryStore) ListActiveCategories(_ context.Context) ([]model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := make([]model.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListKeywordsForActiveCategories(_ context.Context) ([]model.CategoryKeyword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := []model.CategoryKeyword{}
	for _, k := range s.keywords {
		if c, ok := s.categories[k.CategoryID]; ok && c.IsActive {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListByCategory(_ context.Context, categoryID int64) ([]model.CategoryKeyword, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := []model.CategoryKeyword{}
	for _, k := range s.keywords {
		if k.CategoryID == categoryID {
			out = append(out, k)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsHighPriority != out[j].IsHighPriority {
			return out[i].IsHighPriority
		}
		return out[i].Keyword < out[j].Keyword
	})
	return out, nil
}

func (s *MemoryStore) BulkInsert(_ context.Context, entries []model.CategoryKeyword) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}

	inserted := 0
	for _, e := range entries {
		if s.indexOf(e.CategoryID, e.Keyword) >= 0 {
			continue
		}
		s.nextID++
		e.ID = s.nextID
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now()
		}
		s.keywords = append(s.keywords, e)
		inserted++
	}
	return inserted, nil
}

func (s *MemoryStore) Delete(_ context.Context, categoryID int64, keyword string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}

	i := s.indexOf(categoryID, keyword)
	if i < 0 {
		return false, nil
	}
	s.keywords = append(s.keywords[:i], s.keywords[i+1:]...)
	return true, nil
}

func (s *MemoryStore) SetPriority(_ context.Context, categoryID int64, keyword string, highPriority bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}

	i := s.indexOf(categoryID, keyword)
	if i < 0 {
		return false, nil
	}
	s.keywords[i].IsHighPriority = highPriority
	return true, nil
}

func (s *MemoryStore) indexOf(categoryID int64, keyword string) int {
	for i, k := range s.keywords {
		if k.CategoryID == categoryID && strings.EqualFold(k.Keyword, keyword) {
			return i
		}
	}
	return -1
}
