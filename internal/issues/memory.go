package issues

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store for local runs and tests.
type MemoryStore struct {
	mu     sync.Mutex
	issues map[string]*Issue
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{issues: make(map[string]*Issue)}
}

func (s *MemoryStore) Create(ctx context.Context, issue *Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = now
	}
	issue.UpdatedAt = now
	s.issues[issue.ID] = cloneIssue(issue)
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if issue, ok := s.issues[id]; ok {
		return cloneIssue(issue), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]*Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]*Issue, 0, len(s.issues))
	for _, issue := range s.issues {
		if filter.Category != "" && issue.Category != filter.Category {
			continue
		}
		if filter.Status != "" && issue.Status != filter.Status {
			continue
		}
		if filter.BBox != nil && !filter.BBox.Contains(issue.Location) {
			continue
		}
		matched = append(matched, cloneIssue(issue))
	}
	order := filter.Sort
	if order.Field == "" {
		order = DefaultSort
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if order.Descending {
			a, b = b, a
		}
		switch order.Field {
		case "aiScore":
			return a.AIScore < b.AIScore
		case "votesCount":
			return a.VotesCount < b.VotesCount
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
	return matched, nil
}

func (s *MemoryStore) Save(ctx context.Context, issue *Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.issues[issue.ID]; !ok {
		return ErrNotFound
	}
	issue.UpdatedAt = time.Now().UTC()
	s.issues[issue.ID] = cloneIssue(issue)
	return nil
}

func cloneIssue(issue *Issue) *Issue {
	copied := *issue
	copied.Images = append([]string(nil), issue.Images...)
	copied.AISuggestions = append([]string(nil), issue.AISuggestions...)
	return &copied
}
