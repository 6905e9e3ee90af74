package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"onboard/internal/kyc/models"
	id "onboard/pkg/domain"
	"onboard/pkg/platform/sentinel"
)

// InMemory is a CaseStore for tests and local runs. Cases are cloned on the
// way in and out so callers never share state with the store.
type InMemory struct {
	mu     sync.RWMutex
	cases  map[id.CaseID]*models.Case
	byUser map[id.UserID]id.CaseID
}

func NewInMemory() *InMemory {
	return &InMemory{
		cases:  make(map[id.CaseID]*models.Case),
		byUser: make(map[id.UserID]id.CaseID),
	}
}

func (s *InMemory) FindByUserID(_ context.Context, userID id.UserID) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	caseID, ok := s.byUser[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.cases[caseID].Clone(), nil
}

func (s *InMemory) FindByID(_ context.Context, caseID id.CaseID) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *InMemory) Create(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUser[c.UserID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	if _, ok := s.cases[c.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	c.Version = 1
	s.cases[c.ID] = c.Clone()
	s.byUser[c.UserID] = c.ID
	return nil
}

func (s *InMemory) CompareAndSwap(_ context.Context, c *models.Case, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.cases[c.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return sentinel.ErrConflict
	}
	c.Version = expectedVersion + 1
	s.cases[c.ID] = c.Clone()
	return nil
}

func (s *InMemory) List(_ context.Context, filter models.CaseFilter) (*models.CasePage, error) {
	filter = filter.WithDefaults()
	s.mu.RLock()
	matched := make([]*models.Case, 0, len(s.cases))
	for _, c := range s.cases {
		if matches(c, filter) {
			matched = append(matched, c)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	page := &models.CasePage{Total: len(matched), Cases: []*models.Case{}}
	if filter.Offset >= len(matched) {
		return page, nil
	}
	end := min(filter.Offset+filter.Limit, len(matched))
	for _, c := range matched[filter.Offset:end] {
		page.Cases = append(page.Cases, c.Clone())
	}
	return page, nil
}

func matches(c *models.Case, f models.CaseFilter) bool {
	if len(f.States) > 0 {
		found := false
		for _, st := range f.States {
			if c.State == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.CreatedFrom != nil && c.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && c.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		return strings.Contains(strings.ToLower(c.ApplicantName), q) ||
			strings.Contains(strings.ToLower(c.CompanyName), q)
	}
	return true
}

func (s *InMemory) CountByState(_ context.Context) (map[models.CaseState]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.CaseState]int, len(models.CaseStates))
	for _, c := range s.cases {
		counts[c.State]++
	}
	return counts, nil
}

func (s *InMemory) ListExpiring(_ context.Context, now time.Time, limit int) ([]*models.Case, error) {
	type due struct {
		c  *models.Case
		at time.Time
	}
	s.mu.RLock()
	var found []due
	for _, c := range s.cases {
		if next := c.NextExpiry(); next != nil && !next.After(now) {
			found = append(found, due{c: c, at: *next})
		}
	}
	s.mu.RUnlock()

	sort.Slice(found, func(i, j int) bool { return found[i].at.Before(found[j].at) })
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	out := make([]*models.Case, 0, len(found))
	for _, d := range found {
		out = append(out, d.c.Clone())
	}
	return out, nil
}
