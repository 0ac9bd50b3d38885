// Package memory provides an in-process rules repository for development and
// tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"runway/internal/core"
	"runway/internal/rules"
)

type Store struct {
	mu       sync.Mutex
	items    map[string]core.Rule
	settings rules.Settings
}

func New() *Store {
	return &Store{items: make(map[string]core.Rule)}
}

// ListRules returns every rule ordered by name, then ID for stability.
func (s *Store) ListRules(_ context.Context) ([]core.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Rule, 0, len(s.items))
	for _, rule := range s.items {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetRule(_ context.Context, id string) (core.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.items[id]
	if !ok {
		return core.Rule{}, fmt.Errorf("%w: %s", core.ErrRuleNotFound, id)
	}
	return rule, nil
}

func (s *Store) CreateRule(_ context.Context, rule core.Rule) (core.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[rule.ID]; exists {
		return core.Rule{}, fmt.Errorf("rule %s already exists", rule.ID)
	}
	if rule.Version == 0 {
		rule.Version = 1
	}
	s.items[rule.ID] = rule
	return rule, nil
}

func (s *Store) UpdateRule(_ context.Context, rule core.Rule) (core.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[rule.ID]
	if !ok {
		return core.Rule{}, fmt.Errorf("%w: %s", core.ErrRuleNotFound, rule.ID)
	}
	rule.Version = existing.Version + 1
	s.items[rule.ID] = rule
	return rule, nil
}

func (s *Store) DeleteRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("%w: %s", core.ErrRuleNotFound, id)
	}
	delete(s.items, id)
	return nil
}

func (s *Store) GetSettings(_ context.Context) (rules.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *Store) PutSettings(_ context.Context, settings rules.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}
