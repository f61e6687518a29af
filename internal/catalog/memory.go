package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process Catalog. It is safe for concurrent reads after
// loading.
type Memory struct {
	mu          sync.RWMutex
	assessments map[string]*Assessment
	items       map[string]*Item
}

// NewMemory returns an empty catalog.
func NewMemory() *Memory {
	return &Memory{
		assessments: make(map[string]*Assessment),
		items:       make(map[string]*Item),
	}
}

// Add registers an assessment together with its items. Items are appended to
// the assessment's ItemIDs in the given order. Defaults are applied to
// MinItems, MaxItems and Strategy.
func (m *Memory) Add(a Assessment, items ...Item) error {
	if a.ID == "" {
		return fmt.Errorf("assessment id is required")
	}
	if a.Strategy == "" {
		a.Strategy = StrategyFixed
	}
	if a.MinItems == 0 {
		a.MinItems = DefaultMinItems
	}
	if a.MaxItems == 0 {
		a.MaxItems = DefaultMaxItems
	}
	if a.MinItems > a.MaxItems {
		return fmt.Errorf("assessment %s: min_items %d exceeds max_items %d", a.ID, a.MinItems, a.MaxItems)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.assessments[a.ID]; dup {
		return fmt.Errorf("duplicate assessment id %q", a.ID)
	}
	ids := append([]string(nil), a.ItemIDs...)
	for i := range items {
		it := items[i]
		if it.ID == "" {
			return fmt.Errorf("assessment %s: item %d has no id", a.ID, i)
		}
		if _, dup := m.items[it.ID]; dup {
			return fmt.Errorf("duplicate item id %q", it.ID)
		}
		if it.Difficulty != nil && (*it.Difficulty < 0 || *it.Difficulty > 1) {
			return fmt.Errorf("item %s: difficulty %v outside [0,1]", it.ID, *it.Difficulty)
		}
		m.items[it.ID] = &it
		ids = append(ids, it.ID)
	}
	a.ItemIDs = ids
	m.assessments[a.ID] = &a
	return nil
}

func (m *Memory) Assessment(_ context.Context, id string) (*Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assessments[id]
	if !ok {
		return nil, fmt.Errorf("%w: assessment %s", ErrNotFound, id)
	}
	cp := *a
	cp.ItemIDs = append([]string(nil), a.ItemIDs...)
	return &cp, nil
}

func (m *Memory) Items(_ context.Context, assessmentID string) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assessments[assessmentID]
	if !ok {
		return nil, fmt.Errorf("%w: assessment %s", ErrNotFound, assessmentID)
	}
	out := make([]Item, 0, len(a.ItemIDs))
	for _, id := range a.ItemIDs {
		it, ok := m.items[id]
		if !ok {
			return nil, fmt.Errorf("assessment %s references unknown item %s", assessmentID, id)
		}
		out = append(out, *it)
	}
	return out, nil
}

func (m *Memory) Item(_ context.Context, id string) (*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, id)
	}
	cp := *it
	return &cp, nil
}

// Len returns the number of assessments and items held.
func (m *Memory) Len() (assessments, items int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.assessments), len(m.items)
}

// AssessmentIDs returns the ids of all assessments, sorted.
func (m *Memory) AssessmentIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.assessments))
	for id := range m.assessments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
