package engine

import "sync"

// State holds the mutable state of one request: the named result tables
// accumulated by API calls and the last computed result. One State is
// created per top-level request; concurrent sub-tasks within the request
// share it, so every accessor locks.
type State struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
	last   any
}

// NewState returns an empty request state.
func NewState() *State {
	return &State{tables: make(map[string][]map[string]any)}
}

// MergeTables adds or replaces named result tables.
func (s *State) MergeTables(tables map[string][]map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, rows := range tables {
		s.tables[name] = rows
	}
}

// Tables returns a snapshot of the table map. Row slices are shared;
// consumers treat them as read-only.
func (s *State) Tables() map[string][]map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]map[string]any, len(s.tables))
	for name, rows := range s.tables {
		out[name] = rows
	}
	return out
}

// Table returns one named table, or nil.
func (s *State) Table(name string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[name]
}

// SetLast overwrites the last-result slot.
func (s *State) SetLast(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = v
}

// Last returns the last-result slot.
func (s *State) Last() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
