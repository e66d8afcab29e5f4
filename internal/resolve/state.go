package resolve

import (
	"strings"
	"sync"
)

// CategoryRef is the remote identity of a category created or found in a run.
type CategoryRef struct {
	ID     int
	TreeID int
}

// RunState maps local category keys to remote refs. It is safe for use by the
// workers of one tier.
type RunState struct {
	mu   sync.RWMutex
	refs map[string]CategoryRef
}

// NewRunState returns empty run state.
func NewRunState() *RunState {
	return &RunState{refs: make(map[string]CategoryRef)}
}

// Set records the ref of key.
func (s *RunState) Set(key string, ref CategoryRef) {
	s.mu.Lock()
	s.refs[key] = ref
	s.mu.Unlock()
}

// Get returns the ref of key.
func (s *RunState) Get(key string) (CategoryRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.refs[key]
	return ref, ok
}

// Len returns the number of recorded refs.
func (s *RunState) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.refs)
}

// TreeSelector picks the category tree of a root category from its key.
type TreeSelector struct {
	Prefix        string
	PrefixTreeID  int
	DefaultTreeID int
}

// TreeFor returns PrefixTreeID for keys starting with Prefix and
// DefaultTreeID otherwise.
func (t TreeSelector) TreeFor(key string) int {
	if t.Prefix != "" && strings.HasPrefix(key, t.Prefix) {
		return t.PrefixTreeID
	}
	return t.DefaultTreeID
}
