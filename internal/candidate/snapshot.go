package candidate

import "sync/atomic"

// Mode is a named scope a session can switch into.
type Mode struct {
	Alias string
	Name  string
}

// Snapshot is an immutable, ordered candidate list.
type Snapshot struct {
	items []Candidate
	modes []Mode
}

// NewSnapshot takes ownership of items and modes.
func NewSnapshot(items []Candidate, modes []Mode) *Snapshot {
	return &Snapshot{items: items, modes: modes}
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// At returns the candidate at index i. The result must not be modified.
func (s *Snapshot) At(i int) *Candidate { return &s.items[i] }

func (s *Snapshot) Modes() []Mode {
	if s == nil {
		return nil
	}
	return append([]Mode(nil), s.modes...)
}

// Store publishes the current snapshot.
type Store struct {
	p atomic.Pointer[Snapshot]
}

func NewStore(s *Snapshot) *Store {
	st := &Store{}
	st.Publish(s)
	return st
}

func (st *Store) Snapshot() *Snapshot { return st.p.Load() }

func (st *Store) Publish(s *Snapshot) {
	if s == nil {
		s = &Snapshot{}
	}
	st.p.Store(s)
}
