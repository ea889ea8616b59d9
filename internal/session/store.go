package session

import (
	"sync/atomic"
)

// Store is a process-wide session cell with an explicit init/teardown
// lifecycle. It is injected into collaborators rather than accessed as
// a package global so the gate and resolver stay testable in isolation.
//
// The cell distinguishes "still loading" (no init has completed yet)
// from "signed out" (init completed, no identity). The gate treats the
// former as its most restrictive state and the latter as unauthenticated.
type Store struct {
	current atomic.Pointer[Snapshot]
	ready   atomic.Bool
}

// NewStore returns an empty, still-loading session store.
func NewStore() *Store {
	return &Store{}
}

// Init installs the first load result. A nil snapshot marks the session
// as known-anonymous rather than still loading.
func (s *Store) Init(snap *Snapshot) {
	s.current.Store(snap)
	s.ready.Store(true)
}

// Replace atomically swaps in a refreshed snapshot.
func (s *Store) Replace(snap *Snapshot) {
	if snap == nil {
		return
	}
	s.current.Store(snap)
	s.ready.Store(true)
}

// Clear tears the session down on sign-out. The store remains "ready":
// a cleared session is known-anonymous, not loading.
func (s *Store) Clear() {
	s.current.Store(nil)
}

// Reset returns the store to its pre-init loading state.
func (s *Store) Reset() {
	s.current.Store(nil)
	s.ready.Store(false)
}

// Current returns the active snapshot, or nil when none is loaded.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Loading reports whether the store has never completed an init since
// the last Reset.
func (s *Store) Loading() bool {
	return !s.ready.Load()
}
