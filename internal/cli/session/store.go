package session

import (
	"sync"

	"github.com/stockd-dev/stockd/internal/cli/client"
)

// State is a snapshot of the client session at a point in time.
// IsAuthenticated is always true exactly when User is non-nil.
type State struct {
	User            *client.User
	IsAuthenticated bool
	IsLoading       bool
}

// Store holds the client's view of who is signed in. Readers take
// snapshots or subscribe; all mutations go through the Manager.
type Store struct {
	mu     sync.RWMutex
	state  State
	nextID int
	subs   map[int]func(State)
}

// NewStore returns a store in the initializing state: anonymous, with
// IsLoading set until the first restore attempt settles. Readers can
// tell "still checking for a previous session" apart from "checked,
// nobody is signed in".
func NewStore() *Store {
	return &Store{
		state: State{IsLoading: true},
		subs:  make(map[int]func(State)),
	}
}

// Snapshot returns a copy of the current session state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn to be called after every state change and
// returns a function that removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// set replaces the state and notifies subscribers. The authenticated
// flag is derived from User so the two can never disagree.
func (s *Store) set(state State) {
	state.IsAuthenticated = state.User != nil

	s.mu.Lock()
	s.state = state
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	// Notify outside the lock so a subscriber can take a fresh snapshot.
	for _, fn := range subs {
		fn(state)
	}
}

// setLoading flips only the loading flag, keeping the current user.
func (s *Store) setLoading(loading bool) {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()

	state.IsLoading = loading
	s.set(state)
}
