// Package session keeps the per-user interaction state of the dashboard.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/i474232898/warming-map/internal/climate"
	"github.com/i474232898/warming-map/internal/quiz"
	"github.com/i474232898/warming-map/internal/store"
)

// State is everything remembered for one session. A nil Click means no map
// point has been picked yet.
type State struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Click     *climate.Click   `json:"click,omitempty"`
	Selector  climate.Selector `json:"selector"`
	Year      int              `json:"year,omitempty"`
	Quiz      quiz.Session     `json:"quiz"`
}

func (s State) clone() State {
	out := s
	if s.Click != nil {
		c := *s.Click
		out.Click = &c
	}
	out.Quiz = s.Quiz.Clone()
	return out
}

// Manager creates and mutates sessions held in a retention-bounded store.
type Manager struct {
	store *store.MemoryStore[State]
	clock clockwork.Clock
}

// NewManager creates a Manager keeping at most maxCount sessions, each
// expiring after maxAge without activity.
func NewManager(maxCount int, maxAge time.Duration, clock clockwork.Clock) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{
		store: store.NewMemoryStore[State](maxCount, maxAge, clock),
		clock: clock,
	}
}

// New starts a session with a fresh UUID.
func (m *Manager) New() State {
	st := State{
		ID:        uuid.NewString(),
		CreatedAt: m.clock.Now().UTC(),
		Selector:  climate.Annual,
	}
	m.store.Save(st.ID, st)
	return st.clone()
}

// Get returns a copy of the session state.
func (m *Manager) Get(id string) (State, error) {
	if err := validID(id); err != nil {
		return State{}, err
	}
	st, err := m.store.Get(id)
	if err != nil {
		return State{}, fmt.Errorf("session %s: %w", id, err)
	}
	return st.clone(), nil
}

// Update applies fn to a private copy of the state and stores the result when
// fn succeeds. Updates to one session are serialised.
func (m *Manager) Update(id string, fn func(*State) error) (State, error) {
	if err := validID(id); err != nil {
		return State{}, err
	}
	st, err := m.store.Update(id, func(cur State) (State, error) {
		next := cur.clone()
		if err := fn(&next); err != nil {
			return State{}, err
		}
		next.ID = cur.ID
		next.CreatedAt = cur.CreatedAt
		return next, nil
	})
	if err != nil {
		return State{}, fmt.Errorf("session %s: %w", id, err)
	}
	return st.clone(), nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *Manager) Sweep() int {
	return m.store.Sweep()
}

// Len returns the number of stored sessions.
func (m *Manager) Len() int {
	return m.store.Len()
}

func validID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("session %q: %w", id, store.ErrNotFound)
	}
	return nil
}
