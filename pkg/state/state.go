// Package state holds the runtime state shared by the reconcilers of a
// controller and the status endpoint.
package state

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// Snapshot is a consistent copy of State.
type Snapshot struct {
	LastEvent    time.Time `json:"last_event"`
	HandledCount int64     `json:"handled_count"`
}

// State records when the last reconcile started and how many reconciles
// succeeded. It is safe for concurrent use.
type State struct {
	clock clock.PassiveClock

	mu           sync.RWMutex
	lastEvent    time.Time
	handledCount int64
}

// New returns a State whose timestamps come from c. A nil clock means the
// real clock.
func New(c clock.PassiveClock) *State {
	if c == nil {
		c = clock.RealClock{}
	}
	return &State{clock: c, lastEvent: c.Now()}
}

// RecordEvent stamps the start of a reconcile attempt. The timestamp never
// moves backward.
func (s *State) RecordEvent() time.Time {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.After(s.lastEvent) {
		s.lastEvent = now
	}
	return s.lastEvent
}

// RecordHandled counts a successful reconcile.
func (s *State) RecordHandled() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handledCount++
	return s.handledCount
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		LastEvent:    s.lastEvent,
		HandledCount: s.handledCount,
	}
}
