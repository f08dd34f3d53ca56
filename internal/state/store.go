// Package state holds the runtime-state tables the transformation pipeline
// reads and writes by StateID. It is owned exclusively by the engine's
// single loop goroutine; nothing outside that goroutine ever touches it,
// matching the concurrency model in SPEC_FULL.md.
package state

import (
	"time"

	"github.com/wheelcraft/wheelcraft/internal/resolved"
)

// FilterState is the scalar state an EMA/low-pass/high-pass filter step
// keeps between calls.
type FilterState struct {
	PrevOut  float64
	PrevIn   float64 // only used by HighPass
	LastTick time.Time
	HasRun   bool
}

// IntegrateState is the running position an Integrate step keeps.
type IntegrateState struct {
	Position float64
	HasRun   bool
}

// SteeringState is the per-tick timestamp a Steering step keeps; its
// position is derived from the destination control's last committed value,
// not stored here (see component design 4.4 step 1).
type SteeringState struct {
	LastTick       time.Time
	HasRun         bool
	LastP          float64 // published for the overlay; engine reads after each run
	LastHoldFactor float64
}

// PedalState is the full state a PedalSmoother step keeps between calls.
type PedalState struct {
	PrevOut         float64
	LastTarget      float64
	LastTick        time.Time
	LastUserInput   time.Time
	Initialized     bool
}

// Store is the collection of per-step-state-shape tables, keyed by the
// StateID assigned to each stateful step at resolution time. Each shape gets
// its own map, mirroring the originating engine's typed state tables rather
// than a single map of `any`.
type Store struct {
	filters    map[resolved.StateID]*FilterState
	integrates map[resolved.StateID]*IntegrateState
	steerings  map[resolved.StateID]*SteeringState
	pedals     map[resolved.StateID]*PedalState
}

// NewStore returns an empty Store. A fresh Store is created per engine
// instance; reload discards the old one along with its ids.
func NewStore() *Store {
	return &Store{
		filters:    make(map[resolved.StateID]*FilterState),
		integrates: make(map[resolved.StateID]*IntegrateState),
		steerings:  make(map[resolved.StateID]*SteeringState),
		pedals:     make(map[resolved.StateID]*PedalState),
	}
}

// Filter returns (creating if absent) the FilterState for id.
func (s *Store) Filter(id resolved.StateID) *FilterState {
	st, ok := s.filters[id]
	if !ok {
		st = &FilterState{}
		s.filters[id] = st
	}
	return st
}

// Integrate returns (creating if absent) the IntegrateState for id.
func (s *Store) Integrate(id resolved.StateID) *IntegrateState {
	st, ok := s.integrates[id]
	if !ok {
		st = &IntegrateState{}
		s.integrates[id] = st
	}
	return st
}

// Steering returns (creating if absent) the SteeringState for id.
func (s *Store) Steering(id resolved.StateID) *SteeringState {
	st, ok := s.steerings[id]
	if !ok {
		st = &SteeringState{}
		s.steerings[id] = st
	}
	return st
}

// Pedal returns (creating if absent) the PedalState for id.
func (s *Store) Pedal(id resolved.StateID) *PedalState {
	st, ok := s.pedals[id]
	if !ok {
		st = &PedalState{}
		s.pedals[id] = st
	}
	return st
}
