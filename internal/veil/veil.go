// Package veil manages the reality-veil display mode. Fantasy mode keeps
// user-facing narration in character and forces plan redaction; developer
// mode exposes raw reasoning. The veil never affects routing decisions,
// only how they are presented and validated.
package veil

import (
	"log"
	"sync"
)

// Mode names the two display modes.
type Mode string

const (
	// ModeFantasy is the default, user-facing mode.
	ModeFantasy Mode = "fantasy"

	// ModeDeveloper exposes raw reasoning and skips redaction.
	ModeDeveloper Mode = "developer"
)

// State holds the current veil setting. The zero value is developer mode;
// use New for the conventional fantasy default.
type State struct {
	mu      sync.Mutex
	enabled bool
}

// New returns a veil state with the veil enabled (fantasy mode).
func New() *State {
	return &State{enabled: true}
}

// Enabled reports whether the veil is up (fantasy mode).
func (s *State) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Mode returns the current display mode.
func (s *State) Mode() Mode {
	if s.Enabled() {
		return ModeFantasy
	}
	return ModeDeveloper
}

// Set switches the veil and logs the transition when it changes.
func (s *State) Set(enabled bool) {
	s.mu.Lock()
	changed := s.enabled != enabled
	previous := s.enabled
	s.enabled = enabled
	s.mu.Unlock()

	if changed {
		log.Printf("[Veil] Reality veil switched: %s -> %s", modeFor(previous), modeFor(enabled))
	}
}

// Toggle flips the veil and returns the new mode.
func (s *State) Toggle() Mode {
	s.mu.Lock()
	s.enabled = !s.enabled
	enabled := s.enabled
	s.mu.Unlock()
	return modeFor(enabled)
}

func modeFor(enabled bool) Mode {
	if enabled {
		return ModeFantasy
	}
	return ModeDeveloper
}
