package models

import (
	"maps"
	"slices"
	"time"
)

// MaxPlayers is the capacity of every session
const MaxPlayers = 2

// SessionState is derived from the number of players
type SessionState string

const (
	SessionStateEmpty   SessionState = "empty"
	SessionStateWaiting SessionState = "waiting"
	SessionStateReady   SessionState = "ready"
)

// Session is one two-player game addressed by a short code
type Session struct {
	// Code is generated on creation and never changes
	Code string

	// Players holds connection ids; slot 0 is the host, slot 1 the challenger
	Players []string

	Config GameConfig

	Round RoundState

	// Revision increases on every stored change. Events carry it so clients
	// can order broadcasts from concurrent commands.
	Revision int64

	CreatedAt time.Time

	UpdatedAt time.Time
}

// State reports where the session is in its lifecycle
func (s *Session) State() SessionState {
	switch len(s.Players) {
	case 0:
		return SessionStateEmpty
	case 1:
		return SessionStateWaiting
	default:
		return SessionStateReady
	}
}

// IsFull reports whether another player can join
func (s *Session) IsFull() bool {
	return len(s.Players) >= MaxPlayers
}

// HasPlayer reports whether id is seated in the session
func (s *Session) HasPlayer(id string) bool {
	return slices.Contains(s.Players, id)
}

// Host returns slot 0, or "" for an empty session
func (s *Session) Host() string {
	if len(s.Players) == 0 {
		return ""
	}
	return s.Players[0]
}

// Challenger returns slot 1, or "" while the session is waiting
func (s *Session) Challenger() string {
	if len(s.Players) < 2 {
		return ""
	}
	return s.Players[1]
}

// RemovePlayer drops id from the seats and from the pending round.
// It reports whether id was seated.
func (s *Session) RemovePlayer(id string) bool {
	idx := slices.Index(s.Players, id)
	if idx < 0 {
		return false
	}
	s.Players = slices.Delete(s.Players, idx, idx+1)
	delete(s.Round.PendingRolls, id)
	return true
}

// OrderedRolls returns the pending rolls in seat order
func (s *Session) OrderedRolls() []Roll {
	rolls := make([]Roll, 0, len(s.Round.PendingRolls))
	for _, p := range s.Players {
		if v, ok := s.Round.PendingRolls[p]; ok {
			rolls = append(rolls, Roll{PlayerID: p, Value: v})
		}
	}
	return rolls
}

// Clone returns a deep copy
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Players = slices.Clone(s.Players)
	out.Round.PendingRolls = maps.Clone(s.Round.PendingRolls)
	if out.Round.PendingRolls == nil {
		out.Round.PendingRolls = map[string]int{}
	}
	return &out
}
