package models

import "strings"

// GameMode selects how a session's rounds are played
type GameMode string

const (
	// GameModeVersus is a single simultaneous roll per round; higher value wins
	GameModeVersus GameMode = "versus"

	// GameModeCheck has the challenger reroll against a target number
	GameModeCheck GameMode = "check"
)

// ParseGameMode accepts the canonical names plus the short "vs" alias
func ParseGameMode(s string) (GameMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "versus", "vs":
		return GameModeVersus, true
	case "check":
		return GameModeCheck, true
	default:
		return "", false
	}
}

// TieBreak decides the outcome of a versus round with equal rolls
type TieBreak string

const (
	// TieBreakHost awards a tied round to slot 0
	TieBreakHost TieBreak = "host"

	// TieBreakReroll reports a tie with no winner and opens a fresh round
	TieBreakReroll TieBreak = "reroll"
)

const (
	// MinTargetNumber is the lowest target a check session accepts
	MinTargetNumber = 1

	// MaxTargetNumber is the highest target a check session accepts
	MaxTargetNumber = 20
)

// GameConfig is fixed when the session is created
type GameConfig struct {
	Mode GameMode

	// TargetNumber is the value a check roll must meet or beat
	TargetNumber int

	// MaxRerolls is how many failed check rolls may be retried per round
	MaxRerolls int
}

// IsVersus reports whether the session plays versus rounds
func (c GameConfig) IsVersus() bool {
	return c.Mode == GameModeVersus
}

// IsCheck reports whether the session plays check rounds
func (c GameConfig) IsCheck() bool {
	return c.Mode == GameModeCheck
}
