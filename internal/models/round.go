package models

// RoundState is the mutable part of a session
type RoundState struct {
	// PendingRolls holds the current, unresolved round keyed by connection id
	PendingRolls map[string]int

	// RerollsRemaining counts down on failed check rolls. It dips to -1 when the
	// round is exhausted and is restored to MaxRerolls on reset.
	RerollsRemaining int

	// Complete is set once a check round concluded and cleared by an explicit reset
	Complete bool

	// Number counts rounds concluded in this session
	Number int
}

// Reset clears the pending rolls and restores the reroll countdown
func (r *RoundState) Reset(cfg GameConfig) {
	r.PendingRolls = map[string]int{}
	r.RerollsRemaining = cfg.MaxRerolls
}

// IsExhausted reports whether the check round ran out of rerolls
func (r *RoundState) IsExhausted() bool {
	return r.RerollsRemaining < 0
}
