package models

// Roll is one player's value in a round
type Roll struct {
	// PlayerID is the connection that rolled
	PlayerID string

	// Value is the result of the dice roll
	Value int
}

// HighestRoll picks the highest value. Ties go to the earliest entry, so
// callers order rolls by player slot. tied is true when another entry matched
// the winning value.
func HighestRoll(rolls []Roll) (best Roll, tied bool) {
	for i, r := range rolls {
		if i == 0 || r.Value > best.Value {
			best = r
			tied = false
			continue
		}
		if r.Value == best.Value {
			tied = true
		}
	}

	return best, tied
}
