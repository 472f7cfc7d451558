package player

// AddSessionInput contains parameters for indexing a session for a player
type AddSessionInput struct {
	PlayerID string
	Code     string
}

// RemoveSessionInput contains parameters for un-indexing a session
type RemoveSessionInput struct {
	PlayerID string
	Code     string
}

// GetSessionsInput contains parameters for listing a player's sessions
type GetSessionsInput struct {
	PlayerID string
}

// GetSessionsOutput contains the session codes, sorted
type GetSessionsOutput struct {
	Codes []string
}

// DeletePlayerInput contains parameters for dropping a player's index
type DeletePlayerInput struct {
	PlayerID string
}
