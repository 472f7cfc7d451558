package player

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/KirkDiggler/d20duel/internal/repositories/player Repository

import (
	"context"
)

// Repository indexes which sessions a connection is seated in. The index
// is a lookup aid; the session record stays authoritative for membership.
type Repository interface {
	// AddSession records that the player sits in a session
	AddSession(ctx context.Context, input *AddSessionInput) error

	// RemoveSession forgets a single session for the player
	RemoveSession(ctx context.Context, input *RemoveSessionInput) error

	// GetSessions lists the session codes recorded for the player
	GetSessions(ctx context.Context, input *GetSessionsInput) (*GetSessionsOutput, error)

	// DeletePlayer drops the player's whole index entry
	DeletePlayer(ctx context.Context, input *DeletePlayerInput) error
}
