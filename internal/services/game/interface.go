package game

import "context"

// Service defines the session engine operations
type Service interface {
	// CreateSession opens a session with the requester in the host slot
	CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error)

	// JoinSession seats the requester as challenger
	JoinSession(ctx context.Context, input *JoinSessionInput) (*JoinSessionOutput, error)

	// RollDice records a versus roll and resolves the round once both players rolled
	RollDice(ctx context.Context, input *RollDiceInput) (*RollDiceOutput, error)

	// CheckRoll rolls the challenger against the session's target number
	CheckRoll(ctx context.Context, input *CheckRollInput) (*CheckRollOutput, error)

	// ResetRound reopens a concluded round
	ResetRound(ctx context.Context, input *ResetRoundInput) (*ResetRoundOutput, error)

	// GetSession returns a snapshot for a seated player
	GetSession(ctx context.Context, input *GetSessionInput) (*GetSessionOutput, error)

	// Disconnect removes a connection from every session it sits in
	Disconnect(ctx context.Context, input *DisconnectInput) (*DisconnectOutput, error)

	// Handle decodes and dispatches a wire command. Failures come back as a
	// private error delivery, never as a Go error.
	Handle(ctx context.Context, input *HandleInput) *HandleOutput

	// Stats reports registry figures for health checks
	Stats(ctx context.Context) (*StatsOutput, error)
}
