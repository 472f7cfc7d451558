package game

import (
	"github.com/KirkDiggler/d20duel/internal/common/clock"
	"github.com/KirkDiggler/d20duel/internal/common/lock"
	"github.com/KirkDiggler/d20duel/internal/dice"
	"github.com/KirkDiggler/d20duel/internal/models"
	"github.com/KirkDiggler/d20duel/internal/protocol"
	playerRepo "github.com/KirkDiggler/d20duel/internal/repositories/player"
	sessionRepo "github.com/KirkDiggler/d20duel/internal/repositories/session"
	"go.uber.org/zap"
)

// Outcome labels a concluded round for decorative media lookup
type Outcome string

const (
	OutcomeWin     Outcome = "win"
	OutcomeTie     Outcome = "tie"
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Config holds configuration for the game service
type Config struct {
	// Number of sides on the dice
	DiceSides int

	// TieBreak decides equal versus rolls; defaults to TieBreakHost
	TieBreak models.TieBreak

	// NotifyOpponentLeft sends opponent-left to the remaining player
	NotifyOpponentLeft bool

	// Repository dependencies
	SessionRepo sessionRepo.Repository
	PlayerRepo  playerRepo.Repository

	// Locker serializes commands per session code
	Locker lock.Locker

	// Service dependencies
	DiceRoller dice.Roller
	Clock      clock.Clock
	Logger     *zap.Logger
}

// MediaRequest asks the gateway for decorative media once a round concluded
type MediaRequest struct {
	Code    string
	Outcome Outcome
	To      []string
}

// CreateSessionInput contains the host's settings
type CreateSessionInput struct {
	// ConnectionID is the requester
	ConnectionID string

	// Mode is versus, vs or check
	Mode string

	// TargetNumber is required in check mode
	TargetNumber *int

	// MaxRerolls defaults to zero in check mode
	MaxRerolls *int
}

// CreateSessionOutput contains the new session and the events to send
type CreateSessionOutput struct {
	Session    *models.Session
	Deliveries []*protocol.Delivery
}

// JoinSessionInput contains parameters for joining a session
type JoinSessionInput struct {
	ConnectionID string
	Code         string
}

// JoinSessionOutput contains the session after the join
type JoinSessionOutput struct {
	Session    *models.Session
	Deliveries []*protocol.Delivery
}

// RollDiceInput contains parameters for a versus roll
type RollDiceInput struct {
	ConnectionID string
	Code         string
}

// RollDiceOutput contains the result of a versus roll
type RollDiceOutput struct {
	// Value is the requester's roll
	Value int

	// Resolved is true when this roll completed the round
	Resolved bool

	// Winner is set when Resolved and no tie reroll happened
	Winner string

	// HighestRoll is set when Resolved
	HighestRoll int

	Tie bool

	Deliveries []*protocol.Delivery
	Media      *MediaRequest
}

// CheckRollInput contains parameters for a check roll
type CheckRollInput struct {
	ConnectionID string
	Code         string
}

// CheckRollOutput contains the result of a check roll
type CheckRollOutput struct {
	Value   int
	Success bool

	// RemainingRerolls is the countdown as broadcast, -1 when exhausted
	RemainingRerolls int

	// Complete is true when this roll concluded the round
	Complete bool

	Deliveries []*protocol.Delivery
	Media      *MediaRequest
}

// ResetRoundInput contains parameters for reopening a round
type ResetRoundInput struct {
	ConnectionID string
	Code         string
}

// ResetRoundOutput contains the session after the reset
type ResetRoundOutput struct {
	Session    *models.Session
	Deliveries []*protocol.Delivery
}

// GetSessionInput contains parameters for a snapshot
type GetSessionInput struct {
	ConnectionID string
	Code         string
}

// GetSessionOutput contains the snapshot
type GetSessionOutput struct {
	Session    *models.Session
	Deliveries []*protocol.Delivery
}

// DisconnectInput identifies the connection that went away
type DisconnectInput struct {
	ConnectionID string
}

// DisconnectOutput lists what the disconnect touched
type DisconnectOutput struct {
	// Left are sessions the connection was removed from and that live on
	Left []string

	// Deleted are sessions removed because they became empty
	Deleted []string

	Deliveries []*protocol.Delivery
}

// HandleInput is a raw command from a connection
type HandleInput struct {
	ConnectionID string
	Command      *protocol.Command
}

// HandleOutput contains the events to send and an optional media follow up
type HandleOutput struct {
	Deliveries []*protocol.Delivery
	Media      *MediaRequest
}

// StatsOutput contains registry figures
type StatsOutput struct {
	Sessions int
}
