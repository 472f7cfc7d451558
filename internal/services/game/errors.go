package game

import (
	"errors"

	"github.com/KirkDiggler/d20duel/internal/protocol"
)

// GameError is a custom error type for game-related errors
type GameError string

// Error implements the error interface
func (e GameError) Error() string {
	return string(e)
}

// Define errors
const (
	ErrSessionNotFound GameError = "session not found"
	ErrSessionFull     GameError = "session is full"
	ErrAlreadyJoined   GameError = "already joined this session"
	ErrWrongMode       GameError = "wrong game mode"
	ErrNotChallenger   GameError = "only the challenger can roll"
	ErrNotInSession    GameError = "not a player in this session"
	ErrAlreadyRolled   GameError = "you have already rolled"
	ErrRoundComplete   GameError = "round is complete"
	ErrInvalidSettings GameError = "invalid game settings"
	ErrInvalidCommand  GameError = "invalid command"

	ErrNilConfig      GameError = "config cannot be nil"
	ErrNilSessionRepo GameError = "session repository cannot be nil"
	ErrNilPlayerRepo  GameError = "player repository cannot be nil"
	ErrNilLocker      GameError = "locker cannot be nil"
	ErrNilDiceRoller  GameError = "dice roller cannot be nil"
)

var errorKinds = []struct {
	err  GameError
	kind protocol.ErrorKind
}{
	{ErrSessionNotFound, protocol.ErrorSessionNotFound},
	{ErrSessionFull, protocol.ErrorSessionFull},
	{ErrAlreadyJoined, protocol.ErrorAlreadyJoined},
	{ErrWrongMode, protocol.ErrorWrongMode},
	{ErrNotChallenger, protocol.ErrorNotChallenger},
	{ErrNotInSession, protocol.ErrorNotInSession},
	{ErrAlreadyRolled, protocol.ErrorAlreadyRolled},
	{ErrRoundComplete, protocol.ErrorRoundComplete},
	{ErrInvalidSettings, protocol.ErrorInvalidSettings},
	{ErrInvalidCommand, protocol.ErrorInvalidCommand},
}

// ErrorKind classifies err for the wire. Anything outside the taxonomy is
// reported as Internal.
func ErrorKind(err error) protocol.ErrorKind {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return protocol.ErrorInternal
}
