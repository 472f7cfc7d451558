package session

import (
	"errors"

	"github.com/KirkDiggler/d20duel/internal/models"
)

// DefaultMaxCodeAttempts bounds code generation retries on collision
const DefaultMaxCodeAttempts = 10

var (
	// ErrSessionNotFound is returned when no live session has the code
	ErrSessionNotFound = errors.New("session not found")

	// ErrCodeSpaceExhausted is returned when every generated code was taken
	ErrCodeSpaceExhausted = errors.New("could not allocate an unused session code")

	// ErrNilCodeGenerator is returned when a repository is built without a generator
	ErrNilCodeGenerator = errors.New("code generator cannot be nil")
)

type CreateSessionInput struct {
	// Session is the template; its Code is assigned by the repository
	Session *models.Session
}

type GetSessionInput struct {
	Code string
}

type SaveSessionInput struct {
	Session *models.Session
}

type DeleteSessionInput struct {
	Code string
}
