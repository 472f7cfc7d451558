package session

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/KirkDiggler/d20duel/internal/repositories/session Repository

import (
	"context"

	"github.com/KirkDiggler/d20duel/internal/models"
)

// Repository is the session registry: code -> Session. Every read returns a
// private copy; changes only land through SaveSession.
type Repository interface {
	// CreateSession stores the template under a freshly allocated, unused code
	CreateSession(ctx context.Context, input *CreateSessionInput) (*models.Session, error)

	// GetSession retrieves a session by code
	GetSession(ctx context.Context, input *GetSessionInput) (*models.Session, error)

	// SaveSession overwrites an existing session
	SaveSession(ctx context.Context, input *SaveSessionInput) error

	// DeleteSession removes a session; deleting a missing code is not an error
	DeleteSession(ctx context.Context, input *DeleteSessionInput) error

	// CountSessions returns the number of live sessions
	CountSessions(ctx context.Context) (int, error)
}
