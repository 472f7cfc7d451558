package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/KirkDiggler/d20duel/internal/common/code"
	"github.com/KirkDiggler/d20duel/internal/models"
)

// MemoryConfig holds configuration for the in-memory registry
type MemoryConfig struct {
	CodeGenerator code.Generator

	// MaxCodeAttempts defaults to DefaultMaxCodeAttempts
	MaxCodeAttempts int
}

// memoryRepository keeps sessions in a map guarded by a registry-wide lock.
// The lock covers existence only; per-session content is serialized by the
// engine's Locker.
type memoryRepository struct {
	mu          sync.RWMutex
	sessions    map[string]*models.Session
	codes       code.Generator
	maxAttempts int
}

// NewMemory creates an in-memory session registry
func NewMemory(cfg *MemoryConfig) (*memoryRepository, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.CodeGenerator == nil {
		return nil, ErrNilCodeGenerator
	}

	maxAttempts := cfg.MaxCodeAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxCodeAttempts
	}

	return &memoryRepository{
		sessions:    make(map[string]*models.Session),
		codes:       cfg.CodeGenerator,
		maxAttempts: maxAttempts,
	}, nil
}

func (r *memoryRepository) CreateSession(ctx context.Context, input *CreateSessionInput) (*models.Session, error) {
	if input == nil || input.Session == nil {
		return nil, errors.New("input and session cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		c, err := r.codes.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate session code: %w", err)
		}
		if _, taken := r.sessions[c]; taken {
			continue
		}

		stored := input.Session.Clone()
		stored.Code = c
		r.sessions[c] = stored

		return stored.Clone(), nil
	}

	return nil, ErrCodeSpaceExhausted
}

func (r *memoryRepository) GetSession(ctx context.Context, input *GetSessionInput) (*models.Session, error) {
	if input == nil || input.Code == "" {
		return nil, ErrSessionNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[input.Code]
	if !ok {
		return nil, ErrSessionNotFound
	}

	return s.Clone(), nil
}

func (r *memoryRepository) SaveSession(ctx context.Context, input *SaveSessionInput) error {
	if input == nil || input.Session == nil {
		return errors.New("input and session cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[input.Session.Code]; !ok {
		return ErrSessionNotFound
	}
	r.sessions[input.Session.Code] = input.Session.Clone()

	return nil
}

func (r *memoryRepository) DeleteSession(ctx context.Context, input *DeleteSessionInput) error {
	if input == nil {
		return errors.New("input cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, input.Code)

	return nil
}

func (r *memoryRepository) CountSessions(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions), nil
}
