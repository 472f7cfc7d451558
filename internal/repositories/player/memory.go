package player

import (
	"context"
	"errors"
	"slices"
	"sync"
)

type memoryRepository struct {
	mu      sync.Mutex
	players map[string]map[string]struct{}
}

// NewMemory creates an in-memory membership index
func NewMemory() *memoryRepository {
	return &memoryRepository{
		players: make(map[string]map[string]struct{}),
	}
}

func (r *memoryRepository) AddSession(ctx context.Context, input *AddSessionInput) error {
	if input == nil || input.PlayerID == "" || input.Code == "" {
		return errors.New("player ID and code cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	codes, ok := r.players[input.PlayerID]
	if !ok {
		codes = make(map[string]struct{})
		r.players[input.PlayerID] = codes
	}
	codes[input.Code] = struct{}{}

	return nil
}

func (r *memoryRepository) RemoveSession(ctx context.Context, input *RemoveSessionInput) error {
	if input == nil || input.PlayerID == "" {
		return errors.New("player ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	codes, ok := r.players[input.PlayerID]
	if !ok {
		return nil
	}
	delete(codes, input.Code)
	if len(codes) == 0 {
		delete(r.players, input.PlayerID)
	}

	return nil
}

func (r *memoryRepository) GetSessions(ctx context.Context, input *GetSessionsInput) (*GetSessionsOutput, error) {
	if input == nil || input.PlayerID == "" {
		return nil, errors.New("player ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.players[input.PlayerID]))
	for c := range r.players[input.PlayerID] {
		out = append(out, c)
	}
	slices.Sort(out)

	return &GetSessionsOutput{Codes: out}, nil
}

func (r *memoryRepository) DeletePlayer(ctx context.Context, input *DeletePlayerInput) error {
	if input == nil || input.PlayerID == "" {
		return errors.New("player ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, input.PlayerID)

	return nil
}
