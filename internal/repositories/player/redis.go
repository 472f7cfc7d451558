package player

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Key prefix for Redis
	playerSessionsKeyPrefix = "player:sessions:"
)

// Config holds configuration for the Redis player repository
type Config struct {
	// Redis client
	RedisClient *redis.Client

	// TTL expires forgotten index entries; zero keeps them until deleted
	TTL time.Duration
}

// redisRepository implements the Repository interface using Redis sets
type redisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a new Redis-backed membership index
func NewRedis(cfg *Config) (*redisRepository, error) {
	// Validate config
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	// Test connection
	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisRepository{
		client: cfg.RedisClient,
		ttl:    cfg.TTL,
	}, nil
}

func playerSessionsKey(playerID string) string {
	return fmt.Sprintf("%s%s", playerSessionsKeyPrefix, playerID)
}

// AddSession adds the code to the player's set
func (r *redisRepository) AddSession(ctx context.Context, input *AddSessionInput) error {
	if input == nil || input.PlayerID == "" || input.Code == "" {
		return errors.New("player ID and code cannot be empty")
	}

	key := playerSessionsKey(input.PlayerID)
	pipe := r.client.Pipeline()
	pipe.SAdd(ctx, key, input.Code)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index session for player: %w", err)
	}

	return nil
}

// RemoveSession removes the code from the player's set
func (r *redisRepository) RemoveSession(ctx context.Context, input *RemoveSessionInput) error {
	if input == nil || input.PlayerID == "" {
		return errors.New("player ID cannot be empty")
	}

	if err := r.client.SRem(ctx, playerSessionsKey(input.PlayerID), input.Code).Err(); err != nil {
		return fmt.Errorf("failed to remove session from player index: %w", err)
	}

	return nil
}

// GetSessions lists the player's session codes
func (r *redisRepository) GetSessions(ctx context.Context, input *GetSessionsInput) (*GetSessionsOutput, error) {
	if input == nil || input.PlayerID == "" {
		return nil, errors.New("player ID cannot be empty")
	}

	codes, err := r.client.SMembers(ctx, playerSessionsKey(input.PlayerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get sessions for player: %w", err)
	}
	slices.Sort(codes)

	return &GetSessionsOutput{Codes: codes}, nil
}

// DeletePlayer drops the player's set
func (r *redisRepository) DeletePlayer(ctx context.Context, input *DeletePlayerInput) error {
	if input == nil || input.PlayerID == "" {
		return errors.New("player ID cannot be empty")
	}

	if err := r.client.Del(ctx, playerSessionsKey(input.PlayerID)).Err(); err != nil {
		return fmt.Errorf("failed to delete player index: %w", err)
	}

	return nil
}
