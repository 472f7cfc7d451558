package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KirkDiggler/d20duel/internal/common/code"
	"github.com/KirkDiggler/d20duel/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	// Key prefix for Redis
	sessionKeyPrefix = "session:"

	scanBatch = 100
)

// Config holds configuration for the Redis session repository
type Config struct {
	// Redis client
	RedisClient *redis.Client

	CodeGenerator code.Generator

	// MaxCodeAttempts defaults to DefaultMaxCodeAttempts
	MaxCodeAttempts int

	// TTL expires idle sessions; zero keeps them until deleted
	TTL time.Duration
}

// redisRepository implements the Repository interface using Redis
type redisRepository struct {
	client      *redis.Client
	codes       code.Generator
	maxAttempts int
	ttl         time.Duration
}

// NewRedis creates a new Redis-backed session repository
func NewRedis(cfg *Config) (*redisRepository, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	if cfg.CodeGenerator == nil {
		return nil, ErrNilCodeGenerator
	}

	// Test connection
	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	maxAttempts := cfg.MaxCodeAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxCodeAttempts
	}

	return &redisRepository{
		client:      cfg.RedisClient,
		codes:       cfg.CodeGenerator,
		maxAttempts: maxAttempts,
		ttl:         cfg.TTL,
	}, nil
}

func sessionKey(c string) string {
	return fmt.Sprintf("%s%s", sessionKeyPrefix, c)
}

// CreateSession claims a code with SET NX so two processes never share one
func (r *redisRepository) CreateSession(ctx context.Context, input *CreateSessionInput) (*models.Session, error) {
	if input == nil || input.Session == nil {
		return nil, errors.New("input and session cannot be nil")
	}

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		c, err := r.codes.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate session code: %w", err)
		}

		s := input.Session.Clone()
		s.Code = c

		sessionJSON, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal session: %w", err)
		}

		ok, err := r.client.SetNX(ctx, sessionKey(c), sessionJSON, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		if ok {
			return s, nil
		}
	}

	return nil, ErrCodeSpaceExhausted
}

// GetSession retrieves a session by code from Redis
func (r *redisRepository) GetSession(ctx context.Context, input *GetSessionInput) (*models.Session, error) {
	if input == nil || input.Code == "" {
		return nil, ErrSessionNotFound
	}

	sessionJSON, err := r.client.Get(ctx, sessionKey(input.Code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s models.Session
	if err := json.Unmarshal(sessionJSON, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if s.Round.PendingRolls == nil {
		s.Round.PendingRolls = map[string]int{}
	}

	return &s, nil
}

// SaveSession writes with SET XX so a session deleted meanwhile stays deleted
func (r *redisRepository) SaveSession(ctx context.Context, input *SaveSessionInput) error {
	if input == nil || input.Session == nil {
		return errors.New("input and session cannot be nil")
	}

	sessionJSON, err := json.Marshal(input.Session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ok, err := r.client.SetXX(ctx, sessionKey(input.Session.Code), sessionJSON, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if !ok {
		return ErrSessionNotFound
	}

	return nil
}

// DeleteSession removes a session from Redis
func (r *redisRepository) DeleteSession(ctx context.Context, input *DeleteSessionInput) error {
	if input == nil {
		return errors.New("input cannot be nil")
	}

	if err := r.client.Del(ctx, sessionKey(input.Code)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// CountSessions walks the session keyspace with SCAN
func (r *redisRepository) CountSessions(ctx context.Context) (int, error) {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, sessionKeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to scan sessions: %w", err)
		}
		count += len(keys)
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}
