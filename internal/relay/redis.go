package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config holds configuration for the redis relay
type Config struct {
	RedisClient redis.UniversalClient

	// Channel defaults to DefaultChannel
	Channel string

	Logger *zap.Logger
}

// Redis fans envelopes out over a Pub/Sub channel so every gateway instance
// sees every event
type Redis struct {
	client  redis.UniversalClient
	channel string
	logger  *zap.Logger
}

// NewRedis creates a Pub/Sub relay
func NewRedis(cfg *Config) (*Redis, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	channel := cfg.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Redis{
		client:  cfg.RedisClient,
		channel: channel,
		logger:  logger,
	}, nil
}

// Publish encodes env and publishes it on the channel
func (r *Redis) Publish(ctx context.Context, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish envelope: %w", err)
	}
	return nil
}

// Subscribe confirms the channel subscription and then delivers in a
// background goroutine
func (r *Redis) Subscribe(ctx context.Context, sink Sink) (func() error, error) {
	if sink == nil {
		return nil, ErrNilSink
	}

	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	var (
		once    sync.Once
		stopErr error
	)
	stop := func() error {
		once.Do(func() {
			stopErr = pubsub.Close()
		})
		return stopErr
	}

	go func() {
		defer stop()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					r.logger.Warn("dropping malformed envelope",
						zap.String("channel", r.channel),
						zap.Error(err))
					continue
				}
				sink.Deliver(&env)
			}
		}
	}()

	return stop, nil
}
