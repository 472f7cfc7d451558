package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KirkDiggler/d20duel/internal/common/code"
	"github.com/KirkDiggler/d20duel/internal/common/lock"
	"github.com/KirkDiggler/d20duel/internal/common/logging"
	"github.com/KirkDiggler/d20duel/internal/config"
	"github.com/KirkDiggler/d20duel/internal/dice"
	"github.com/KirkDiggler/d20duel/internal/handlers/ws"
	"github.com/KirkDiggler/d20duel/internal/models"
	"github.com/KirkDiggler/d20duel/internal/relay"
	playerRepo "github.com/KirkDiggler/d20duel/internal/repositories/player"
	sessionRepo "github.com/KirkDiggler/d20duel/internal/repositories/session"
	"github.com/KirkDiggler/d20duel/internal/services/game"
	"github.com/KirkDiggler/d20duel/internal/services/media"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(&logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("server has been shut down")
}

// backend is the storage, locking and fan-out chosen by the registry setting
type backend struct {
	sessions sessionRepo.Repository
	players  playerRepo.Repository
	locker   lock.Locker
	relay    relay.Relay
	close    func()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	codes, err := code.New(&code.Config{})
	if err != nil {
		return fmt.Errorf("failed to create code generator: %w", err)
	}

	b, err := newBackend(ctx, cfg, codes, logger)
	if err != nil {
		return err
	}
	defer b.close()

	gameSvc, err := game.New(&game.Config{
		TieBreak:           models.TieBreak(cfg.Game.TieBreak),
		NotifyOpponentLeft: cfg.Game.NotifyOpponentLeft,
		SessionRepo:        b.sessions,
		PlayerRepo:         b.players,
		Locker:             b.locker,
		DiceRoller:         dice.New(&dice.Config{Seed: cfg.Game.DiceSeed}),
		Logger:             logger.Named("game"),
	})
	if err != nil {
		return fmt.Errorf("failed to create game service: %w", err)
	}

	var fetcher media.Fetcher = media.NewNoop()
	if cfg.Media.APIKey != "" {
		fetcher, err = media.NewGiphy(&media.Config{
			APIKey:   cfg.Media.APIKey,
			Endpoint: cfg.Media.Endpoint,
			Timeout:  cfg.Media.Timeout,
		})
		if err != nil {
			return fmt.Errorf("failed to create media fetcher: %w", err)
		}
	}

	gateway, err := ws.New(&ws.Config{
		GameService:    gameSvc,
		Relay:          b.relay,
		Media:          fetcher,
		AllowedOrigins: cfg.AllowedOrigins,
		MediaTimeout:   cfg.Media.Timeout,
		Logger:         logger.Named("ws"),
	})
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	unsubscribe, err := b.relay.Subscribe(ctx, gateway)
	if err != nil {
		return fmt.Errorf("failed to subscribe gateway: %w", err)
	}
	defer unsubscribe()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           gateway.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", server.Addr),
			zap.String("registry", cfg.Registry))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		gateway.Close()
		return err
	})

	return g.Wait()
}

func newBackend(ctx context.Context, cfg *config.Config, codes code.Generator, logger *zap.Logger) (*backend, error) {
	if cfg.Registry == config.RegistryMemory {
		sessions, err := sessionRepo.NewMemory(&sessionRepo.MemoryConfig{CodeGenerator: codes})
		if err != nil {
			return nil, fmt.Errorf("failed to create session repository: %w", err)
		}
		return &backend{
			sessions: sessions,
			players:  playerRepo.NewMemory(),
			locker:   lock.NewLocal(),
			relay:    relay.NewLocal(),
			close:    func() {},
		}, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	sessions, err := sessionRepo.NewRedis(&sessionRepo.Config{
		RedisClient:   redisClient,
		CodeGenerator: codes,
		TTL:           cfg.SessionTTL,
	})
	if err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to create session repository: %w", err)
	}

	players, err := playerRepo.NewRedis(&playerRepo.Config{
		RedisClient: redisClient,
		TTL:         cfg.SessionTTL,
	})
	if err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to create player repository: %w", err)
	}

	locker, err := lock.NewRedis(&lock.RedisConfig{
		RedisClient: redisClient,
		Expiry:      cfg.Lock.Expiry,
		Tries:       cfg.Lock.Tries,
		Logger:      logger.Named("lock"),
	})
	if err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to create locker: %w", err)
	}

	fanout, err := relay.NewRedis(&relay.Config{
		RedisClient: redisClient,
		Channel:     cfg.Redis.RelayChannel,
		Logger:      logger.Named("relay"),
	})
	if err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to create relay: %w", err)
	}

	return &backend{
		sessions: sessions,
		players:  players,
		locker:   locker,
		relay:    fanout,
		close:    func() { redisClient.Close() },
	}, nil
}
