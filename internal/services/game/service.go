package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/KirkDiggler/d20duel/internal/common/clock"
	"github.com/KirkDiggler/d20duel/internal/common/lock"
	"github.com/KirkDiggler/d20duel/internal/dice"
	"github.com/KirkDiggler/d20duel/internal/models"
	playerRepo "github.com/KirkDiggler/d20duel/internal/repositories/player"
	sessionRepo "github.com/KirkDiggler/d20duel/internal/repositories/session"
	"go.uber.org/zap"
)

// service implements the Service interface
type service struct {
	diceSides          int
	tieBreak           models.TieBreak
	notifyOpponentLeft bool

	sessionRepo sessionRepo.Repository
	playerRepo  playerRepo.Repository
	locker      lock.Locker
	diceRoller  dice.Roller
	clock       clock.Clock
	logger      *zap.Logger
}

// New creates a new game service
func New(cfg *Config) (*service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if cfg.SessionRepo == nil {
		return nil, ErrNilSessionRepo
	}
	if cfg.PlayerRepo == nil {
		return nil, ErrNilPlayerRepo
	}
	if cfg.Locker == nil {
		return nil, ErrNilLocker
	}
	if cfg.DiceRoller == nil {
		return nil, ErrNilDiceRoller
	}

	s := &service{
		diceSides:          cfg.DiceSides,
		tieBreak:           cfg.TieBreak,
		notifyOpponentLeft: cfg.NotifyOpponentLeft,
		sessionRepo:        cfg.SessionRepo,
		playerRepo:         cfg.PlayerRepo,
		locker:             cfg.Locker,
		diceRoller:         cfg.DiceRoller,
		clock:              cfg.Clock,
		logger:             cfg.Logger,
	}

	if s.diceSides <= 0 {
		s.diceSides = dice.D20
	}
	switch s.tieBreak {
	case models.TieBreakHost, models.TieBreakReroll:
	case "":
		s.tieBreak = models.TieBreakHost
	default:
		return nil, fmt.Errorf("unknown tie break %q", cfg.TieBreak)
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	return s, nil
}

// CreateSession opens a session with the requester in the host slot
func (s *service) CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error) {
	if input == nil || input.ConnectionID == "" {
		return nil, fmt.Errorf("%w: connection id is required", ErrInvalidCommand)
	}

	gameConfig, err := parseSettings(input)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	sess, err := s.sessionRepo.CreateSession(ctx, &sessionRepo.CreateSessionInput{
		Session: &models.Session{
			Players: []string{input.ConnectionID},
			Config:  gameConfig,
			Round: models.RoundState{
				PendingRolls:     map[string]int{},
				RerollsRemaining: gameConfig.MaxRerolls,
			},
			Revision:  1,
			CreatedAt: now,
			UpdatedAt: now,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	err = s.playerRepo.AddSession(ctx, &playerRepo.AddSessionInput{
		PlayerID: input.ConnectionID,
		Code:     sess.Code,
	})
	if err != nil {
		if delErr := s.sessionRepo.DeleteSession(ctx, &sessionRepo.DeleteSessionInput{Code: sess.Code}); delErr != nil {
			s.logger.Warn("failed to roll back session",
				zap.String("code", sess.Code),
				zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to index session: %w", err)
	}

	s.logger.Info("session created",
		zap.String("code", sess.Code),
		zap.String("host", input.ConnectionID),
		zap.String("mode", string(gameConfig.Mode)))

	return &CreateSessionOutput{
		Session:    sess,
		Deliveries: createdDeliveries(input.ConnectionID, sess),
	}, nil
}

// JoinSession seats the requester as challenger
func (s *service) JoinSession(ctx context.Context, input *JoinSessionInput) (*JoinSessionOutput, error) {
	if input == nil || input.ConnectionID == "" {
		return nil, fmt.Errorf("%w: connection id is required", ErrInvalidCommand)
	}

	indexed := false
	sess, err := s.withSession(ctx, input.Code, func(sess *models.Session) error {
		if sess.HasPlayer(input.ConnectionID) {
			return ErrAlreadyJoined
		}
		if sess.IsFull() {
			return ErrSessionFull
		}

		err := s.playerRepo.AddSession(ctx, &playerRepo.AddSessionInput{
			PlayerID: input.ConnectionID,
			Code:     sess.Code,
		})
		if err != nil {
			return fmt.Errorf("failed to index session: %w", err)
		}
		indexed = true

		sess.Players = append(sess.Players, input.ConnectionID)
		return nil
	})
	if err != nil {
		if indexed {
			s.unindex(ctx, input.ConnectionID, input.Code)
		}
		return nil, err
	}

	s.logger.Info("player joined session",
		zap.String("code", sess.Code),
		zap.String("player", input.ConnectionID))

	return &JoinSessionOutput{
		Session:    sess,
		Deliveries: joinedDeliveries(input.ConnectionID, sess),
	}, nil
}

// GetSession returns a snapshot for a seated player
func (s *service) GetSession(ctx context.Context, input *GetSessionInput) (*GetSessionOutput, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input is required", ErrInvalidCommand)
	}

	sess, unlock, err := s.loadLocked(ctx, input.Code)
	if err != nil {
		return nil, err
	}
	unlock()

	if !sess.HasPlayer(input.ConnectionID) {
		return nil, ErrNotInSession
	}

	return &GetSessionOutput{
		Session:    sess,
		Deliveries: stateDeliveries(input.ConnectionID, sess),
	}, nil
}

// Disconnect removes a connection from every session it sits in. Sessions left
// empty are deleted. Failures on one session do not stop the others.
func (s *service) Disconnect(ctx context.Context, input *DisconnectInput) (*DisconnectOutput, error) {
	if input == nil || input.ConnectionID == "" {
		return nil, fmt.Errorf("%w: connection id is required", ErrInvalidCommand)
	}

	result, err := s.playerRepo.GetSessions(ctx, &playerRepo.GetSessionsInput{
		PlayerID: input.ConnectionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	output := &DisconnectOutput{}
	var errs []error
	for _, code := range result.Codes {
		sess, deleted, err := s.leave(ctx, input.ConnectionID, code)
		switch {
		case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrNotInSession):
			continue
		case err != nil:
			s.logger.Error("failed to leave session",
				zap.String("code", code),
				zap.String("player", input.ConnectionID),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}

		if deleted {
			output.Deleted = append(output.Deleted, code)
			s.logger.Info("session deleted", zap.String("code", code))
			continue
		}

		output.Left = append(output.Left, code)
		if s.notifyOpponentLeft {
			output.Deliveries = append(output.Deliveries, opponentLeftDelivery(sess))
		}
	}

	err = s.playerRepo.DeletePlayer(ctx, &playerRepo.DeletePlayerInput{
		PlayerID: input.ConnectionID,
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to drop player index: %w", err))
	}

	s.logger.Debug("connection disconnected",
		zap.String("player", input.ConnectionID),
		zap.Strings("left", output.Left),
		zap.Strings("deleted", output.Deleted))

	return output, errors.Join(errs...)
}

// Stats reports registry figures for health checks
func (s *service) Stats(ctx context.Context) (*StatsOutput, error) {
	n, err := s.sessionRepo.CountSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	return &StatsOutput{Sessions: n}, nil
}

// leave removes id from one session under its lock
func (s *service) leave(ctx context.Context, id, code string) (*models.Session, bool, error) {
	sess, unlock, err := s.loadLocked(ctx, code)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	if !sess.RemovePlayer(id) {
		return nil, false, ErrNotInSession
	}

	if sess.State() == models.SessionStateEmpty {
		err = s.sessionRepo.DeleteSession(ctx, &sessionRepo.DeleteSessionInput{Code: code})
		if err != nil {
			return nil, false, fmt.Errorf("failed to delete session: %w", err)
		}
		return nil, true, nil
	}

	if err := s.save(ctx, sess); err != nil {
		return nil, false, err
	}
	return sess, false, nil
}

// withSession runs fn on the locked session and saves the result. Nothing is
// written when fn fails.
func (s *service) withSession(ctx context.Context, code string, fn func(sess *models.Session) error) (*models.Session, error) {
	sess, unlock, err := s.loadLocked(ctx, code)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := fn(sess); err != nil {
		return nil, err
	}

	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// loadLocked takes the session lock and reads the session. The caller must
// call unlock when err is nil.
func (s *service) loadLocked(ctx context.Context, code string) (*models.Session, func(), error) {
	if code == "" {
		return nil, nil, ErrSessionNotFound
	}

	unlock, err := s.locker.Lock(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock session %s: %w", code, err)
	}

	sess, err := s.sessionRepo.GetSession(ctx, &sessionRepo.GetSessionInput{Code: code})
	if err != nil {
		unlock()
		if errors.Is(err, sessionRepo.ErrSessionNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}
	if sess.Round.PendingRolls == nil {
		sess.Round.PendingRolls = map[string]int{}
	}

	return sess, unlock, nil
}

func (s *service) save(ctx context.Context, sess *models.Session) error {
	sess.UpdatedAt = s.clock.Now()
	sess.Revision++
	err := s.sessionRepo.SaveSession(ctx, &sessionRepo.SaveSessionInput{Session: sess})
	if err != nil {
		if errors.Is(err, sessionRepo.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *service) unindex(ctx context.Context, id, code string) {
	err := s.playerRepo.RemoveSession(ctx, &playerRepo.RemoveSessionInput{
		PlayerID: id,
		Code:     code,
	})
	if err != nil {
		s.logger.Warn("failed to unindex session",
			zap.String("code", code),
			zap.String("player", id),
			zap.Error(err))
	}
}

// parseSettings validates the host's settings. Versus ignores the check fields.
func parseSettings(input *CreateSessionInput) (models.GameConfig, error) {
	mode, ok := models.ParseGameMode(input.Mode)
	if !ok {
		return models.GameConfig{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidSettings, input.Mode)
	}

	if mode == models.GameModeVersus {
		return models.GameConfig{Mode: mode}, nil
	}

	if input.TargetNumber == nil {
		return models.GameConfig{}, fmt.Errorf("%w: targetNumber is required in check mode", ErrInvalidSettings)
	}
	target := *input.TargetNumber
	if target < models.MinTargetNumber || target > models.MaxTargetNumber {
		return models.GameConfig{}, fmt.Errorf("%w: targetNumber must be between %d and %d",
			ErrInvalidSettings, models.MinTargetNumber, models.MaxTargetNumber)
	}

	maxRerolls := 0
	if input.MaxRerolls != nil {
		maxRerolls = *input.MaxRerolls
	}
	if maxRerolls < 0 {
		return models.GameConfig{}, fmt.Errorf("%w: maxRerolls cannot be negative", ErrInvalidSettings)
	}

	return models.GameConfig{
		Mode:         mode,
		TargetNumber: target,
		MaxRerolls:   maxRerolls,
	}, nil
}
