package game

import (
	"context"
	"fmt"
	"maps"

	"github.com/KirkDiggler/d20duel/internal/models"
	"go.uber.org/zap"
)

// RollDice records a versus roll and resolves the round once both players rolled
func (s *service) RollDice(ctx context.Context, input *RollDiceInput) (*RollDiceOutput, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input is required", ErrInvalidCommand)
	}

	output := &RollDiceOutput{}
	var pending, resolvedRolls map[string]int
	sess, err := s.withSession(ctx, input.Code, func(sess *models.Session) error {
		if !sess.Config.IsVersus() {
			return ErrWrongMode
		}
		if !sess.HasPlayer(input.ConnectionID) {
			return ErrNotInSession
		}
		if _, ok := sess.Round.PendingRolls[input.ConnectionID]; ok {
			return ErrAlreadyRolled
		}

		output.Value = s.diceRoller.Roll(s.diceSides)
		sess.Round.PendingRolls[input.ConnectionID] = output.Value
		pending = maps.Clone(sess.Round.PendingRolls)

		if !sess.IsFull() || len(sess.Round.PendingRolls) < len(sess.Players) {
			return nil
		}

		best, tied := models.HighestRoll(sess.OrderedRolls())
		output.Resolved = true
		output.HighestRoll = best.Value
		output.Tie = tied
		if !tied || s.tieBreak == models.TieBreakHost {
			output.Winner = best.PlayerID
		}
		resolvedRolls = pending

		sess.Round.Reset(sess.Config)
		sess.Round.Number++
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("player rolled",
		zap.String("code", sess.Code),
		zap.String("player", input.ConnectionID),
		zap.Int("value", output.Value))

	output.Deliveries = append(output.Deliveries, playerRolledDelivery(sess, input.ConnectionID, output.Value, pending))
	if output.Resolved {
		s.logger.Info("versus round resolved",
			zap.String("code", sess.Code),
			zap.String("winner", output.Winner),
			zap.Int("highest_roll", output.HighestRoll),
			zap.Bool("tie", output.Tie))

		output.Deliveries = append(output.Deliveries, gameResultDelivery(sess, output, resolvedRolls))
		outcome := OutcomeWin
		if output.Tie {
			outcome = OutcomeTie
		}
		output.Media = mediaRequest(sess, outcome)
	}

	return output, nil
}

// CheckRoll rolls the challenger against the session's target number. A
// success, or a failure with no rerolls left, concludes the round until it is
// reset.
func (s *service) CheckRoll(ctx context.Context, input *CheckRollInput) (*CheckRollOutput, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input is required", ErrInvalidCommand)
	}

	output := &CheckRollOutput{}
	sess, err := s.withSession(ctx, input.Code, func(sess *models.Session) error {
		if !sess.Config.IsCheck() {
			return ErrWrongMode
		}
		if !sess.HasPlayer(input.ConnectionID) {
			return ErrNotInSession
		}
		if sess.Challenger() != input.ConnectionID {
			return ErrNotChallenger
		}
		if sess.Round.Complete || sess.Round.IsExhausted() {
			return ErrRoundComplete
		}

		output.Value = s.diceRoller.Roll(s.diceSides)
		output.Success = output.Value >= sess.Config.TargetNumber
		sess.Round.PendingRolls[input.ConnectionID] = output.Value

		if !output.Success {
			sess.Round.RerollsRemaining--
		}
		output.RemainingRerolls = sess.Round.RerollsRemaining
		output.Complete = output.Success || sess.Round.IsExhausted()

		if output.Complete {
			sess.Round.Reset(sess.Config)
			sess.Round.Complete = true
			sess.Round.Number++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("check rolled",
		zap.String("code", sess.Code),
		zap.Int("value", output.Value),
		zap.Int("target", sess.Config.TargetNumber),
		zap.Bool("success", output.Success),
		zap.Int("remaining_rerolls", output.RemainingRerolls))

	output.Deliveries = append(output.Deliveries, checkResultDelivery(sess, input.ConnectionID, output))
	if output.Complete {
		outcome := OutcomeFailure
		if output.Success {
			outcome = OutcomeSuccess
		}
		output.Media = mediaRequest(sess, outcome)
	}

	return output, nil
}

// ResetRound reopens the round for any seated player
func (s *service) ResetRound(ctx context.Context, input *ResetRoundInput) (*ResetRoundOutput, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input is required", ErrInvalidCommand)
	}

	sess, err := s.withSession(ctx, input.Code, func(sess *models.Session) error {
		if !sess.HasPlayer(input.ConnectionID) {
			return ErrNotInSession
		}

		sess.Round.Reset(sess.Config)
		sess.Round.Complete = false
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("round reset",
		zap.String("code", sess.Code),
		zap.String("player", input.ConnectionID))

	return &ResetRoundOutput{
		Session:    sess,
		Deliveries: roundResetDeliveries(sess),
	}, nil
}
