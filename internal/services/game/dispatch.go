package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/KirkDiggler/d20duel/internal/protocol"
	"go.uber.org/zap"
)

// Handle decodes and dispatches a wire command
func (s *service) Handle(ctx context.Context, input *HandleInput) *HandleOutput {
	if input == nil {
		return &HandleOutput{}
	}

	out, err := s.dispatch(ctx, input)
	if err != nil {
		kind := ErrorKind(err)
		detail := err.Error()
		if kind == protocol.ErrorInternal {
			s.logger.Error("command failed",
				zap.String("connection_id", input.ConnectionID),
				zap.Error(err))
			detail = "internal error"
		} else {
			s.logger.Debug("command rejected",
				zap.String("connection_id", input.ConnectionID),
				zap.String("kind", string(kind)),
				zap.Error(err))
		}
		return &HandleOutput{
			Deliveries: []*protocol.Delivery{errorDelivery(input.ConnectionID, kind, detail)},
		}
	}

	return out
}

func (s *service) dispatch(ctx context.Context, input *HandleInput) (*HandleOutput, error) {
	cmd := input.Command
	if cmd == nil {
		return nil, fmt.Errorf("%w: missing command", ErrInvalidCommand)
	}

	switch cmd.Type {
	case protocol.CommandCreateSession:
		var p protocol.CreateSessionPayload
		if err := decode(cmd, &p); err != nil {
			return nil, err
		}
		out, err := s.CreateSession(ctx, &CreateSessionInput{
			ConnectionID: input.ConnectionID,
			Mode:         p.Mode,
			TargetNumber: p.TargetNumber,
			MaxRerolls:   p.MaxRerolls,
		})
		if err != nil {
			return nil, err
		}
		return &HandleOutput{Deliveries: out.Deliveries}, nil

	case protocol.CommandJoinSession:
		code, err := decodeCode(cmd)
		if err != nil {
			return nil, err
		}
		out, err := s.JoinSession(ctx, &JoinSessionInput{ConnectionID: input.ConnectionID, Code: code})
		if err != nil {
			return nil, err
		}
		return &HandleOutput{Deliveries: out.Deliveries}, nil

	case protocol.CommandRollDice:
		code, err := decodeCode(cmd)
		if err != nil {
			return nil, err
		}
		out, err := s.RollDice(ctx, &RollDiceInput{ConnectionID: input.ConnectionID, Code: code})
		if err != nil {
			return nil, err
		}
		return &HandleOutput{Deliveries: out.Deliveries, Media: out.Media}, nil

	case protocol.CommandCheckRoll:
		code, err := decodeCode(cmd)
		if err != nil {
			return nil, err
		}
		out, err := s.CheckRoll(ctx, &CheckRollInput{ConnectionID: input.ConnectionID, Code: code})
		if err != nil {
			return nil, err
		}
		return &HandleOutput{Deliveries: out.Deliveries, Media: out.Media}, nil

	case protocol.CommandResetRound:
		code, err := decodeCode(cmd)
		if err != nil {
			return nil, err
		}
		out, err := s.ResetRound(ctx, &ResetRoundInput{ConnectionID: input.ConnectionID, Code: code})
		if err != nil {
			return nil, err
		}
		return &HandleOutput{Deliveries: out.Deliveries}, nil

	case protocol.CommandGetSession:
		code, err := decodeCode(cmd)
		if err != nil {
			return nil, err
		}
		out, err := s.GetSession(ctx, &GetSessionInput{ConnectionID: input.ConnectionID, Code: code})
		if err != nil {
			return nil, err
		}
		return &HandleOutput{Deliveries: out.Deliveries}, nil

	default:
		return nil, fmt.Errorf("%w: unknown command type %q", ErrInvalidCommand, cmd.Type)
	}
}

func decode(cmd *protocol.Command, v any) error {
	if err := cmd.DecodePayload(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidCommand, cmd.Type, err)
	}
	return nil
}

// decodeCode reads a session code. A missing code is reported as an unknown
// session rather than a malformed command.
func decodeCode(cmd *protocol.Command) (string, error) {
	var p protocol.CodePayload
	err := cmd.DecodePayload(&p)
	if errors.Is(err, protocol.ErrEmptyPayload) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidCommand, cmd.Type, err)
	}
	return p.Code, nil
}
