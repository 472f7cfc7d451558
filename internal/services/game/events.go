package game

import (
	"maps"
	"slices"

	"github.com/KirkDiggler/d20duel/internal/models"
	"github.com/KirkDiggler/d20duel/internal/protocol"
)

func private(to string, sess *models.Session, evt *protocol.Event) *protocol.Delivery {
	evt.Seq = sess.Revision
	return &protocol.Delivery{
		Scope: protocol.ScopePrivate,
		Code:  sess.Code,
		To:    []string{to},
		Event: evt,
	}
}

func broadcast(sess *models.Session, evt *protocol.Event) *protocol.Delivery {
	evt.Seq = sess.Revision
	return &protocol.Delivery{
		Scope: protocol.ScopeBroadcast,
		Code:  sess.Code,
		To:    slices.Clone(sess.Players),
		Event: evt,
	}
}

func settingsPayload(cfg models.GameConfig) *protocol.SettingsPayload {
	p := &protocol.SettingsPayload{Mode: string(cfg.Mode)}
	if cfg.IsCheck() {
		maxRerolls := cfg.MaxRerolls
		p.TargetNumber = cfg.TargetNumber
		p.MaxRerolls = &maxRerolls
	}
	return p
}

func settingsDelivery(to string, sess *models.Session) *protocol.Delivery {
	return private(to, sess, &protocol.Event{
		Type:    protocol.EventGameSettingsUpdated,
		Payload: settingsPayload(sess.Config),
	})
}

func createdDeliveries(to string, sess *models.Session) []*protocol.Delivery {
	return []*protocol.Delivery{
		private(to, sess, &protocol.Event{
			Type:    protocol.EventSessionCreated,
			Payload: sess.Code,
		}),
		settingsDelivery(to, sess),
	}
}

func joinedDeliveries(to string, sess *models.Session) []*protocol.Delivery {
	return []*protocol.Delivery{
		private(to, sess, &protocol.Event{
			Type: protocol.EventSessionJoined,
			Payload: &protocol.SessionJoinedPayload{
				Code:    sess.Code,
				Players: slices.Clone(sess.Players),
			},
		}),
		settingsDelivery(to, sess),
		broadcast(sess, &protocol.Event{
			Type: protocol.EventPlayerJoined,
			Payload: &protocol.PlayerJoinedPayload{
				Players: slices.Clone(sess.Players),
			},
		}),
	}
}

func playerRolledDelivery(sess *models.Session, roller string, value int, pending map[string]int) *protocol.Delivery {
	return broadcast(sess, &protocol.Event{
		Type: protocol.EventPlayerRolled,
		Payload: &protocol.PlayerRolledPayload{
			RollerID:     roller,
			Value:        value,
			PendingRolls: maps.Clone(pending),
		},
	})
}

func gameResultDelivery(sess *models.Session, out *RollDiceOutput, rolls map[string]int) *protocol.Delivery {
	return broadcast(sess, &protocol.Event{
		Type: protocol.EventGameResult,
		Payload: &protocol.GameResultPayload{
			Winner:      out.Winner,
			HighestRoll: out.HighestRoll,
			Rolls:       maps.Clone(rolls),
			Tie:         out.Tie,
		},
	})
}

func checkResultDelivery(sess *models.Session, roller string, out *CheckRollOutput) *protocol.Delivery {
	return broadcast(sess, &protocol.Event{
		Type: protocol.EventCheckResult,
		Payload: &protocol.CheckResultPayload{
			Success:          out.Success,
			Roll:             out.Value,
			TargetNumber:     sess.Config.TargetNumber,
			RemainingRerolls: out.RemainingRerolls,
			RollerID:         roller,
			Players:          slices.Clone(sess.Players),
			Complete:         out.Complete,
		},
	})
}

func roundResetDeliveries(sess *models.Session) []*protocol.Delivery {
	return []*protocol.Delivery{
		broadcast(sess, &protocol.Event{
			Type: protocol.EventRoundReset,
			Payload: &protocol.RoundResetPayload{
				Code:             sess.Code,
				RemainingRerolls: sess.Round.RerollsRemaining,
			},
		}),
	}
}

func stateDeliveries(to string, sess *models.Session) []*protocol.Delivery {
	return []*protocol.Delivery{
		private(to, sess, &protocol.Event{
			Type: protocol.EventSessionState,
			Payload: &protocol.SessionStatePayload{
				Code:             sess.Code,
				State:            string(sess.State()),
				Players:          slices.Clone(sess.Players),
				Settings:         *settingsPayload(sess.Config),
				PendingRolls:     maps.Clone(sess.Round.PendingRolls),
				RemainingRerolls: sess.Round.RerollsRemaining,
				Complete:         sess.Round.Complete,
				Round:            sess.Round.Number,
			},
		}),
	}
}

func opponentLeftDelivery(sess *models.Session) *protocol.Delivery {
	return broadcast(sess, &protocol.Event{
		Type: protocol.EventOpponentLeft,
		Payload: &protocol.OpponentLeftPayload{
			Code:    sess.Code,
			Players: slices.Clone(sess.Players),
		},
	})
}

func mediaRequest(sess *models.Session, outcome Outcome) *MediaRequest {
	return &MediaRequest{
		Code:    sess.Code,
		Outcome: outcome,
		To:      slices.Clone(sess.Players),
	}
}

func errorDelivery(to string, kind protocol.ErrorKind, detail string) *protocol.Delivery {
	return &protocol.Delivery{
		Scope: protocol.ScopePrivate,
		To:    []string{to},
		Event: protocol.NewErrorEvent(kind, detail),
	}
}
