package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/KirkDiggler/d20duel/internal/common/clock/mocks"
	codeMocks "github.com/KirkDiggler/d20duel/internal/common/code/mocks"
	"github.com/KirkDiggler/d20duel/internal/common/lock"
	"github.com/KirkDiggler/d20duel/internal/dice"
	diceMocks "github.com/KirkDiggler/d20duel/internal/dice/mocks"
	"github.com/KirkDiggler/d20duel/internal/models"
	"github.com/KirkDiggler/d20duel/internal/protocol"
	playerRepo "github.com/KirkDiggler/d20duel/internal/repositories/player"
	playerMocks "github.com/KirkDiggler/d20duel/internal/repositories/player/mocks"
	sessionRepo "github.com/KirkDiggler/d20duel/internal/repositories/session"
	sessionMocks "github.com/KirkDiggler/d20duel/internal/repositories/session/mocks"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type GameServiceTestSuite struct {
	suite.Suite
	mockCtrl       *gomock.Controller
	mockDiceRoller *diceMocks.MockRoller
	mockClock      *mocks.MockClock
	mockCodeGen    *codeMocks.MockGenerator
	sessionRepo    sessionRepo.Repository
	playerRepo     playerRepo.Repository
	gameService    *service
	ctx            context.Context

	// Test data
	testTime   time.Time
	testCode   string
	testHostID string
	testChalID string
}

func (s *GameServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockDiceRoller = diceMocks.NewMockRoller(s.mockCtrl)
	s.mockClock = mocks.NewMockClock(s.mockCtrl)
	s.mockCodeGen = codeMocks.NewMockGenerator(s.mockCtrl)

	s.ctx = context.Background()
	s.testTime = time.Date(2025, 4, 19, 12, 0, 0, 0, time.UTC)
	s.testCode = "A1B2C3"
	s.testHostID = "conn-host"
	s.testChalID = "conn-challenger"

	s.mockClock.EXPECT().Now().Return(s.testTime).AnyTimes()

	var err error
	s.sessionRepo, err = sessionRepo.NewMemory(&sessionRepo.MemoryConfig{CodeGenerator: s.mockCodeGen})
	s.Require().NoError(err)
	s.playerRepo = playerRepo.NewMemory()

	s.gameService = s.newService(&Config{})
}

func (s *GameServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestGameServiceSuite(t *testing.T) {
	suite.Run(t, new(GameServiceTestSuite))
}

func (s *GameServiceTestSuite) newService(cfg *Config) *service {
	cfg.SessionRepo = s.sessionRepo
	cfg.PlayerRepo = s.playerRepo
	cfg.Locker = lock.NewLocal()
	if cfg.DiceRoller == nil {
		cfg.DiceRoller = s.mockDiceRoller
	}
	cfg.Clock = s.mockClock

	svc, err := New(cfg)
	s.Require().NoError(err)
	return svc
}

func intPtr(v int) *int {
	return &v
}

func (s *GameServiceTestSuite) createVersus() {
	s.mockCodeGen.EXPECT().Generate().Return(s.testCode, nil)
	_, err := s.gameService.CreateSession(s.ctx, &CreateSessionInput{
		ConnectionID: s.testHostID,
		Mode:         "versus",
	})
	s.Require().NoError(err)
}

func (s *GameServiceTestSuite) createCheck(target, maxRerolls int) {
	s.mockCodeGen.EXPECT().Generate().Return(s.testCode, nil)
	_, err := s.gameService.CreateSession(s.ctx, &CreateSessionInput{
		ConnectionID: s.testHostID,
		Mode:         "check",
		TargetNumber: intPtr(target),
		MaxRerolls:   intPtr(maxRerolls),
	})
	s.Require().NoError(err)
}

func (s *GameServiceTestSuite) join() {
	_, err := s.gameService.JoinSession(s.ctx, &JoinSessionInput{
		ConnectionID: s.testChalID,
		Code:         s.testCode,
	})
	s.Require().NoError(err)
}

func (s *GameServiceTestSuite) stored() *models.Session {
	sess, err := s.sessionRepo.GetSession(s.ctx, &sessionRepo.GetSessionInput{Code: s.testCode})
	s.Require().NoError(err)
	return sess
}

func findEvent(deliveries []*protocol.Delivery, t protocol.EventType) *protocol.Delivery {
	for _, d := range deliveries {
		if d.Event.Type == t {
			return d
		}
	}
	return nil
}

func (s *GameServiceTestSuite) TestNewValidatesConfig() {
	_, err := New(nil)
	s.ErrorIs(err, ErrNilConfig)

	_, err = New(&Config{PlayerRepo: s.playerRepo, Locker: lock.NewLocal(), DiceRoller: s.mockDiceRoller})
	s.ErrorIs(err, ErrNilSessionRepo)

	_, err = New(&Config{SessionRepo: s.sessionRepo, Locker: lock.NewLocal(), DiceRoller: s.mockDiceRoller})
	s.ErrorIs(err, ErrNilPlayerRepo)

	_, err = New(&Config{SessionRepo: s.sessionRepo, PlayerRepo: s.playerRepo, DiceRoller: s.mockDiceRoller})
	s.ErrorIs(err, ErrNilLocker)

	_, err = New(&Config{SessionRepo: s.sessionRepo, PlayerRepo: s.playerRepo, Locker: lock.NewLocal()})
	s.ErrorIs(err, ErrNilDiceRoller)

	_, err = New(&Config{
		SessionRepo: s.sessionRepo,
		PlayerRepo:  s.playerRepo,
		Locker:      lock.NewLocal(),
		DiceRoller:  s.mockDiceRoller,
		TieBreak:    "coin-flip",
	})
	s.Error(err)
}

func (s *GameServiceTestSuite) TestCreateSessionVersus() {
	s.mockCodeGen.EXPECT().Generate().Return(s.testCode, nil)

	out, err := s.gameService.CreateSession(s.ctx, &CreateSessionInput{
		ConnectionID: s.testHostID,
		Mode:         "vs",
		TargetNumber: intPtr(12),
	})
	s.Require().NoError(err)

	s.Equal(s.testCode, out.Session.Code)
	s.Equal([]string{s.testHostID}, out.Session.Players)
	s.Equal(models.GameConfig{Mode: models.GameModeVersus}, out.Session.Config)
	s.Equal(s.testTime, out.Session.CreatedAt)

	s.Require().Len(out.Deliveries, 2)
	s.Equal(protocol.EventSessionCreated, out.Deliveries[0].Event.Type)
	s.Equal(s.testCode, out.Deliveries[0].Event.Payload)
	s.Equal([]string{s.testHostID}, out.Deliveries[0].To)
	s.Equal(protocol.ScopePrivate, out.Deliveries[1].Scope)
	s.Equal(&protocol.SettingsPayload{Mode: "versus"}, out.Deliveries[1].Event.Payload)

	idx, err := s.playerRepo.GetSessions(s.ctx, &playerRepo.GetSessionsInput{PlayerID: s.testHostID})
	s.Require().NoError(err)
	s.Equal([]string{s.testCode}, idx.Codes)
}

func (s *GameServiceTestSuite) TestCreateSessionCheckDefaults() {
	s.mockCodeGen.EXPECT().Generate().Return(s.testCode, nil)

	out, err := s.gameService.CreateSession(s.ctx, &CreateSessionInput{
		ConnectionID: s.testHostID,
		Mode:         "check",
		TargetNumber: intPtr(15),
	})
	s.Require().NoError(err)

	s.Equal(models.GameConfig{Mode: models.GameModeCheck, TargetNumber: 15}, out.Session.Config)
	s.Equal(0, out.Session.Round.RerollsRemaining)
	s.Equal(&protocol.SettingsPayload{Mode: "check", TargetNumber: 15, MaxRerolls: intPtr(0)},
		out.Deliveries[1].Event.Payload)
}

func (s *GameServiceTestSuite) TestCreateSessionInvalidSettings() {
	tests := []struct {
		name  string
		input *CreateSessionInput
	}{
		{"unknown mode", &CreateSessionInput{ConnectionID: s.testHostID, Mode: "poker"}},
		{"missing target", &CreateSessionInput{ConnectionID: s.testHostID, Mode: "check"}},
		{"target too low", &CreateSessionInput{ConnectionID: s.testHostID, Mode: "check", TargetNumber: intPtr(0)}},
		{"target too high", &CreateSessionInput{ConnectionID: s.testHostID, Mode: "check", TargetNumber: intPtr(21)}},
		{"negative rerolls", &CreateSessionInput{ConnectionID: s.testHostID, Mode: "check", TargetNumber: intPtr(10), MaxRerolls: intPtr(-1)}},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			_, err := s.gameService.CreateSession(s.ctx, tc.input)
			s.ErrorIs(err, ErrInvalidSettings)
		})
	}

	n, err := s.sessionRepo.CountSessions(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *GameServiceTestSuite) TestJoinSession() {
	s.createVersus()

	out, err := s.gameService.JoinSession(s.ctx, &JoinSessionInput{
		ConnectionID: s.testChalID,
		Code:         s.testCode,
	})
	s.Require().NoError(err)

	players := []string{s.testHostID, s.testChalID}
	s.Equal(players, out.Session.Players)
	s.Equal(models.SessionStateReady, out.Session.State())

	s.Require().Len(out.Deliveries, 3)
	s.Equal(protocol.EventSessionJoined, out.Deliveries[0].Event.Type)
	s.Equal(&protocol.SessionJoinedPayload{Code: s.testCode, Players: players}, out.Deliveries[0].Event.Payload)
	s.Equal([]string{s.testChalID}, out.Deliveries[0].To)
	s.Equal(protocol.EventGameSettingsUpdated, out.Deliveries[1].Event.Type)
	s.Equal([]string{s.testChalID}, out.Deliveries[1].To)
	s.Equal(protocol.EventPlayerJoined, out.Deliveries[2].Event.Type)
	s.Equal(protocol.ScopeBroadcast, out.Deliveries[2].Scope)
	s.Equal(players, out.Deliveries[2].To)
}

func (s *GameServiceTestSuite) TestJoinSessionNotFound() {
	_, err := s.gameService.JoinSession(s.ctx, &JoinSessionInput{
		ConnectionID: s.testChalID,
		Code:         "ZZZZZZ",
	})
	s.ErrorIs(err, ErrSessionNotFound)

	idx, err := s.playerRepo.GetSessions(s.ctx, &playerRepo.GetSessionsInput{PlayerID: s.testChalID})
	s.Require().NoError(err)
	s.Empty(idx.Codes)
}

func (s *GameServiceTestSuite) TestJoinSessionRejections() {
	s.createVersus()

	_, err := s.gameService.JoinSession(s.ctx, &JoinSessionInput{ConnectionID: s.testHostID, Code: s.testCode})
	s.ErrorIs(err, ErrAlreadyJoined)

	s.join()

	_, err = s.gameService.JoinSession(s.ctx, &JoinSessionInput{ConnectionID: s.testChalID, Code: s.testCode})
	s.ErrorIs(err, ErrAlreadyJoined)

	_, err = s.gameService.JoinSession(s.ctx, &JoinSessionInput{ConnectionID: "conn-third", Code: s.testCode})
	s.ErrorIs(err, ErrSessionFull)

	s.Equal([]string{s.testHostID, s.testChalID}, s.stored().Players)
}

func (s *GameServiceTestSuite) TestConcurrentJoinsNeverOverfill() {
	s.createVersus()

	const joiners = 25
	var wg sync.WaitGroup
	errs := make([]error, joiners)
	for i := range joiners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.gameService.JoinSession(s.ctx, &JoinSessionInput{
				ConnectionID: fmt.Sprintf("conn-%d", i),
				Code:         s.testCode,
			})
		}()
	}
	wg.Wait()

	joined := 0
	for _, err := range errs {
		if err == nil {
			joined++
			continue
		}
		s.ErrorIs(err, ErrSessionFull)
	}
	s.Equal(1, joined)
	s.Len(s.stored().Players, models.MaxPlayers)
}

func (s *GameServiceTestSuite) TestVersusRound() {
	s.createVersus()
	s.join()

	s.mockDiceRoller.EXPECT().Roll(20).Return(15)
	s.mockDiceRoller.EXPECT().Roll(20).Return(8)

	first, err := s.gameService.RollDice(s.ctx, &RollDiceInput{ConnectionID: s.testHostID, Code: s.testCode})
	s.Require().NoError(err)
	s.Equal(15, first.Value)
	s.False(first.Resolved)
	s.Nil(first.Media)
	s.Require().Len(first.Deliveries, 1)
	s.Equal(&protocol.PlayerRolledPayload{
		RollerID:     s.testHostID,
		Value:        15,
		PendingRolls: map[string]int{s.testHostID: 15},
	}, first.Deliveries[0].Event.Payload)

	_, err = s.gameService.RollDice(s.ctx, &RollDiceInput{ConnectionID: s.testHostID, Code: s.testCode})
	s.ErrorIs(err, ErrAlreadyRolled)

	second, err := s.gameService.RollDice(s.ctx, &RollDiceInput{ConnectionID: s.testChalID, Code: s.testCode})
	s.Require().NoError(err)
	s.True(second.Resolved)
	s.Equal(s.testHostID, second.Winner)
	s.Equal(15, second.HighestRoll)
	s.False(second.Tie)

	result := findEvent(second.Deliveries, protocol.EventGameResult)
	s.Require().NotNil(result)
	s.Equal(&protocol.GameResultPayload{
		Winner:      s.testHostID,
		HighestRoll: 15,
		Rolls:       map[string]int{s.testHostID: 15, s.testChalID: 8},
	}, result.Event.Payload)
	s.Equal([]string{s.testHostID, s.testChalID}, result.To)
	s.Less(first.Deliveries[0].Event.Seq, result.Event.Seq)

	s.Require().NotNil(second.Media)
	s.Equal(OutcomeWin, second.Media.Outcome)

	stored := s.stored()
	s.Empty(stored.Round.PendingRolls)
	s.Equal(1, stored.Round.Number)
}

func (s *GameServiceTestSuite) TestConcurrentVersusRollsResolveOnce() {
	s.gameService = s.newService(&Config{DiceRoller: dice.New(nil)})
	s.createVersus()
	s.join()

	const rounds = 200
	players := []string{s.testHostID, s.testChalID}
	for round := range rounds {
		outs := make([]*RollDiceOutput, len(players))
		errs := make([]error, len(players))
		var wg sync.WaitGroup
		for i, id := range players {
			wg.Add(1)
			go func() {
				defer wg.Done()
				outs[i], errs[i] = s.gameService.RollDice(s.ctx, &RollDiceInput{ConnectionID: id, Code: s.testCode})
			}()
		}
		wg.Wait()

		for _, err := range errs {
			s.Require().NoError(err)
		}

		results := 0
		var resolving, other *RollDiceOutput
		for i, out := range outs {
			if findEvent(out.Deliveries, protocol.EventGameResult) != nil {
				results++
				resolving, other = out, outs[1-i]
			}
		}
		s.Require().Equal(1, results, "round %d", round)

		// the resolving broadcast is ordered after the other player's roll
		s.Greater(findEvent(resolving.Deliveries, protocol.EventGameResult).Event.Seq,
			findEvent(other.Deliveries, protocol.EventPlayerRolled).Event.Seq)

		stored := s.stored()
		s.Require().Empty(stored.Round.PendingRolls, "round %d", round)
		s.Require().Equal(round+1, stored.Round.Number)
	}
}

func (s *GameServiceTestSuite) TestConcurrentCheckRollsCompleteOnce() {
	s.gameService = s.newService(&Config{DiceRoller: dice.New(nil)})
	s.createCheck(10, 0)
	s.join()

	const rounds = 200
	for round := range rounds {
		outs := make([]*CheckRollOutput, 2)
		errs := make([]error, 2)
		var wg sync.WaitGroup
		for i := range outs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				outs[i], errs[i] = s.gameService.CheckRoll(s.ctx, &CheckRollInput{ConnectionID: s.testChalID, Code: s.testCode})
			}()
		}
		wg.Wait()

		completed := 0
		for i, err := range errs {
			if err != nil {
				s.Require().ErrorIs(err, ErrRoundComplete)
				continue
			}
			if outs[i].Complete {
				completed++
			}
		}
		s.Require().Equal(1, completed, "round %d", round)

		_, err := s.gameService.ResetRound(s.ctx, &ResetRoundInput{ConnectionID: s.testHostID, Code: s.testCode})
		s.Require().NoError(err)
	}
}

func (s *GameServiceTestSuite) TestVersusRollBeforeOpponentJoins() {
	s.createVersus()
	s.mockDiceRoller.EXPECT().Roll(20).Return(11)

	out, err := s.gameService.RollDice(s.ctx, &RollDiceInput{ConnectionID: s.testHostID, Code: s.testCode})
	s.Require().NoError(err)
	s.False(out.Resolved)

	s.join()
	s.mockDiceRoller.EXPECT().Roll(20).Return(19)

	out, err = s.gameService.RollDice(s.ctx, &RollDiceInput{ConnectionID: s.testChalID, Code: s.testCode})
	s.Require().NoError(err)
	s.True(out.Resolved)
	s.Equal(s.testChalID, out.Winner)
}

func (s *GameServiceTestSuite) TestVersusTieHostPolicy() {
	s.createVersus()
	s.join()
	s.mockDiceRoller.EXPECT().Roll(20).Return(7).Times(2)

	_, err := s.gameService.RollDice(s.ctx, &RollDiceInput{ConnectionID: s.testChalID, Code: s.testCode})
	s.Require().NoError(err)
	out, err := s.gameService.RollDice(s.ctx, &RollDiceInput{ConnectionID: s.testHostID, Code: s.testCode})
	s.Require().NoError(err)

	s.True(out.Tie)
	s.Equal(s.testHostID, out.Winner)
	s.Equal(OutcomeTie, out.Media.Outcome)
}

func (s *GameServiceTestSuite) TestVersusTieRerollPolicy() {
	s.gameService = s.newService(&Config{TieBreak: models.TieBreakReroll})
	s.createVersus()
	s.join()
	s.mockDiceRoller.EXPECT().Roll(20).Return(7).Times(2)

	_, err := s.gameService.RollDice(s.ctx, &RollDiceInput{ConnectionID: s.testHostID, Code: s.testCode})
	s.Require().NoError(err)
	out, err := s.gameService.RollDice(s.ctx, &RollDiceInput{ConnectionID: s.testChalID, Code: s.testCode})
	s.Require().NoError(err)

	s.True(out.Tie)
	s.Empty(out.Winner)
	s.Empty(s.stored().Round.PendingRolls)
}

func (s *GameServiceTestSuite) TestRollRejections() {
	s.createVersus()
	s.join()

	_, err := s.gameService.RollDice(s.ctx, &RollDiceInput{ConnectionID: "conn-stranger", Code: s.testCode})
	s.ErrorIs(err, ErrNotInSession)

	_, err = s.gameService.RollDice(s.ctx, &RollDiceInput{ConnectionID: s.testHostID, Code: "ZZZZZZ"})
	s.ErrorIs(err, ErrSessionNotFound)

	_, err = s.gameService.CheckRoll(s.ctx, &CheckRollInput{ConnectionID: s.testChalID, Code: s.testCode})
	s.ErrorIs(err, ErrWrongMode)
}

func (s *GameServiceTestSuite) TestCheckRoundCountdown() {
	s.createCheck(15, 2)
	s.join()

	gomock.InOrder(
		s.mockDiceRoller.EXPECT().Roll(20).Return(10),
		s.mockDiceRoller.EXPECT().Roll(20).Return(12),
		s.mockDiceRoller.EXPECT().Roll(20).Return(9),
	)

	expected := []int{1, 0, -1}
	var last *CheckRollOutput
	for i, remaining := range expected {
		out, err := s.gameService.CheckRoll(s.ctx, &CheckRollInput{ConnectionID: s.testChalID, Code: s.testCode})
		s.Require().NoError(err)
		s.False(out.Success)
		s.Equal(remaining, out.RemainingRerolls)
		s.Equal(i == len(expected)-1, out.Complete)

		result := findEvent(out.Deliveries, protocol.EventCheckResult)
		s.Require().NotNil(result)
		payload := result.Event.Payload.(*protocol.CheckResultPayload)
		s.Equal(remaining, payload.RemainingRerolls)
		s.Equal(15, payload.TargetNumber)
		s.Equal(s.testChalID, payload.RollerID)
		last = out
	}

	s.Require().NotNil(last.Media)
	s.Equal(OutcomeFailure, last.Media.Outcome)

	_, err := s.gameService.CheckRoll(s.ctx, &CheckRollInput{ConnectionID: s.testChalID, Code: s.testCode})
	s.ErrorIs(err, ErrRoundComplete)

	stored := s.stored()
	s.True(stored.Round.Complete)
	s.Equal(2, stored.Round.RerollsRemaining)
	s.Empty(stored.Round.PendingRolls)
}

func (s *GameServiceTestSuite) TestCheckSuccessThenReset() {
	s.createCheck(15, 2)
	s.join()

	gomock.InOrder(
		s.mockDiceRoller.EXPECT().Roll(20).Return(3),
		s.mockDiceRoller.EXPECT().Roll(20).Return(15),
		s.mockDiceRoller.EXPECT().Roll(20).Return(20),
	)

	out, err := s.gameService.CheckRoll(s.ctx, &CheckRollInput{ConnectionID: s.testChalID, Code: s.testCode})
	s.Require().NoError(err)
	s.Equal(1, out.RemainingRerolls)

	out, err = s.gameService.CheckRoll(s.ctx, &CheckRollInput{ConnectionID: s.testChalID, Code: s.testCode})
	s.Require().NoError(err)
	s.True(out.Success)
	s.True(out.Complete)
	s.Equal(1, out.RemainingRerolls)
	s.Equal(OutcomeSuccess, out.Media.Outcome)

	_, err = s.gameService.CheckRoll(s.ctx, &CheckRollInput{ConnectionID: s.testChalID, Code: s.testCode})
	s.ErrorIs(err, ErrRoundComplete)

	reset, err := s.gameService.ResetRound(s.ctx, &ResetRoundInput{ConnectionID: s.testHostID, Code: s.testCode})
	s.Require().NoError(err)
	s.False(reset.Session.Round.Complete)
	s.Equal(&protocol.RoundResetPayload{Code: s.testCode, RemainingRerolls: 2}, reset.Deliveries[0].Event.Payload)

	out, err = s.gameService.CheckRoll(s.ctx, &CheckRollInput{ConnectionID: s.testChalID, Code: s.testCode})
	s.Require().NoError(err)
	s.True(out.Success)
	s.Equal(2, out.RemainingRerolls)
}

func (s *GameServiceTestSuite) TestCheckZeroRerolls() {
	s.createCheck(20, 0)
	s.join()
	s.mockDiceRoller.EXPECT().Roll(20).Return(19)

	out, err := s.gameService.CheckRoll(s.ctx, &CheckRollInput{ConnectionID: s.testChalID, Code: s.testCode})
	s.Require().NoError(err)
	s.False(out.Success)
	s.True(out.Complete)
	s.Equal(-1, out.RemainingRerolls)
}

func (s *GameServiceTestSuite) TestCheckRollRejections() {
	s.createCheck(10, 1)

	_, err := s.gameService.CheckRoll(s.ctx, &CheckRollInput{ConnectionID: s.testHostID, Code: s.testCode})
	s.ErrorIs(err, ErrNotChallenger)

	s.join()

	_, err = s.gameService.CheckRoll(s.ctx, &CheckRollInput{ConnectionID: s.testHostID, Code: s.testCode})
	s.ErrorIs(err, ErrNotChallenger)

	_, err = s.gameService.CheckRoll(s.ctx, &CheckRollInput{ConnectionID: "conn-stranger", Code: s.testCode})
	s.ErrorIs(err, ErrNotInSession)

	_, err = s.gameService.RollDice(s.ctx, &RollDiceInput{ConnectionID: s.testHostID, Code: s.testCode})
	s.ErrorIs(err, ErrWrongMode)
}

func (s *GameServiceTestSuite) TestResetRoundRequiresMember() {
	s.createCheck(10, 1)

	_, err := s.gameService.ResetRound(s.ctx, &ResetRoundInput{ConnectionID: "conn-stranger", Code: s.testCode})
	s.ErrorIs(err, ErrNotInSession)
}

func (s *GameServiceTestSuite) TestGetSession() {
	s.createCheck(12, 3)
	s.join()

	out, err := s.gameService.GetSession(s.ctx, &GetSessionInput{ConnectionID: s.testChalID, Code: s.testCode})
	s.Require().NoError(err)
	s.Require().Len(out.Deliveries, 1)
	s.Equal([]string{s.testChalID}, out.Deliveries[0].To)
	s.Equal(&protocol.SessionStatePayload{
		Code:             s.testCode,
		State:            "ready",
		Players:          []string{s.testHostID, s.testChalID},
		Settings:         protocol.SettingsPayload{Mode: "check", TargetNumber: 12, MaxRerolls: intPtr(3)},
		PendingRolls:     map[string]int{},
		RemainingRerolls: 3,
	}, out.Deliveries[0].Event.Payload)

	_, err = s.gameService.GetSession(s.ctx, &GetSessionInput{ConnectionID: "conn-stranger", Code: s.testCode})
	s.ErrorIs(err, ErrNotInSession)
}

func (s *GameServiceTestSuite) TestDisconnectLeavesAndDeletes() {
	s.createVersus()
	s.join()

	out, err := s.gameService.Disconnect(s.ctx, &DisconnectInput{ConnectionID: s.testHostID})
	s.Require().NoError(err)
	s.Equal([]string{s.testCode}, out.Left)
	s.Empty(out.Deliveries)

	stored := s.stored()
	s.Equal([]string{s.testChalID}, stored.Players)
	s.Equal(s.testChalID, stored.Host())

	out, err = s.gameService.Disconnect(s.ctx, &DisconnectInput{ConnectionID: s.testChalID})
	s.Require().NoError(err)
	s.Equal([]string{s.testCode}, out.Deleted)

	_, err = s.sessionRepo.GetSession(s.ctx, &sessionRepo.GetSessionInput{Code: s.testCode})
	s.ErrorIs(err, sessionRepo.ErrSessionNotFound)
}

func (s *GameServiceTestSuite) TestDisconnectDropsPendingRoll() {
	s.createVersus()
	s.join()
	s.mockDiceRoller.EXPECT().Roll(20).Return(4)

	_, err := s.gameService.RollDice(s.ctx, &RollDiceInput{ConnectionID: s.testChalID, Code: s.testCode})
	s.Require().NoError(err)

	_, err = s.gameService.Disconnect(s.ctx, &DisconnectInput{ConnectionID: s.testChalID})
	s.Require().NoError(err)
	s.Empty(s.stored().Round.PendingRolls)
}

func (s *GameServiceTestSuite) TestDisconnectNotifiesOpponent() {
	s.gameService = s.newService(&Config{NotifyOpponentLeft: true})
	s.createVersus()
	s.join()

	out, err := s.gameService.Disconnect(s.ctx, &DisconnectInput{ConnectionID: s.testChalID})
	s.Require().NoError(err)
	s.Require().Len(out.Deliveries, 1)
	s.Equal(protocol.EventOpponentLeft, out.Deliveries[0].Event.Type)
	s.Equal([]string{s.testHostID}, out.Deliveries[0].To)
}

func (s *GameServiceTestSuite) TestDisconnectUnknownConnection() {
	out, err := s.gameService.Disconnect(s.ctx, &DisconnectInput{ConnectionID: "conn-ghost"})
	s.Require().NoError(err)
	s.Empty(out.Left)
	s.Empty(out.Deleted)
}

func (s *GameServiceTestSuite) TestStats() {
	s.createVersus()

	out, err := s.gameService.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, out.Sessions)
}

func (s *GameServiceTestSuite) TestHandleCommands() {
	s.mockCodeGen.EXPECT().Generate().Return(s.testCode, nil)

	out := s.gameService.Handle(s.ctx, &HandleInput{
		ConnectionID: s.testHostID,
		Command: &protocol.Command{
			Type:    protocol.CommandCreateSession,
			Payload: []byte(`{"mode":"check","targetNumber":15,"maxRerolls":2}`),
		},
	})
	s.Require().Len(out.Deliveries, 2)
	s.Equal(protocol.EventSessionCreated, out.Deliveries[0].Event.Type)

	out = s.gameService.Handle(s.ctx, &HandleInput{
		ConnectionID: s.testChalID,
		Command: &protocol.Command{
			Type:    protocol.CommandJoinSession,
			Payload: []byte(`"A1B2C3"`),
		},
	})
	s.Require().NotNil(findEvent(out.Deliveries, protocol.EventPlayerJoined))

	s.mockDiceRoller.EXPECT().Roll(20).Return(18)
	out = s.gameService.Handle(s.ctx, &HandleInput{
		ConnectionID: s.testChalID,
		Command: &protocol.Command{
			Type:    protocol.CommandCheckRoll,
			Payload: []byte(`{"code":"A1B2C3"}`),
		},
	})
	s.Require().NotNil(findEvent(out.Deliveries, protocol.EventCheckResult))
	s.Require().NotNil(out.Media)
	s.Equal(OutcomeSuccess, out.Media.Outcome)
}

func (s *GameServiceTestSuite) TestHandleErrors() {
	tests := []struct {
		name string
		cmd  *protocol.Command
		kind protocol.ErrorKind
	}{
		{"missing command", nil, protocol.ErrorInvalidCommand},
		{"unknown type", &protocol.Command{Type: "draw-card"}, protocol.ErrorInvalidCommand},
		{"malformed payload", &protocol.Command{Type: protocol.CommandJoinSession, Payload: []byte(`{"code":`)}, protocol.ErrorInvalidCommand},
		{"missing code", &protocol.Command{Type: protocol.CommandRollDice}, protocol.ErrorSessionNotFound},
		{"unknown session", &protocol.Command{Type: protocol.CommandJoinSession, Payload: []byte(`"NOPE00"`)}, protocol.ErrorSessionNotFound},
		{"bad settings", &protocol.Command{Type: protocol.CommandCreateSession, Payload: []byte(`{"mode":"check"}`)}, protocol.ErrorInvalidSettings},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			out := s.gameService.Handle(s.ctx, &HandleInput{ConnectionID: s.testHostID, Command: tc.cmd})
			s.Require().Len(out.Deliveries, 1)
			d := out.Deliveries[0]
			s.Equal(protocol.ScopePrivate, d.Scope)
			s.Equal([]string{s.testHostID}, d.To)
			s.Equal(protocol.EventError, d.Event.Type)
			s.Equal(tc.kind, d.Event.Payload.(*protocol.ErrorPayload).Message)
		})
	}
}

func TestSaveFailureLeavesSessionUntouched(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := sessionMocks.NewMockRepository(ctrl)
	roller := diceMocks.NewMockRoller(ctrl)

	svc, err := New(&Config{
		SessionRepo: repo,
		PlayerRepo:  playerRepo.NewMemory(),
		Locker:      lock.NewLocal(),
		DiceRoller:  roller,
	})
	if err != nil {
		t.Fatal(err)
	}

	stored := &models.Session{
		Code:    "A1B2C3",
		Players: []string{"conn-host", "conn-challenger"},
		Config:  models.GameConfig{Mode: models.GameModeVersus},
		Round:   models.RoundState{PendingRolls: map[string]int{}},
	}
	repo.EXPECT().GetSession(gomock.Any(), &sessionRepo.GetSessionInput{Code: "A1B2C3"}).Return(stored.Clone(), nil)
	roller.EXPECT().Roll(20).Return(9)
	repo.EXPECT().SaveSession(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	out := svc.Handle(context.Background(), &HandleInput{
		ConnectionID: "conn-host",
		Command:      &protocol.Command{Type: protocol.CommandRollDice, Payload: []byte(`"A1B2C3"`)},
	})
	if len(out.Deliveries) != 1 {
		t.Fatalf("expected one delivery, got %d", len(out.Deliveries))
	}
	payload, ok := out.Deliveries[0].Event.Payload.(*protocol.ErrorPayload)
	if !ok || payload.Message != protocol.ErrorInternal {
		t.Fatalf("expected internal error, got %#v", out.Deliveries[0].Event.Payload)
	}
	if payload.Detail != "internal error" {
		t.Errorf("internal detail leaked: %q", payload.Detail)
	}
	if out.Media != nil {
		t.Error("unexpected media request")
	}
}

func TestErrorKind(t *testing.T) {
	if got := ErrorKind(fmt.Errorf("wrapped: %w", ErrSessionFull)); got != protocol.ErrorSessionFull {
		t.Errorf("ErrorKind = %s", got)
	}
	if got := ErrorKind(errors.New("boom")); got != protocol.ErrorInternal {
		t.Errorf("ErrorKind = %s", got)
	}
}

func TestCreateSessionRollsBackWhenIndexFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := codeMocks.NewMockGenerator(ctrl)
	players := playerMocks.NewMockRepository(ctrl)

	sessions, err := sessionRepo.NewMemory(&sessionRepo.MemoryConfig{CodeGenerator: gen})
	if err != nil {
		t.Fatal(err)
	}
	svc, err := New(&Config{
		SessionRepo: sessions,
		PlayerRepo:  players,
		Locker:      lock.NewLocal(),
		DiceRoller:  diceMocks.NewMockRoller(ctrl),
	})
	if err != nil {
		t.Fatal(err)
	}

	gen.EXPECT().Generate().Return("A1B2C3", nil)
	players.EXPECT().AddSession(gomock.Any(), &playerRepo.AddSessionInput{
		PlayerID: "conn-host",
		Code:     "A1B2C3",
	}).Return(errors.New("index unavailable"))

	_, err = svc.CreateSession(context.Background(), &CreateSessionInput{ConnectionID: "conn-host", Mode: "versus"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if ErrorKind(err) != protocol.ErrorInternal {
		t.Errorf("ErrorKind = %s", ErrorKind(err))
	}

	n, err := sessions.CountSessions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("session left behind after failed create: %d", n)
	}
}
