package relay

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type recordingSink struct {
	mu   sync.Mutex
	envs []*Envelope
}

func (s *recordingSink) Deliver(env *Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envs = append(s.envs, env)
}

func (s *recordingSink) received() []*Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Envelope, len(s.envs))
	copy(out, s.envs)
	return out
}

type RelayTestSuite struct {
	suite.Suite
	relay   Relay
	ctx     context.Context
	cancel  context.CancelFunc
	build   func() (Relay, func())
	cleanup func()
}

func (s *RelayTestSuite) SetupTest() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.relay, s.cleanup = s.build()
}

func (s *RelayTestSuite) TearDownTest() {
	s.cancel()
	s.cleanup()
}

func TestLocalRelaySuite(t *testing.T) {
	suite.Run(t, &RelayTestSuite{
		build: func() (Relay, func()) {
			return NewLocal(), func() {}
		},
	})
}

func TestRedisRelaySuite(t *testing.T) {
	suite.Run(t, &RelayTestSuite{
		build: func() (Relay, func()) {
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatalf("miniredis: %v", err)
			}
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			r, err := NewRedis(&Config{RedisClient: client, Channel: "test:events"})
			if err != nil {
				t.Fatalf("NewRedis: %v", err)
			}
			return r, func() {
				client.Close()
				mr.Close()
			}
		},
	})
}

func (s *RelayTestSuite) TestFanOutToEverySubscriber() {
	first, second := &recordingSink{}, &recordingSink{}

	stop1, err := s.relay.Subscribe(s.ctx, first)
	s.Require().NoError(err)
	defer stop1()
	stop2, err := s.relay.Subscribe(s.ctx, second)
	s.Require().NoError(err)
	defer stop2()

	env := &Envelope{To: []string{"conn-a"}, Data: json.RawMessage(`{"type":"player-joined"}`)}
	s.Require().NoError(s.relay.Publish(s.ctx, env))

	for _, sink := range []*recordingSink{first, second} {
		s.Eventually(func() bool { return len(sink.received()) == 1 }, time.Second, 10*time.Millisecond)
		got := sink.received()[0]
		s.Equal([]string{"conn-a"}, got.To)
		s.JSONEq(`{"type":"player-joined"}`, string(got.Data))
	}
}

func (s *RelayTestSuite) TestStopEndsDelivery() {
	sink := &recordingSink{}
	stop, err := s.relay.Subscribe(s.ctx, sink)
	s.Require().NoError(err)
	s.Require().NoError(stop())

	s.Require().NoError(s.relay.Publish(s.ctx, &Envelope{To: []string{"conn-a"}, Data: json.RawMessage(`{}`)}))

	time.Sleep(50 * time.Millisecond)
	s.Empty(sink.received())
}

func (s *RelayTestSuite) TestNilSink() {
	_, err := s.relay.Subscribe(s.ctx, nil)
	s.ErrorIs(err, ErrNilSink)
}

func TestRedisDropsMalformedPayload(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	r, err := NewRedis(&Config{RedisClient: client})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &recordingSink{}
	stop, err := r.Subscribe(ctx, sink)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, client.Publish(ctx, DefaultChannel, "not json").Err())
	require.NoError(t, r.Publish(ctx, &Envelope{To: []string{"conn-b"}, Data: json.RawMessage(`{"ok":true}`)}))

	assert.Eventually(t, func() bool { return len(sink.received()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"conn-b"}, sink.received()[0].To)
}

func TestNewRedisRequiresClient(t *testing.T) {
	_, err := NewRedis(&Config{})
	assert.Error(t, err)

	_, err = NewRedis(nil)
	assert.Error(t, err)
}
