package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/KirkDiggler/d20duel/internal/common/uuid"
	"github.com/KirkDiggler/d20duel/internal/protocol"
	"github.com/KirkDiggler/d20duel/internal/relay"
	"github.com/KirkDiggler/d20duel/internal/services/game"
	"github.com/KirkDiggler/d20duel/internal/services/media"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// DefaultMediaTimeout bounds the decorative media lookup after a result
	DefaultMediaTimeout = 3 * time.Second

	disconnectTimeout = 5 * time.Second
)

// Config holds the configuration for the gateway
type Config struct {
	GameService game.Service
	Relay       relay.Relay

	// Media is optional; results are not decorated without it
	Media media.Fetcher

	// UUID assigns connection ids; defaults to random UUIDs
	UUID uuid.UUID

	// AllowedOrigins lists accepted Origin headers. Empty or "*" accepts any.
	AllowedOrigins []string

	MediaTimeout time.Duration
	SendBuffer   int

	Logger *zap.Logger
}

// Gateway bridges websocket connections to the game service
type Gateway struct {
	gameService  game.Service
	relay        relay.Relay
	media        media.Fetcher
	ids          uuid.UUID
	logger       *zap.Logger
	upgrader     websocket.Upgrader
	mediaTimeout time.Duration
	sendBuffer   int

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool

	// wg tracks connection handlers and media lookups. Handlers join it under
	// mu only while closed is false.
	wg sync.WaitGroup
}

// New creates a new gateway
func New(cfg *Config) (*Gateway, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.GameService == nil {
		return nil, errors.New("game service cannot be nil")
	}
	if cfg.Relay == nil {
		return nil, errors.New("relay cannot be nil")
	}

	g := &Gateway{
		gameService:  cfg.GameService,
		relay:        cfg.Relay,
		media:        cfg.Media,
		ids:          cfg.UUID,
		logger:       cfg.Logger,
		mediaTimeout: cfg.MediaTimeout,
		sendBuffer:   cfg.SendBuffer,
		clients:      make(map[string]*client),
	}
	if g.ids == nil {
		g.ids = uuid.New()
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.mediaTimeout <= 0 {
		g.mediaTimeout = DefaultMediaTimeout
	}
	if g.sendBuffer <= 0 {
		g.sendBuffer = DefaultSendBuffer
	}

	origins := slices.Clone(cfg.AllowedOrigins)
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(origins, r.Header.Get("Origin"))
		},
	}

	return g, nil
}

// Handler returns the HTTP routes: /healthz and the websocket endpoint on
// every other path
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", g.healthz)
	mux.Handle("/", g)
	return mux
}

// ServeHTTP upgrades the request and runs the connection until it closes
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !g.track() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	defer g.wg.Done()

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Debug("upgrade failed",
			zap.String("origin", r.Header.Get("Origin")),
			zap.Error(err))
		return
	}

	c := newClient(g.ids.NewUUID(), conn, g.sendBuffer)
	if !g.register(c) {
		c.close()
		return
	}
	go c.writePump()

	g.logger.Info("connection opened",
		zap.String("connection_id", c.id),
		zap.String("remote_addr", r.RemoteAddr))

	g.deliverLocal(c.id, &protocol.Event{
		Type:    protocol.EventConnected,
		Payload: &protocol.ConnectedPayload{ConnectionID: c.id},
	})

	g.readPump(c)
	g.cleanup(c)
}

// Deliver implements relay.Sink. Recipients held by other gateways are
// skipped.
func (g *Gateway) Deliver(env *relay.Envelope) {
	for _, id := range env.To {
		g.mu.RLock()
		c, ok := g.clients[id]
		g.mu.RUnlock()
		if !ok {
			continue
		}

		if !c.enqueue(env.Data) {
			g.logger.Warn("dropping slow connection", zap.String("connection_id", id))
			c.close()
		}
	}
}

// Close refuses new connections, drops every open one and waits for
// handlers and media lookups
func (g *Gateway) Close() {
	g.mu.Lock()
	g.closed = true
	clients := make([]*client, 0, len(g.clients))
	for _, c := range g.clients {
		clients = append(clients, c)
	}
	g.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	g.wg.Wait()
}

// Connections returns the number of connections held by this gateway
func (g *Gateway) Connections() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients)
}

func (g *Gateway) readPump(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := context.Background()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Debug("connection read failed",
					zap.String("connection_id", c.id),
					zap.Error(err))
			}
			return
		}

		var cmd protocol.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			g.deliverLocal(c.id, protocol.NewErrorEvent(protocol.ErrorInvalidCommand, "malformed frame"))
			continue
		}

		out := g.gameService.Handle(ctx, &game.HandleInput{
			ConnectionID: c.id,
			Command:      &cmd,
		})
		g.dispatch(ctx, out.Deliveries)
		if out.Media != nil {
			g.decorate(out.Media)
		}
	}
}

func (g *Gateway) cleanup(c *client) {
	g.unregister(c)
	c.close()

	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()

	out, err := g.gameService.Disconnect(ctx, &game.DisconnectInput{ConnectionID: c.id})
	if err != nil {
		g.logger.Error("disconnect cleanup failed",
			zap.String("connection_id", c.id),
			zap.Error(err))
	}
	if out != nil {
		g.dispatch(ctx, out.Deliveries)
	}

	g.logger.Info("connection closed", zap.String("connection_id", c.id))
}

// dispatch sends private events straight to the local connection and
// broadcasts through the relay so every gateway sees them
func (g *Gateway) dispatch(ctx context.Context, deliveries []*protocol.Delivery) {
	for _, d := range deliveries {
		data, err := d.Event.Marshal()
		if err != nil {
			g.logger.Error("failed to encode event",
				zap.String("type", string(d.Event.Type)),
				zap.Error(err))
			continue
		}

		if d.Scope == protocol.ScopePrivate {
			g.Deliver(&relay.Envelope{To: d.To, Data: data})
			continue
		}

		if err := g.relay.Publish(ctx, &relay.Envelope{To: d.To, Data: data}); err != nil {
			g.logger.Error("failed to publish event",
				zap.String("code", d.Code),
				zap.String("type", string(d.Event.Type)),
				zap.Error(err))
		}
	}
}

func (g *Gateway) deliverLocal(id string, evt *protocol.Event) {
	g.dispatch(context.Background(), []*protocol.Delivery{{
		Scope: protocol.ScopePrivate,
		To:    []string{id},
		Event: evt,
	}})
}

// decorate looks up media for a concluded round off the command path. Any
// failure is dropped.
func (g *Gateway) decorate(req *game.MediaRequest) {
	if g.media == nil {
		return
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), g.mediaTimeout)
		defer cancel()

		out, err := g.media.Fetch(ctx, &media.FetchInput{Outcome: string(req.Outcome)})
		if err != nil {
			g.logger.Debug("media lookup failed",
				zap.String("code", req.Code),
				zap.Error(err))
			return
		}
		if out == nil || out.URL == "" {
			return
		}

		g.dispatch(ctx, []*protocol.Delivery{{
			Scope: protocol.ScopeBroadcast,
			Code:  req.Code,
			To:    req.To,
			Event: &protocol.Event{
				Type: protocol.EventResultMedia,
				Payload: &protocol.ResultMediaPayload{
					Code:    req.Code,
					Outcome: string(req.Outcome),
					URL:     out.URL,
				},
			},
		}})
	}()
}

func (g *Gateway) healthz(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":      "ok",
		"connections": g.Connections(),
	}
	status := http.StatusOK

	stats, err := g.gameService.Stats(r.Context())
	if err != nil {
		g.logger.Warn("health check failed", zap.Error(err))
		body["status"] = "degraded"
		status = http.StatusServiceUnavailable
	} else {
		body["sessions"] = stats.Sessions
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// track joins wg unless Close has started
func (g *Gateway) track() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.wg.Add(1)
	return true
}

// register reports false when Close started during the upgrade
func (g *Gateway) register(c *client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.clients[c.id] = c
	return true
}

func (g *Gateway) unregister(c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.clients[c.id] == c {
		delete(g.clients, c.id)
	}
}

func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 || origin == "" {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(strings.TrimRight(a, "/"), origin) {
			return true
		}
	}
	return false
}
