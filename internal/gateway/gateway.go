// Package gateway owns the set of live websocket connections and their
// sessions. It parses envelope frames, applies token-bucket admission
// control, routes campaign-scoped traffic, and evicts peers that go
// quiet without a close handshake.
package gateway

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arkadion/campfire/internal/hub"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Token buckets refill to capacity once per second; unused
	// capacity never carries over.
	refillInterval = time.Second

	// Outbound buffer per session.
	sendBufferSize = 256
)

const (
	defaultHeartbeatInterval = 15 * time.Second
	defaultRatePerSecond     = 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Config controls admission and liveness behavior.
type Config struct {
	// HeartbeatInterval is both the expected client ping cadence and
	// the sweep cadence; sessions idle for more than twice this are
	// evicted.
	HeartbeatInterval time.Duration

	// RatePerSecond is the token-bucket capacity and refill amount.
	RatePerSecond int
}

// Stats reports how many inbound frames were silently dropped, split
// by reason. Drops are traffic shaping, not faults; the counters exist
// so operators can diagnose what clients never hear about.
type Stats struct {
	DroppedRateLimited uint64 `json:"dropped_rate_limited"`
	DroppedMalformed   uint64 `json:"dropped_malformed"`
	DroppedNoCampaign  uint64 `json:"dropped_no_campaign"`
}

// Gateway maintains the set of live sessions and routes traffic
// between them.
type Gateway struct {
	cfg    Config
	hub    *hub.Hub
	logger *zap.Logger

	// Registered sessions, keyed by session id.
	sessions map[string]*Session

	register   chan *Session
	unregister chan *Session
	stop       chan struct{}

	// Guards the sessions map for readers outside the Run loop.
	mu sync.RWMutex

	droppedRateLimited atomic.Uint64
	droppedMalformed   atomic.Uint64
	droppedNoCampaign  atomic.Uint64
}

// New creates a gateway and installs its campaign fan-out as the hub's
// broadcast strategy, so server-originated events and peer relays
// share a single delivery path.
func New(h *hub.Hub, cfg Config, logger *zap.Logger) *Gateway {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = defaultRatePerSecond
	}

	g := &Gateway{
		cfg:        cfg,
		hub:        h,
		logger:     logger,
		sessions:   make(map[string]*Session),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		stop:       make(chan struct{}),
	}
	h.SetBroadcaster(g.broadcastToCampaign)
	return g
}

// Run starts the gateway's main loop: session registration, the
// per-second token refill, and the liveness sweep. It returns after
// Stop is called.
func (g *Gateway) Run() {
	refill := time.NewTicker(refillInterval)
	defer refill.Stop()
	sweep := time.NewTicker(g.cfg.HeartbeatInterval)
	defer sweep.Stop()

	for {
		select {
		case s := <-g.register:
			g.addSession(s)

		case s := <-g.unregister:
			g.removeSession(s)

		case <-refill.C:
			g.refillTokens()

		case <-sweep.C:
			g.sweepStale(time.Now())

		case <-g.stop:
			return
		}
	}
}

// Stop terminates the Run loop.
func (g *Gateway) Stop() {
	close(g.stop)
}

// Stats returns the drop counters.
func (g *Gateway) Stats() Stats {
	return Stats{
		DroppedRateLimited: g.droppedRateLimited.Load(),
		DroppedMalformed:   g.droppedMalformed.Load(),
		DroppedNoCampaign:  g.droppedNoCampaign.Load(),
	}
}

// SessionCount returns the number of live sessions.
func (g *Gateway) SessionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

// ServeWS upgrades the request to a websocket connection and attaches
// a new session. sessionID pins the identity when the caller has
// already authenticated the peer; an empty id gets a fresh uuid.
// Accepting a connection has no failure path beyond the upgrade
// itself.
func (g *Gateway) ServeWS(c echo.Context, sessionID string) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		g.logger.Error("websocket upgrade failed", zap.Error(err))
		return err
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	s := &Session{
		gateway:      g,
		conn:         conn,
		send:         make(chan []byte, sendBufferSize),
		id:           sessionID,
		logger:       g.logger,
		lastActivity: time.Now(),
		tokens:       g.cfg.RatePerSecond,
	}

	s.reply(Envelope{Type: TypeWelcome, ID: s.id})
	g.register <- s

	go s.writePump()
	go s.readPump()

	return nil
}

func (g *Gateway) addSession(s *Session) {
	g.mu.Lock()
	if prev, ok := g.sessions[s.id]; ok {
		// A reconnect under the same identity supersedes the old
		// connection.
		prev.closeSend()
		prev.conn.Close()
		g.logger.Warn("session replaced", zap.String("sessionID", s.id))
	}
	g.sessions[s.id] = s
	g.mu.Unlock()
	g.logger.Info("session registered", zap.String("sessionID", s.id))
}

func (g *Gateway) removeSession(s *Session) {
	g.mu.Lock()
	cur, ok := g.sessions[s.id]
	if ok && cur == s {
		delete(g.sessions, s.id)
		s.closeSend()
	}
	g.mu.Unlock()
	if ok && cur == s {
		g.logger.Info("session unregistered", zap.String("sessionID", s.id))
	}
}

// refillTokens restores every session's bucket to capacity. Refilling
// by the full rate bounds bursts to one second's allowance instead of
// letting idle sessions accumulate credit.
func (g *Gateway) refillTokens() {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, s := range g.sessions {
		s.mu.Lock()
		s.tokens += g.cfg.RatePerSecond
		if s.tokens > g.cfg.RatePerSecond {
			s.tokens = g.cfg.RatePerSecond
		}
		s.mu.Unlock()
	}
}

// sweepStale force-closes every session with no inbound activity for
// more than twice the heartbeat interval. Clients that vanish without
// a close handshake leave readPump blocked forever; this is the only
// path that closes a connection from the server side.
func (g *Gateway) sweepStale(now time.Time) {
	cutoff := 2 * g.cfg.HeartbeatInterval

	g.mu.Lock()
	var stale []*Session
	for id, s := range g.sessions {
		s.mu.Lock()
		idle := now.Sub(s.lastActivity)
		s.mu.Unlock()
		if idle > cutoff {
			stale = append(stale, s)
			delete(g.sessions, id)
			s.closeSend()
		}
	}
	g.mu.Unlock()

	for _, s := range stale {
		s.conn.Close()
		g.logger.Info("session evicted",
			zap.String("sessionID", s.id),
			zap.Duration("cutoff", cutoff))
	}
}

// broadcastToCampaign is the hub's installed strategy: deliver message
// to every live session in the campaign. Relayed frames carry sender
// attribution in "from"; the originating session never receives its
// own relay.
func (g *Gateway) broadcastToCampaign(campaignID string, message []byte) {
	var meta struct {
		From string `json:"from"`
	}
	_ = json.Unmarshal(message, &meta)

	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, s := range g.sessions {
		if s.campaign() != campaignID {
			continue
		}
		if meta.From != "" && s.id == meta.From {
			continue
		}
		s.enqueue(message)
	}
}
