package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Session is the server-side state for one live connection. It is
// created on connect with a full token bucket, mutated on every
// inbound frame, and destroyed on disconnect or eviction.
type Session struct {
	gateway *Gateway
	conn    *websocket.Conn
	logger  *zap.Logger

	// Buffered channel of outbound frames, consumed by writePump.
	send chan []byte

	id string

	// mu guards the fields below plus the send-channel closed flag;
	// readPump, the refill tick, and the sweep all touch them.
	mu           sync.Mutex
	campaignID   string
	lastActivity time.Time
	tokens       int
	closed       bool
}

// campaign returns the current room membership, empty until a join is
// processed.
func (s *Session) campaign() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.campaignID
}

func (s *Session) setCampaign(campaignID string) {
	s.mu.Lock()
	s.campaignID = campaignID
	s.mu.Unlock()
}

// enqueue hands a frame to writePump without blocking. A peer too slow
// to drain its buffer loses frames rather than stalling the sender;
// delivery is at-least-once only for peers keeping up.
func (s *Session) enqueue(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- payload:
	default:
		s.logger.Warn("send buffer full, dropping frame",
			zap.String("sessionID", s.id))
	}
}

// closeSend closes the outbound channel exactly once.
func (s *Session) closeSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// detach hands the session to the unregister channel. During shutdown
// the Run loop is gone and nobody drains that channel, so the send
// races against the stop signal instead of blocking forever.
func (s *Session) detach() {
	select {
	case s.gateway.unregister <- s:
	case <-s.gateway.stop:
	}
}

// readPump pumps frames from the websocket connection into the
// gateway. One goroutine per connection; a read error of any kind,
// including the sweep force-closing the connection, ends the session.
func (s *Session) readPump() {
	defer func() {
		s.detach()
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Debug("websocket read ended", zap.Error(err))
			}
			break
		}
		s.handleMessage(message)
	}
}

// writePump pumps frames from the send channel to the websocket
// connection, serializing all writes so a sender's frames reach the
// peer in order.
func (s *Session) writePump() {
	defer s.conn.Close()

	for message := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			s.logger.Debug("websocket write failed", zap.Error(err))
			return
		}
	}

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	s.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// handleMessage applies admission control and dispatches one inbound
// frame. Rate-limited and malformed frames are dropped without any
// reply; that silence is the admission-control contract, not an error.
func (s *Session) handleMessage(raw []byte) {
	s.mu.Lock()
	s.lastActivity = time.Now()
	if s.tokens <= 0 {
		s.mu.Unlock()
		s.gateway.droppedRateLimited.Add(1)
		return
	}
	s.tokens--
	s.mu.Unlock()

	env, err := decodeEnvelope(raw)
	if err != nil {
		s.gateway.droppedMalformed.Add(1)
		s.logger.Debug("dropping undecodable frame",
			zap.String("sessionID", s.id),
			zap.Error(err))
		return
	}

	switch env.Type {
	case TypeJoin:
		s.setCampaign(env.CampaignID)
		s.reply(Envelope{Type: TypeJoined, CampaignID: env.CampaignID})

	case TypeLeave:
		s.setCampaign("")
		s.reply(Envelope{Type: TypeLeft})

	case TypeHeartbeat:
		s.reply(Envelope{Type: TypePong})

	case TypeCaption, TypeAction:
		s.relay(env)

	default:
		// Server-originated types arriving from a client are ignored.
		s.logger.Debug("ignoring client frame with server type",
			zap.String("sessionID", s.id),
			zap.String("type", string(env.Type)))
	}
}

// relay forwards a caption/action envelope to the other sessions in
// the sender's campaign, through the hub, with sender attribution
// attached. Sending before joining a campaign has no effect.
func (s *Session) relay(env Envelope) {
	campaignID := s.campaign()
	if campaignID == "" {
		s.gateway.droppedNoCampaign.Add(1)
		return
	}

	env.From = s.id
	payload, err := env.encode()
	if err != nil {
		s.logger.Error("failed to encode relay", zap.Error(err))
		return
	}
	s.gateway.hub.Broadcast(campaignID, payload)
}

// reply queues a server-originated envelope back to this session.
func (s *Session) reply(env Envelope) {
	payload, err := env.encode()
	if err != nil {
		s.logger.Error("failed to encode reply",
			zap.String("type", string(env.Type)),
			zap.Error(err))
		return
	}
	s.enqueue(payload)
}
