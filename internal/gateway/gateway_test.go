package gateway

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arkadion/campfire/internal/hub"
)

func newTestGateway(cfg Config) *Gateway {
	return New(hub.New(), cfg, zap.NewNop())
}

// addTestSession inserts a session directly into the live set,
// bypassing the websocket upgrade.
func addTestSession(g *Gateway, id, campaignID string) *Session {
	s := &Session{
		gateway:      g,
		send:         make(chan []byte, sendBufferSize),
		id:           id,
		logger:       zap.NewNop(),
		campaignID:   campaignID,
		lastActivity: time.Now(),
		tokens:       g.cfg.RatePerSecond,
	}
	g.sessions[id] = s
	return s
}

func receiveFrame(t *testing.T, s *Session) map[string]any {
	t.Helper()
	select {
	case raw := <-s.send:
		var frame map[string]any
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("frame is not valid JSON: %v", err)
		}
		return frame
	case <-time.After(time.Second):
		t.Fatal("frame not received within timeout")
		return nil
	}
}

func assertNoFrame(t *testing.T, s *Session) {
	t.Helper()
	select {
	case raw := <-s.send:
		t.Fatalf("unexpected frame: %s", raw)
	default:
	}
}

func TestHandleMessage_JoinLeaveHeartbeat(t *testing.T) {
	g := newTestGateway(Config{})
	s := addTestSession(g, "s1", "")

	s.handleMessage([]byte(`{"type":"join","campaignId":"c1"}`))
	if s.campaign() != "c1" {
		t.Errorf("expected campaign c1, got %q", s.campaign())
	}
	frame := receiveFrame(t, s)
	if frame["type"] != "joined" || frame["campaignId"] != "c1" {
		t.Errorf("expected joined ack for c1, got %v", frame)
	}

	s.handleMessage([]byte(`{"type":"heartbeat"}`))
	frame = receiveFrame(t, s)
	if frame["type"] != "pong" {
		t.Errorf("expected pong, got %v", frame)
	}

	s.handleMessage([]byte(`{"type":"leave"}`))
	if s.campaign() != "" {
		t.Errorf("expected campaign cleared, got %q", s.campaign())
	}
	frame = receiveFrame(t, s)
	if frame["type"] != "left" {
		t.Errorf("expected left ack, got %v", frame)
	}
}

func TestTokenBucket_ExcessDroppedSilently(t *testing.T) {
	g := newTestGateway(Config{RatePerSecond: 2})
	s := addTestSession(g, "s1", "")

	for i := 0; i < 5; i++ {
		s.handleMessage([]byte(`{"type":"heartbeat"}`))
	}

	// Two pongs for two tokens; the other three frames vanish.
	receiveFrame(t, s)
	receiveFrame(t, s)
	assertNoFrame(t, s)

	s.mu.Lock()
	tokens := s.tokens
	s.mu.Unlock()
	if tokens != 0 {
		t.Errorf("expected tokens clamped at 0, got %d", tokens)
	}

	if got := g.Stats().DroppedRateLimited; got != 3 {
		t.Errorf("expected 3 rate-limited drops, got %d", got)
	}
}

func TestRefillTokens_NoCarryOver(t *testing.T) {
	g := newTestGateway(Config{RatePerSecond: 10})
	s := addTestSession(g, "s1", "")

	s.mu.Lock()
	s.tokens = 3
	s.mu.Unlock()

	g.refillTokens()
	g.refillTokens()

	s.mu.Lock()
	tokens := s.tokens
	s.mu.Unlock()
	if tokens != 10 {
		t.Errorf("expected tokens back at capacity 10, got %d", tokens)
	}
}

func TestMalformedFrame_DroppedSilently(t *testing.T) {
	g := newTestGateway(Config{})
	s := addTestSession(g, "s1", "")

	s.handleMessage([]byte(`{not json}`))
	s.handleMessage([]byte(`{"type":"warp"}`))

	assertNoFrame(t, s)
	if got := g.Stats().DroppedMalformed; got != 2 {
		t.Errorf("expected 2 malformed drops, got %d", got)
	}
}

func TestRelay_CampaignScoped(t *testing.T) {
	g := newTestGateway(Config{})
	sender := addTestSession(g, "s1", "A")
	peer := addTestSession(g, "s2", "A")
	outsider := addTestSession(g, "s3", "B")

	sender.handleMessage([]byte(`{"type":"caption","text":"hello"}`))

	frame := receiveFrame(t, peer)
	if frame["type"] != "caption" || frame["text"] != "hello" {
		t.Errorf("expected relayed caption, got %v", frame)
	}
	if frame["from"] != "s1" {
		t.Errorf("expected from s1, got %v", frame["from"])
	}

	assertNoFrame(t, outsider)
	assertNoFrame(t, sender)
}

func TestRelay_BeforeJoinHasNoEffect(t *testing.T) {
	g := newTestGateway(Config{})
	sender := addTestSession(g, "s1", "")
	peer := addTestSession(g, "s2", "A")

	sender.handleMessage([]byte(`{"type":"caption","text":"anyone there"}`))

	assertNoFrame(t, peer)
	assertNoFrame(t, sender)
	if got := g.Stats().DroppedNoCampaign; got != 1 {
		t.Errorf("expected 1 campaign-less drop, got %d", got)
	}
}

func TestRelay_PreservesActionPayload(t *testing.T) {
	g := newTestGateway(Config{})
	sender := addTestSession(g, "s1", "A")
	peer := addTestSession(g, "s2", "A")

	sender.handleMessage([]byte(`{"type":"action","foo":1,"target":"gate"}`))

	frame := receiveFrame(t, peer)
	if frame["type"] != "action" {
		t.Errorf("expected action, got %v", frame["type"])
	}
	if frame["foo"] != float64(1) {
		t.Errorf("payload foo not preserved: %v", frame["foo"])
	}
	if frame["target"] != "gate" {
		t.Errorf("payload target not preserved: %v", frame["target"])
	}
	if frame["from"] != "s1" {
		t.Errorf("expected from s1, got %v", frame["from"])
	}
}

func TestHubBroadcast_ReachesWholeCampaign(t *testing.T) {
	h := hub.New()
	g := New(h, Config{}, zap.NewNop())
	a := addTestSession(g, "s1", "A")
	b := addTestSession(g, "s2", "A")
	outsider := addTestSession(g, "s3", "B")

	payload, err := EncodeCaption("server says hi")
	if err != nil {
		t.Fatalf("EncodeCaption failed: %v", err)
	}
	h.Broadcast("A", payload)

	for _, s := range []*Session{a, b} {
		frame := receiveFrame(t, s)
		if frame["type"] != "caption" || frame["text"] != "server says hi" {
			t.Errorf("expected server caption, got %v", frame)
		}
	}
	assertNoFrame(t, outsider)
}

func TestSweepStale_KeepsFreshSessions(t *testing.T) {
	g := newTestGateway(Config{HeartbeatInterval: time.Minute})
	s := addTestSession(g, "s1", "")

	// Idle for less than twice the heartbeat interval.
	s.mu.Lock()
	s.lastActivity = time.Now().Add(-90 * time.Second)
	s.mu.Unlock()

	g.sweepStale(time.Now())

	if g.SessionCount() != 1 {
		t.Errorf("session idle under the cutoff must survive the sweep")
	}
}

func TestLivenessSweep_EvictsSilentPeer(t *testing.T) {
	g := newTestGateway(Config{HeartbeatInterval: 25 * time.Millisecond})
	go g.Run()
	defer g.Stop()

	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		return g.ServeWS(c, "")
	})
	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket connection failed: %v", err)
	}
	defer ws.Close()

	// welcome proves the session registered.
	if _, _, err := ws.ReadMessage(); err != nil {
		t.Fatalf("failed to read welcome: %v", err)
	}

	// Stay silent past twice the heartbeat interval.
	deadline := time.Now().Add(2 * time.Second)
	for g.SessionCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if g.SessionCount() != 0 {
		t.Fatal("silent session was not evicted")
	}

	ws.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Error("expected read to fail after eviction")
	}
}

func TestDetach_DoesNotBlockAfterStop(t *testing.T) {
	g := newTestGateway(Config{})
	s := addTestSession(g, "s1", "")

	// Nobody is draining unregister once the Run loop has stopped.
	g.Stop()

	done := make(chan struct{})
	go func() {
		s.detach()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("detach blocked after gateway stop")
	}
}

// Full wire scenario: connect, welcome, join, relay with attribution.
func TestScenario_ConnectJoinRelay(t *testing.T) {
	g := newTestGateway(Config{HeartbeatInterval: time.Hour})
	go g.Run()
	defer g.Stop()

	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		return g.ServeWS(c, "")
	})
	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	dial := func() *websocket.Conn {
		t.Helper()
		ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("websocket connection failed: %v", err)
		}
		return ws
	}
	read := func(ws *websocket.Conn) map[string]any {
		t.Helper()
		ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		var frame map[string]any
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("frame is not valid JSON: %v", err)
		}
		return frame
	}

	first := dial()
	defer first.Close()
	welcome := read(first)
	if welcome["type"] != "welcome" || welcome["id"] == "" {
		t.Fatalf("expected welcome with id, got %v", welcome)
	}

	first.WriteMessage(websocket.TextMessage, []byte(`{"type":"join","campaignId":"c1"}`))
	joined := read(first)
	if joined["type"] != "joined" || joined["campaignId"] != "c1" {
		t.Fatalf("expected joined ack, got %v", joined)
	}

	second := dial()
	defer second.Close()
	secondWelcome := read(second)
	secondID, _ := secondWelcome["id"].(string)
	if secondID == "" {
		t.Fatalf("expected welcome with id, got %v", secondWelcome)
	}

	second.WriteMessage(websocket.TextMessage, []byte(`{"type":"join","campaignId":"c1"}`))
	read(second) // joined ack

	second.WriteMessage(websocket.TextMessage, []byte(`{"type":"action","foo":1}`))

	relayed := read(first)
	if relayed["type"] != "action" {
		t.Errorf("expected action, got %v", relayed["type"])
	}
	if relayed["foo"] != float64(1) {
		t.Errorf("expected foo 1, got %v", relayed["foo"])
	}
	if relayed["from"] != secondID {
		t.Errorf("expected from %q, got %v", secondID, relayed["from"])
	}
}
