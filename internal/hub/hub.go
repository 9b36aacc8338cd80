// Package hub decouples request-handling code from the live connection
// set. Handlers that need to push an event to every client in a
// campaign call Broadcast; whoever owns the connections installs the
// one fan-out strategy at startup. The hub is a single swappable
// function, not a publish/subscribe system.
package hub

import "sync"

// BroadcastFunc delivers an encoded message to every live session in a
// campaign. Implementations decide attribution handling (e.g. skipping
// the session a relayed message originated from).
type BroadcastFunc func(campaignID string, message []byte)

// Hub holds at most one broadcast strategy.
type Hub struct {
	mu sync.RWMutex
	fn BroadcastFunc
}

// New returns a hub with no strategy installed. Broadcast is a no-op
// until SetBroadcaster is called.
func New() *Hub {
	return &Hub{}
}

// SetBroadcaster installs the fan-out strategy. Calling it again
// replaces the prior strategy; last write wins.
func (h *Hub) SetBroadcaster(fn BroadcastFunc) {
	h.mu.Lock()
	h.fn = fn
	h.mu.Unlock()
}

// Broadcast delivers message to every session in the campaign through
// the installed strategy, synchronously. It is a no-op when no
// strategy has been installed, so callers never need to know whether
// the connection layer has finished initializing.
func (h *Hub) Broadcast(campaignID string, message []byte) {
	h.mu.RLock()
	fn := h.fn
	h.mu.RUnlock()

	if fn == nil {
		return
	}
	fn(campaignID, message)
}
