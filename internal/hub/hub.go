// Package hub fans chat messages out to connected duplex peers.
package hub

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/capwire-go/internal/chat"
)

// maxFanoutWorkers bounds concurrent deliveries per broadcast.
const maxFanoutWorkers = 8

// Pusher can attempt a fire-and-forget push without blocking. Satisfied by
// protocol.Peer.
type Pusher interface {
	TryNotify(export uint64, method string, args ...any) bool
}

// Hub tracks the peers of all live connections and broadcasts chat messages
// to them as receiveMessage pushes against each client's root capability.
//
// Delivery is best-effort: a peer whose outbound queue is full misses the
// message rather than stalling the broadcast.
type Hub struct {
	log *slog.Logger

	mu    sync.RWMutex
	conns map[string]Pusher
}

// New creates an empty hub.
func New(log *slog.Logger) *Hub {
	return &Hub{
		log:   log.With("component", "hub"),
		conns: make(map[string]Pusher, 8),
	}
}

// Add registers a connection's peer under id.
func (h *Hub) Add(id string, p Pusher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[id] = p

	h.log.Info("Connection joined", "conn_id", id, "connections", len(h.conns))
}

// Remove drops a connection. Unknown ids are ignored.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[id]; !ok {
		return
	}

	delete(h.conns, id)

	h.log.Info("Connection left", "conn_id", id, "connections", len(h.conns))
}

// Len returns the number of tracked connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.conns)
}

// Broadcast pushes msg to every tracked peer and returns how many accepted
// it. The peer set is snapshotted first so no lock is held during sends.
func (h *Hub) Broadcast(msg chat.Message) int {
	h.mu.RLock()

	peers := make(map[string]Pusher, len(h.conns))
	for id, p := range h.conns {
		peers[id] = p
	}

	h.mu.RUnlock()

	payload := map[string]any{
		"from":      msg.From,
		"body":      msg.Body,
		"timestamp": msg.Timestamp,
	}

	var delivered atomic.Int64

	var group errgroup.Group
	group.SetLimit(maxFanoutWorkers)

	for id, p := range peers {
		group.Go(func() error {
			if p.TryNotify(0, "receiveMessage", payload) {
				delivered.Add(1)

				return nil
			}

			h.log.Warn("Broadcast missed connection", "conn_id", id, "from", msg.From)

			return nil
		})
	}

	// Pushes never fail the group; waiting only orders this broadcast
	// before the next one.
	_ = group.Wait()

	h.log.Debug("Broadcast complete", "from", msg.From, "delivered", delivered.Load(), "connections", len(peers))

	return int(delivered.Load())
}
