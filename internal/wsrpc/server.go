package wsrpc

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wagiedev/capwire-go/internal/calc"
	"github.com/wagiedev/capwire-go/internal/captable"
	"github.com/wagiedev/capwire-go/internal/chat"
	"github.com/wagiedev/capwire-go/internal/config"
	"github.com/wagiedev/capwire-go/internal/hub"
	"github.com/wagiedev/capwire-go/internal/protocol"
)

// Server accepts WebSocket connections and runs a duplex protocol peer for
// each. All connections share one capability table, one chat state, and one
// calculator; sessions minted on any connection are callable from every
// other.
//
// Server implements http.Handler; mount it wherever the WebSocket endpoint
// should live.
type Server struct {
	log   *slog.Logger
	table *captable.Table
	state *chat.State
	hub   *hub.Hub

	upgrader    websocket.Upgrader
	sendBuffer  int
	answerLimit int
}

// NewServer builds a server with the well-known capabilities registered:
// the calculator as id 1 and the chat directory as id 2. Chat messages fan
// out to every connection as receiveMessage pushes.
func NewServer(opts *config.Options) *Server {
	log := opts.Logging()

	table := captable.New(log)
	state := chat.NewState(log)
	state.SetClock(opts.Now())
	h := hub.New(log)

	state.SetNotify(func(msg chat.Message) {
		h.Broadcast(msg)
	})

	table.Register(captable.CalculatorID, calc.New(log))
	table.Register(captable.DirectoryID, chat.NewDirectory(log, state, table, opts.Policy()))

	return &Server{
		log:   log.With("component", "ws_server"),
		table: table,
		state: state,
		hub:   h,
		upgrader: websocket.Upgrader{
			// Demo endpoint: any origin may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sendBuffer:  opts.SendBufferSize(),
		answerLimit: opts.AnswerCap(),
	}
}

// Table returns the shared capability table.
func (s *Server) Table() *captable.Table { return s.table }

// State returns the shared chat state.
func (s *Server) State() *chat.State { return s.state }

// Connections returns the number of live WebSocket connections.
func (s *Server) Connections() int { return s.hub.Len() }

// ServeHTTP upgrades the request and blocks until the connection's peer
// stops.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("Upgrade failed", "remote", r.RemoteAddr, "error", err)

		return
	}

	connID := uuid.NewString()
	log := s.log.With("conn_id", connID)
	log.Info("Client connected", "remote", r.RemoteAddr)

	transport := NewTransport(log, conn, s.sendBuffer)
	peer := protocol.NewPeer(log, transport, s.table, nil)
	peer.SetAnswerLimit(s.answerLimit)

	s.hub.Add(connID, peer)

	if err := peer.Start(r.Context()); err != nil {
		s.hub.Remove(connID)
		_ = transport.Close()
		log.Error("Failed to start peer", "error", err)

		return
	}

	<-peer.Done()

	s.hub.Remove(connID)
	peer.Stop()
	_ = transport.Close()

	if err := peer.FatalError(); err != nil {
		log.Warn("Client disconnected", "error", err)

		return
	}

	log.Info("Client disconnected")
}
