// Package wsrpc runs the duplex protocol over WebSocket connections, one
// textual frame per socket message.
package wsrpc

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/wagiedev/capwire-go/internal/config"
	"github.com/wagiedev/capwire-go/internal/protocol"
	"github.com/wagiedev/capwire-go/internal/rpcerr"
)

// defaultSendBuffer is the outbound queue depth when none is configured.
const defaultSendBuffer = 32

// Compile-time verification of the transport contracts.
var (
	_ config.Transport      = (*Transport)(nil)
	_ protocol.Transport    = (*Transport)(nil)
	_ protocol.TryTransport = (*Transport)(nil)
)

// Transport adapts one WebSocket connection to the frame-stream interface the
// protocol peer consumes.
//
// Writes go through a single pump goroutine fed by a buffered queue, so any
// number of goroutines can send concurrently without interleaving socket
// writes. SendFrame blocks while the queue is full; TrySendFrame drops
// instead.
type Transport struct {
	log  *slog.Logger
	conn *websocket.Conn

	outbound chan []byte

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// NewTransport wraps an established WebSocket connection. The write pump
// starts immediately; reading starts when ReadFrames is called.
func NewTransport(log *slog.Logger, conn *websocket.Conn, sendBuffer int) *Transport {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}

	t := &Transport{
		log:      log.With("component", "ws_transport"),
		conn:     conn,
		outbound: make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}

	go t.writePump()

	return t
}

// writePump serializes all socket writes through one goroutine.
func (t *Transport) writePump() {
	defer t.log.Debug("Write pump stopped")

	for {
		select {
		case data := <-t.outbound:
			if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				t.log.Debug("Write failed, closing transport", "error", err)
				_ = t.Close()

				return
			}

		case <-t.done:
			return
		}
	}
}

// ReadFrames starts the read pump and returns its channels.
//
// No nested goroutine is needed to honor ctx: Close() closes the socket,
// which reliably returns from a blocked ReadMessage.
func (t *Transport) ReadFrames(ctx context.Context) (<-chan []byte, <-chan error) {
	frames := make(chan []byte, 100)
	errs := make(chan error, 1)

	go func() {
		defer close(frames)
		defer close(errs)
		defer t.log.Debug("Read pump stopped")

		for {
			_, data, err := t.conn.ReadMessage()
			if err != nil {
				select {
				case <-t.done:
					// Locally initiated shutdown, not a transport failure.
					return
				default:
				}

				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					t.log.Debug("Peer closed connection", "error", err)

					return
				}

				t.log.Debug("Read failed", "error", err)
				errs <- err

				return
			}

			select {
			case frames <- data:
			case <-t.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return frames, errs
}

// SendFrame enqueues one frame for the write pump, blocking while the queue
// is full. Safe for concurrent use.
func (t *Transport) SendFrame(ctx context.Context, data []byte) error {
	select {
	case <-t.done:
		return rpcerr.ErrTransportClosed
	default:
	}

	select {
	case t.outbound <- data:
		return nil
	case <-t.done:
		return rpcerr.ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySendFrame enqueues one frame without blocking. It reports false when
// the transport is closed or the queue is full.
func (t *Transport) TrySendFrame(data []byte) bool {
	select {
	case <-t.done:
		return false
	default:
	}

	select {
	case t.outbound <- data:
		return true
	default:
		return false
	}
}

// Close tears down the connection. It's safe to call Close multiple times.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.log.Debug("Closing transport")
		close(t.done)
		t.closeErr = t.conn.Close()
	})

	return t.closeErr
}
