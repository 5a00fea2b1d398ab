package capwire

import (
	"github.com/wagiedev/capwire-go/internal/protocol"
)

// Peer manages one side of a duplex connection: it sends push+pull pairs
// for locally originated calls, routes incoming resolve/reject frames to
// the pending call matching their id, and executes incoming pushes against
// the local capability table or root export.
//
// Start the peer before calling; Stop it when done. ChatServer and
// ChatClient manage peers internally — reach for NewPeer when speaking the
// protocol over a custom Transport.
type Peer = protocol.Peer

// Handler executes one method of a locally exported capability. Returning
// an error rejects the call; the error text crosses the wire as the reject
// frame's message.
type Handler = protocol.Handler

// HandlerTarget adapts a mutable method map into a callable capability,
// suiting peers that export a couple of methods rather than a full service.
type HandlerTarget = protocol.HandlerTarget

// NewHandlerTarget creates an empty handler target.
func NewHandlerTarget() *HandlerTarget {
	return protocol.NewHandlerTarget()
}

// NewPeer creates a duplex peer speaking the protocol over transport.
//
// Incoming pushes resolve their export id against the table supplied via
// WithRegistry, except export 0 which resolves to the WithRootExport
// capability (or handlers registered with Peer.Handle). A pure client needs
// neither.
func NewPeer(transport Transport, opts ...Option) *Peer {
	o := applyOptions(opts)

	p := protocol.NewPeer(o.Logging(), transport, o.Table, o.Root)
	p.SetAnswerLimit(o.AnswerCap())

	return p
}
