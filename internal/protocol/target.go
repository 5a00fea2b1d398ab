package protocol

import (
	"context"
	"sync"

	"github.com/wagiedev/capwire-go/internal/captable"
	"github.com/wagiedev/capwire-go/internal/rpcerr"
)

// Handler executes one method of a locally exported capability.
//
// Returning an error rejects the call; the error text crosses the wire as
// the reject frame's message.
type Handler func(ctx context.Context, args []any) (any, error)

// HandlerTarget adapts a mutable method map into a callable capability.
// It backs Peer.Handle and suits clients that export a couple of
// notification methods rather than a full service.
type HandlerTarget struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

var _ captable.Target = (*HandlerTarget)(nil)

// NewHandlerTarget creates an empty handler target.
func NewHandlerTarget() *HandlerTarget {
	return &HandlerTarget{
		handlers: make(map[string]Handler, 4),
	}
}

// Handle registers fn for method. Registering the same method twice
// overrides the previous handler.
func (t *HandlerTarget) Handle(method string, fn Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.handlers[method] = fn
}

// Call implements captable.Target.
func (t *HandlerTarget) Call(ctx context.Context, method string, args []any) (any, error) {
	t.mu.RLock()
	fn, ok := t.handlers[method]
	t.mu.RUnlock()

	if !ok {
		return nil, rpcerr.NotFoundf("method `%s` not found", method)
	}

	return fn(ctx, args)
}
