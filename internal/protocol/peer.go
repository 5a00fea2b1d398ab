package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wagiedev/capwire-go/internal/captable"
	"github.com/wagiedev/capwire-go/internal/frame"
	"github.com/wagiedev/capwire-go/internal/rpcerr"
)

// defaultAnswerLimit caps how many unanswered incoming pushes a peer keeps
// before evicting the oldest.
const defaultAnswerLimit = 1024

// Transport defines the minimal interface needed for peer operations.
//
// This interface is satisfied by the wsrpc transport but allows for testing
// with mock transports.
type Transport interface {
	ReadFrames(ctx context.Context) (<-chan []byte, <-chan error)
	SendFrame(ctx context.Context, data []byte) error
}

// TryTransport is implemented by transports that can attempt a send without
// blocking, dropping the frame when the outbound queue is full.
type TryTransport interface {
	TrySendFrame(data []byte) bool
}

// Peer manages one side of a duplex connection.
//
// The Peer handles:
//   - Sending push+pull pairs for locally originated calls
//   - Routing incoming resolve/reject (and result/error) frames to the
//     pending call matching their id
//   - Executing incoming pushes against the capability table and storing the
//     outcome until the matching pull arrives
//   - Answering a pull that matches nothing with resolve(id, null)
//
// Both sides number pushes with the same monotonic sequence: the sender
// counts pushes it writes, the receiver counts pushes as they arrive. A push
// frame carries no id of its own; the pull that follows it does.
//
// The Peer must be started with Start() before use and manages its own
// goroutine for reading and routing frames.
type Peer struct {
	log       *slog.Logger
	transport Transport
	table     *captable.Table

	// Capability exported to the other side as id 0
	rootMu sync.RWMutex
	root   captable.Target

	// Outbound call tracking. sendMu spans id allocation and the frame
	// writes so ids hit the wire in allocation order.
	sendMu    sync.Mutex
	lastID    uint64
	pendingMu sync.RWMutex
	pending   map[uint64]*pendingCall

	// Incoming push bookkeeping, keyed by arrival order
	answersMu   sync.Mutex
	arrivals    uint64
	answers     map[uint64]answer
	answerOrder []uint64
	answerLimit int

	// Fatal error handling - stores error and broadcasts via done channel
	errMu    sync.RWMutex
	fatalErr error

	// Lifecycle management
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// pendingCall tracks an outgoing call awaiting its resolve or reject.
type pendingCall struct {
	method  string
	outcome chan callOutcome
}

type callOutcome struct {
	value any
	err   error
}

// answer is an executed incoming push awaiting its pull.
type answer struct {
	value      any
	errMessage string
	failed     bool
}

// NewPeer creates a peer speaking the duplex protocol over transport.
//
// Incoming pushes resolve their export id against table, except id 0 which
// resolves to root. Either may be nil: a pure client passes a nil table, a
// peer exporting nothing passes a nil root.
func NewPeer(log *slog.Logger, transport Transport, table *captable.Table, root captable.Target) *Peer {
	return &Peer{
		log:         log.With("component", "peer"),
		transport:   transport,
		table:       table,
		root:        root,
		pending:     make(map[uint64]*pendingCall, 10),
		answers:     make(map[uint64]answer, 10),
		answerLimit: defaultAnswerLimit,
		done:        make(chan struct{}),
	}
}

// SetAnswerLimit overrides the cap on stored unanswered pushes.
func (p *Peer) SetAnswerLimit(n int) {
	p.answersMu.Lock()
	defer p.answersMu.Unlock()

	if n > 0 {
		p.answerLimit = n
	}
}

// Handle registers a method on the peer's root capability (export id 0).
//
// If no root was supplied to NewPeer, one is created on first use. Panics if
// a root of a different concrete type was supplied.
func (p *Peer) Handle(method string, fn Handler) {
	p.rootMu.Lock()
	defer p.rootMu.Unlock()

	ht, ok := p.root.(*HandlerTarget)
	if !ok {
		if p.root != nil {
			panic("protocol: Handle requires the root capability to be a HandlerTarget")
		}

		ht = NewHandlerTarget()
		p.root = ht
	}

	p.log.Debug("Registering root method handler", "method", method)
	ht.Handle(method, fn)
}

// closeDone safely closes the done channel exactly once.
func (p *Peer) closeDone() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

// SetFatalError stores a fatal error and broadcasts to all waiters by closing done.
func (p *Peer) SetFatalError(err error) {
	p.errMu.Lock()

	if p.fatalErr == nil {
		p.fatalErr = err
	}

	p.errMu.Unlock()

	p.closeDone()
}

// FatalError returns the fatal error if one occurred.
func (p *Peer) FatalError() error {
	p.errMu.RLock()
	defer p.errMu.RUnlock()

	return p.fatalErr
}

// Done returns a channel that is closed when the peer stops.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Start begins reading frames from the transport and routing them.
//
// This method spawns a goroutine that reads from the transport, answers
// incoming pushes and pulls, and completes pending calls. The goroutine
// stops when the context is cancelled or the transport is closed.
//
// Start must be called before Call or any exported capability will work.
func (p *Peer) Start(ctx context.Context) error {
	p.log.Debug("Starting protocol peer")

	frames, errs := p.transport.ReadFrames(ctx)

	p.wg.Add(1)

	go p.readLoop(ctx, frames, errs)

	p.log.Info("Protocol peer started")

	return nil
}

// Stop gracefully shuts down the peer.
//
// This method signals the read loop to stop and waits for completion.
// Calls still waiting complete with ErrPeerStopped. It's safe to call Stop
// multiple times.
func (p *Peer) Stop() {
	p.log.Debug("Stopping protocol peer")

	p.closeDone()
	p.wg.Wait()

	p.log.Info("Protocol peer stopped")
}

// Call invokes method on the capability the other side exports as export,
// and blocks until the peer answers or ctx is cancelled.
//
// Export id 0 addresses the capability the connection was opened against.
// No timeout is enforced here; impose deadlines through ctx.
//
// Returns a *rpcerr.RemoteError when the peer rejects the call.
func (p *Peer) Call(ctx context.Context, export uint64, method string, args ...any) (any, error) {
	outcome := make(chan callOutcome, 1)

	p.sendMu.Lock()

	p.lastID++
	id := p.lastID

	p.pendingMu.Lock()
	p.pending[id] = &pendingCall{method: method, outcome: outcome}
	p.pendingMu.Unlock()

	err := p.writeCall(ctx, id, export, method, args)

	p.sendMu.Unlock()

	if err != nil {
		p.pendingMu.Lock()
		delete(p.pending, id)
		p.pendingMu.Unlock()

		p.log.Error("Failed to send call", "import_id", id, "method", method, "error", err)

		return nil, err
	}

	p.log.Debug("Call sent, waiting for answer", "import_id", id, "method", method)

	select {
	case out := <-outcome:
		if out.err != nil {
			p.log.Warn("Call rejected by peer", "import_id", id, "method", method, "error", out.err)

			return nil, out.err
		}

		p.log.Debug("Call resolved", "import_id", id, "method", method)

		return out.value, nil

	case <-p.done:
		// Peer stopped (possibly due to transport error) - fail fast
		p.pendingMu.Lock()
		delete(p.pending, id)
		p.pendingMu.Unlock()

		if err := p.FatalError(); err != nil {
			p.log.Warn("Transport error during call", "import_id", id, "error", err)

			return nil, fmt.Errorf("transport error: %w", err)
		}

		p.log.Debug("Peer stopped during call", "import_id", id)

		return nil, rpcerr.ErrPeerStopped

	case <-ctx.Done():
		p.pendingMu.Lock()
		delete(p.pending, id)
		p.pendingMu.Unlock()

		p.log.Debug("Call cancelled", "import_id", id)

		return nil, ctx.Err()
	}
}

// writeCall sends the push+pull pair for one call. Caller holds sendMu.
func (p *Peer) writeCall(ctx context.Context, id, export uint64, method string, args []any) error {
	push, err := frame.EncodePipeline(export, method, args)
	if err != nil {
		return fmt.Errorf("marshal call: %w", err)
	}

	pull, err := frame.EncodePull(id)
	if err != nil {
		return fmt.Errorf("marshal pull: %w", err)
	}

	if err := p.transport.SendFrame(ctx, push); err != nil {
		return fmt.Errorf("send call: %w", err)
	}

	if err := p.transport.SendFrame(ctx, pull); err != nil {
		return fmt.Errorf("send pull: %w", err)
	}

	return nil
}

// Notify pushes a call without a pull: fire-and-forget. The other side
// executes it and stores the outcome, but nothing is awaited locally.
//
// The push still advances the shared numbering, so notifications and calls
// interleave safely on one connection.
func (p *Peer) Notify(ctx context.Context, export uint64, method string, args ...any) error {
	data, err := frame.EncodePipeline(export, method, args)
	if err != nil {
		return fmt.Errorf("marshal push: %w", err)
	}

	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	p.lastID++

	if err := p.transport.SendFrame(ctx, data); err != nil {
		// The push never hit the wire, so the peer will not count it.
		p.lastID--

		return fmt.Errorf("send push: %w", err)
	}

	return nil
}

// TryNotify is Notify without blocking: when the transport supports
// non-blocking sends and its queue is full, the push is dropped and TryNotify
// returns false. Transports without TrySendFrame fall back to a blocking
// send.
func (p *Peer) TryNotify(export uint64, method string, args ...any) bool {
	tt, ok := p.transport.(TryTransport)
	if !ok {
		return p.Notify(context.Background(), export, method, args...) == nil
	}

	data, err := frame.EncodePipeline(export, method, args)
	if err != nil {
		p.log.Error("Failed to marshal push", "method", method, "error", err)

		return false
	}

	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	p.lastID++

	if !tt.TrySendFrame(data) {
		// The push never hit the wire, so the peer will not count it.
		p.lastID--
		p.log.Warn("Dropped push, outbound queue full", "method", method)

		return false
	}

	return true
}

// readLoop reads frames from the transport and routes them.
func (p *Peer) readLoop(
	ctx context.Context,
	frames <-chan []byte,
	errs <-chan error,
) {
	defer p.wg.Done()
	defer p.log.Debug("Peer read loop stopped")

	for {
		select {
		case raw, ok := <-frames:
			if !ok {
				p.log.Debug("Frame channel closed")
				p.closeDone()

				return
			}

			p.handleFrame(ctx, raw)

		case err, ok := <-errs:
			if !ok {
				p.log.Debug("Error channel closed")
				p.closeDone()

				return
			}

			if err != nil {
				p.log.Debug("Transport error in peer", "error", err)
				p.SetFatalError(err)

				return
			}

		case <-p.done:
			p.log.Debug("Peer stop signal received")

			return

		case <-ctx.Done():
			p.log.Debug("Context cancelled in peer read loop")
			p.closeDone()

			return
		}
	}
}

// handleFrame routes one raw frame.
//
// A malformed frame is dropped with a warning: unlike a batch, a duplex
// connection survives grammar violations.
func (p *Peer) handleFrame(ctx context.Context, raw []byte) {
	f, err := frame.Parse(p.log, raw)
	if err != nil {
		p.log.Warn("Dropping malformed frame", "error", err)

		return
	}

	switch fr := f.(type) {
	case *frame.Push:
		p.handlePush(ctx, fr)

	case *frame.Pull:
		p.handlePull(ctx, fr)

	case *frame.Resolve:
		p.completeCall(fr.ID, fr.Value)

	case *frame.Result:
		p.completeCall(fr.ID, fr.Value)

	case *frame.Reject:
		p.failCall(fr.ID, fr.Message)

	case *frame.Error:
		p.failCall(fr.ID, fr.Message)
	}
}

// handlePush numbers an arriving push, executes it, and stores the outcome
// for the pull that follows.
func (p *Peer) handlePush(ctx context.Context, push *frame.Push) {
	p.answersMu.Lock()
	p.arrivals++
	id := p.arrivals
	p.answersMu.Unlock()

	ans := p.executePayload(ctx, push.Payload)

	p.answersMu.Lock()
	defer p.answersMu.Unlock()

	p.answers[id] = ans
	p.answerOrder = append(p.answerOrder, id)

	for len(p.answers) > p.answerLimit && len(p.answerOrder) > 0 {
		oldest := p.answerOrder[0]
		p.answerOrder = p.answerOrder[1:]

		if _, ok := p.answers[oldest]; ok {
			delete(p.answers, oldest)
			p.log.Warn("Evicting unanswered push outcome", "import_id", oldest)
		}
	}
}

// handlePull answers a pull with the stored outcome for its id, or with
// resolve(id, null) when nothing is stored so the sender's pending map entry
// is not leaked.
func (p *Peer) handlePull(ctx context.Context, pull *frame.Pull) {
	p.answersMu.Lock()

	ans, ok := p.answers[pull.ID]
	if ok {
		delete(p.answers, pull.ID)
		p.pruneAnswerOrder()
	}

	p.answersMu.Unlock()

	var data []byte
	var err error

	switch {
	case !ok:
		p.log.Debug("Pull matches nothing stored, resolving null", "import_id", pull.ID)
		data, err = frame.EncodeResolve(pull.ID, nil)

	case ans.failed:
		data, err = frame.EncodeReject(pull.ID, ans.errMessage)

	default:
		data, err = frame.EncodeResolve(pull.ID, ans.value)
	}

	if err != nil {
		p.log.Error("Failed to marshal answer", "import_id", pull.ID, "error", err)

		return
	}

	if err := p.transport.SendFrame(ctx, data); err != nil {
		// Don't log error if context was cancelled (expected during shutdown)
		if ctx.Err() != nil {
			p.log.Debug("Could not send answer during shutdown", "error", err)

			return
		}

		p.log.Error("Failed to send answer", "import_id", pull.ID, "error", err)
	}
}

// pruneAnswerOrder drops leading order entries whose answers were already
// consumed. Caller holds answersMu.
func (p *Peer) pruneAnswerOrder() {
	for len(p.answerOrder) > 0 {
		if _, live := p.answers[p.answerOrder[0]]; live {
			return
		}

		p.answerOrder = p.answerOrder[1:]
	}
}

// executePayload runs one incoming push payload against the local
// capability table. Execution failures are stored answers, never errors.
func (p *Peer) executePayload(ctx context.Context, payload frame.Payload) answer {
	var export uint64
	var method string
	var args []any

	switch pl := payload.(type) {
	case *frame.Pipeline:
		export, method, args = pl.Export, pl.Method, pl.Args

	case *frame.Call:
		export, method, args = pl.Cap, pl.Method, pl.Args

	default:
		return answer{failed: true, errMessage: fmt.Sprintf("unsupported push operation `%s`", payload.Kind())}
	}

	target, ok := p.resolveExport(export)
	if !ok {
		p.log.Warn("Push against unknown export", "export_id", export, "method", method)

		return answer{failed: true, errMessage: fmt.Sprintf("capability `%d` is not registered", export)}
	}

	p.log.Debug("Executing push", "export_id", export, "method", method)

	value, err := target.Call(ctx, method, args)
	if err != nil {
		return answer{failed: true, errMessage: err.Error()}
	}

	return answer{value: value}
}

// resolveExport maps an export id to a local target: 0 is the root
// capability, everything else goes through the table.
func (p *Peer) resolveExport(id uint64) (captable.Target, bool) {
	if id == 0 {
		p.rootMu.RLock()
		defer p.rootMu.RUnlock()

		if p.root != nil {
			return p.root, true
		}

		return nil, false
	}

	if p.table == nil {
		return nil, false
	}

	return p.table.Lookup(id)
}

// completeCall resolves the pending call matching id.
func (p *Peer) completeCall(id uint64, value any) {
	pending, ok := p.claim(id)
	if !ok {
		p.log.Warn("No pending call for resolution", "import_id", id)

		return
	}

	// Send to waiting goroutine (we own it now, blocking is safe since
	// channel is buffered)
	pending.outcome <- callOutcome{value: value}
}

// failCall rejects the pending call matching id.
func (p *Peer) failCall(id uint64, message string) {
	pending, ok := p.claim(id)
	if !ok {
		p.log.Warn("No pending call for rejection", "import_id", id)

		return
	}

	pending.outcome <- callOutcome{err: rpcerr.Remote(message)}
}

// claim atomically removes and returns the pending call for id.
func (p *Peer) claim(id uint64) (*pendingCall, bool) {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()

	pending, ok := p.pending[id]
	if ok {
		delete(p.pending, id)
	}

	return pending, ok
}
