package capwire

import "github.com/wagiedev/capwire-go/internal/rpcerr"

// RPCError is a caller-visible call failure. It crosses the wire as an
// error or reject frame carrying {"message": ...}.
type RPCError = rpcerr.RPCError

// FrameParseError is a malformed wire frame. In batch mode it is fatal to
// the enclosing run and names the 1-based line number.
type FrameParseError = rpcerr.FrameParseError

// RemoteError carries the message of a reject or error frame received over
// a duplex connection.
type RemoteError = rpcerr.RemoteError

// Constructors for classified failures, for use in custom Target and
// Handler implementations.
var (
	// BadRequest builds a bad-request failure: malformed arguments, wrong
	// arity or type, failed validation.
	BadRequest = rpcerr.BadRequest

	// BadRequestf is BadRequest with formatting.
	BadRequestf = rpcerr.BadRequestf

	// NotFoundf builds a not-found failure: unknown method, unknown
	// capability.
	NotFoundf = rpcerr.NotFoundf

	// Internal builds an internal-invariant failure.
	Internal = rpcerr.Internal
)

// Re-export sentinel errors from the internal package.
var (
	// ErrBadRequest matches any bad-request RPCError via errors.Is.
	ErrBadRequest = rpcerr.ErrBadRequest

	// ErrNotFound matches any not-found RPCError via errors.Is.
	ErrNotFound = rpcerr.ErrNotFound

	// ErrInternal matches any internal RPCError via errors.Is.
	ErrInternal = rpcerr.ErrInternal

	// ErrParse matches any FrameParseError via errors.Is.
	ErrParse = rpcerr.ErrParse

	// ErrPeerStopped indicates the duplex peer's read loop has stopped.
	ErrPeerStopped = rpcerr.ErrPeerStopped

	// ErrTransportClosed indicates the transport is no longer usable.
	ErrTransportClosed = rpcerr.ErrTransportClosed

	// ErrNotAuthenticated indicates a session-scoped chat operation was
	// attempted before Authenticate succeeded.
	ErrNotAuthenticated = rpcerr.ErrNotAuthenticated
)
