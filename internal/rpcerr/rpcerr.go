package rpcerr

import (
	"errors"
	"fmt"
)

// Code classifies an RPCError for programmatic handling.
//
// The wire format carries only the message text; the code determines how an
// engine reacts (all codes are non-fatal to a connection, only frame parse
// failures abort a batch).
type Code string

const (
	// CodeBadRequest covers malformed arguments, wrong arity or type, failed
	// authentication, and failed domain validation.
	CodeBadRequest Code = "bad_request"

	// CodeNotFound covers unknown capability ids and unknown method names.
	CodeNotFound Code = "not_found"

	// CodeInternal covers invariant violations such as id space overflow.
	CodeInternal Code = "internal"
)

// Compile-time verification of the error contracts.
var (
	_ error = (*RPCError)(nil)
	_ error = (*FrameParseError)(nil)
	_ error = (*RemoteError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrBadRequest matches any RPCError with CodeBadRequest via errors.Is.
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound matches any RPCError with CodeNotFound via errors.Is.
	ErrNotFound = errors.New("not found")

	// ErrInternal matches any RPCError with CodeInternal via errors.Is.
	ErrInternal = errors.New("internal error")

	// ErrParse matches any FrameParseError via errors.Is.
	ErrParse = errors.New("frame parse error")

	// ErrPeerClosed indicates the peer has been closed and cannot be reused.
	ErrPeerClosed = errors.New("peer closed: peers are single-use, create a new one with NewPeer()")

	// ErrPeerStopped indicates the peer's read loop has stopped.
	ErrPeerStopped = errors.New("peer stopped")

	// ErrTransportClosed indicates the transport is no longer usable.
	ErrTransportClosed = errors.New("transport closed")

	// ErrNoResult indicates a resolve frame carried no value for a call that
	// required one.
	ErrNoResult = errors.New("no result in response")

	// ErrNotAuthenticated indicates a session-scoped operation was attempted
	// before Authenticate succeeded.
	ErrNotAuthenticated = errors.New("not authenticated: call Authenticate first")
)

// RPCError is a caller-visible call failure.
//
// It crosses the wire as an error or reject frame carrying {"message": ...};
// the code never leaves the process.
type RPCError struct {
	Code    Code
	Message string
}

func (e *RPCError) Error() string {
	return e.Message
}

// Is reports whether target is the sentinel matching this error's code.
func (e *RPCError) Is(target error) bool {
	switch target {
	case ErrBadRequest:
		return e.Code == CodeBadRequest
	case ErrNotFound:
		return e.Code == CodeNotFound
	case ErrInternal:
		return e.Code == CodeInternal
	default:
		return false
	}
}

// BadRequest builds a CodeBadRequest error with the given message.
func BadRequest(message string) *RPCError {
	return &RPCError{Code: CodeBadRequest, Message: message}
}

// BadRequestf builds a CodeBadRequest error with a formatted message.
func BadRequestf(format string, args ...any) *RPCError {
	return &RPCError{Code: CodeBadRequest, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a CodeNotFound error with a formatted message.
func NotFoundf(format string, args ...any) *RPCError {
	return &RPCError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Internal builds a CodeInternal error with the given message.
func Internal(message string) *RPCError {
	return &RPCError{Code: CodeInternal, Message: message}
}

// From coerces any error into an RPCError.
//
// RPCError values pass through unchanged so their code survives; anything
// else becomes CodeInternal with the error text as its message.
func From(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	return &RPCError{Code: CodeInternal, Message: err.Error()}
}

// FrameParseError indicates a wire frame violated the grammar.
//
// In batch mode this aborts the run; Line carries the 1-based input line when
// the batch engine knows it (zero otherwise, e.g. for frames arriving over a
// duplex connection).
type FrameParseError struct {
	Line int
	Err  error
}

func (e *FrameParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}

	return e.Err.Error()
}

func (e *FrameParseError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the ErrParse sentinel.
func (e *FrameParseError) Is(target error) bool {
	return target == ErrParse
}

// ParseAtLine tags err with a 1-based input line number.
//
// If err is already a FrameParseError its inner error is re-tagged rather
// than nested, keeping diagnostics single-level.
func ParseAtLine(line int, err error) *FrameParseError {
	var parseErr *FrameParseError
	if errors.As(err, &parseErr) {
		return &FrameParseError{Line: line, Err: parseErr.Err}
	}

	return &FrameParseError{Line: line, Err: err}
}

// RemoteError is a failure reported by the other side of a connection via a
// reject or error frame. Only the message crosses the wire, so no Code is
// available.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Remote builds a RemoteError carrying a peer-reported message.
func Remote(message string) *RemoteError {
	return &RemoteError{Message: message}
}
