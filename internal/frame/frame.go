// Package frame implements the textual array-encoded wire format.
//
// Each frame is a JSON array whose first element names the operation:
//
//	["push",    ["call", capId, [method], [args...]]]
//	["push",    ["pipeline", exportId, [method], [args...]]]
//	["pull",    id]
//	["result",  id, value]
//	["error",   id, {"message": ...}]
//	["resolve", id, value]
//	["reject",  id, {"message": ...}]
//
// One frame travels per input line in batch mode and per socket message in
// duplex mode.
package frame

import "encoding/json"

// Frame is implemented by all decoded wire frames.
type Frame interface {
	// Tag returns the wire operation name ("push", "pull", ...).
	Tag() string
}

// Compile-time verification that all frame types implement Frame.
var (
	_ Frame = (*Push)(nil)
	_ Frame = (*Pull)(nil)
	_ Frame = (*Result)(nil)
	_ Frame = (*Error)(nil)
	_ Frame = (*Resolve)(nil)
	_ Frame = (*Reject)(nil)
)

// Push enqueues work on the receiving side.
type Push struct {
	Payload Payload
}

func (*Push) Tag() string { return "push" }

// Pull requests resolution of a queued or pending item.
type Pull struct {
	ID uint64
}

func (*Pull) Tag() string { return "pull" }

// Result is a successful batch outcome tagged with the pull's id.
type Result struct {
	ID    uint64
	Value any
}

func (*Result) Tag() string { return "result" }

// Error is a failed batch outcome tagged with the pull's id.
type Error struct {
	ID      uint64
	Message string
}

func (*Error) Tag() string { return "error" }

// Resolve completes a pending duplex call with a value.
type Resolve struct {
	ID    uint64
	Value any
}

func (*Resolve) Tag() string { return "resolve" }

// Reject completes a pending duplex call with an error.
type Reject struct {
	ID      uint64
	Message string
}

func (*Reject) Tag() string { return "reject" }

// Payload is implemented by push payload kinds.
type Payload interface {
	// Kind returns the payload discriminator ("call", "pipeline", ...).
	Kind() string
}

// Compile-time verification that all payload types implement Payload.
var (
	_ Payload = (*Call)(nil)
	_ Payload = (*Pipeline)(nil)
	_ Payload = (*UnknownPayload)(nil)
)

// Call invokes a method on a capability held by the receiving side.
type Call struct {
	Cap    uint64
	Method string
	Args   []any
}

func (*Call) Kind() string { return "call" }

// Pipeline is a peer-initiated call against a capability the receiving side
// exports; export id 0 denotes the connection's root capability.
type Pipeline struct {
	Export uint64
	Method string
	Args   []any
}

func (*Pipeline) Kind() string { return "pipeline" }

// UnknownPayload preserves a structurally valid push payload whose kind is
// not recognized. Engines turn it into a queued error outcome rather than a
// parse failure.
type UnknownPayload struct {
	RawKind string
}

func (p *UnknownPayload) Kind() string { return p.RawKind }

// AsUint64 coerces a decoded JSON value into a non-negative integer.
//
// encoding/json decodes numbers as float64; json.Number and the integer
// types appear when frames are built in-process.
func AsUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 || n != float64(uint64(n)) {
			return 0, false
		}

		return uint64(n), true
	case int:
		if n < 0 {
			return 0, false
		}

		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}

		return uint64(n), true
	case uint64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil || i < 0 {
			return 0, false
		}

		return uint64(i), true
	default:
		return 0, false
	}
}

// AsFloat64 coerces a decoded JSON value into a float.
func AsFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}

		return f, true
	default:
		return 0, false
	}
}
