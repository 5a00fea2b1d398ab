// Package captable implements the process-wide capability registry.
//
// A capability is an addressable object exposing named methods, reachable
// only by its numeric id. Low ids are registered statically at startup; ids
// from SessionIDStart upward are minted at runtime, one per successful
// authentication, and never reused.
package captable

import (
	"context"
	"log/slog"
	"math"
	"sync"
)

// Conventional capability ids.
const (
	// CalculatorID is the statically registered calculator service.
	CalculatorID uint64 = 1

	// DirectoryID is the statically registered chat directory service.
	DirectoryID uint64 = 2

	// SessionIDStart is the first id handed out for minted session
	// capabilities.
	SessionIDStart uint64 = 10000
)

// Target is the single capability contract.
//
// Implementations translate a method name and positional arguments into a
// JSON-shaped result value. Failures cross this boundary as *rpcerr.RPCError
// values; any other error is surfaced to the wire as an internal error.
type Target interface {
	Call(ctx context.Context, method string, args []any) (any, error)
}

// Table maps capability ids to shared targets.
//
// Registration never fails: re-registering an id silently replaces the
// previous target (re-authentication replaces sessions wholesale). Lookup
// reports absence as a boolean; translating a missing id into a wire error
// is the dispatch engine's job.
type Table struct {
	log *slog.Logger

	mu            sync.RWMutex
	targets       map[uint64]Target
	nextSessionID uint64
}

// New creates an empty capability table.
func New(log *slog.Logger) *Table {
	return &Table{
		log:           log.With("component", "captable"),
		targets:       make(map[uint64]Target, 16),
		nextSessionID: SessionIDStart,
	}
}

// Register inserts target under id, replacing any existing registration.
func (t *Table) Register(id uint64, target Target) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.targets[id]; exists {
		t.log.Warn("Replacing registered capability", "cap_id", id)
	}

	t.targets[id] = target

	t.log.Debug("Registered capability", "cap_id", id)
}

// Lookup returns the target registered under id.
func (t *Table) Lookup(id uint64) (Target, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	target, ok := t.targets[id]

	return target, ok
}

// AllocateSessionID returns the next session capability id.
//
// Ids are strictly increasing within a table's lifetime and saturate at the
// maximum value rather than wrapping back into dispensed space.
func (t *Table) AllocateSessionID() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextSessionID
	if t.nextSessionID < math.MaxUint64 {
		t.nextSessionID++
	}

	t.log.Debug("Allocated session capability id", "cap_id", id)

	return id
}

// Len returns the number of registered capabilities.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.targets)
}
