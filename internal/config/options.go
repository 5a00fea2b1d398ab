package config

import (
	"io"
	"log/slog"
	"time"

	"github.com/wagiedev/capwire-go/internal/captable"
	"github.com/wagiedev/capwire-go/internal/chat"
)

const (
	// DefaultSendBuffer is the per-connection outbound frame queue depth.
	DefaultSendBuffer = 32

	// DefaultAnswerLimit caps how many unanswered peer pushes a duplex peer
	// remembers before evicting the oldest.
	DefaultAnswerLimit = 1024
)

// Options configures an engine surface (batch runner, duplex peer, server).
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// Credentials decides which username/password pairs auth accepts.
	// If nil, any username with chat.DefaultPassword is accepted.
	Credentials chat.CredentialPolicy

	// Clock is the timestamp source for recorded chat messages.
	// If nil, time.Now is used. Override in tests for stable timestamps.
	Clock func() time.Time

	// SendBuffer is the per-connection outbound frame queue depth.
	// Zero means DefaultSendBuffer.
	SendBuffer int

	// AnswerLimit caps the duplex answers map.
	// Zero means DefaultAnswerLimit.
	AnswerLimit int

	// Root is the capability a duplex peer exposes as export id 0.
	// If nil, pushes addressed at export 0 are rejected.
	Root captable.Target

	// Table is the capability table calls resolve against. If nil, each
	// surface builds its own table with the well-known capabilities
	// registered.
	Table *captable.Table
}

// Logging returns the configured logger, or a silent one.
func (o *Options) Logging() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Policy returns the configured credential policy, or the stock one.
func (o *Options) Policy() chat.CredentialPolicy {
	if o.Credentials != nil {
		return o.Credentials
	}

	return chat.FixedPassword(chat.DefaultPassword)
}

// Now returns the configured clock, or time.Now.
func (o *Options) Now() func() time.Time {
	if o.Clock != nil {
		return o.Clock
	}

	return time.Now
}

// SendBufferSize returns the configured queue depth, or the default.
func (o *Options) SendBufferSize() int {
	if o.SendBuffer > 0 {
		return o.SendBuffer
	}

	return DefaultSendBuffer
}

// AnswerCap returns the configured answers-map cap, or the default.
func (o *Options) AnswerCap() int {
	if o.AnswerLimit > 0 {
		return o.AnswerLimit
	}

	return DefaultAnswerLimit
}
