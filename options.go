package capwire

import (
	"log/slog"
	"time"

	"github.com/wagiedev/capwire-go/internal/config"
)

// Option configures a Batch, Peer, ChatServer, or ChatClient using the
// functional options pattern.
type Option func(*config.Options)

// applyOptions applies functional options to a fresh options struct.
func applyOptions(opts []Option) *config.Options {
	options := &config.Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *config.Options) {
		o.Logger = logger
	}
}

// WithCredentials sets the policy auth validates username/password pairs
// against. The default accepts any username presenting DefaultPassword.
func WithCredentials(policy CredentialPolicy) Option {
	return func(o *config.Options) {
		o.Credentials = policy
	}
}

// WithClock sets the timestamp source for recorded chat messages.
// Override in tests for stable timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *config.Options) {
		o.Clock = now
	}
}

// WithSendBuffer sets the per-connection outbound frame queue depth.
// Broadcast pushes that find the queue full are dropped rather than
// stalling the broadcaster.
func WithSendBuffer(n int) Option {
	return func(o *config.Options) {
		o.SendBuffer = n
	}
}

// WithAnswerLimit caps how many unanswered incoming pushes a duplex peer
// remembers before evicting the oldest.
func WithAnswerLimit(n int) Option {
	return func(o *config.Options) {
		o.AnswerLimit = n
	}
}

// WithRootExport sets the capability a duplex peer exposes to the remote
// side as export id 0. Without one, a ChatClient installs its own root
// handling receiveMessage broadcasts; a bare Peer rejects pushes at
// export 0.
func WithRootExport(target Target) Option {
	return func(o *config.Options) {
		o.Root = target
	}
}

// WithRegistry makes a surface resolve calls against an existing capability
// table instead of building its own. Use it to share one table, and with it
// minted sessions, across surfaces.
func WithRegistry(table *Registry) Option {
	return func(o *config.Options) {
		o.Table = table
	}
}
