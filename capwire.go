package capwire

import (
	"context"
	"log/slog"

	"github.com/wagiedev/capwire-go/internal/calc"
	"github.com/wagiedev/capwire-go/internal/captable"
	"github.com/wagiedev/capwire-go/internal/chat"
	"github.com/wagiedev/capwire-go/internal/config"
	"github.com/wagiedev/capwire-go/internal/wsrpc"
)

// Well-known capability ids. Session capabilities minted by auth start at
// SessionIDStart and count upward, never reused.
const (
	CalculatorID = captable.CalculatorID
	DirectoryID  = captable.DirectoryID

	SessionIDStart = captable.SessionIDStart
)

// Target is the single capability contract: every capability, static or
// minted, is a named-method dispatcher.
//
// Errors returned from Call cross the wire as error/reject frames carrying
// the error text; return *RPCError values for classified failures.
type Target = captable.Target

// Registry maps capability ids to callable targets. Registration silently
// overwrites (re-auth replaces sessions wholesale); lookup of an unknown id
// is a boolean miss translated into a NotFound error by the engines.
type Registry = captable.Table

// Message is one chat log entry. The log is append-only and ordered by
// insertion; Timestamp is unix seconds.
type Message = chat.Message

// CredentialPolicy decides which username/password pairs auth accepts.
type CredentialPolicy = chat.CredentialPolicy

// StaticCredentials accepts exact username/password pairs.
type StaticCredentials = chat.StaticCredentials

// FixedPassword accepts any username presenting the one configured password.
type FixedPassword = chat.FixedPassword

// AllowAll accepts every credential pair. Demo deployments only.
type AllowAll = chat.AllowAll

// DefaultPassword is the password FixedPassword deployments use when no
// policy is configured.
const DefaultPassword = chat.DefaultPassword

// ChatServer is an http.Handler that upgrades requests to WebSocket and runs
// a duplex protocol peer per connection. All connections share one capability
// table and one chat state; chat messages broadcast to every peer.
type ChatServer = wsrpc.Server

// ChatClient is a duplex connection to a ChatServer wrapped in typed chat
// operations.
type ChatClient = wsrpc.ChatClient

// NickResult is the outcome of a nickname operation. Domain refusals arrive
// here with Status "error", not as Go errors.
type NickResult = wsrpc.NickResult

// NewRegistry builds a capability table with the well-known capabilities
// registered: the calculator as id 1 and the chat directory as id 2, sharing
// a fresh chat state. Successful auth calls mint session capabilities into
// the same table.
func NewRegistry(opts ...Option) *Registry {
	o := applyOptions(opts)

	return newRegistry(o, o.Logging())
}

// newRegistry wires the stock capability set into a new table.
func newRegistry(o *config.Options, log *slog.Logger) *captable.Table {
	table := captable.New(log)

	state := chat.NewState(log)
	state.SetClock(o.Now())

	table.Register(captable.CalculatorID, calc.New(log))
	table.Register(captable.DirectoryID, chat.NewDirectory(log, state, table, o.Policy()))

	return table
}

// NewChatServer builds a WebSocket chat server with the stock capabilities
// registered and broadcast fan-out wired to every connection.
func NewChatServer(opts ...Option) *ChatServer {
	return wsrpc.NewServer(applyOptions(opts))
}

// DialChat connects to a ChatServer's WebSocket endpoint. ctx bounds the
// dial only; the connection lives until Close.
func DialChat(ctx context.Context, url string, opts ...Option) (*ChatClient, error) {
	return wsrpc.DialChat(ctx, url, applyOptions(opts))
}
