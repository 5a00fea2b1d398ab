package wsrpc

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/wagiedev/capwire-go/internal/captable"
	"github.com/wagiedev/capwire-go/internal/chat"
	"github.com/wagiedev/capwire-go/internal/config"
	"github.com/wagiedev/capwire-go/internal/frame"
	"github.com/wagiedev/capwire-go/internal/protocol"
	"github.com/wagiedev/capwire-go/internal/rpcerr"
)

// ChatClient wraps a duplex peer with typed chat operations: authenticate
// against the directory, then act through the minted session capability.
// Broadcast messages pushed by the server arrive via OnMessage callbacks.
type ChatClient struct {
	log       *slog.Logger
	transport *Transport
	peer      *protocol.Peer

	mu       sync.Mutex
	session  uint64
	username string
	onMsg    []func(chat.Message)
}

// NickResult is the outcome of a nickname operation. Domain refusals are
// results, not errors: Status is "ok" or "error" with a human-readable
// Message either way.
type NickResult struct {
	Status  string
	Message string
}

// OK reports whether the operation succeeded.
func (r NickResult) OK() bool { return r.Status == "ok" }

// DialChat connects to a chat server's WebSocket endpoint and starts the
// duplex peer. ctx bounds the dial only; the connection lives until Close.
func DialChat(ctx context.Context, url string, opts *config.Options) (*ChatClient, error) {
	log := opts.Logging()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	transport := NewTransport(log, conn, opts.SendBufferSize())

	c := &ChatClient{
		log:       log.With("component", "chat_client"),
		transport: transport,
	}

	c.peer = protocol.NewPeer(log, transport, nil, opts.Root)
	c.peer.SetAnswerLimit(opts.AnswerCap())

	if opts.Root == nil {
		c.peer.Handle("receiveMessage", c.receiveMessage)
	}

	// The connection outlives the dial context; Close tears it down.
	if err := c.peer.Start(context.Background()); err != nil {
		_ = transport.Close()

		return nil, err
	}

	c.log.Info("Connected", "url", url)

	return c, nil
}

// Peer exposes the underlying protocol peer for calls outside the chat
// surface, e.g. the calculator capability.
func (c *ChatClient) Peer() *protocol.Peer { return c.peer }

// Done returns a channel that is closed when the connection stops.
func (c *ChatClient) Done() <-chan struct{} { return c.peer.Done() }

// Err returns the fatal connection error if one occurred.
func (c *ChatClient) Err() error { return c.peer.FatalError() }

// Close stops the peer and closes the connection. Safe to call multiple
// times.
func (c *ChatClient) Close() error {
	c.peer.Stop()

	return c.transport.Close()
}

// OnMessage registers fn to run for every broadcast chat message. Register
// callbacks before triggering traffic so no broadcast slips past.
func (c *ChatClient) OnMessage(fn func(chat.Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onMsg = append(c.onMsg, fn)
}

// receiveMessage is the root handler the server's broadcasts land on.
func (c *ChatClient) receiveMessage(_ context.Context, args []any) (any, error) {
	if len(args) == 0 {
		return nil, rpcerr.BadRequest("receiveMessage expects a message object")
	}

	msg, ok := parseMessage(args[0])
	if !ok {
		return nil, rpcerr.BadRequest("receiveMessage expects a message object")
	}

	c.mu.Lock()
	handlers := slices.Clone(c.onMsg)
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(msg)
	}

	return nil, nil
}

// Authenticate logs in against the directory capability and binds the minted
// session to this client. The returned id is also kept internally; every
// session-scoped method uses it.
func (c *ChatClient) Authenticate(ctx context.Context, username, password string) (uint64, error) {
	result, err := c.peer.Call(ctx, captable.DirectoryID, "auth", username, password)
	if err != nil {
		return 0, err
	}

	resp, ok := result.(map[string]any)
	if !ok {
		return 0, fmt.Errorf("unexpected auth response: %v", result)
	}

	capRef, ok := resp["session"].(map[string]any)
	if !ok {
		return 0, fmt.Errorf("auth response missing session capability: %v", result)
	}

	id, ok := frame.AsUint64(capRef["id"])
	if !ok {
		return 0, fmt.Errorf("auth response carries no capability id: %v", result)
	}

	c.mu.Lock()
	c.session = id
	c.username, _ = resp["user"].(string)
	c.mu.Unlock()

	c.log.Info("Authenticated", "user", username, "session_id", id)

	return id, nil
}

// Session returns the bound session capability id, zero before Authenticate.
func (c *ChatClient) Session() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session
}

func (c *ChatClient) sessionID() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == 0 {
		return 0, rpcerr.ErrNotAuthenticated
	}

	return c.session, nil
}

// SendMessage posts body to the channel as the authenticated user.
func (c *ChatClient) SendMessage(ctx context.Context, body string) error {
	id, err := c.sessionID()
	if err != nil {
		return err
	}

	_, err = c.peer.Call(ctx, id, "sendMessage", body)

	return err
}

// Messages fetches the channel's full history.
func (c *ChatClient) Messages(ctx context.Context) ([]chat.Message, error) {
	id, err := c.sessionID()
	if err != nil {
		return nil, err
	}

	result, err := c.peer.Call(ctx, id, "receiveMessages")
	if err != nil {
		return nil, err
	}

	resp, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected receiveMessages response: %v", result)
	}

	list, _ := resp["messages"].([]any)

	out := make([]chat.Message, 0, len(list))
	for _, raw := range list {
		if msg, ok := parseMessage(raw); ok {
			out = append(out, msg)
		}
	}

	return out, nil
}

// Whoami asks the session which username it is bound to.
func (c *ChatClient) Whoami(ctx context.Context) (string, error) {
	id, err := c.sessionID()
	if err != nil {
		return "", err
	}

	result, err := c.peer.Call(ctx, id, "whoami")
	if err != nil {
		return "", err
	}

	resp, ok := result.(map[string]any)
	if !ok {
		return "", fmt.Errorf("unexpected whoami response: %v", result)
	}

	username, _ := resp["username"].(string)

	return username, nil
}

// RegisterNick claims a nickname protected by password.
func (c *ChatClient) RegisterNick(ctx context.Context, nickname, password string) (NickResult, error) {
	return c.nickCall(ctx, "registerNick", nickname, password)
}

// IdentifyNick proves ownership of a registered nickname.
func (c *ChatClient) IdentifyNick(ctx context.Context, nickname, password string) (NickResult, error) {
	return c.nickCall(ctx, "identifyNick", nickname, password)
}

func (c *ChatClient) nickCall(ctx context.Context, method, nickname, password string) (NickResult, error) {
	id, err := c.sessionID()
	if err != nil {
		return NickResult{}, err
	}

	result, err := c.peer.Call(ctx, id, method, nickname, password)
	if err != nil {
		return NickResult{}, err
	}

	resp, ok := result.(map[string]any)
	if !ok {
		return NickResult{}, fmt.Errorf("unexpected %s response: %v", method, result)
	}

	out := NickResult{}
	out.Status, _ = resp["status"].(string)
	out.Message, _ = resp["message"].(string)

	return out, nil
}

// CheckNick reports whether a nickname is registered.
func (c *ChatClient) CheckNick(ctx context.Context, nickname string) (bool, error) {
	id, err := c.sessionID()
	if err != nil {
		return false, err
	}

	result, err := c.peer.Call(ctx, id, "checkNick", nickname)
	if err != nil {
		return false, err
	}

	resp, ok := result.(map[string]any)
	if !ok {
		return false, fmt.Errorf("unexpected checkNick response: %v", result)
	}

	registered, _ := resp["registered"].(bool)

	return registered, nil
}

// parseMessage decodes one wire message object.
func parseMessage(raw any) (chat.Message, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return chat.Message{}, false
	}

	msg := chat.Message{}
	msg.From, _ = obj["from"].(string)
	msg.Body, _ = obj["body"].(string)

	if ts, ok := frame.AsUint64(obj["timestamp"]); ok {
		msg.Timestamp = ts
	}

	return msg, true
}
