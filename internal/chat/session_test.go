package chat

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/capwire-go/internal/rpcerr"
)

func newTestSession(t *testing.T, username string) (*Session, *State) {
	t.Helper()

	state := NewState(slog.Default())
	state.SetClock(func() time.Time { return time.Unix(1700000000, 0) })

	return NewSession(slog.Default(), state, username), state
}

func TestSession_SendMessage_RecordsAndEchoes(t *testing.T) {
	session, state := newTestSession(t, "alice")

	got, err := session.Call(context.Background(), "sendMessage", []any{"hello world"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "ok", "echo": "hello world"}, got)

	log := state.Snapshot()
	require.Len(t, log, 1)
	assert.Equal(t, Message{From: "alice", Body: "hello world", Timestamp: 1700000000}, log[0])
}

func TestSession_SendMessage_Validation(t *testing.T) {
	session, state := newTestSession(t, "alice")

	_, err := session.Call(context.Background(), "sendMessage", []any{})
	assert.EqualError(t, err, "`sendMessage` expects <message>")

	_, err = session.Call(context.Background(), "sendMessage", []any{float64(42)})
	assert.EqualError(t, err, "message must be a string")

	assert.Empty(t, state.Snapshot())
}

func TestSession_ReceiveMessages_ReturnsFullLog(t *testing.T) {
	session, state := newTestSession(t, "alice")

	got, err := session.Call(context.Background(), "receiveMessages", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"messages": []any{}}, got)

	state.Record("alice", "first")
	state.Record("bob", "second")

	got, err = session.Call(context.Background(), "receiveMessages", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"messages": []any{
		map[string]any{"from": "alice", "body": "first", "timestamp": uint64(1700000000)},
		map[string]any{"from": "bob", "body": "second", "timestamp": uint64(1700000000)},
	}}, got)
}

func TestSession_ReceiveMessages_RejectsArguments(t *testing.T) {
	session, _ := newTestSession(t, "alice")

	_, err := session.Call(context.Background(), "receiveMessages", []any{"surplus"})
	require.Error(t, err)
	assert.ErrorIs(t, err, rpcerr.ErrBadRequest)
	assert.EqualError(t, err, "`receiveMessages` does not take arguments")
}

func TestSession_Whoami_IgnoresArguments(t *testing.T) {
	session, _ := newTestSession(t, "carol")

	for _, args := range [][]any{nil, {}, {"extra", float64(1)}} {
		got, err := session.Call(context.Background(), "whoami", args)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"username": "carol"}, got)
	}
}

func TestSession_RegisterNick(t *testing.T) {
	session, _ := newTestSession(t, "alice")

	got, err := session.Call(context.Background(), "registerNick", []any{"neo", "matrix"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"status":  "ok",
		"message": "Nickname 'neo' registered successfully",
	}, got)

	// Duplicates are a soft failure carried in the result, not an error.
	got, err = session.Call(context.Background(), "registerNick", []any{"neo", "other"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"status":  "error",
		"message": "Nickname already registered",
	}, got)
}

func TestSession_IdentifyNick(t *testing.T) {
	alice, state := newTestSession(t, "alice")
	bob := NewSession(slog.Default(), state, "bob")

	_, err := alice.Call(context.Background(), "registerNick", []any{"neo", "matrix"})
	require.NoError(t, err)

	got, err := alice.Call(context.Background(), "identifyNick", []any{"neo", "matrix"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"status":  "ok",
		"message": "Successfully identified as 'neo'",
	}, got)

	got, err = alice.Call(context.Background(), "identifyNick", []any{"neo", "wrong"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "error", "message": "Invalid password"}, got)

	got, err = alice.Call(context.Background(), "identifyNick", []any{"trinity", "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "error", "message": "Nickname not registered"}, got)

	// Knowing the password is not enough: the nickname is bound to alice.
	got, err = bob.Call(context.Background(), "identifyNick", []any{"neo", "matrix"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"status":  "error",
		"message": "You are not the owner of this nickname",
	}, got)
}

func TestSession_CheckNick(t *testing.T) {
	session, state := newTestSession(t, "alice")
	require.NoError(t, state.RegisterNick("neo", "matrix", "alice"))

	got, err := session.Call(context.Background(), "checkNick", []any{"neo"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "ok", "registered": true}, got)

	got, err = session.Call(context.Background(), "checkNick", []any{"trinity"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "ok", "registered": false}, got)

	_, err = session.Call(context.Background(), "checkNick", []any{})
	assert.EqualError(t, err, "`checkNick` expects <nickname>")

	_, err = session.Call(context.Background(), "checkNick", []any{float64(1)})
	assert.EqualError(t, err, "nickname must be a string")
}

func TestSession_NickValidationMessages(t *testing.T) {
	session, _ := newTestSession(t, "alice")

	_, err := session.Call(context.Background(), "registerNick", []any{"neo"})
	assert.EqualError(t, err, "`registerNick` expects <nickname>, <password>")

	_, err = session.Call(context.Background(), "identifyNick", []any{"neo"})
	assert.EqualError(t, err, "`identifyNick` expects <nickname>, <password>")

	_, err = session.Call(context.Background(), "registerNick", []any{float64(1), "pw"})
	assert.EqualError(t, err, "nickname must be a string")
}
