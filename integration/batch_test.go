// Package integration exercises the public surface end to end: batch scripts
// through the full engine, and duplex chat over a real WebSocket loopback.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	capwire "github.com/wagiedev/capwire-go"
)

// decodeLine unpacks one output frame into tag, id, and payload.
func decodeLine(t *testing.T, line string) (string, uint64, any) {
	t.Helper()

	var arr []any
	require.NoError(t, json.Unmarshal([]byte(line), &arr))
	require.Len(t, arr, 3)

	tag, ok := arr[0].(string)
	require.True(t, ok)

	id, ok := arr[1].(float64)
	require.True(t, ok)

	return tag, uint64(id), arr[2]
}

func TestBatch_FullChatSession(t *testing.T) {
	b := capwire.NewBatch(capwire.WithCredentials(capwire.StaticCredentials{
		"alice": "password123",
	}))

	script := strings.Join([]string{
		`["push",["call",2,["auth"],["alice","password123"]]]`,
		`["pull",1]`,
		`["push",["call",10000,["sendMessage"],["hello world"]]]`,
		`["pull",2]`,
		`["push",["call",10000,["receiveMessages"],[]]]`,
		`["pull",3]`,
		`["push",["call",10000,["whoami"],[]]]`,
		`["pull",4]`,
	}, "\n")

	lines, err := b.RunScript(context.Background(), script)
	require.NoError(t, err)
	require.Len(t, lines, 4)

	tag, id, value := decodeLine(t, lines[0])
	assert.Equal(t, "result", tag)
	assert.Equal(t, uint64(1), id)
	auth := value.(map[string]any)
	assert.Equal(t, "alice", auth["user"])
	session := auth["session"].(map[string]any)
	assert.Equal(t, "capability", session["_type"])
	assert.Equal(t, float64(10000), session["id"])

	tag, _, value = decodeLine(t, lines[1])
	assert.Equal(t, "result", tag)
	sent := value.(map[string]any)
	assert.Equal(t, "ok", sent["status"])
	assert.Equal(t, "hello world", sent["echo"])

	tag, _, value = decodeLine(t, lines[2])
	assert.Equal(t, "result", tag)
	messages := value.(map[string]any)["messages"].([]any)
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]any)
	assert.Equal(t, "alice", msg["from"])
	assert.Equal(t, "hello world", msg["body"])

	tag, _, value = decodeLine(t, lines[3])
	assert.Equal(t, "result", tag)
	assert.Equal(t, map[string]any{"username": "alice"}, value)
}

func TestBatch_SuccessiveAuthsMintIncreasingIDs(t *testing.T) {
	b := capwire.NewBatch(capwire.WithCredentials(capwire.AllowAll{}))

	script := strings.Join([]string{
		`["push",["call",2,["auth"],["alice","x"]]]`,
		`["pull",1]`,
		`["push",["call",2,["auth"],["bob","y"]]]`,
		`["pull",2]`,
	}, "\n")

	lines, err := b.RunScript(context.Background(), script)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	_, _, first := decodeLine(t, lines[0])
	_, _, second := decodeLine(t, lines[1])

	firstID := first.(map[string]any)["session"].(map[string]any)["id"].(float64)
	secondID := second.(map[string]any)["session"].(map[string]any)["id"].(float64)

	assert.Equal(t, float64(10000), firstID)
	assert.Equal(t, float64(10001), secondID)
}

func TestBatch_DirectoryRedirectsSessionMethods(t *testing.T) {
	b := capwire.NewBatch()

	for _, method := range []string{"sendMessage", "receiveMessages"} {
		t.Run(method, func(t *testing.T) {
			script := fmt.Sprintf("[\"push\",[\"call\",2,[%q],[\"x\"]]]\n[\"pull\",1]", method)

			lines, err := b.RunScript(context.Background(), script)
			require.NoError(t, err)
			require.Len(t, lines, 1)

			tag, _, value := decodeLine(t, lines[0])
			assert.Equal(t, "error", tag)
			payload := value.(map[string]any)
			assert.Equal(t, "call these methods on the session capability returned by `auth`", payload["message"])
		})
	}
}

func TestBatch_PullOrderIsFIFORegardlessOfIDs(t *testing.T) {
	b := capwire.NewBatch()

	script := strings.Join([]string{
		`["push",["call",1,["add"],[1,1]]]`,
		`["push",["call",1,["add"],[2,2]]]`,
		`["push",["call",1,["add"],[3,3]]]`,
		`["pull",9]`,
		`["pull",7]`,
		`["pull",8]`,
	}, "\n")

	lines, err := b.RunScript(context.Background(), script)
	require.NoError(t, err)
	require.Equal(t, []string{
		`["result",9,2]`,
		`["result",7,4]`,
		`["result",8,6]`,
	}, lines)
}

func TestBatch_BadCallDoesNotPoisonLaterCalls(t *testing.T) {
	b := capwire.NewBatch()

	script := strings.Join([]string{
		`["push",["call",99,["add"],[1,1]]]`,
		`["push",["call",1,["add"],[2,2]]]`,
		`["pull",1]`,
		`["pull",2]`,
	}, "\n")

	lines, err := b.RunScript(context.Background(), script)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	tag, _, value := decodeLine(t, lines[0])
	assert.Equal(t, "error", tag)
	assert.Equal(t, "capability `99` is not registered", value.(map[string]any)["message"])

	assert.Equal(t, `["result",2,4]`, lines[1])
}

func TestBatch_NicknameFlow(t *testing.T) {
	table := capwire.NewRegistry(capwire.WithCredentials(capwire.AllowAll{}))
	b := capwire.NewBatch(capwire.WithRegistry(table))

	// alice (10000) registers a nick; bob (10001) fails to re-register it
	// and fails to identify as it even with the right password.
	script := strings.Join([]string{
		`["push",["call",2,["auth"],["alice","x"]]]`,
		`["pull",1]`,
		`["push",["call",2,["auth"],["bob","y"]]]`,
		`["pull",2]`,
		`["push",["call",10000,["checkNick"],["neo"]]]`,
		`["pull",3]`,
		`["push",["call",10000,["registerNick"],["neo","s3cret"]]]`,
		`["pull",4]`,
		`["push",["call",10001,["registerNick"],["neo","other"]]]`,
		`["pull",5]`,
		`["push",["call",10001,["identifyNick"],["neo","s3cret"]]]`,
		`["pull",6]`,
		`["push",["call",10000,["identifyNick"],["neo","wrong"]]]`,
		`["pull",7]`,
		`["push",["call",10000,["identifyNick"],["neo","s3cret"]]]`,
		`["pull",8]`,
		`["push",["call",10000,["checkNick"],["neo"]]]`,
		`["pull",9]`,
	}, "\n")

	lines, err := b.RunScript(context.Background(), script)
	require.NoError(t, err)
	require.Len(t, lines, 9)

	status := func(line string) (string, string) {
		tag, _, value := decodeLine(t, line)
		require.Equal(t, "result", tag)
		resp := value.(map[string]any)
		message, _ := resp["message"].(string)

		return resp["status"].(string), message
	}

	// Unregistered nick reads as absent.
	_, _, value := decodeLine(t, lines[2])
	assert.Equal(t, false, value.(map[string]any)["registered"])

	st, _ := status(lines[3])
	assert.Equal(t, "ok", st)

	st, msg := status(lines[4])
	assert.Equal(t, "error", st)
	assert.Equal(t, "Nickname already registered", msg)

	st, msg = status(lines[5])
	assert.Equal(t, "error", st)
	assert.Equal(t, "You are not the owner of this nickname", msg)

	st, msg = status(lines[6])
	assert.Equal(t, "error", st)
	assert.Equal(t, "Invalid password", msg)

	st, _ = status(lines[7])
	assert.Equal(t, "ok", st)

	_, _, value = decodeLine(t, lines[8])
	assert.Equal(t, true, value.(map[string]any)["registered"])
}

func TestBatch_CalculatorStatsTrace(t *testing.T) {
	b := capwire.NewBatch()

	script := strings.Join([]string{
		`["push",["call",1,["add"],[10,20]]]`,
		`["pull",1]`,
		`["push",["call",1,["stats"],[]]]`,
		`["pull",2]`,
	}, "\n")

	lines, err := b.RunScript(context.Background(), script)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	_, _, value := decodeLine(t, lines[1])
	stats := value.(map[string]any)
	assert.Equal(t, float64(1), stats["callCount"])
	assert.Equal(t, "[\"push\",[\"call\",1,[\"add\"],[10,20]]]\n[\"pull\",1]", stats["lastRequest"])
	assert.Equal(t, `["result",1,30]`, stats["lastResponse"])
}
