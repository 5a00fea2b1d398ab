package capwire

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch_RunScript_AddAndPull(t *testing.T) {
	b := NewBatch()

	lines, err := b.RunScript(context.Background(), `["push",["call",1,["add"],[10,20]]]
["pull",1]`)
	require.NoError(t, err)
	require.Equal(t, []string{`["result",1,30]`}, lines)
}

func TestBatch_RunScript_UnknownMethodTagsPullID(t *testing.T) {
	b := NewBatch()

	lines, err := b.RunScript(context.Background(), `["push",["call",1,["subtract"],[10,20]]]
["pull",5]`)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], `["error",5,`), "got %s", lines[0])
}

func TestBatch_RunScript_MalformedLineAborts(t *testing.T) {
	b := NewBatch()

	lines, err := b.RunScript(context.Background(), `["push",["call",1,["add"],[10,20]]]
["pull",1]
not json`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
	assert.Contains(t, err.Error(), "line 3")
	assert.Contains(t, err.Error(), "failed to parse JSON")

	// Fail-fast, not fail-clean: output produced before the bad line stays.
	assert.Equal(t, []string{`["result",1,30]`}, lines)

	var parseErr *FrameParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 3, parseErr.Line)
}

func TestBatch_Run_WritesLinesToWriter(t *testing.T) {
	b := NewBatch()

	input := strings.NewReader(`["push",["call",1,["add"],[2,3]]]
["pull",1]
["push",["call",1,["add"],[4,5]]]
["pull",2]
`)

	var out bytes.Buffer
	require.NoError(t, b.Run(context.Background(), input, &out))
	assert.Equal(t, "[\"result\",1,5]\n[\"result\",2,9]\n", out.String())
}

func TestBatch_SharedRegistryKeepsSessionsAcrossRuns(t *testing.T) {
	table := NewRegistry(WithCredentials(StaticCredentials{"alice": "password123"}))
	b := NewBatch(WithRegistry(table))

	lines, err := b.RunScript(context.Background(), `["push",["call",2,["auth"],["alice","password123"]]]
["pull",1]`)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"id":10000`)

	// The minted session capability answers in a later run on the same table.
	lines, err = b.RunScript(context.Background(), `["push",["call",10000,["whoami"],[]]]
["pull",1]`)
	require.NoError(t, err)
	require.Equal(t, []string{`["result",1,{"username":"alice"}]`}, lines)
}

func TestBatch_FreshRegistryPerBatch(t *testing.T) {
	// Without WithRegistry every batch runner owns its own table: ids minted
	// by one are unknown to another.
	first := NewBatch(WithCredentials(AllowAll{}))
	second := NewBatch(WithCredentials(AllowAll{}))

	_, err := first.RunScript(context.Background(), `["push",["call",2,["auth"],["alice",""]]]
["pull",1]`)
	require.NoError(t, err)

	lines, err := second.RunScript(context.Background(), `["push",["call",10000,["whoami"],[]]]
["pull",1]`)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "is not registered")
}
