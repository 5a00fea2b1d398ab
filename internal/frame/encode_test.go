package frame

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeResult_WireShape(t *testing.T) {
	data, err := EncodeResult(1, float64(30))
	require.NoError(t, err)
	assert.Equal(t, `["result",1,30]`, string(data))
}

func TestEncodeError_WireShape(t *testing.T) {
	data, err := EncodeError(5, "method `subtract` not found")
	require.NoError(t, err)
	assert.Equal(t, `["error",5,{"message":"method `+"`subtract`"+` not found"}]`, string(data))
}

func TestEncodePipeline_WireShape(t *testing.T) {
	data, err := EncodePipeline(0, "receiveMessage", []any{map[string]any{"body": "hi"}})
	require.NoError(t, err)
	assert.Equal(t, `["push",["pipeline",0,["receiveMessage"],[{"body":"hi"}]]]`, string(data))
}

func TestEncodeCall_NilArgsBecomeEmptyList(t *testing.T) {
	data, err := EncodeCall(2, "auth", nil)
	require.NoError(t, err)
	assert.Equal(t, `["push",["call",2,["auth"],[]]]`, string(data))
}

func TestEncode_RoundTripsThroughParse(t *testing.T) {
	data, err := EncodeCall(1, "add", []any{float64(10), float64(20)})
	require.NoError(t, err)

	f, err := Parse(slog.Default(), data)
	require.NoError(t, err)

	call := f.(*Push).Payload.(*Call)
	assert.Equal(t, uint64(1), call.Cap)
	assert.Equal(t, "add", call.Method)
	assert.Equal(t, []any{float64(10), float64(20)}, call.Args)

	data, err = EncodePull(3)
	require.NoError(t, err)

	f, err = Parse(slog.Default(), data)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), f.(*Pull).ID)

	data, err = EncodeReject(4, "invalid credentials")
	require.NoError(t, err)

	f, err = Parse(slog.Default(), data)
	require.NoError(t, err)
	assert.Equal(t, "invalid credentials", f.(*Reject).Message)
}
