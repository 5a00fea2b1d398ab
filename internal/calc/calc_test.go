package calc

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/capwire-go/internal/rpcerr"
)

func TestService_Add(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want float64
	}{
		{"integers", 10, 20, 30},
		{"negatives", -4, 1.5, -2.5},
		{"zero", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(slog.Default())

			got, err := svc.Call(context.Background(), "add", []any{tt.a, tt.b})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_Add_RejectsBadArguments(t *testing.T) {
	svc := New(slog.Default())

	_, err := svc.Call(context.Background(), "add", []any{float64(1)})
	require.EqualError(t, err, "`add` expects exactly two numeric arguments")
	assert.ErrorIs(t, err, rpcerr.ErrBadRequest)

	_, err = svc.Call(context.Background(), "add", []any{"one", float64(2)})
	require.EqualError(t, err, "first argument must be a number")

	_, err = svc.Call(context.Background(), "add", []any{float64(1), "two"})
	require.EqualError(t, err, "second argument must be a number")
}

func TestService_UnknownMethodIsNotFound(t *testing.T) {
	svc := New(slog.Default())

	_, err := svc.Call(context.Background(), "subtract", []any{float64(10), float64(20)})
	require.EqualError(t, err, "method `subtract` not found")
	assert.ErrorIs(t, err, rpcerr.ErrNotFound)
}

func TestService_Stats_EmptyBeforeFirstAdd(t *testing.T) {
	svc := New(slog.Default())

	got, err := svc.Call(context.Background(), "stats", nil)
	require.NoError(t, err)

	snapshot := got.(map[string]any)
	assert.Equal(t, uint64(0), snapshot["callCount"])
	assert.Nil(t, snapshot["lastRequest"])
	assert.Nil(t, snapshot["lastResponse"])
}

func TestService_Stats_RecordsWireTrace(t *testing.T) {
	svc := New(slog.Default())

	_, err := svc.Call(context.Background(), "add", []any{float64(10), float64(20)})
	require.NoError(t, err)

	got, err := svc.Call(context.Background(), "stats", nil)
	require.NoError(t, err)

	snapshot := got.(map[string]any)
	assert.Equal(t, uint64(1), snapshot["callCount"])
	assert.Equal(t, "[\"push\",[\"call\",1,[\"add\"],[10,20]]]\n[\"pull\",1]", snapshot["lastRequest"])
	assert.Equal(t, `["result",1,30]`, snapshot["lastResponse"])
}

func TestService_Stats_FailedCallsLeaveTraceUntouched(t *testing.T) {
	svc := New(slog.Default())

	_, err := svc.Call(context.Background(), "add", []any{float64(2), float64(3)})
	require.NoError(t, err)

	_, err = svc.Call(context.Background(), "add", []any{"bad", float64(3)})
	require.Error(t, err)

	got, err := svc.Call(context.Background(), "stats", nil)
	require.NoError(t, err)

	snapshot := got.(map[string]any)
	assert.Equal(t, uint64(1), snapshot["callCount"])
	assert.Equal(t, `["result",1,5]`, snapshot["lastResponse"])
}
