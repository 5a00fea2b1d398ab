// Package calc implements the calculator capability.
package calc

import (
	"context"
	"log/slog"
	"sync"

	"github.com/wagiedev/capwire-go/internal/captable"
	"github.com/wagiedev/capwire-go/internal/dispatch"
	"github.com/wagiedev/capwire-go/internal/frame"
)

// Compile-time verification that Service implements the capability contract.
var _ captable.Target = (*Service)(nil)

// Service is the calculator capability, conventionally registered under
// captable.CalculatorID.
//
// Besides add it keeps a small trace of the last call in wire form, readable
// via stats, so clients can inspect what a batch exchange for that call would
// have looked like.
type Service struct {
	log     *slog.Logger
	methods *dispatch.Set

	mu           sync.Mutex
	callCount    uint64
	lastRequest  *string
	lastResponse *string
}

// New creates a calculator service.
func New(log *slog.Logger) *Service {
	s := &Service{
		log: log.With("component", "calculator"),
	}

	s.methods = dispatch.NewSet(log).
		Register("add", dispatch.Method{
			Params: []dispatch.Param{
				dispatch.Number("a", "first argument must be a number"),
				dispatch.Number("b", "second argument must be a number"),
			},
			ArityMessage: "`add` expects exactly two numeric arguments",
			Handler:      s.add,
		}).
		Register("stats", dispatch.Method{
			IgnoreArgs: true,
			Handler:    s.stats,
		})

	return s
}

// Call implements captable.Target.
func (s *Service) Call(ctx context.Context, method string, args []any) (any, error) {
	return s.methods.Invoke(ctx, method, args)
}

func (s *Service) add(_ context.Context, args []any) (any, error) {
	a, _ := frame.AsFloat64(args[0])
	b, _ := frame.AsFloat64(args[1])

	result := a + b

	s.recordCall("add", args, result)

	return result, nil
}

func (s *Service) stats(_ context.Context, _ []any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := map[string]any{
		"callCount":    s.callCount,
		"lastRequest":  nil,
		"lastResponse": nil,
	}

	if s.lastRequest != nil {
		snapshot["lastRequest"] = *s.lastRequest
	}

	if s.lastResponse != nil {
		snapshot["lastResponse"] = *s.lastResponse
	}

	return snapshot, nil
}

// recordCall stores the wire-shaped trace of one call: the push and pull
// lines a batch client would send, and the result line it would read back.
func (s *Service) recordCall(method string, args []any, result any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++

	pushLine, err := frame.EncodeCall(captable.CalculatorID, method, args)
	if err != nil {
		s.log.Warn("Could not encode request trace", "method", method, "error", err)

		return
	}

	pullLine, err := frame.EncodePull(captable.CalculatorID)
	if err != nil {
		s.log.Warn("Could not encode request trace", "method", method, "error", err)

		return
	}

	resultLine, err := frame.EncodeResult(captable.CalculatorID, result)
	if err != nil {
		s.log.Warn("Could not encode response trace", "method", method, "error", err)

		return
	}

	request := string(pushLine) + "\n" + string(pullLine)
	response := string(resultLine)

	s.lastRequest = &request
	s.lastResponse = &response
}
