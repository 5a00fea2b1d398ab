// Package batch runs the newline-delimited batch personality of the protocol:
// every push executes immediately against the capability table and queues its
// outcome, every pull dequeues the oldest outcome and emits it tagged with the
// pull's id. Correlation is blind FIFO; the id carried by a pull only labels
// the output line.
package batch

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/capwire-go/internal/captable"
	"github.com/wagiedev/capwire-go/internal/frame"
	"github.com/wagiedev/capwire-go/internal/rpcerr"
)

// maxScanTokenSize caps a single input line at 1MB.
const maxScanTokenSize = 1024 * 1024

// outcome is one queued push result awaiting a pull.
type outcome struct {
	value      any
	errMessage string
	failed     bool
}

// Engine executes batch scripts against a capability table. An Engine is
// stateless between runs; the outcome queue is scoped to a single Run.
type Engine struct {
	log   *slog.Logger
	table *captable.Table
}

// New creates a batch engine backed by table.
func New(log *slog.Logger, table *captable.Table) *Engine {
	return &Engine{
		log:   log.With("component", "batch"),
		table: table,
	}
}

// Run processes newline-delimited frames from r, writing one output line per
// pull to w as it is produced.
//
// A malformed line aborts the run with a *rpcerr.FrameParseError naming the
// 1-based line number. Output written before the abort stays written: the run
// fails fast but does not retract lines already produced. Unknown capability
// ids, unknown methods, and unsupported push payloads are never fatal; they
// queue error outcomes consumed by later pulls.
func (e *Engine) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	return e.run(ctx, r, func(line []byte) error {
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}

		return nil
	})
}

// RunScript processes a batch script held in memory and returns the output
// lines it produced. On failure the returned lines are the output produced
// before the failing line.
func (e *Engine) RunScript(ctx context.Context, script string) ([]string, error) {
	var lines []string

	err := e.run(ctx, bytes.NewReader([]byte(script)), func(line []byte) error {
		lines = append(lines, string(line))

		return nil
	})

	return lines, err
}

func (e *Engine) run(ctx context.Context, r io.Reader, emit func([]byte) error) error {
	log := e.log.With("run_id", ulid.Make().String())

	scanner := bufio.NewScanner(r)
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	var pending []outcome
	lineNo := 0
	pulls := 0

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lineNo++

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		f, err := frame.Parse(log, line)
		if err != nil {
			log.Warn("Aborting batch on malformed line", "line", lineNo, "error", err)

			return rpcerr.ParseAtLine(lineNo, err)
		}

		switch fr := f.(type) {
		case *frame.Push:
			pending = append(pending, e.execute(ctx, log, fr.Payload))

		case *frame.Pull:
			out := outcome{failed: true, errMessage: "no pending result for pull"}
			if len(pending) > 0 {
				out = pending[0]
				pending = pending[1:]
			}

			data, err := encodeOutcome(fr.ID, out)
			if err != nil {
				return err
			}

			if err := emit(data); err != nil {
				return err
			}
			pulls++

		default:
			log.Warn("Aborting batch on non-batch frame", "line", lineNo, "tag", f.Tag())

			return rpcerr.ParseAtLine(lineNo, fmt.Errorf("unsupported operation `%s`", f.Tag()))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read batch input: %w", err)
	}

	log.Debug("Batch complete", "lines", lineNo, "pulls", pulls, "unpulled", len(pending))

	return nil
}

// execute runs one push payload to completion and returns its outcome.
// Execution failures are data, not errors: they ride the outcome queue.
func (e *Engine) execute(ctx context.Context, log *slog.Logger, payload frame.Payload) outcome {
	call, ok := payload.(*frame.Call)
	if !ok {
		return outcome{failed: true, errMessage: fmt.Sprintf("unsupported push operation `%s`", payload.Kind())}
	}

	target, ok := e.table.Lookup(call.Cap)
	if !ok {
		log.Warn("Call to unregistered capability", "cap_id", call.Cap)

		return outcome{failed: true, errMessage: fmt.Sprintf("capability `%d` is not registered", call.Cap)}
	}

	value, err := target.Call(ctx, call.Method, call.Args)
	if err != nil {
		log.Debug("Call failed", "cap_id", call.Cap, "method", call.Method, "error", err)

		return outcome{failed: true, errMessage: err.Error()}
	}

	return outcome{value: value}
}

func encodeOutcome(id uint64, out outcome) ([]byte, error) {
	if out.failed {
		data, err := frame.EncodeError(id, out.errMessage)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize response: %w", err)
		}

		return data, nil
	}

	data, err := frame.EncodeResult(id, out.value)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize response: %w", err)
	}

	return data, nil
}
