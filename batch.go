package capwire

import (
	"context"
	"io"

	"github.com/wagiedev/capwire-go/internal/batch"
)

// Batch runs the batch personality of the protocol: newline-delimited
// scripts where every push executes immediately and queues its outcome, and
// every pull dequeues the oldest outcome tagged with the pull's id.
//
// A Batch is stateless between runs except for the capability table it
// executes against: sessions minted by auth in one run stay callable in the
// next.
type Batch struct {
	engine *batch.Engine
}

// NewBatch creates a batch runner. Unless WithRegistry supplies a shared
// table, the runner executes against its own table with the well-known
// capabilities registered.
func NewBatch(opts ...Option) *Batch {
	o := applyOptions(opts)
	log := o.Logging()

	table := o.Table
	if table == nil {
		table = newRegistry(o, log)
	}

	return &Batch{engine: batch.New(log, table)}
}

// Run processes newline-delimited frames from r, writing one output line
// per pull to w as it is produced.
//
// A malformed line aborts the run with a *FrameParseError naming the
// 1-based line number; output written before the abort stays written.
// Unknown capability ids, unknown methods, and failed calls are never
// fatal: they queue error outcomes consumed by later pulls.
func (b *Batch) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	return b.engine.Run(ctx, r, w)
}

// RunScript processes a batch script held in memory and returns the output
// lines it produced. On failure the returned lines are the output produced
// before the failing line.
func (b *Batch) RunScript(ctx context.Context, script string) ([]string, error) {
	return b.engine.RunScript(ctx, script)
}
