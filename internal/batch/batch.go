// Package batch is a host-side convenience for running one compiled
// chunk against many candles concurrently. The core pipeline's
// contract is strictly one (chunk, context, symbol) invocation at a
// time (spec §5); nothing about that contract is loosened here — each
// context gets its own *vm.VM, and a chunk is read-only once compiled,
// so running many contexts against it concurrently is safe.
package batch

import (
	"sync"
	"time"

	"github.com/ncruces/go-strftime"
	"golang.org/x/sync/errgroup"

	"tradedsl/internal/bytecode"
	"tradedsl/internal/vm"
)

// Result is one context's outcome, timestamped for log/CSV output.
type Result struct {
	Index     int
	Timestamp string
	Err       error
}

// Run executes chunk once per context in contexts, bounded to at most
// limit concurrent VMs (limit <= 0 means unbounded). All trade
// emissions funnel through a single, mutex-serialized sink so
// concurrent Buy/Sell calls never interleave mid-line.
func Run(chunk *bytecode.Chunk, contexts []vm.Context, symbol string, provider vm.FunctionProvider, sink vm.TradeSink, limit int) ([]Result, error) {
	safeSink := &syncSink{sink: sink}
	results := make([]Result, len(contexts))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, ctx := range contexts {
		i, ctx := i, ctx
		g.Go(func() error {
			ts := strftime.Format("%Y-%m-%d %H:%M", candleTime(ctx))
			machine := vm.New(provider, safeSink)
			err := machine.Run(chunk, ctx, symbol)
			results[i] = Result{Index: i, Timestamp: ts, Err: err}
			return err
		})
	}

	return results, g.Wait()
}

// candleTime reconstructs a time.Time from a Context's YYYYMMDD/HHMM
// fields, purely for human-readable timestamp formatting.
func candleTime(ctx vm.Context) time.Time {
	year := ctx.Date / 10000
	month := (ctx.Date / 100) % 100
	day := ctx.Date % 100
	hour := ctx.Time / 100
	minute := ctx.Time % 100
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
}

// syncSink serializes concurrent trade emissions onto one underlying
// sink, since spec §5 expects the sink to be "synchronous and
// non-reentrant with respect to the VM" — a guarantee batch's
// multiple concurrent VMs would otherwise break.
type syncSink struct {
	mu   sync.Mutex
	sink vm.TradeSink
}

func (s *syncSink) Buy(symbol string, qty int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink.Buy(symbol, qty)
}

func (s *syncSink) Sell(symbol string, qty int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink.Sell(symbol, qty)
}
