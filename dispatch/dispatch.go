package dispatch

import (
	"github.com/sprocd/sprocd/cmn/cos"
	"github.com/sprocd/sprocd/cmn/nlog"
	"github.com/sprocd/sprocd/core"
	"github.com/sprocd/sprocd/metrics"
	"github.com/sprocd/sprocd/module"
	"github.com/sprocd/sprocd/tracing"
)

// ArgsPort is the caller-supplied argument stream: a contiguous
// message-pack-encoded tuple (spec.md §4.F step 3). A *Port (Reset
// between uses) satisfies this trivially via RawBytes — deliberately
// not WireBytes, since an argument buffer must never be handed to the
// entry point lz4-framed the way a result stream optionally is.
type ArgsPort interface {
	RawBytes() []byte
}

// Dispatcher implements spec.md §4.F: invoke a resolved symbol with a
// marshalled argument stream, returning a result stream, always
// restoring the task's arena to its watermark on exit.
type Dispatcher struct {
	sub *module.Subsystem
}

func NewDispatcher(sub *module.Subsystem) *Dispatcher {
	return &Dispatcher{sub: sub}
}

// Call runs the 9-step procedure from spec.md §4.F. sym must already
// be a resolved, refcounted handle the caller owns (Release is the
// caller's responsibility, independent of Call).
func (d *Dispatcher) Call(t *core.Task, sym *module.Symbol, args ArgsPort, ret *Port) (err error) {
	end := tracing.StartSpan("dispatch.Call", sym.Module().Pkg()+"."+sym.Name())
	defer end()

	// step 1: deferred resolution is handled by the caller before Call
	// is ever invoked (Subsystem.Resolve already guarantees sym.Addr()
	// is non-nil by construction in this runtime — see proc.Function
	// for the "addr == null" carrier case).
	if sym.Addr() == nil {
		return cos.NewLoadFunction("symbol has no resolved address: "+sym.Name(), nil)
	}

	// step 2: snapshot the arena watermark.
	mark := t.Arena.Mark()
	defer t.Arena.Truncate(mark) // step 8: unconditional, every exit path

	// A stale diagnostic from a prior call on this same (reused) task
	// must never leak into this one — core.Task.ResetDiag's doc comment
	// calls this out explicitly, and ErrValue only ever records the
	// first Store, so a task that isn't reset here is stuck reporting
	// its first-ever error forever.
	t.ResetDiag()

	// step 3: extract the argument payload, raw and never compressed.
	payload := args.RawBytes()

	// step 4: initialize the result stream.
	ret.Reset()

	m := sym.Module()

	// step 5: pin the module for the duration of the call — additional
	// to the ref the symbol itself already implies, because the call
	// may yield and the symbol's own ref could be dropped concurrently
	// (spec.md §4.E).
	d.sub.Cache.Pin(m)
	metrics.DispatchInFlight.Inc()
	defer metrics.DispatchInFlight.Dec()

	start := core.NowNano()
	rc := sym.Addr()(&module.Ctx{Result: ret, EffectiveUser: t.EffectiveUser}, payload, payload[len(payload):])
	metrics.DispatchLatency.Observe(float64(core.NowNano()-start) / 1e9)

	// step 7: unpin; if this drops the module to zero, the collector
	// runs inline (Cache.Unpin triggers orphan cleanup).
	if d.sub.Cache.Unpin(m) {
		nlog.Infof("dispatch: module %s (id=%d) collected after call", m.Pkg(), m.ID())
	}

	// step 9: synthesize a diagnostic if the entry point failed silently.
	if rc != 0 {
		if diagErr := t.LastErr(); diagErr != nil {
			ret.Reset()
			return diagErr
		}
		ret.Reset()
		return cos.NewProcC("unknown error from entry point")
	}
	return nil
}
