package module

// ResultSink is the narrow view of a dispatch.Port an entry point sees
// through its Ctx — append-only, as spec.md §6 describes ("Opaque
// append-only sink supporting: append tuple, append message-pack
// fragment, ..."). dispatch.Port implements this; module never imports
// dispatch; this file exists to avoid the cycle (dispatch -> module
// already runs the other direction).
type ResultSink interface {
	AppendTuple(v any) error
	AppendFragment(b []byte) error
}

// Ctx is what an entry point receives in place of spec.md §6's
// `ctx*` — "ctx carries a result-port handle." EffectiveUser mirrors
// the calling core.Task's effective identity at the moment of dispatch
// (spec.md §4.G step 2), so a setuid call's entry point can observe
// the owner it is running as.
type Ctx struct {
	Result        ResultSink
	EffectiveUser string
}

// EntryPoint is this runtime's rendition of spec.md §6's C ABI
// (`int fn(ctx*, const char* args_begin, const char* args_end)`): the
// exported symbol every loaded plugin must provide under the name the
// symbol registry asks for. Go's plugin package performs the actual
// dlopen/dlsym underneath Lookup; this is the type the looked-up
// plugin.Symbol gets asserted to.
type EntryPoint func(ctx *Ctx, argsBegin, argsEnd []byte) int
