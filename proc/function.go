package proc

import (
	"sync"

	"github.com/sprocd/sprocd/cmn/cos"
	"github.com/sprocd/sprocd/core"
	"github.com/sprocd/sprocd/dispatch"
)

// Definition is the static, immutable part of a Function (spec.md §3
// "F"): textual name of form pkg.sub.fn, owner, setuid flag,
// per-function access bitmap.
type Definition struct {
	Name   string // "pkg.sub.fn"
	Pkg    string
	Symbol string
	Owner  string
	Setuid bool
	Access Access
	Lang   Language
}

// Function is the runtime object spec.md §4.G's call procedure
// operates on: a Definition plus its language backing, cached owner
// credentials, and a mutex because setuid mutates shared effective
// identity across a possibly-yielding call.
type Function struct {
	Def Definition

	mu      sync.Mutex
	backing Backing
	sub     subsystemBinder // produces the backing on first call, for every language

	creds *credCache // shared process-wide cache, injected
	users UserStore
}

// subsystemBinder defers native-backing resolution (spec.md §4.D
// "deferred resolution": a function may be defined before its symbol
// exists) to first call, instead of at construction time.
type subsystemBinder struct {
	bind func() (Backing, error)
}

// NewFunction constructs a Function whose backing resolves on first
// call. For a native definition, bind should close over
// NewNativeBacking(sub, disp, def.Pkg, def.Symbol); for a
// script/builtin definition it should return NewScriptBacking/
// NewBuiltinBacking directly (no deferral needed, those never fail to
// resolve a module).
func NewFunction(def Definition, creds *credCache, users UserStore, bind func() (Backing, error)) *Function {
	return &Function{
		Def:   def,
		sub:   subsystemBinder{bind: bind},
		creds: creds,
		users: users,
	}
}

func (f *Function) ensureBacking() (Backing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.backing != nil {
		return f.backing, nil
	}
	b, err := f.sub.bind()
	if err != nil {
		return nil, err
	}
	f.backing = b
	return b, nil
}

// Call implements spec.md §4.G's three-step procedure.
func (f *Function) Call(t *core.Task, caller Identity, args dispatch.ArgsPort, ret *dispatch.Port) error {
	// step 1: access check.
	if err := checkAccess(caller, f.Def.Owner, f.Def.Name, f.Def.Access); err != nil {
		return t.SetErr(err)
	}

	b, err := f.ensureBacking()
	if err != nil {
		return t.SetErr(err)
	}

	// Effective identity defaults to the caller; a setuid call swaps it
	// to the owner below and restores it unconditionally on return.
	t.EffectiveUser = caller.User

	// step 2: setuid — materialize owner credentials and install the
	// owner as effective for the duration of the call, restored
	// unconditionally on return (spec.md §4.G step 2).
	if f.Def.Setuid && f.creds != nil {
		if !f.users.Exists(f.Def.Owner) {
			return t.SetErr(cos.NewAccessDenied(f.Def.Owner, f.Def.Name))
		}
		if _, err := f.creds.materialize(f.Def.Owner); err != nil {
			return t.SetErr(err)
		}
		t.EffectiveUser = f.Def.Owner
		defer func() { t.EffectiveUser = caller.User }()
	}

	// step 3: dispatch via the language backing.
	return t.SetErr(b.Call(t, args, ret))
}

// Close drops the backing symbol reference and releases any cached
// owner credentials (spec.md §4.G "Destruction drops the backing
// symbol reference and releases owner credentials").
func (f *Function) Close() {
	f.mu.Lock()
	b := f.backing
	f.backing = nil
	f.mu.Unlock()
	if b != nil {
		b.Release()
	}
	if f.Def.Setuid && f.creds != nil {
		f.creds.drop(f.Def.Owner)
	}
}
