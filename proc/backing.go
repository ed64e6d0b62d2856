package proc

import (
	"github.com/sprocd/sprocd/core"
	"github.com/sprocd/sprocd/dispatch"
	"github.com/sprocd/sprocd/module"
)

// Language tags a Function's backing kind (spec.md §3 "language tag
// (native, script, builtin)").
type Language int

const (
	LangNative Language = iota
	LangScript
	LangBuiltin
)

// Backing is the language-polymorphic vtable spec.md §3 describes: it
// carries out step 3 of spec.md §4.G ("dispatch via the language
// backing") once access and setuid have already been resolved.
type Backing interface {
	Language() Language
	Call(t *core.Task, args dispatch.ArgsPort, ret *dispatch.Port) error
	// Release drops whatever resource this backing pins — for native,
	// its module.Symbol reference (spec.md §4.G "destruction drops the
	// backing symbol reference").
	Release()
}

// NativeBacking binds a Function to a resolved module.Symbol (the
// "the function owns exactly one S" invariant of spec.md §3).
type NativeBacking struct {
	sub  *module.Subsystem
	disp *dispatch.Dispatcher
	sym  *module.Symbol
	pkg  string
	name string
}

// NewNativeBacking resolves pkg.name eagerly. Deferred resolution
// (spec.md §4.D: "a function definition may carry an unresolved
// symbol handle") is modeled by constructing the Function without a
// backing and calling NewNativeBacking lazily on first call — see
// Function.ensureBacking.
func NewNativeBacking(sub *module.Subsystem, disp *dispatch.Dispatcher, pkg, name string) (*NativeBacking, error) {
	sym, err := sub.Resolve(pkg, name)
	if err != nil {
		return nil, err
	}
	return &NativeBacking{sub: sub, disp: disp, sym: sym, pkg: pkg, name: name}, nil
}

func (b *NativeBacking) Language() Language { return LangNative }

func (b *NativeBacking) Call(t *core.Task, args dispatch.ArgsPort, ret *dispatch.Port) error {
	return b.disp.Call(t, b.sym, args, ret)
}

func (b *NativeBacking) Release() {
	if b.sym != nil {
		b.sub.Release(b.sym)
		b.sym = nil
	}
}

// ScriptBacking and BuiltinBacking are out of scope per spec.md's
// "Scripting-host glue ... only the contracts the core consumes are
// described" — BackingFunc lets a host wire either in without this
// package depending on the scripting engine or on a fixed builtin
// table.
type BackingFunc func(t *core.Task, args dispatch.ArgsPort, ret *dispatch.Port) error

type hostBacking struct {
	lang Language
	fn   BackingFunc
}

func NewScriptBacking(fn BackingFunc) Backing  { return &hostBacking{lang: LangScript, fn: fn} }
func NewBuiltinBacking(fn BackingFunc) Backing { return &hostBacking{lang: LangBuiltin, fn: fn} }

func (h *hostBacking) Language() Language { return h.lang }
func (h *hostBacking) Call(t *core.Task, args dispatch.ArgsPort, ret *dispatch.Port) error {
	return h.fn(t, args, ret)
}
func (h *hostBacking) Release() {}
