// Package module implements the dynamic stored-procedure runtime's
// module cache, symbol registry, and reference lifecycle (spec.md §3,
// §4.B–§4.E). It is the direct analog of the teacher's core package
// (per-object metadata, core/ct.go) and xact/xreg (registry + renew,
// xact/xreg/nonbck.go) scoped to loaded native extensions instead of
// on-disk objects and background tasks.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package module

import (
	"plugin"

	"github.com/sprocd/sprocd/cmn/atomic"
	"github.com/sprocd/sprocd/cmn/cos"
)

// State tags whether a Module is still reachable through the cache or
// is an orphan kept alive only by surviving symbols/calls (spec.md
// §3, §9 "Open question"). Observed by diagnostics only — it never
// gates behavior.
type State int32

const (
	Cached State = iota
	Orphan
)

func (s State) String() string {
	if s == Orphan {
		return "orphan"
	}
	return "cached"
}

// Module (M) represents one loaded native extension (spec.md §3).
type Module struct {
	id      int64
	pkg     string
	handle  *plugin.Plugin
	attrs   cos.FileAttrs
	digest  [32]byte // opportunistic content digest, informational only (SPEC_FULL §4.B)
	ioStats IOSnapshot

	refs  atomic.Int64
	state atomic.Int32 // State

	symbols symlist // intrusive list head of resolved symbols

	// lookupFn overrides the plugin.Plugin-backed lookup in
	// lookupEntry when set. nil in production; tests construct a
	// Module with this set directly to exercise Registry/Cache logic
	// without a real compiled plugin.
	lookupFn func(name string) (EntryPoint, error)
}

func (m *Module) ID() int64            { return m.id }
func (m *Module) Pkg() string          { return m.pkg }
func (m *Module) Attrs() cos.FileAttrs { return m.attrs }
func (m *Module) Digest() [32]byte     { return m.digest }
func (m *Module) IOStats() IOSnapshot  { return m.ioStats }
func (m *Module) Refs() int64          { return m.refs.Load() }
func (m *Module) State() State         { return State(m.state.Load()) }
func (m *Module) setState(s State)     { m.state.Store(int32(s)) }

// Pin takes the dispatch-time module reference spec.md §4.E requires
// in addition to the one the resolved symbol already implies: the
// call may cooperatively yield, during which the symbol could be
// dropped concurrently by another task, so the in-flight call needs
// its own independent hold on the module.
func (m *Module) Pin() { m.refs.Inc() }

// UnpinReportLast drops the dispatch-time pin and reports whether it
// was the module's last outstanding reference (spec.md §4.F step 7:
// "if it hits zero, run the module collector"). Note Go's plugin
// package offers no unload primitive, so "running the collector" here
// means bookkeeping only — see DESIGN.md.
func (m *Module) UnpinReportLast() bool { return m.refs.Dec() == 0 }

// lookupEntry resolves name to an EntryPoint inside this module's
// plugin image — the dlsym-equivalent step of symbol resolution
// (spec.md §4.D).
func (m *Module) lookupEntry(name string) (EntryPoint, error) {
	if m.lookupFn != nil {
		return m.lookupFn(name)
	}
	sym, err := m.handle.Lookup(name)
	if err != nil {
		return nil, err
	}
	fn, ok := sym.(EntryPoint)
	if !ok {
		if fnp, ok2 := sym.(func(*Ctx, []byte, []byte) int); ok2 {
			return EntryPoint(fnp), nil
		}
		return nil, errBadSymbolType(name)
	}
	return fn, nil
}

// IOSnapshot is the opportunistic I/O diagnostics pair the loader
// captures around its digest read of the staged copy (digestAndIO in
// loader.go), grounded on
// the teacher's domain dependency on github.com/lufia/iostat.
type IOSnapshot struct {
	ReadBytesPerSec  float64
	WriteBytesPerSec float64
}
