// Package core provides the per-task runtime state every dispatch
// runs against: a diagnostic slot (spec.md §7 "task-local state with
// a single last-error value") and an arena (bump allocator reset at
// scheduling points, spec.md §5). It plays the role the teacher's own
// core package plays for per-object metadata (core/ct.go), scoped here
// to per-task execution state instead of per-object storage state.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package core

import (
	"github.com/sprocd/sprocd/cmn/cos"
)

// Task is the unit of execution a dispatch call runs as. Every
// dispatch call happens "as" some Task so that the arena watermark and
// diagnostic slot in spec.md §4.F have somewhere to live; a Task is
// constructed directly with NewTask and is not tied to Sched.
type Task struct {
	ID    string
	Diag  cos.ErrValue
	Arena *Arena

	// EffectiveUser is the identity an entry point runs under for the
	// duration of the current call (spec.md §4.G step 2: "install owner
	// credentials as effective for the duration of the call; restore on
	// return"). Defaults to the calling identity; a setuid Function
	// swaps it to its owner around the backing call and restores it
	// unconditionally afterward.
	EffectiveUser string
}

// NewTask allocates a fresh task with its own arena. id is chosen by
// the caller (cos.GenID is a suitable source).
func NewTask(id string) *Task {
	return &Task{ID: id, Arena: NewArena()}
}

// SetErr records err in the task's diagnostic slot if it is non-nil.
// This is the single choke point every fallible operation in this
// repository funnels through before returning its sentinel value.
func (t *Task) SetErr(err error) error {
	if err != nil {
		t.Diag.Store(err)
	}
	return err
}

// LastErr returns the most recently stored diagnostic, or nil.
func (t *Task) LastErr() error { return t.Diag.Err() }

// ResetDiag clears the diagnostic slot — called at the top of every
// dispatch so a stale diagnostic from a prior call on the same task
// can never leak into a successful one.
func (t *Task) ResetDiag() { t.Diag.Reset() }
