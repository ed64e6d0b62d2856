// Package debug provides lightweight invariant assertions that can be
// switched off at run time through Enabled. Only invariants that cannot hold without
// corruption (see cmn/cos error taxonomy) should panic; everything
// else is reported through the normal error channel.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package debug

import (
	"fmt"
)

// Enabled gates all assertion evaluation. It defaults to true and
// nothing in this repository changes it, so assertions are evaluated
// in every build.
var Enabled = true

// Assert panics with msgAndArgs if cond is false and assertions are
// enabled. Reserved for invariants that cannot hold without corruption.
func Assert(cond bool, msgAndArgs ...any) {
	if !Enabled || cond {
		return
	}
	panic(fmtMsg(msgAndArgs))
}

// AssertNoErr panics if err is non-nil. Use only for programmer errors
// (malformed static state), never for expected failures.
func AssertNoErr(err error) {
	if !Enabled || err == nil {
		return
	}
	panic(err)
}

// Func runs f only when assertions are enabled — for invariant checks
// too expensive to evaluate unconditionally.
func Func(f func()) {
	if Enabled {
		f()
	}
}

func fmtMsg(args []any) string {
	if len(args) == 0 {
		return "assertion failed"
	}
	if s, ok := args[0].(string); ok && len(args) == 1 {
		return s
	}
	return fmt.Sprint(args...)
}
