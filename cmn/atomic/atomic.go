// Package atomic re-exports the counter types this codebase uses for
// lock-free state shared across cooperative tasks, matching the
// teacher's own cmn/atomic shape (Int64, Int32, Bool) over a real
// published atomics library rather than sync/atomic's raw functions.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package atomic

import "go.uber.org/atomic"

type (
	Int64 = atomic.Int64
	Int32 = atomic.Int32
	Bool  = atomic.Bool
)

func NewInt64(v int64) *Int64 { return atomic.NewInt64(v) }
func NewInt32(v int32) *Int32 { return atomic.NewInt32(v) }
func NewBool(v bool) *Bool    { return atomic.NewBool(v) }
