// Package mono supplies a monotonic clock reading for progress- and
// timeout-tracking, matching the teacher's own cmn/mono.NanoTime call
// sites (xact/xs/sentinel.go).
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import "time"

var start = time.Now()

// NanoTime returns nanoseconds elapsed since process start — cheap,
// monotonic, and never subject to wall-clock adjustment.
func NanoTime() int64 { return time.Since(start).Nanoseconds() }
