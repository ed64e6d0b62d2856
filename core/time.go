package core

import "github.com/sprocd/sprocd/cmn/mono"

// NowNano returns a monotonic timestamp for latency measurement
// (dispatch.Call step 6 timing), grounded on the teacher's own
// monotonic-clock wrapper, cmn/mono.
func NowNano() int64 { return mono.NanoTime() }
