package core

import "runtime"

// Sched is a single driving goroutine: work submitted through Run
// executes strictly one at a time on Sched's own goroutine.
//
// Nothing in this repository currently submits work to a Sched. The
// module cache, symbol registry, and journal queue are called directly
// from the caller's goroutine and guard their own state with a
// sync.Mutex; an entry point runs as an ordinary function call on the
// caller's goroutine.
type Sched struct {
	work chan func()
	stop chan struct{}
}

func NewSched() *Sched {
	s := &Sched{work: make(chan func(), 256), stop: make(chan struct{})}
	go s.loop()
	return s
}

func (s *Sched) loop() {
	for {
		select {
		case fn := <-s.work:
			fn()
		case <-s.stop:
			return
		}
	}
}

// Run submits fn to the driving goroutine and blocks the caller until
// it has completed. Safe to call from any goroutine, including from
// inside an entry point that re-enters the subsystem (e.g. a script
// calling back to resolve another function) — fn simply queues behind
// whatever is already running.
func (s *Sched) Run(fn func()) {
	done := make(chan struct{})
	s.work <- func() {
		fn()
		close(done)
	}
	<-done
}

// Stop halts the driving goroutine. Queued work that hasn't run yet is
// discarded; callers blocked in Run for a not-yet-run fn will hang, so
// Stop is only ever called during an orderly subsystem shutdown after
// all in-flight calls have been drained.
func (s *Sched) Stop() { close(s.stop) }

// Yield hands the OS thread to another goroutine without blocking on
// anything — the cooperative-yield point an entry point calls between
// logical steps of a long-running computation. Mirrors the teacher's
// own "poor-man's jitter" use of runtime.Gosched (transport/base.go).
func Yield() { runtime.Gosched() }
