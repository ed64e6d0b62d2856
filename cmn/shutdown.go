package cmn

import (
	"sync"
	"time"

	"github.com/sprocd/sprocd/cmn/nlog"
)

// ShutdownTriggerWait bounds how long a single shutdown hook gets to
// run before sprocd stops waiting on it and moves to the next one,
// grounded on original_source/on_shutdown.c's XTM_TRIGGER_WAIT_TIME.
const ShutdownTriggerWait = 3 * time.Second

// shutdownHooks mirrors on_shutdown.c's trigger list: registered in
// call order, run in reverse on teardown. The original notes its list
// "not need mutex, because access is available only from tx thread"
// — here that single-thread guarantee comes from every registration
// happening during startup, before any goroutine fires Shutdown.
var (
	shutdownMu    sync.Mutex
	shutdownHooks []func()
)

// OnShutdown registers fn to run during Shutdown, in reverse
// registration order (on_shutdown.c's trigger_fiber_run_reverse).
func OnShutdown(fn func()) {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	shutdownHooks = append(shutdownHooks, fn)
}

// Shutdown runs every registered hook, most-recently-registered
// first, giving each up to ShutdownTriggerWait before moving on.
func Shutdown() {
	shutdownMu.Lock()
	hooks := make([]func(), len(shutdownHooks))
	copy(hooks, shutdownHooks)
	shutdownMu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		done := make(chan struct{})
		go func(fn func()) {
			defer close(done)
			fn()
		}(hooks[i])

		select {
		case <-done:
		case <-time.After(ShutdownTriggerWait):
			nlog.Warningf("cmn: shutdown hook #%d did not finish within %s", i, ShutdownTriggerWait)
		}
	}
}
