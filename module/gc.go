package module

import (
	"sync"
	"time"

	"github.com/sprocd/sprocd/cmn/nlog"
)

// orphanGC periodically sweeps the orphan set and reports entries that
// have outlived sweepWarnAfter, a diagnostic-only signal that a
// symbol or dispatch pin is being leaked somewhere upstream (nothing
// here ever forcibly frees a module — Go's plugin package has no
// unload primitive, see DESIGN.md). Structurally grounded on the
// teacher's space/cleanup.go: a parent coordinating a fixed pass over
// a mutex-guarded collection, gated by a WaitGroup, run on a timer
// instead of on demand.
type orphanGC struct {
	cache        *Cache
	interval     time.Duration
	warnAfter    time.Duration
	firstSeen    map[int64]time.Time
	mu           sync.Mutex
	stop         chan struct{}
	wg           sync.WaitGroup
}

const (
	defaultGCInterval  = 30 * time.Second
	defaultGCWarnAfter = 10 * time.Minute
)

// StartOrphanGC launches the background sweep and returns a stop func.
func (c *Cache) StartOrphanGC() func() {
	g := &orphanGC{
		cache:     c,
		interval:  defaultGCInterval,
		warnAfter: defaultGCWarnAfter,
		firstSeen: make(map[int64]time.Time),
		stop:      make(chan struct{}),
	}
	g.wg.Add(1)
	go g.run()
	return g.stopAndWait
}

func (g *orphanGC) stopAndWait() {
	close(g.stop)
	g.wg.Wait()
}

func (g *orphanGC) run() {
	defer g.wg.Done()
	t := time.NewTicker(g.interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			g.sweep()
		case <-g.stop:
			return
		}
	}
}

// sweep walks the current orphan set once, the way a cleanup jogger
// walks its mountpath once per pass, and logs anything that has sat
// orphaned longer than warnAfter.
func (g *orphanGC) sweep() {
	g.cache.mu.Lock()
	snapshot := make([]*Module, 0, len(g.cache.orphans))
	for _, m := range g.cache.orphans {
		snapshot = append(snapshot, m)
	}
	g.cache.mu.Unlock()

	now := time.Now()
	live := make(map[int64]struct{}, len(snapshot))
	for _, m := range snapshot {
		live[m.id] = struct{}{}
		g.mu.Lock()
		first, ok := g.firstSeen[m.id]
		if !ok {
			g.firstSeen[m.id] = now
			g.mu.Unlock()
			continue
		}
		g.mu.Unlock()
		if now.Sub(first) > g.warnAfter {
			nlog.Warningf("module: orphan %s (id=%d) has held %d references for over %s, possible leak",
				m.Pkg(), m.ID(), m.Refs(), g.warnAfter)
		}
	}

	g.mu.Lock()
	for id := range g.firstSeen {
		if _, ok := live[id]; !ok {
			delete(g.firstSeen, id)
		}
	}
	g.mu.Unlock()
}
