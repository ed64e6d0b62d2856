package module

import (
	"sync"
	"sync/atomic"

	"github.com/sprocd/sprocd/cmn/cos"
	"github.com/sprocd/sprocd/cmn/debug"
	"github.com/sprocd/sprocd/cmn/nlog"
	"github.com/sprocd/sprocd/metrics"
	"golang.org/x/sync/singleflight"
)

// Cache is the module cache (MC), component C. It owns the canonical
// mapping from dotted package name to the live Module, plus every
// orphan still kept alive by outstanding symbols or in-flight calls
// (spec.md §3, §4.C, §4.E).
type Cache struct {
	mu      sync.Mutex
	byPkg   map[string]*Module
	orphans map[int64]*Module

	resolver *PathResolver
	scratch  string // staging directory for loader.copyToScratch
	nextID   int64

	group singleflight.Group
}

func NewCache(resolver *PathResolver, scratchDir string) *Cache {
	return &Cache{
		byPkg:    make(map[string]*Module),
		orphans:  make(map[int64]*Module),
		resolver: resolver,
		scratch:  scratchDir,
	}
}

// Find returns the currently-cached Module for pkg, if any (spec.md
// §4.C "find"). It does not touch the filesystem or refcount.
func (c *Cache) Find(pkg string) (*Module, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.byPkg[pkg]
	return m, ok
}

// Put inserts m as the cached module for its package, per spec.md
// §4.C "put". Any module previously cached under the same package is
// left untouched by Put itself — callers doing a reload must Orphan
// the old entry explicitly so in-flight holders keep it alive.
func (c *Cache) Put(m *Module) {
	c.mu.Lock()
	c.byPkg[m.pkg] = m
	c.mu.Unlock()
}

// Delete removes pkg's cache entry unconditionally (spec.md §4.C
// "delete"), without regard for outstanding references. LoadOrGet's
// reload path uses orphan instead so existing holders are not yanked
// out from under a call in flight.
func (c *Cache) Delete(pkg string) {
	c.mu.Lock()
	delete(c.byPkg, pkg)
	c.mu.Unlock()
}

// orphan demotes m out of the pkg-keyed map and into the orphan set,
// leaving it alive until its refcount reaches zero (spec.md §4.E,
// §9 "orphan modules"). Called while holding no module-level lock;
// safe to call even if m was already replaced in byPkg by a newer
// load, matching spec.md's id-based identity rule.
func (c *Cache) orphan(m *Module) {
	c.mu.Lock()
	if cur, ok := c.byPkg[m.pkg]; ok && cur.id == m.id {
		delete(c.byPkg, m.pkg)
	}
	m.setState(Orphan)
	c.orphans[m.id] = m
	c.mu.Unlock()
}

// releaseModuleRef drops the caller's reference to m. When the count
// reaches zero and m is an orphan, it is dropped from the orphan set;
// the underlying plugin handle is never actually unloaded (Go's
// plugin package has no close/unload primitive — DESIGN.md documents
// this as a platform constraint), so this step is purely
// bookkeeping plus a log line marking the module as collectible.
func (c *Cache) releaseModuleRef(m *Module) {
	if m.refs.Dec() > 0 {
		return
	}
	c.cleanupModule(m)
}

// cleanupModule drops m's bookkeeping entry from the orphan set once
// its refcount has already reached zero by some other path (wired as
// Registry.onModuleReleased, invoked right after releasing a symbol
// brings the count to zero — see Registry.Release).
func (c *Cache) cleanupModule(m *Module) {
	c.mu.Lock()
	delete(c.orphans, m.id)
	c.mu.Unlock()
	nlog.Infof("module: %s (id=%d) fully released, no outstanding symbols or calls", m.pkg, m.id)
}

// Pin takes the dispatch-time reference described in Module.Pin.
// Exposed on Cache (rather than left as a bare Module method) so
// every path that can drop a module's count to zero funnels through
// the same orphan-bookkeeping cleanup.
func (c *Cache) Pin(m *Module) { m.Pin() }

// Unpin drops the dispatch-time reference and, if it was the last
// one, runs the same orphan cleanup Registry.Release triggers.
// Returns whether this was the last reference.
func (c *Cache) Unpin(m *Module) bool {
	if !m.UnpinReportLast() {
		return false
	}
	c.cleanupModule(m)
	return true
}

// LoadOrGet implements the composite operation from spec.md §4.C: look
// up pkg in the cache; if present, validate its recorded file
// attributes against the file's current on-disk attributes (device,
// inode, size, mtime — the same tuple the cmn/cos.Stat shim
// normalizes across platforms) and return it unchanged on match;
// on a miss or a mismatch, resolve pkg's path, load a fresh Module,
// orphan the stale one if any, cache the new one, and return it.
//
// Concurrent LoadOrGet calls for the same pkg are coalesced with
// singleflight so a reload storm only touches the filesystem once.
func (c *Cache) LoadOrGet(pkg string) (*Module, error) {
	if cached, ok := c.Find(pkg); ok {
		fresh, err := c.checkCurrent(pkg, cached)
		if err == nil && fresh {
			cached.refs.Inc()
			metrics.CacheHits.Inc()
			return cached, nil
		}
		if err != nil {
			return nil, err
		}
		// fresh == false: attrs changed underneath us, fall through to reload.
	}

	v, err, _ := c.group.Do(pkg, func() (any, error) {
		// Re-check: another goroutine may have already completed the
		// reload while we were waiting to enter the singleflight call.
		if cached, ok := c.Find(pkg); ok {
			if fresh, err := c.checkCurrent(pkg, cached); err == nil && fresh {
				return cached, nil
			}
		}
		metrics.CacheMisses.Inc()
		return c.reload(pkg)
	})
	if err != nil {
		return nil, err
	}
	m := v.(*Module)
	m.refs.Inc()
	return m, nil
}

// checkCurrent reports whether cached's recorded attrs still match
// the file resolver.Resolve(pkg) currently names. A resolve failure
// here is treated as "can't tell, trust the cache" — LoadOrGet only
// forces a reload on a positive attribute mismatch, never merely
// because the search path momentarily failed to answer.
func (c *Cache) checkCurrent(pkg string, cached *Module) (fresh bool, err error) {
	path, rerr := c.resolver.Resolve(pkg)
	if rerr != nil {
		return true, nil
	}
	attrs, serr := cos.Stat(path)
	if serr != nil {
		return true, nil
	}
	return attrs.Equal(cached.Attrs()), nil
}

// ModuleInfo is the read-only diagnostic view debugsrv exposes over
// /modules.
type ModuleInfo struct {
	Pkg   string `json:"pkg"`
	ID    int64  `json:"id"`
	Refs  int64  `json:"refs"`
	State string `json:"state"`
}

// Snapshot returns a point-in-time view of every live-cached and
// orphaned module, for the debug/introspection surface.
func (c *Cache) Snapshot() []ModuleInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ModuleInfo, 0, len(c.byPkg)+len(c.orphans))
	for _, m := range c.byPkg {
		out = append(out, ModuleInfo{Pkg: m.pkg, ID: m.id, Refs: m.Refs(), State: m.State().String()})
	}
	for _, m := range c.orphans {
		out = append(out, ModuleInfo{Pkg: m.pkg, ID: m.id, Refs: m.Refs(), State: m.State().String()})
	}
	return out
}

func (c *Cache) reload(pkg string) (*Module, error) {
	path, err := c.resolver.Resolve(pkg)
	if err != nil {
		return nil, err
	}
	id := atomic.AddInt64(&c.nextID, 1)

	m, err := loadFromPath(pkg, path, id, c.scratch)
	if err != nil {
		return nil, err
	}

	if old, ok := c.Find(pkg); ok {
		debug.Assert(old.id != m.id)
		c.orphan(old)
	}
	c.Put(m)
	c.resolver.forgetMissing(pkg)
	return m, nil
}
