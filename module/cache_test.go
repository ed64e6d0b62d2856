package module

import (
	"testing"

	"github.com/sprocd/sprocd/internal/tassert"
)

func TestCachePutFindDelete(t *testing.T) {
	c := NewCache(nil, "")
	m := newTestModule(1, "acme.util")

	_, ok := c.Find("acme.util")
	tassert.Fatalf(t, !ok, "expected a miss before Put")

	c.Put(m)
	got, ok := c.Find("acme.util")
	tassert.Fatalf(t, ok, "expected a hit after Put")
	tassert.Fatalf(t, got == m, "expected Find to return the same Module pointer")

	c.Delete("acme.util")
	_, ok = c.Find("acme.util")
	tassert.Fatalf(t, !ok, "expected a miss after Delete")
}

func TestCacheOrphanReplacesPkgEntry(t *testing.T) {
	c := NewCache(nil, "")
	old := newTestModule(1, "acme.util")
	c.Put(old)

	c.orphan(old)
	_, ok := c.Find("acme.util")
	tassert.Fatalf(t, !ok, "orphaning should remove the module from the pkg map")
	tassert.Fatalf(t, old.State() == Orphan, "expected state to flip to Orphan")

	snap := c.Snapshot()
	tassert.Fatalf(t, len(snap) == 1, "expected the orphan to show up in Snapshot, got %d entries", len(snap))
}

func TestCachePinUnpinRunsCleanupOnLastRef(t *testing.T) {
	c := NewCache(nil, "")
	m := newTestModule(1, "acme.util")
	c.Put(m)
	c.orphan(m)
	m.refs.Inc() // simulate one outstanding dispatch pin

	last := c.Unpin(m)
	tassert.Fatalf(t, last, "expected Unpin to report the last reference")

	snap := c.Snapshot()
	for _, v := range snap {
		tassert.Fatalf(t, v.ID != m.id, "expected orphan bookkeeping to be cleared after Unpin reached zero")
	}
}
