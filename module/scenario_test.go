package module

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sprocd/sprocd/cmn/cos"
)

// These specs exercise the composite scenarios spec.md §8 describes at
// the level the cache and registry can be driven without a real
// compiled plugin: Module.lookupFn stands in for "step B" (the actual
// dlopen/dlsym work loader.go and plugin.Open perform), everything
// above that line — lazy resolution, reload-swap bookkeeping,
// bad-symbol rollback, attribute-change detection — runs for real.
var _ = Describe("lazy symbol resolution", func() {
	It("loads and shares a symbol only on first demand", func() {
		sub := NewSubsystem(NewPathResolver(nil), "")
		m := newTestModule(1, "acme.util")
		sub.Cache.Put(m)

		s1, err := sub.Resolve("acme.util", "do_thing")
		Expect(err).NotTo(HaveOccurred())
		s2, err := sub.Resolve("acme.util", "do_thing")
		Expect(err).NotTo(HaveOccurred())

		Expect(s1).To(BeIdenticalTo(s2))
		Expect(s1.Refs()).To(BeNumerically("==", 2))
		Expect(m.Refs()).To(BeNumerically("==", 1), "one symbol should hold exactly one module reference")
	})
})

var _ = Describe("reload swap under load", func() {
	It("keeps the old module alive for holders while new resolves see the new one", func() {
		sub := NewSubsystem(NewPathResolver(nil), "")
		oldMod := newTestModule(1, "acme.util")
		sub.Cache.Put(oldMod)

		held, err := sub.Resolve("acme.util", "do_thing")
		Expect(err).NotTo(HaveOccurred())
		Expect(held.Module().ID()).To(Equal(int64(1)))

		// simulate what Cache.reload does once a fresh attribute check
		// fails: orphan the stale entry, cache the new one under the
		// same package name.
		newMod := newTestModule(2, "acme.util")
		sub.Cache.orphan(oldMod)
		sub.Cache.Put(newMod)

		cur, ok := sub.Cache.Find("acme.util")
		Expect(ok).To(BeTrue())
		Expect(cur.ID()).To(Equal(int64(2)), "new lookups must see the swapped-in module")

		fresh, err := sub.Resolve("acme.util", "do_thing")
		Expect(err).NotTo(HaveOccurred())
		Expect(fresh.Module().ID()).To(Equal(int64(2)))

		// the in-flight call's symbol still points at the orphaned module.
		Expect(held.Module().ID()).To(Equal(int64(1)))
		Expect(held.Module().State()).To(Equal(Orphan))

		sub.Release(held)
		sub.Release(fresh)
	})
})

var _ = Describe("bad symbol rollback", func() {
	It("orphans a freshly cached module when its only resolve attempt fails", func() {
		sub := NewSubsystem(NewPathResolver(nil), "")
		m := newTestModule(1, "acme.broken")
		m.lookupFn = func(string) (EntryPoint, error) { return nil, errBadSymbolType("missing_fn") }
		sub.Cache.Put(m)

		_, err := sub.Resolve("acme.broken", "missing_fn")
		Expect(err).To(HaveOccurred())

		_, stillCached := sub.Cache.Find("acme.broken")
		Expect(stillCached).To(BeFalse(), "a module whose first symbol failed to resolve must be rolled out of the cache")
		Expect(m.Refs()).To(BeNumerically("==", 0), "the tentative LoadOrGet reference must be released on rollback")
	})
})

var _ = Describe("attribute-change detection", func() {
	var (
		dir  string
		path string
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "sprocd-attrs-*")
		Expect(err).NotTo(HaveOccurred())
		path = filepath.Join(dir, "acme.util.so")
		Expect(os.WriteFile(path, []byte("v1"), 0o644)).To(Succeed())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	It("reports fresh while the file is untouched and stale once it changes", func() {
		resolver := NewPathResolver(func(string) (string, error) { return path, nil })
		cache := NewCache(resolver, dir)

		attrs, err := cos.Stat(path)
		Expect(err).NotTo(HaveOccurred())
		cached := newTestModule(1, "acme.util")
		cached.attrs = attrs
		cache.Put(cached)

		fresh, err := cache.checkCurrent("acme.util", cached)
		Expect(err).NotTo(HaveOccurred())
		Expect(fresh).To(BeTrue())

		// force a distinguishable mtime/size change.
		time.Sleep(10 * time.Millisecond)
		Expect(os.WriteFile(path, []byte("v2-longer-payload"), 0o644)).To(Succeed())

		fresh, err = cache.checkCurrent("acme.util", cached)
		Expect(err).NotTo(HaveOccurred())
		Expect(fresh).To(BeFalse(), "a changed size/mtime must invalidate the cached attrs")
	})
})
