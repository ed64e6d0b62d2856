package module

import (
	"sync"

	"github.com/OneOfOne/xxhash"
	"github.com/sprocd/sprocd/cmn/atomic"
	"github.com/sprocd/sprocd/cmn/cos"
	"github.com/sprocd/sprocd/cmn/debug"
	"golang.org/x/sync/singleflight"
)

// Symbol (S) is a resolved entry point inside a module (spec.md §3).
// Shared among every caller that resolves the same (module, name)
// pair, intrusively linked into its owning module's symbol list so
// the module can be walked without a second index.
type Symbol struct {
	module *Module
	name   string
	entry  EntryPoint
	refs   atomic.Int64
	key    symKey // this Symbol's Registry.table key, for bucket removal

	// intrusive doubly linked list, anchored in module.symbols
	prev, next *Symbol
}

func (s *Symbol) Module() *Module  { return s.module }
func (s *Symbol) Name() string     { return s.name }
func (s *Symbol) Addr() EntryPoint { return s.entry }
func (s *Symbol) Refs() int64      { return s.refs.Load() }

// symlist is the intrusive list head kept on every Module (spec.md §9
// "Intrusive lists"). nil head means empty.
type symlist struct {
	head *Symbol
	n    int
}

func (l *symlist) pushFront(s *Symbol) {
	s.next = l.head
	s.prev = nil
	if l.head != nil {
		l.head.prev = s
	}
	l.head = s
	l.n++
}

func (l *symlist) remove(s *Symbol) {
	if s.prev != nil {
		s.prev.next = s.next
	} else {
		debug.Assert(l.head == s)
		l.head = s.next
	}
	if s.next != nil {
		s.next.prev = s.prev
	}
	s.prev, s.next = nil, nil
	l.n--
}

func (l *symlist) empty() bool { return l.head == nil }

// symKey is the Symbol cache's composite key: (module_id, package,
// symbol_name), per spec.md §3 — keyed so a reloaded module's new id
// always yields a distinct Symbol even for the same name.
type symKey struct {
	moduleID int64
	pkg      string
	name     string
}

// hash accelerates table lookup (SPEC_FULL §4.D); equality on a hash
// hit still falls back to the full key comparison via the map itself,
// the hash is never the source of truth.
func (k symKey) hash() uint64 {
	h := xxhash.New64()
	h.WriteString(k.pkg)
	h.Write([]byte{0})
	h.WriteString(k.name)
	h.Write([]byte{0})
	var idBuf [8]byte
	for i := range idBuf {
		idBuf[i] = byte(k.moduleID >> (8 * i))
	}
	h.Write(idBuf[:])
	return h.Sum64()
}

// Registry is the symbol cache (SC), component D. One Registry is
// owned by the subsystem handle (module.Subsystem) alongside its
// Cache, matching spec.md §9's "explicit state owned by a subsystem
// handle rather than truly global variables."
//
// table is bucketed by symKey.hash() rather than keyed by symKey
// directly (SPEC_FULL §4.D's "xxhash-accelerated composite key"):
// lookup computes the hash once and only compares the handful of
// symKeys sharing that bucket, instead of hashing the composite key a
// second time the way a map[symKey]*Symbol would internally. A bucket
// holds more than one Symbol only on an xxhash collision; equality on
// the full symKey, never the hash, is what actually picks the winner.
type Registry struct {
	mu    sync.Mutex // guards the map only; see the locking note in DESIGN.md
	table map[uint64][]*Symbol
	group singleflight.Group

	// onModuleReleased is invoked whenever releasing a Symbol drops its
	// module's refcount to zero (spec.md §4.E: "releasing a module's
	// last symbol releases the module's own reference"). Wired by
	// Subsystem to Cache.cleanupModule; nil in standalone tests.
	onModuleReleased func(*Module)
}

func NewRegistry() *Registry {
	return &Registry{table: make(map[uint64][]*Symbol)}
}

// lookupLocked returns the Symbol for key, if any. Caller holds r.mu.
func (r *Registry) lookupLocked(key symKey) (*Symbol, bool) {
	for _, s := range r.table[key.hash()] {
		if s.key == key {
			return s, true
		}
	}
	return nil, false
}

// insertLocked adds s to its hash bucket. Caller holds r.mu.
func (r *Registry) insertLocked(s *Symbol) {
	h := s.key.hash()
	r.table[h] = append(r.table[h], s)
}

// removeLocked drops s from its hash bucket. Caller holds r.mu.
func (r *Registry) removeLocked(s *Symbol) {
	h := s.key.hash()
	bucket := r.table[h]
	for i, cand := range bucket {
		if cand == s {
			bucket[i] = bucket[len(bucket)-1]
			bucket = bucket[:len(bucket)-1]
			break
		}
	}
	if len(bucket) == 0 {
		delete(r.table, h)
	} else {
		r.table[h] = bucket
	}
}

// Resolve implements spec.md §4.D: return a shared, refcounted Symbol
// for (module, symbolName), loading it lazily on first demand. When
// resolution fails it invokes onFirstLoadFailure, which lets the
// caller decide whether to roll the module back out of the cache
// (Subsystem.Resolve does so only for a module with no resolved
// symbols).
func (r *Registry) Resolve(m *Module, symbolName string, onFirstLoadFailure func()) (*Symbol, error) {
	key := symKey{moduleID: m.id, pkg: m.pkg, name: symbolName}

	r.mu.Lock()
	if s, ok := r.lookupLocked(key); ok {
		s.refs.Inc()
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	// Coalesce concurrent first-resolutions of the same key across a
	// yield point (SPEC_FULL §4.C/§4.D) so dlsym only runs once.
	sfKey := keyString(key)
	v, err, _ := r.group.Do(sfKey, func() (any, error) {
		r.mu.Lock()
		if s, ok := r.lookupLocked(key); ok {
			r.mu.Unlock()
			return s, nil
		}
		r.mu.Unlock()

		entry, lookupErr := m.lookupEntry(symbolName)
		if lookupErr != nil {
			if onFirstLoadFailure != nil {
				onFirstLoadFailure()
			}
			return nil, cos.NewLoadFunction("symbol not found: "+symbolName, lookupErr)
		}

		s := &Symbol{module: m, name: symbolName, entry: entry, key: key}

		r.mu.Lock()
		r.insertLocked(s)
		r.mu.Unlock()

		m.symbols.pushFront(s) // component E: adding a symbol increments the module's refcount by 1
		m.refs.Inc()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	s := v.(*Symbol)
	// Every caller sharing this singleflight result — the one that
	// ran fn and every one that merely waited on it — owns exactly one
	// reference and must release it once (spec.md §4.E).
	s.refs.Inc()
	return s, nil
}

// Release drops the caller's reference to s (spec.md §4.E). Returns
// true if this was the last reference and s has been fully detached
// and freed.
func (r *Registry) Release(s *Symbol) bool {
	if s.refs.Dec() > 0 {
		return false
	}
	r.mu.Lock()
	r.removeLocked(s)
	r.mu.Unlock()

	m := s.module
	m.symbols.remove(s)
	if m.refs.Dec() == 0 && r.onModuleReleased != nil {
		r.onModuleReleased(m)
	}
	return true
}

func keyString(k symKey) string {
	b := make([]byte, 0, len(k.pkg)+len(k.name)+24)
	b = append(b, k.pkg...)
	b = append(b, 0)
	b = append(b, k.name...)
	b = append(b, 0)
	for i := 0; i < 8; i++ {
		b = append(b, byte(k.moduleID>>(8*i)))
	}
	return string(b)
}
