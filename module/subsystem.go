package module

// Subsystem bundles the module cache and symbol registry behind the
// single handle the rest of the runtime depends on (spec.md §9:
// "explicit state owned by a subsystem handle rather than truly
// global variables"). There is exactly one Subsystem per sprocd
// process; dispatch and proc hold a reference to it, never to Cache
// or Registry directly.
type Subsystem struct {
	Cache    *Cache
	Registry *Registry
}

// NewSubsystem wires the cache and registry together: releasing a
// module's last symbol (Registry.Release reaching zero) feeds back
// into Cache's orphan bookkeeping so a fully-drained orphan is
// dropped from tracking (spec.md §4.E).
func NewSubsystem(resolver *PathResolver, scratchDir string) *Subsystem {
	reg := NewRegistry()
	cache := NewCache(resolver, scratchDir)
	reg.onModuleReleased = cache.cleanupModule
	return &Subsystem{Cache: cache, Registry: reg}
}

// Resolve is the composite spec.md §4.D/§4.C entry point: load_or_get
// the module, then resolve the symbol inside it. If resolution fails
// while the module has no resolved symbols — the state of a module
// that was just loaded — the module is rolled back out of the cache
// (onFirstLoadFailure); a module that already serves other symbols
// stays cached.
func (s *Subsystem) Resolve(pkg, symbolName string) (*Symbol, error) {
	m, err := s.Cache.LoadOrGet(pkg)
	if err != nil {
		return nil, err
	}
	sym, err := s.Registry.Resolve(m, symbolName, func() {
		if m.symbols.empty() {
			s.Cache.orphan(m)
		}
	})
	if err != nil {
		s.Cache.releaseModuleRef(m)
		return nil, err
	}
	// The symbol holds its own module reference, taken when it was
	// first resolved (spec.md §4.E: resolving a symbol keeps its module
	// pinned), so the reference LoadOrGet handed us is dropped here.
	// The caller releases the symbol via Release below.
	s.Cache.releaseModuleRef(m)
	return sym, nil
}

// Release returns sym's reference; see Registry.Release.
func (s *Subsystem) Release(sym *Symbol) bool {
	return s.Registry.Release(sym)
}
