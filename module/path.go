package module

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/karrick/godirwalk"
	cuckoo "github.com/seiflotfy/cuckoofilter"
	"github.com/sprocd/sprocd/cmn/cos"
)

// SearchFunc is the host-installed package search callback spec.md
// §4.A delegates to (the scripting host's package search). Returns an
// absolute path to the package's native library, or an error.
type SearchFunc func(pkg string) (string, error)

const pluginExt = ".so"

// PathResolver locates a module file by dotted package name (spec.md
// §4.A). It is stateless aside from an optional fallback search path
// list and a negative-lookup cache; it may be called from any task.
type PathResolver struct {
	search SearchFunc
	dirs   []string // fallback search roots, used only when search is nil

	negMu sync.Mutex
	neg   *cuckoo.Filter // remembers package names that recently resolved to "not found"
}

// NewPathResolver wires in the host search hook. dirs is an optional
// fallback search path, used only in standalone/test configurations
// where no host is present.
func NewPathResolver(search SearchFunc, dirs ...string) *PathResolver {
	return &PathResolver{
		search: search,
		dirs:   dirs,
		neg:    cuckoo.NewFilter(4096),
	}
}

// SetSearch installs or replaces the host search callback at runtime.
func (p *PathResolver) SetSearch(s SearchFunc) { p.search = s }

// Resolve returns an absolute filesystem path for pkg's native
// library. Failure modes per spec.md §4.A: not found (client error,
// cos.KindLoadModule) and canonicalization failure (system error).
func (p *PathResolver) Resolve(pkg string) (string, error) {
	if p.seenMissing(pkg) {
		return "", cos.NewLoadModule("package not found (cached miss): "+pkg, nil)
	}

	var (
		path string
		err  error
	)
	if p.search != nil {
		path, err = p.search(pkg)
	} else {
		path, err = p.walkDirs(pkg)
	}
	if err != nil {
		p.rememberMissing(pkg)
		return "", cos.NewLoadModule("package search failed for "+pkg, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", cos.NewSystemError("canonicalizing "+path, err)
	}
	return abs, nil
}

// walkDirs is the fallback lookup used when no host search callback
// is installed: it walks each configured root for
// "<dotted-pkg-as-path>.so", grounded on the teacher's domain
// dependency on github.com/karrick/godirwalk for fast directory
// traversal.
func (p *PathResolver) walkDirs(pkg string) (string, error) {
	rel := strings.ReplaceAll(pkg, ".", string(filepath.Separator)) + pluginExt
	for _, root := range p.dirs {
		var found string
		err := godirwalk.Walk(root, &godirwalk.Options{
			Callback: func(path string, de *godirwalk.Dirent) error {
				if !de.IsDir() && filepath.ToSlash(path) == filepath.ToSlash(filepath.Join(root, rel)) {
					found = path
					return filepath.SkipDir
				}
				return nil
			},
			Unsorted: true,
		})
		if err != nil && !os.IsNotExist(err) {
			return "", err
		}
		if found != "" {
			return found, nil
		}
	}
	return "", os.ErrNotExist
}

func (p *PathResolver) seenMissing(pkg string) bool {
	p.negMu.Lock()
	defer p.negMu.Unlock()
	return p.neg.Lookup([]byte(pkg))
}

func (p *PathResolver) rememberMissing(pkg string) {
	p.negMu.Lock()
	defer p.negMu.Unlock()
	p.neg.InsertUnique([]byte(pkg))
}

// forgetMissing is called after a successful load_or_get so a package
// that later appears on disk isn't shadowed by a stale negative entry.
func (p *PathResolver) forgetMissing(pkg string) {
	p.negMu.Lock()
	defer p.negMu.Unlock()
	p.neg.Delete([]byte(pkg))
}
