package cos

import (
	"sync"

	"github.com/teris-io/shortid"
)

// idGen is process-wide; shortid's generator is not safe for
// concurrent use without external locking.
var (
	idMu  sync.Mutex
	idGen *shortid.Shortid
)

func init() {
	g, err := shortid.New(1, shortid.DefaultABC, 0xBADC0DE)
	if err != nil {
		panic(err) // cannot happen with the default alphabet
	}
	idGen = g
}

// GenID returns a short, collision-resistant random string suitable
// for scratch-directory suffixes and module/task identifiers.
func GenID() string {
	idMu.Lock()
	defer idMu.Unlock()
	id, err := idGen.Generate()
	if err != nil {
		// shortid only fails after exhausting its internal worker/seq
		// space across trillions of calls; treat as an invariant
		// violation and panic.
		panic(err)
	}
	return id
}
