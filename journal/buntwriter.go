package journal

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sprocd/sprocd/cmn/cos"
	"github.com/tidwall/buntdb"
)

// BuntWriter is the default LogWriter: an embedded, file-backed
// key/value store appended to monotonically, grounded on the
// examples pack's domain dependency on github.com/tidwall/buntdb
// (chosen over a bespoke append-only file format the way the teacher
// chooses an off-the-shelf dependency for every non-core concern).
type BuntWriter struct {
	db  *buntdb.DB
	seq int64
}

// NewBuntWriter opens (creating if absent) a BuntDB file at path. Use
// ":memory:" for an ephemeral, disk-free journal in tests.
func NewBuntWriter(path string) (*BuntWriter, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, cos.NewSystemError("opening journal store at "+path, err)
	}
	return &BuntWriter{db: db}, nil
}

// Write appends payload under a monotonically increasing key so
// Replay can iterate entries back out in admission order.
func (w *BuntWriter) Write(payload []byte) error {
	seq := atomic.AddInt64(&w.seq, 1)
	key := "entry:" + padInt(seq) + ":" + strconv.FormatInt(time.Now().UnixNano(), 10)
	err := w.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, string(payload), nil)
		return err
	})
	if err != nil {
		return cos.NewSystemError("appending journal entry", err)
	}
	return nil
}

// Replay iterates every stored entry in key (admission) order,
// invoking fn with each payload. Only the tests call it; sprocd does
// not replay the journal at startup.
func (w *BuntWriter) Replay(fn func(payload []byte) error) error {
	var outerErr error
	err := w.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("", func(key, value string) bool {
			if ferr := fn([]byte(value)); ferr != nil {
				outerErr = ferr
				return false
			}
			return true
		})
	})
	if err != nil {
		return cos.NewSystemError("replaying journal store", err)
	}
	return outerErr
}

func (w *BuntWriter) Close() error { return w.db.Close() }

// padInt zero-pads seq so BuntDB's lexicographic Ascend order matches
// numeric admission order.
func padInt(seq int64) string {
	s := strconv.FormatInt(seq, 10)
	const width = 19 // max digits of a positive int64
	for len(s) < width {
		s = "0" + s
	}
	return s
}

var _ LogWriter = (*BuntWriter)(nil)
