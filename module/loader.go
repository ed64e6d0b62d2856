package module

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"plugin"
	"time"

	"github.com/lufia/iostat"
	"github.com/sprocd/sprocd/cmn/cos"
	"github.com/sprocd/sprocd/cmn/nlog"
	"golang.org/x/crypto/blake2b"
)

// loadFromPath implements spec.md §4.B: stat the candidate file, copy
// it into a fresh, never-before-used scratch path (defeating both the
// platform dynamic linker's and Go's plugin.Open's path-keyed cache,
// which is what makes reload-in-place possible at all), open it, and
// clean up the scratch copy regardless of outcome.
//
// id is the caller-assigned module id (spec.md §3: "a module acquires
// a new id on every load, including a reload of the same package").
func loadFromPath(pkg, path string, id int64, scratchDir string) (*Module, error) {
	attrs, err := cos.Stat(path)
	if err != nil {
		return nil, cos.NewLoadModule("stat "+path, err)
	}

	scratch, cleanup, err := copyToScratch(path, scratchDir, pkg, id)
	if err != nil {
		return nil, cos.NewLoadModule("staging copy of "+path, err)
	}
	defer cleanup()

	digest, ioSnap, err := digestAndIO(scratch)
	if err != nil {
		// A digest failure is diagnostic-only (SPEC_FULL §4.B); the load
		// still proceeds with a zero digest.
		nlog.Warningf("module: digest failed for %s: %v", path, err)
	}

	handle, err := plugin.Open(scratch)
	if err != nil {
		return nil, cos.NewLoadModule("plugin.Open "+scratch, err)
	}

	m := &Module{
		id:      id,
		pkg:     pkg,
		handle:  handle,
		attrs:   attrs,
		digest:  digest,
		ioStats: ioSnap,
	}
	return m, nil
}

// copyToScratch copies src into a uniquely-named staging file under
// dir and returns that path plus a cleanup func that unlinks it. The
// unique name is what defeats plugin.Open's realpath-based dedup
// cache (documented platform constraint, DESIGN.md): opening the
// same realpath twice returns the already-loaded *plugin.Plugin
// rather than re-executing package init, which would silently defeat
// every reload.
func copyToScratch(src, dir, pkg string, id int64) (string, func(), error) {
	if dir == "" {
		dir = os.TempDir()
	}
	name := fmt.Sprintf("%s-%d-%s%s", sanitizePkg(pkg), id, cos.GenID(), pluginExt)
	dst := filepath.Join(dir, name)

	in, err := os.Open(src)
	if err != nil {
		return "", nil, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o755)
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return "", nil, err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", nil, err
	}

	cleanup := func() {
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			nlog.Warningf("module: failed to remove staging file %s: %v", dst, err)
		}
	}
	return dst, cleanup, nil
}

func sanitizePkg(pkg string) string {
	b := []byte(pkg)
	for i, c := range b {
		if c == '/' || c == '\\' {
			b[i] = '_'
		}
	}
	return string(b)
}

// digestAndIO takes a best-effort blake2b-256 digest of the staged
// file and reads the host's aggregate disk I/O counters immediately
// before/after, exposing a coarse read/write rate snapshot alongside
// the module (SPEC_FULL §4.B, domain dependency github.com/lufia/iostat;
// this is a host-wide counter, not attributable to this file alone,
// and is surfaced purely as an operational signal).
func digestAndIO(path string) (digest [32]byte, snap IOSnapshot, err error) {
	before, errBefore := iostat.ReadDriveStats()

	f, err := os.Open(path)
	if err != nil {
		return digest, snap, err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return digest, snap, err
	}
	start := time.Now()
	n, err := io.Copy(h, f)
	if err != nil {
		return digest, snap, err
	}
	elapsed := time.Since(start).Seconds()
	copy(digest[:], h.Sum(nil))

	after, errAfter := iostat.ReadDriveStats()
	if errBefore == nil && errAfter == nil && len(before) > 0 && len(after) > 0 && elapsed > 0 {
		snap = deltaIOSnapshot(before, after, elapsed)
	} else if n > 0 && elapsed > 0 {
		snap.ReadBytesPerSec = float64(n) / elapsed
	}
	return digest, snap, nil
}

func deltaIOSnapshot(before, after []*iostat.DriveStats, elapsed float64) IOSnapshot {
	var rd, wr uint64
	n := len(before)
	if len(after) < n {
		n = len(after)
	}
	for i := 0; i < n; i++ {
		if after[i].BytesRead >= before[i].BytesRead {
			rd += after[i].BytesRead - before[i].BytesRead
		}
		if after[i].BytesWritten >= before[i].BytesWritten {
			wr += after[i].BytesWritten - before[i].BytesWritten
		}
	}
	return IOSnapshot{
		ReadBytesPerSec:  float64(rd) / elapsed,
		WriteBytesPerSec: float64(wr) / elapsed,
	}
}
