package module

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sprocd/sprocd/internal/tassert"
)

func TestSanitizePkgReplacesPathSeparators(t *testing.T) {
	tassert.Fatalf(t, sanitizePkg("acme.util") == "acme.util", "dotted names should pass through unchanged")
	tassert.Fatalf(t, sanitizePkg("acme/util\\x") == "acme_util_x", "expected / and \\ replaced with _")
}

func TestCopyToScratchProducesUniqueNeverReusedNames(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.so")
	tassert.CheckFatal(t, os.WriteFile(src, []byte("payload"), 0o644))

	dst1, cleanup1, err := copyToScratch(src, dir, "acme.util", 1)
	tassert.CheckFatal(t, err)
	dst2, cleanup2, err := copyToScratch(src, dir, "acme.util", 2)
	tassert.CheckFatal(t, err)

	tassert.Fatalf(t, dst1 != dst2, "expected two copies of the same pkg/src to land at distinct scratch paths")

	b1, err := os.ReadFile(dst1)
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, string(b1) == "payload", "expected the scratch copy to be byte-for-byte identical")

	cleanup1()
	_, statErr := os.Stat(dst1)
	tassert.Fatalf(t, os.IsNotExist(statErr), "expected cleanup to remove the scratch file")
	cleanup2()
}

func TestDigestAndIOIsDeterministicForIdenticalContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.so")
	b := filepath.Join(dir, "b.so")
	tassert.CheckFatal(t, os.WriteFile(a, []byte("same bytes"), 0o644))
	tassert.CheckFatal(t, os.WriteFile(b, []byte("same bytes"), 0o644))

	digestA, _, err := digestAndIO(a)
	tassert.CheckFatal(t, err)
	digestB, _, err := digestAndIO(b)
	tassert.CheckFatal(t, err)

	tassert.Fatalf(t, digestA == digestB, "expected identical content to produce identical digests")

	c := filepath.Join(dir, "c.so")
	tassert.CheckFatal(t, os.WriteFile(c, []byte("different bytes"), 0o644))
	digestC, _, err := digestAndIO(c)
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, digestA != digestC, "expected different content to produce a different digest")
}
