package dispatch

import (
	"testing"

	"github.com/sprocd/sprocd/internal/tassert"
)

func TestPortAppendTupleAccumulates(t *testing.T) {
	p := NewPort()
	tassert.CheckFatal(t, p.AppendTuple("hello"))
	tassert.CheckFatal(t, p.AppendTuple(42))

	tassert.Fatalf(t, p.Fragments() == 2, "expected 2 fragments, got %d", p.Fragments())

	b, compressed, err := p.WireBytes()
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, !compressed, "small payloads should not be lz4-framed")
	tassert.Fatalf(t, len(b) > 0, "expected non-empty wire bytes")
}

func TestPortResetClearsState(t *testing.T) {
	p := NewPort()
	tassert.CheckFatal(t, p.AppendTuple("x"))
	p.Reset()
	tassert.Fatalf(t, p.Fragments() == 0, "expected fragments reset to 0")
	b, _, err := p.WireBytes()
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, len(b) == 0, "expected empty buffer after Reset")
}

func TestPortCompressesLargePayload(t *testing.T) {
	p := NewPort()
	p.compressThreshold = 16
	big := make([]byte, 1024)
	tassert.CheckFatal(t, p.AppendFragment(big))

	_, compressed, err := p.WireBytes()
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, compressed, "expected a payload past compressThreshold to be lz4-framed")
}

func TestPortRawBytesNeverCompressesRegardlessOfThreshold(t *testing.T) {
	p := NewPort()
	p.compressThreshold = 16
	big := make([]byte, 1024)
	tassert.CheckFatal(t, p.AppendFragment(big))

	raw := p.RawBytes()
	tassert.Fatalf(t, len(raw) == len(big), "expected RawBytes to return the uncompressed argument buffer verbatim, got len=%d", len(raw))
}
