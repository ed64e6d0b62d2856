package journal

import (
	"testing"

	"github.com/sprocd/sprocd/internal/tassert"
)

func TestBuntWriterWriteReplayRoundTrip(t *testing.T) {
	w, err := NewBuntWriter(":memory:")
	tassert.CheckFatal(t, err)
	defer w.Close()

	want := [][]byte{[]byte("first"), []byte("second"), []byte("third")}
	for _, p := range want {
		tassert.CheckFatal(t, w.Write(p))
	}

	var got [][]byte
	err = w.Replay(func(payload []byte) error {
		got = append(got, append([]byte(nil), payload...))
		return nil
	})
	tassert.CheckFatal(t, err)

	tassert.Fatalf(t, len(got) == len(want), "expected %d replayed entries, got %d", len(want), len(got))
	for i := range want {
		tassert.Fatalf(t, string(got[i]) == string(want[i]),
			"expected entry %d to replay as %q in admission order, got %q", i, want[i], got[i])
	}
}

func TestPadIntPreservesLexicographicOrder(t *testing.T) {
	a := padInt(9)
	b := padInt(10)
	tassert.Fatalf(t, a < b, "expected padInt(9) < padInt(10) lexicographically, got %q >= %q", a, b)
	tassert.Fatalf(t, len(a) == len(b), "expected equal-width zero-padded keys, got %d vs %d", len(a), len(b))
}
