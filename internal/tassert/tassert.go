// Package tassert is a minimal port of the teacher's own test-helper
// shape (referenced throughout ais/test/common_test.go as
// "github.com/NVIDIA/aistore/tools/tassert": tassert.CheckFatal,
// tassert.Fatalf) — the helper itself wasn't part of the retrieved
// pack, so this rebuilds the same small call surface used across this
// repository's tests.
package tassert

import "testing"

// CheckFatal fails the test immediately if err is non-nil.
func CheckFatal(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// Fatalf fails the test immediately if cond is false.
func Fatalf(t *testing.T, cond bool, f string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(f, args...)
	}
}

// Errorf reports (without aborting) if cond is false.
func Errorf(t *testing.T, cond bool, f string, args ...any) {
	t.Helper()
	if !cond {
		t.Errorf(f, args...)
	}
}
