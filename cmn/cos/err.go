/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	goerrors "errors"
	"fmt"
	"os"
	"sync"
	"syscall"

	"github.com/pkg/errors"
)

// Error kinds surfaced at the ABI boundary (spec §6, §7). Every
// fallible call in this codebase returns one of these (wrapped in a
// *RtError, held by core.Task's diagnostic slot) rather than an ad hoc
// error value, so the dispatcher and callers above it can always
// answer "what kind of failure was this" without string-matching.
type Kind int

const (
	KindOutOfMemory Kind = iota
	KindSystemError
	KindIllegalParams
	KindLoadModule
	KindLoadFunction
	KindNoSuchModule
	KindProcC
	KindAccessDenied
)

func (k Kind) String() string {
	switch k {
	case KindOutOfMemory:
		return "OutOfMemory"
	case KindSystemError:
		return "SystemError"
	case KindIllegalParams:
		return "IllegalParams"
	case KindLoadModule:
		return "ClientError.LoadModule"
	case KindLoadFunction:
		return "ClientError.LoadFunction"
	case KindNoSuchModule:
		return "ClientError.NoSuchModule"
	case KindProcC:
		return "ClientError.ProcC"
	case KindAccessDenied:
		return "ClientError.AccessDenied"
	default:
		return "Unknown"
	}
}

// RtError is the one error type this runtime ever returns across the
// core's public surface — a tagged kind plus message, optionally
// wrapping a lower-level cause (e.g. a syscall failure, stack-annotated
// via github.com/pkg/errors so a log line can show the origin frame).
type RtError struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *RtError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *RtError) Unwrap() error { return e.Cause }

func NewOutOfMemory(msg string) *RtError { return &RtError{Kind: KindOutOfMemory, Msg: msg} }

func NewIllegalParams(msg string) *RtError { return &RtError{Kind: KindIllegalParams, Msg: msg} }

func NewLoadModule(msg string, cause error) *RtError {
	return &RtError{Kind: KindLoadModule, Msg: msg, Cause: cause}
}

func NewLoadFunction(msg string, cause error) *RtError {
	return &RtError{Kind: KindLoadFunction, Msg: msg, Cause: cause}
}

func NewNoSuchModule(pkg string) *RtError {
	return &RtError{Kind: KindNoSuchModule, Msg: "no such module: " + pkg}
}

func NewProcC(msg string) *RtError { return &RtError{Kind: KindProcC, Msg: msg} }

func NewAccessDenied(user, fn string) *RtError {
	return &RtError{Kind: KindAccessDenied, Msg: fmt.Sprintf("user %q may not execute %q", user, fn)}
}

// NewSystemError wraps a syscall/OS failure with a stack-carrying
// cause (github.com/pkg/errors) so a diagnostic dump can show where
// the syscall actually failed, not just where it was reported.
func NewSystemError(msg string, cause error) *RtError {
	return &RtError{Kind: KindSystemError, Msg: msg, Cause: errors.WithStack(cause)}
}

func IsKind(err error, k Kind) bool {
	var rt *RtError
	if goerrors.As(err, &rt) {
		return rt.Kind == k
	}
	return false
}

///////////////
// ErrValue  //
///////////////

// ErrValue is a last-error slot with a duplicate counter, matching the
// teacher's own cmn/cos.ErrValue. core.Task's diagnostic slot is built
// directly on this type: "sentinel return => slot is set" (spec §7) is
// store-on-first-write, count-the-rest.
type ErrValue struct {
	mu  sync.Mutex
	err error
	cnt int64
}

func (ea *ErrValue) Store(err error) {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	ea.cnt++
	if ea.cnt == 1 {
		ea.err = err
	}
}

func (ea *ErrValue) Err() error {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	if ea.err == nil {
		return nil
	}
	if ea.cnt > 1 {
		return fmt.Errorf("%w (cnt=%d)", ea.err, ea.cnt)
	}
	return ea.err
}

func (ea *ErrValue) Reset() {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	ea.err = nil
	ea.cnt = 0
}

////////////////////////
// IS-syscall helpers //
////////////////////////

func IsErrConnectionRefused(err error) bool { return goerrors.Is(err, syscall.ECONNREFUSED) }
func IsErrBrokenPipe(err error) bool        { return goerrors.Is(err, syscall.EPIPE) }
func IsErrOOS(err error) bool               { return goerrors.Is(err, syscall.ENOSPC) }

//////////////////////////
// Abnormal Termination //
//////////////////////////

// Exitf writes a formatted message to stderr and exits with non-zero status.
func Exitf(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f, a...)
	fmt.Fprintln(os.Stderr)
	os.Exit(1)
}
