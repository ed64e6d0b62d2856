// Package cmn holds the process-wide configuration surface, matching
// the teacher's own cmn.Config / cmn.Rom.V(level, module) shape
// (transport/base.go, stats/common.go).
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"os"
	"time"
)

// module tags for verbosity gating, mirroring cos.ModXs / cos.ModTransport.
const (
	ModModule   = "module"
	ModDispatch = "dispatch"
	ModJournal  = "journal"
	ModProc     = "proc"
)

// Config is the subsystem's only configuration surface (spec.md §6):
// max_size/max_len on the journal queue, plus the ambient knobs a
// real deployment needs (scratch dir, dispatch timeout, verbosity).
type Config struct {
	TmpDir          string        // scratch dir root for module copies; default ${TMPDIR:-/tmp}
	JournalMaxSize  int64         // bytes, i64, runtime-updatable
	JournalMaxLen   int64         // entries, i64, runtime-updatable
	DispatchTimeout time.Duration // soft call timeout; the dispatcher does not read or enforce it
	Verbosity       map[string]int
}

func DefaultConfig() *Config {
	tmp := os.Getenv("TMPDIR")
	if tmp == "" {
		tmp = "/tmp"
	}
	return &Config{
		TmpDir:          tmp,
		JournalMaxSize:  64 << 20,
		JournalMaxLen:   1024,
		DispatchTimeout: 30 * time.Second,
		Verbosity:       map[string]int{},
	}
}

// rom ("runtime operating mode") gates verbose logging per module,
// matching the teacher's package-level cmn.Rom singleton.
type rom struct{}

var Rom rom

var verbosity = map[string]int{}

// V reports whether module should log at level or more verbosely.
func (rom) V(level int, module string) bool {
	return verbosity[module] >= level
}

// SetVerbosity installs a per-module verbosity table, typically from Config.Verbosity.
func SetVerbosity(v map[string]int) { verbosity = v }
