// Package nlog is the leveled logger every other package in this
// repository writes through, matching the teacher's own cmn/nlog
// call sites (Infoln, Warningln, ErrorDepth, ...). It is backed by
// zerolog; the teacher's original wraps an internal fork of glog that
// isn't redistributable outside the source tree it ships in, so this
// rewrite grounds the same call shape on a published logger instead.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}).With().Timestamp().Logger()

// SetJSON switches from the default human-readable console output to
// structured JSON, e.g. for container deployments.
func SetJSON() { base = zerolog.New(os.Stderr).With().Timestamp().Logger() }

func Infoln(args ...any)    { base.Info().Msg(sprint(args)) }
func Warningln(args ...any) { base.Warn().Msg(sprint(args)) }
func Errorln(args ...any)   { base.Error().Msg(sprint(args)) }

func Infof(f string, args ...any)    { base.Info().Msg(fmt.Sprintf(f, args...)) }
func Warningf(f string, args ...any) { base.Warn().Msg(fmt.Sprintf(f, args...)) }
func Errorf(f string, args ...any)   { base.Error().Msg(fmt.Sprintf(f, args...)) }

// *Depth variants exist for call-site parity with the teacher; zerolog
// doesn't need an explicit frame skip for our purposes, so depth is
// accepted and ignored rather than threaded through.
func InfoDepth(_ int, args ...any)    { Infoln(args...) }
func WarningDepth(_ int, args ...any) { Warningln(args...) }
func ErrorDepth(_ int, args ...any)   { Errorln(args...) }

func sprint(args []any) string {
	return strings.TrimSuffix(fmt.Sprintln(args...), "\n")
}
