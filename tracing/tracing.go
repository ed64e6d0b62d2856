//go:build !oteltracing

// Package tracing offers support for distributed tracing utilizing
// OpenTelemetry (OTEL), gated behind the "oteltracing" build tag the
// same way the teacher's own tracing package is (tracing/unit_test.go:
// "go test -v -tags=\"debug oteltracing\""). Without the tag, every
// span is a no-op so the dispatch path never pays tracing overhead by
// default.
/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package tracing

// StartSpan begins a span named name over component, returning an end
// func the caller defers. The no-op build does no allocation beyond
// the returned closure.
func StartSpan(component, name string) func() {
	return func() {}
}
