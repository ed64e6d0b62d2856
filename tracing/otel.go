//go:build oteltracing

// Package tracing, OTEL-backed build. Exports spans through the
// standard OTLP gRPC exporter, matching the dependency set the
// examples pack carries for this purpose
// (go.opentelemetry.io/otel/sdk, .../otlp/otlptrace/otlptracegrpc).
/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	initOnce sync.Once
	tracer   trace.Tracer
)

func initTracer() {
	exporter, err := otlptracegrpc.New(context.Background())
	if err != nil {
		tracer = otel.Tracer("sprocd")
		return
	}
	res, _ := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceName("sprocd")),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	tracer = tp.Tracer("sprocd")
}

// StartSpan begins a span named name over component (e.g.
// "dispatch.Call", "pkg.fn") and returns the func the caller defers
// to end it.
func StartSpan(component, name string) func() {
	initOnce.Do(initTracer)
	_, span := tracer.Start(context.Background(), component+":"+name)
	return func() { span.End() }
}
