// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry wires the OpenTelemetry tracer and meter used across
// the dispatcher and transport layers into a single handle that
// can be threaded through context.Context.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/mcphost/mcphost"

// Instrumentation bundles the tracer and the request/session counters that
// handlers and transports record against. It satisfies
// internal/util.Instrumentation so it can travel in a context.Context.
type Instrumentation struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	tracer trace.Tracer

	RequestCount      metric.Int64Counter
	RequestErrorCount metric.Int64Counter
	ActiveSessions    metric.Int64UpDownCounter
}

// New builds an Instrumentation that exports spans and metrics to w using
// the stdout exporters. A nil w discards output (useful in tests).
func New(w io.Writer) (*Instrumentation, error) {
	if w == nil {
		w = io.Discard
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("unable to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter))

	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("unable to create metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)))

	meter := mp.Meter(instrumentationName)

	requestCount, err := meter.Int64Counter("mcphost.requests",
		metric.WithDescription("count of dispatched JSON-RPC requests"))
	if err != nil {
		return nil, fmt.Errorf("unable to create request counter: %w", err)
	}
	requestErrorCount, err := meter.Int64Counter("mcphost.request_errors",
		metric.WithDescription("count of JSON-RPC requests that returned an error"))
	if err != nil {
		return nil, fmt.Errorf("unable to create request error counter: %w", err)
	}
	activeSessions, err := meter.Int64UpDownCounter("mcphost.active_sessions",
		metric.WithDescription("number of sessions currently ACTIVE"))
	if err != nil {
		return nil, fmt.Errorf("unable to create active session counter: %w", err)
	}

	return &Instrumentation{
		tracerProvider:    tp,
		meterProvider:     mp,
		tracer:            tp.Tracer(instrumentationName),
		RequestCount:      requestCount,
		RequestErrorCount: requestErrorCount,
		ActiveSessions:    activeSessions,
	}, nil
}

// Tracer returns the tracer used to start request-scoped spans.
func (i *Instrumentation) Tracer() trace.Tracer {
	return i.tracer
}

// Shutdown flushes and stops the underlying providers.
func (i *Instrumentation) Shutdown(ctx context.Context) error {
	if err := i.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("unable to shut down tracer provider: %w", err)
	}
	if err := i.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("unable to shut down meter provider: %w", err)
	}
	return nil
}
