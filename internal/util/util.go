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

// Package util holds small cross-cutting helpers threaded through
// context.Context, the way the teacher's own internal/util does.
package util

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

// instrumentationKey is the key used to store instrumentation within context
const instrumentationKey contextKey = "instrumentation"

// Instrumentation is the minimal tracer/meter handle threaded through the
// request lifecycle. It is defined here (rather than imported from the
// telemetry package) to avoid a context/telemetry import cycle; telemetry
// satisfies this shape with its concrete *Instrumentation type.
type Instrumentation interface {
	// Tracer returns the OpenTelemetry tracer used to start request spans.
	Tracer() trace.Tracer
}

// WithInstrumentation adds an Instrumentation handle into the context as a value
func WithInstrumentation(ctx context.Context, instrumentation Instrumentation) context.Context {
	return context.WithValue(ctx, instrumentationKey, instrumentation)
}

// InstrumentationFromContext retrieves the Instrumentation handle or returns an error
func InstrumentationFromContext(ctx context.Context) (Instrumentation, error) {
	if i, ok := ctx.Value(instrumentationKey).(Instrumentation); ok {
		return i, nil
	}
	return nil, fmt.Errorf("unable to retrieve instrumentation")
}
