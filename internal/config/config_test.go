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

package config

import (
	"context"
	"testing"
	"time"
)

func TestParseFillsDefaultsAndOverrides(t *testing.T) {
	cfg, err := Parse(context.Background(), []byte(`
port: 9090
logLevel: DEBUG
`))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if cfg.Port != 9090 {
		t.Fatalf("got port %d, want 9090", cfg.Port)
	}
	if cfg.Address != "127.0.0.1" {
		t.Fatalf("got address %q, want the default to survive a partial file", cfg.Address)
	}
	if cfg.SessionIdleTimeout != 5*time.Minute {
		t.Fatalf("got idle timeout %s, want the default", cfg.SessionIdleTimeout)
	}
	if cfg.LogLevel.String() != "DEBUG" {
		t.Fatalf("got log level %q, want DEBUG", cfg.LogLevel.String())
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	_, err := Parse(context.Background(), []byte("bogusField: true\n"))
	if err == nil {
		t.Fatalf("expected an error for an unknown strict-mode field")
	}
}

func TestParseRejectsInvalidPort(t *testing.T) {
	_, err := Parse(context.Background(), []byte("port: 0\n"))
	if err == nil {
		t.Fatalf("expected a validation error for port 0")
	}
}

func TestLogLevelSetRejectsUnknownValue(t *testing.T) {
	var l LogLevel
	if err := l.Set("TRACE"); err == nil {
		t.Fatalf("expected an error for an unknown log level")
	}
	if err := l.Set("warn"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if l.String() != "WARN" {
		t.Fatalf("got %q, want WARN", l.String())
	}
}
