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

// Package config decodes the server's YAML configuration file the way the
// teacher decodes its tools file: goccy/go-yaml in strict mode, validated
// with go-playground/validator, with logLevel/loggingFormat flag.Value
// types shared between the file and the CLI flags.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	yaml "github.com/goccy/go-yaml"
)

// LogFormat selects between the human-oriented and JSON log renderers.
type LogFormat string

func (f *LogFormat) String() string {
	if string(*f) != "" {
		return strings.ToLower(string(*f))
	}
	return "standard"
}

func (f *LogFormat) Set(v string) error {
	switch strings.ToLower(v) {
	case "standard", "json":
		*f = LogFormat(v)
		return nil
	default:
		return fmt.Errorf(`log format must be one of "standard" or "json"`)
	}
}

func (f *LogFormat) Type() string { return "logFormat" }

// LogLevel is the minimum severity logged, shared between the config file
// and the --log-level CLI flag.
type LogLevel string

func (l *LogLevel) String() string {
	if string(*l) != "" {
		return strings.ToUpper(string(*l))
	}
	return "INFO"
}

func (l *LogLevel) Set(v string) error {
	switch strings.ToUpper(v) {
	case "DEBUG", "INFO", "WARN", "ERROR":
		*l = LogLevel(v)
		return nil
	default:
		return fmt.Errorf(`log level must be one of "DEBUG", "INFO", "WARN", or "ERROR"`)
	}
}

func (l *LogLevel) Type() string { return "logLevel" }

// Config is the full set of server knobs, loadable from a YAML file or set
// by CLI flags (see cmd/mcphost). When a file is loaded, its values
// replace the flag values; only --stdio carries over.
type Config struct {
	// Address is the interface the HTTP transport listens on.
	Address string `yaml:"address" validate:"required"`
	// Port is the HTTP transport's listening port.
	Port int `yaml:"port" validate:"required,min=1,max=65535"`
	// OriginAllowlist restricts which Origin headers POST/GET/DELETE
	// accept; empty disables the check (single-user local use).
	OriginAllowlist []string `yaml:"originAllowlist"`
	// SessionIdleTimeout closes a session that has seen no traffic for
	// this long.
	SessionIdleTimeout time.Duration `yaml:"sessionIdleTimeout" validate:"required"`
	// HandlerDeadline bounds how long the dispatcher waits for a
	// deferred (Streaming) handler to post its result.
	HandlerDeadline time.Duration `yaml:"handlerDeadline" validate:"required"`
	// PageSize is the page size for every *.list method; a request cannot
	// change it, since its cursor only carries the offset to resume at.
	PageSize int `yaml:"pageSize" validate:"required,min=1"`
	// NotesDatabase is the SQLite file backing the reference
	// notes://{id} resource template; empty uses a shared in-memory db.
	NotesDatabase string `yaml:"notesDatabase"`
	// LogLevel and LoggingFormat drive internal/log the way the teacher's
	// cfg.LogLevel/cfg.LoggingFormat drive its own logger construction.
	LogLevel      LogLevel  `yaml:"logLevel"`
	LoggingFormat LogFormat `yaml:"loggingFormat"`
	// Stdio, when true, runs the stdio transport instead of the HTTP one.
	Stdio bool `yaml:"stdio"`
	// DisableReload disables the fsnotify watch on the config file path.
	DisableReload bool `yaml:"disableReload"`
}

// Default returns the configuration the binary runs with absent a config
// file, matching the teacher's own cobra flag defaults in shape.
func Default() Config {
	return Config{
		Address:            "127.0.0.1",
		Port:               8080,
		SessionIdleTimeout: 5 * time.Minute,
		HandlerDeadline:    30 * time.Second,
		PageSize:           100,
		LogLevel:           "INFO",
		LoggingFormat:      "standard",
	}
}

// Load reads and strictly decodes the YAML file at path over Default(),
// then validates the result, so partially-specified files fill in sane
// defaults rather than zero values.
func Load(ctx context.Context, path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: unable to read %q: %w", path, err)
	}
	return Parse(ctx, raw)
}

// Parse strictly decodes raw YAML bytes over Default() and validates it.
func Parse(ctx context.Context, raw []byte) (Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalContext(ctx, raw, &cfg, yaml.Strict()); err != nil {
		return Config{}, fmt.Errorf("config: unable to parse: %w", err)
	}
	if err := validator.New().StructCtx(ctx, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}
