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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcphost/mcphost/internal/config"
	"github.com/mcphost/mcphost/internal/log"
	"github.com/mcphost/mcphost/internal/server"
)

// versionString is the binary's reported version; set at build time via
// -ldflags the way the teacher's own semanticVersion is.
var versionString = "0.1.0+dev"

// Command represents an invocation of the mcphost CLI.
type Command struct {
	*cobra.Command

	cfg        config.Config
	configFile string
	logger     log.Logger
	inStream   io.Reader
	outStream  io.Writer
	errStream  io.Writer
}

// NewCommand returns a Command ready to Execute.
func NewCommand(opts ...Option) *Command {
	in, out, errW := os.Stdin, os.Stdout, os.Stderr

	baseCmd := &cobra.Command{
		Use:           "mcphost",
		Version:       versionString,
		SilenceErrors: true,
	}

	cmd := &Command{Command: baseCmd, cfg: config.Default(), inStream: in, outStream: out, errStream: errW}
	for _, o := range opts {
		o(cmd)
	}

	baseCmd.SetIn(cmd.inStream)
	baseCmd.SetOut(cmd.outStream)
	baseCmd.SetErr(cmd.errStream)

	flags := cmd.Flags()
	flags.StringVar(&cmd.configFile, "config", "", "Path to a YAML server configuration file.")
	flags.StringVarP(&cmd.cfg.Address, "address", "a", cmd.cfg.Address, "Address of the interface the server will listen on.")
	flags.IntVarP(&cmd.cfg.Port, "port", "p", cmd.cfg.Port, "Port the server will listen on.")
	flags.Var(&cmd.cfg.LogLevel, "log-level", "Minimum level logged. Allowed: DEBUG, INFO, WARN, ERROR.")
	flags.Var(&cmd.cfg.LoggingFormat, "logging-format", "Logging format to use. Allowed: standard, json.")
	flags.StringVar(&cmd.cfg.NotesDatabase, "notes-db", "", "Path to the SQLite file backing the notes://{id} resource template.")
	flags.BoolVar(&cmd.cfg.Stdio, "stdio", false, "Listen via MCP stdio instead of acting as an HTTP server.")
	flags.BoolVar(&cmd.cfg.DisableReload, "disable-reload", false, "Disable dynamic reloading of the config file.")

	cmd.RunE = func(*cobra.Command, []string) error { return run(cmd) }
	baseCmd.AddCommand(newValidateCommand(cmd))
	return cmd
}

// Execute is the CLI entrypoint called from main.
func Execute() {
	if err := NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *Command) error {
	switch cmd.cfg.LoggingFormat.String() {
	case "json":
		// "json" builds the same value-text logger as "standard", at the
		// same level; only the HTTP request logger in internal/server
		// switches to JSON output for it.
		fallthrough
	case "standard":
		outW := cmd.outStream
		if cmd.cfg.Stdio {
			// stdout carries the stdio transport's JSON-RPC frames.
			outW = cmd.errStream
		}
		logger, err := log.NewStdLogger(outW, cmd.errStream, cmd.cfg.LogLevel.String())
		if err != nil {
			return fmt.Errorf("unable to initialize logger: %w", err)
		}
		cmd.logger = logger
	default:
		return fmt.Errorf("logging format invalid")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			cmd.logger.Debug("received shutdown signal")
			cancel()
		}
	}()

	if cmd.configFile != "" {
		fileCfg, err := config.Load(ctx, cmd.configFile)
		if err != nil {
			cmd.logger.Error("unable to load config file", "error", err)
			return err
		}
		fileCfg.Stdio = cmd.cfg.Stdio
		cmd.cfg = fileCfg
	}

	s, err := server.New(ctx, cmd.cfg, cmd.logger)
	if err != nil {
		cmd.logger.Error("mcphost failed to initialize", "error", err)
		return fmt.Errorf("mcphost failed to initialize: %w", err)
	}

	if cmd.cfg.Stdio {
		return s.ServeStdio(ctx, cmd.inStream, cmd.outStream)
	}

	if err := s.Listen(ctx); err != nil {
		cmd.logger.Error("mcphost failed to start listener", "error", err)
		return err
	}
	cmd.logger.Info("server ready to serve")

	srvErr := make(chan error, 1)
	go func() { srvErr <- s.Serve(ctx) }()

	if cmd.configFile != "" && !cmd.cfg.DisableReload {
		go config.Watch(ctx, cmd.configFile, cmd.logger, s.ApplyReload)
	}

	select {
	case err := <-srvErr:
		if err != nil {
			cmd.logger.Error("mcphost crashed", "error", err)
			return err
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		cmd.logger.Warn("shutting down gracefully")
		if err := s.Shutdown(shutdownCtx); err == context.DeadlineExceeded {
			return fmt.Errorf("graceful shutdown timed out")
		}
	}
	return nil
}
