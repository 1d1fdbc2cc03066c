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

// Package server assembles a Dispatcher, a session Store, and a Registry
// into the chi root router and http.Server the reference binary runs,
// mirroring the shape (if not the domain) of the teacher's own
// internal/server.Server.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcphost/mcphost/internal/config"
	"github.com/mcphost/mcphost/internal/demo"
	"github.com/mcphost/mcphost/internal/dispatch"
	"github.com/mcphost/mcphost/internal/log"
	"github.com/mcphost/mcphost/internal/mcp"
	"github.com/mcphost/mcphost/internal/registry"
	"github.com/mcphost/mcphost/internal/session"
	"github.com/mcphost/mcphost/internal/telemetry"
	transporthttp "github.com/mcphost/mcphost/internal/transport/http"
	"github.com/mcphost/mcphost/internal/transport/stdio"
	"github.com/mcphost/mcphost/internal/util"
)

// Server owns the listener, the chi root router, and every long-lived
// collaborator (registry, dispatcher, session store) the HTTP and stdio
// transports both dispatch against.
type Server struct {
	cfg      config.Config
	srv      *http.Server
	listener net.Listener
	logger   log.Logger

	root chi.Router

	mu         sync.RWMutex
	dispatcher *dispatch.Dispatcher
	sessions   *session.Store
	notes      *demo.NotesStore
	instr      *telemetry.Instrumentation
}

// New builds a Server from cfg: opens the reference notes store, builds
// the demo registry, and mounts the HTTP transport under /mcp alongside
// /healthz and /metrics.
func New(ctx context.Context, cfg config.Config, logger log.Logger) (*Server, error) {
	reg, notes, err := demo.Build(cfg.NotesDatabase)
	if err != nil {
		return nil, fmt.Errorf("server: unable to build registry: %w", err)
	}

	d := newDispatcher(reg, cfg, logger)
	store := session.NewStore(cfg.SessionIdleTimeout)

	// stdout is reserved for the stdio transport's own JSON-RPC frames, so
	// the stdout-exporter instrumentation writes to io.Discard here rather
	// than actually emitting to os.Stdout; a collector-backed exporter
	// swaps in at this one call site without touching the dispatcher.
	instr, err := telemetry.New(io.Discard)
	if err != nil {
		return nil, fmt.Errorf("server: unable to build instrumentation: %w", err)
	}

	promReg := prometheus.NewRegistry()
	metrics := transporthttp.NewMetrics(promReg)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(transporthttp.RequestIDMiddleware)
	r.Use(transporthttp.OriginAllowlist(cfg.OriginAllowlist, logger))
	r.Use(transporthttp.ProtocolVersionMiddleware)
	r.Use(transporthttp.InstrumentationMiddleware(instr))
	r.Use(metrics.Middleware)

	httpOpts := httplog.Options{LogLevel: severityToSlog(cfg.LogLevel.String()), Concise: true, MessageFieldName: "message"}
	if cfg.LoggingFormat.String() == "json" {
		httpOpts.JSON = true
	}
	r.Use(httplog.RequestLogger(httplog.NewLogger("httplog", httpOpts)))

	mcpHandler := transporthttp.NewHandler(d, store, logger, metrics)
	r.Mount("/mcp", mcpHandler.Router())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	addr := net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port))
	s := &Server{
		cfg:        cfg,
		srv:        &http.Server{Addr: addr, Handler: r},
		root:       r,
		logger:     logger,
		dispatcher: d,
		sessions:   store,
		notes:      notes,
		instr:      instr,
	}
	return s, nil
}

func newDispatcher(reg *registry.Registry, cfg config.Config, logger log.Logger) *dispatch.Dispatcher {
	d := dispatch.New(reg, mcp.Implementation{Name: "mcphost", Version: "0.1.0"},
		"Reference MCP server exposing echo_tool, explode_tool, a greeting prompt, and notes://{id}.", logger)
	d.PageSize = cfg.PageSize
	d.HandlerDeadline = cfg.HandlerDeadline
	return d
}

func severityToSlog(level string) slog.Level {
	switch level {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ApplyReload swaps in a reloaded configuration's mutable knobs -- page
// size and handler deadline -- without tearing down the listener or any
// live session, mirroring the teacher's own ResourceMgr.SetResources swap.
func (s *Server) ApplyReload(cfg config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatcher.PageSize = cfg.PageSize
	s.dispatcher.HandlerDeadline = cfg.HandlerDeadline
}

// Listen opens the TCP listener without yet serving requests.
func (s *Server) Listen(ctx context.Context) error {
	if s.listener != nil {
		return fmt.Errorf("server: already listening on %s", s.listener.Addr())
	}
	lc := net.ListenConfig{KeepAlive: 30 * time.Second}
	l, err := lc.Listen(ctx, "tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("server: unable to open listener for %q: %w", s.srv.Addr, err)
	}
	s.listener = l
	return nil
}

// Serve blocks, accepting connections on the listener opened by Listen.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.srv.Serve(s.listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ServeStdio runs the stdio transport to completion against the same
// dispatcher the HTTP transport uses.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx = util.WithInstrumentation(ctx, s.instr)
	tr, err := stdio.New(s.dispatcher, in, out, s.logger)
	if err != nil {
		return fmt.Errorf("server: unable to start stdio transport: %w", err)
	}
	return tr.Run(ctx)
}

// Shutdown gracefully drains in-flight HTTP connections and releases the
// notes store.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.listener != nil {
		err = s.srv.Shutdown(ctx)
	}
	s.sessions.Close()
	if s.notes != nil {
		_ = s.notes.Close()
	}
	if s.instr != nil {
		_ = s.instr.Shutdown(ctx)
	}
	return err
}
