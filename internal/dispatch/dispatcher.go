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

// Package dispatch routes JSON-RPC method calls to registry-backed
// handlers, enforcing the session lifecycle's method allow-list,
// deferred-reply bookkeeping, and cancellation.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcphost/mcphost/internal/cursor"
	"github.com/mcphost/mcphost/internal/log"
	"github.com/mcphost/mcphost/internal/mcp"
	"github.com/mcphost/mcphost/internal/registry"
	"github.com/mcphost/mcphost/internal/session"
	"github.com/mcphost/mcphost/internal/telemetry"
	"github.com/mcphost/mcphost/internal/util"
)

// DefaultHandlerDeadline is used when a Dispatcher doesn't set one.
const DefaultHandlerDeadline = 30 * time.Second

// OutcomeKind tags how a handler wants its return value treated.
type OutcomeKind int

const (
	// OutcomeReply: the dispatcher emits Result immediately.
	OutcomeReply OutcomeKind = iota
	// OutcomeNoReply: the handler has taken ownership and will call
	// DeferredReply.Post later via the HandlerContext it was given.
	OutcomeNoReply
)

// Outcome is a handler's tagged return value, replacing the
// reply/noreply/error triad from spec.md §4.E with an explicit Go value.
type Outcome struct {
	Kind   OutcomeKind
	Result any
}

// Reply builds a synchronous-reply outcome.
func Reply(result any) Outcome { return Outcome{Kind: OutcomeReply, Result: result} }

// NoReply builds a deferred outcome. The caller must eventually call
// hc.Deferred.Post from another goroutine.
func NoReply() Outcome { return Outcome{Kind: OutcomeNoReply} }

// HandlerFunc is the contract every registry-dispatched method call
// fulfills.
type HandlerFunc func(ctx context.Context, hc *HandlerContext) (Outcome, *mcp.Error)

// HandlerContext bundles everything a handler needs: the session it's
// running against, the stream to push progress/log events on, the raw
// request, and (for deferred handlers) the reply-post capability.
type HandlerContext struct {
	Dispatcher *Dispatcher
	Session    *session.Session
	Sink       session.OutboundSink
	RequestID  json.RawMessage
	Method     string
	Params     json.RawMessage
	Deferred   *DeferredReply
}

// DeferredReply is the explicit reply-post API a NoReply handler uses to
// deliver its result once ready.
type DeferredReply struct {
	ch     chan deferredResult
	posted sync.Once
}

type deferredResult struct {
	result any
	err    *mcp.Error
}

// Post delivers the handler's eventual result. Only the first call has any
// effect; later calls are no-ops so a handler racing its own deadline
// cleanup can't double-send.
func (d *DeferredReply) Post(result any, err *mcp.Error) {
	d.posted.Do(func() {
		d.ch <- deferredResult{result: result, err: err}
	})
}

// Dispatcher owns the method table and the registry it consults.
type Dispatcher struct {
	Registry        *registry.Registry
	PageSize        int
	HandlerDeadline time.Duration
	ServerInfo      mcp.Implementation
	Instructions    string
	Logger          log.Logger

	cancelMu sync.Mutex
	cancels  map[string]context.CancelFunc
	canceled map[string]bool
}

// New builds a Dispatcher over reg.
func New(reg *registry.Registry, info mcp.Implementation, instructions string, logger log.Logger) *Dispatcher {
	return &Dispatcher{
		Registry:        reg,
		PageSize:        cursor.DefaultPageSize,
		HandlerDeadline: DefaultHandlerDeadline,
		ServerInfo:      info,
		Instructions:    instructions,
		Logger:          logger,
		cancels:         make(map[string]context.CancelFunc),
		canceled:        make(map[string]bool),
	}
}

// Dispatch routes a single request (never a batch -- the transport layer
// unpacks batches and calls Dispatch per element) and returns the reply to
// serialize, or nil if none is owed (notification, or a cancelled
// in-flight request per Testable Property 8).
func (d *Dispatcher) Dispatch(ctx context.Context, sess *session.Session, sink session.OutboundSink, req *mcp.Request) *mcp.Response {
	if req.IsNotification() {
		d.handleNotification(sess, req)
		return nil
	}

	if err := d.checkLifecycle(sess, req.Method); err != nil {
		return mcp.NewErrorResponse(req.ID, err)
	}

	handler, ok := d.lookup(req.Method)
	if !ok {
		return mcp.NewErrorResponse(req.ID, mcp.NewError(mcp.KindMethodNotFound, fmt.Sprintf("method not found: %s", req.Method)))
	}

	if instr, err := util.InstrumentationFromContext(ctx); err == nil {
		var span trace.Span
		ctx, span = instr.Tracer().Start(ctx, "dispatch."+req.Method)
		defer span.End()
	}

	reqKey := sess.ID + ":" + string(req.ID)
	if d.hasCancel(reqKey) {
		return mcp.NewErrorResponse(req.ID, mcp.NewError(mcp.KindInvalidRequest, "request id already in flight for this session"))
	}
	reqCtx, cancel := context.WithCancel(ctx)
	d.registerCancel(reqKey, cancel)
	defer func() {
		d.clearCancel(reqKey)
		cancel()
	}()

	hc := &HandlerContext{Dispatcher: d, Session: sess, Sink: sink, RequestID: req.ID, Method: req.Method, Params: req.Params}

	outcome, rpcErr := d.invoke(reqCtx, handler, hc)
	if rpcErr != nil {
		d.recordOutcome(ctx, req.Method, rpcErr)
		return mcp.NewErrorResponse(req.ID, rpcErr)
	}

	switch outcome.Kind {
	case OutcomeReply:
		resp, err := mcp.NewResultResponse(req.ID, outcome.Result)
		if err != nil {
			if d.Logger != nil {
				d.Logger.Error("dispatch: unable to marshal result", "method", req.Method, "error", err)
			}
			d.recordOutcome(ctx, req.Method, mcp.CollapseToInternal())
			return mcp.NewErrorResponse(req.ID, mcp.CollapseToInternal())
		}
		d.recordOutcome(ctx, req.Method, nil)
		return resp
	case OutcomeNoReply:
		resp := d.awaitDeferred(reqCtx, reqKey, req, hc)
		if resp != nil {
			d.recordOutcome(ctx, req.Method, resp.Error)
		}
		return resp
	default:
		d.recordOutcome(ctx, req.Method, mcp.CollapseToInternal())
		return mcp.NewErrorResponse(req.ID, mcp.CollapseToInternal())
	}
}

// recordOutcome increments the request/error counters when the context
// carries a concrete *telemetry.Instrumentation (always true outside of
// tests that exercise the dispatcher directly).
func (d *Dispatcher) recordOutcome(ctx context.Context, method string, rpcErr *mcp.Error) {
	instr, err := util.InstrumentationFromContext(ctx)
	if err != nil {
		return
	}
	ti, ok := instr.(*telemetry.Instrumentation)
	if !ok {
		return
	}
	attrs := metric.WithAttributes(attribute.String("method", method))
	ti.RequestCount.Add(ctx, 1, attrs)
	if rpcErr != nil {
		ti.RequestErrorCount.Add(ctx, 1, attrs)
	}
}

func (d *Dispatcher) invoke(ctx context.Context, handler HandlerFunc, hc *HandlerContext) (outcome Outcome, rpcErr *mcp.Error) {
	if hc.Deferred == nil {
		hc.Deferred = &DeferredReply{ch: make(chan deferredResult, 1)}
	}
	defer func() {
		if r := recover(); r != nil {
			if d.Logger != nil {
				d.Logger.Error("dispatch: handler panicked", "method", hc.Method, "panic", r)
			}
			rpcErr = mcp.CollapseToInternal()
		}
	}()
	o, e := handler(ctx, hc)
	return o, e
}

func (d *Dispatcher) awaitDeferred(ctx context.Context, reqKey string, req *mcp.Request, hc *HandlerContext) *mcp.Response {
	deadline := d.HandlerDeadline
	if deadline <= 0 {
		deadline = DefaultHandlerDeadline
	}
	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case res := <-hc.Deferred.ch:
		if d.wasCanceled(reqKey) {
			return nil
		}
		if res.err != nil {
			return mcp.NewErrorResponse(req.ID, res.err)
		}
		resp, err := mcp.NewResultResponse(req.ID, res.result)
		if err != nil {
			return mcp.NewErrorResponse(req.ID, mcp.CollapseToInternal())
		}
		return resp
	case <-timer.C:
		return mcp.NewErrorResponse(req.ID, mcp.NewError(mcp.KindRequestTimedOut, ""))
	case <-ctx.Done():
		if d.wasCanceled(reqKey) {
			return nil
		}
		return mcp.NewErrorResponse(req.ID, mcp.NewError(mcp.KindRequestCancelled, ""))
	}
}

func (d *Dispatcher) handleNotification(sess *session.Session, req *mcp.Request) {
	switch req.Method {
	case "notifications/initialized":
		_ = sess.Activate()
	case "notifications/cancelled":
		var note mcp.CancelledNotification
		if err := json.Unmarshal(req.Params, &note); err != nil {
			return
		}
		d.cancelRequest(sess.ID + ":" + string(note.RequestID))
	case "notifications/roots/list_changed":
		// Roots are client-owned; the server only needs to tolerate this.
	default:
		if d.Logger != nil {
			d.Logger.Debug("dispatch: ignoring unknown notification", "method", req.Method)
		}
	}
}

func (d *Dispatcher) checkLifecycle(sess *session.Session, method string) *mcp.Error {
	switch sess.State() {
	case session.StateNew:
		if method != "initialize" {
			return mcp.NewError(mcp.KindServerNotInitialized, "")
		}
	case session.StateInitializing:
		return mcp.NewError(mcp.KindServerNotInitialized, "")
	case session.StateClosed:
		return mcp.NewError(mcp.KindInvalidRequest, "session is closed")
	case session.StateActive:
		// full method set available
	}
	return nil
}

func (d *Dispatcher) lookup(method string) (HandlerFunc, bool) {
	h, ok := methodTable[method]
	return h, ok
}

func (d *Dispatcher) registerCancel(reqKey string, cancel context.CancelFunc) {
	d.cancelMu.Lock()
	defer d.cancelMu.Unlock()
	d.cancels[reqKey] = cancel
}

func (d *Dispatcher) hasCancel(reqKey string) bool {
	d.cancelMu.Lock()
	defer d.cancelMu.Unlock()
	_, ok := d.cancels[reqKey]
	return ok
}

func (d *Dispatcher) clearCancel(reqKey string) {
	d.cancelMu.Lock()
	defer d.cancelMu.Unlock()
	delete(d.cancels, reqKey)
	delete(d.canceled, reqKey)
}

func (d *Dispatcher) cancelRequest(reqKey string) {
	d.cancelMu.Lock()
	cancel, ok := d.cancels[reqKey]
	if ok {
		d.canceled[reqKey] = true
	}
	d.cancelMu.Unlock()
	if ok {
		cancel()
	}
}

func (d *Dispatcher) wasCanceled(reqKey string) bool {
	d.cancelMu.Lock()
	defer d.cancelMu.Unlock()
	return d.canceled[reqKey]
}
