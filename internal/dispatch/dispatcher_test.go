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

package dispatch

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mcphost/mcphost/internal/mcp"
	"github.com/mcphost/mcphost/internal/registry"
	"github.com/mcphost/mcphost/internal/session"
)

type nullSink struct{}

func (nullSink) SendRequest(id json.RawMessage, method string, params any) error { return nil }
func (nullSink) SendNotification(method string, params any) error                { return nil }

func newActiveSession(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := s.Initialize(mcp.ProtocolVersion, mcp.ClientCapabilities{}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := s.Activate(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	return s
}

func rawID(n int) json.RawMessage { return json.RawMessage(json.Number(itoa(n))) }

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestInitializeBeforeOtherMethods(t *testing.T) {
	reg := registry.New()
	d := New(reg, mcp.Implementation{Name: "test", Version: "1.0"}, "", nil)
	s, err := session.New()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	req := &mcp.Request{JSONRPC: mcp.Version, ID: rawID(1), Method: "ping"}
	resp := d.Dispatch(context.Background(), s, nullSink{}, req)
	if resp.Error == nil || resp.Error.Code != mcp.CodeServerNotInitialized {
		t.Fatalf("expected server-not-initialized before initialize, got %+v", resp)
	}

	initReq := &mcp.Request{
		JSONRPC: mcp.Version, ID: rawID(2), Method: "initialize",
		Params: mustJSON(t, mcp.InitializeParams{ProtocolVersion: mcp.ProtocolVersion}),
	}
	resp = d.Dispatch(context.Background(), s, nullSink{}, initReq)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestPingOnActiveSession(t *testing.T) {
	reg := registry.New()
	d := New(reg, mcp.Implementation{}, "", nil)
	s := newActiveSession(t)

	req := &mcp.Request{JSONRPC: mcp.Version, ID: rawID(1), Method: "ping"}
	resp := d.Dispatch(context.Background(), s, nullSink{}, req)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if string(resp.Result) != "{}" {
		t.Fatalf("got result %s, want {}", resp.Result)
	}
}

func TestToolsCallUnknownTool(t *testing.T) {
	reg := registry.New()
	d := New(reg, mcp.Implementation{}, "", nil)
	s := newActiveSession(t)

	req := &mcp.Request{
		JSONRPC: mcp.Version, ID: rawID(1), Method: "tools/call",
		Params: mustJSON(t, mcp.ToolCallParams{Name: "nonexistent"}),
	}
	resp := d.Dispatch(context.Background(), s, nullSink{}, req)
	if resp.Error == nil || resp.Error.Code != mcp.CodeMethodNotFound {
		t.Fatalf("expected method-not-found, got %+v", resp)
	}
}

func TestToolsCallHandlerPanicCollapsesToInternalError(t *testing.T) {
	reg := registry.New()
	if err := reg.RegisterTool(registry.ToolEntry{
		Name: "explode_tool",
		Handler: func(ctx context.Context, hc registry.HandlerContext, args json.RawMessage) (mcp.ToolCallResult, error) {
			panic("boom")
		},
	}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	d := New(reg, mcp.Implementation{}, "", nil)
	s := newActiveSession(t)

	req := &mcp.Request{
		JSONRPC: mcp.Version, ID: rawID(1), Method: "tools/call",
		Params: mustJSON(t, mcp.ToolCallParams{Name: "explode_tool"}),
	}
	resp := d.Dispatch(context.Background(), s, nullSink{}, req)
	if resp.Error == nil || resp.Error.Code != mcp.CodeInternalError {
		t.Fatalf("expected internal error, got %+v", resp)
	}

	// session must remain usable afterward
	pingReq := &mcp.Request{JSONRPC: mcp.Version, ID: rawID(2), Method: "ping"}
	pingResp := d.Dispatch(context.Background(), s, nullSink{}, pingReq)
	if pingResp.Error != nil {
		t.Fatalf("expected session to survive handler panic, got %+v", pingResp.Error)
	}
}

func TestDeferredReplyTimesOut(t *testing.T) {
	reg := registry.New()
	d := New(reg, mcp.Implementation{}, "", nil)
	d.HandlerDeadline = 20 * time.Millisecond
	methodTable["test/deferredNeverReplies"] = func(ctx context.Context, hc *HandlerContext) (Outcome, *mcp.Error) {
		return NoReply(), nil
	}
	defer delete(methodTable, "test/deferredNeverReplies")

	s := newActiveSession(t)
	req := &mcp.Request{JSONRPC: mcp.Version, ID: rawID(1), Method: "test/deferredNeverReplies"}
	resp := d.Dispatch(context.Background(), s, nullSink{}, req)
	if resp.Error == nil || resp.Error.Code != mcp.CodeRequestTimedOut {
		t.Fatalf("expected request-timed-out, got %+v", resp)
	}
}

func TestDeferredReplyDelivered(t *testing.T) {
	reg := registry.New()
	d := New(reg, mcp.Implementation{}, "", nil)
	methodTable["test/deferredReplies"] = func(ctx context.Context, hc *HandlerContext) (Outcome, *mcp.Error) {
		go hc.Deferred.Post(map[string]any{"ok": true}, nil)
		return NoReply(), nil
	}
	defer delete(methodTable, "test/deferredReplies")

	s := newActiveSession(t)
	req := &mcp.Request{JSONRPC: mcp.Version, ID: rawID(1), Method: "test/deferredReplies"}
	resp := d.Dispatch(context.Background(), s, nullSink{}, req)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestDuplicateInFlightRequestIDRejected(t *testing.T) {
	reg := registry.New()
	d := New(reg, mcp.Implementation{}, "", nil)
	started := make(chan struct{})
	release := make(chan struct{})
	methodTable["test/blocksUntilReleased"] = func(ctx context.Context, hc *HandlerContext) (Outcome, *mcp.Error) {
		close(started)
		<-release
		return Reply(map[string]any{"ok": true}), nil
	}
	defer delete(methodTable, "test/blocksUntilReleased")

	s := newActiveSession(t)
	req := &mcp.Request{JSONRPC: mcp.Version, ID: rawID(1), Method: "test/blocksUntilReleased"}

	done := make(chan *mcp.Response, 1)
	go func() { done <- d.Dispatch(context.Background(), s, nullSink{}, req) }()
	<-started

	dupResp := d.Dispatch(context.Background(), s, nullSink{}, req)
	if dupResp.Error == nil || dupResp.Error.Code != mcp.CodeInvalidRequest {
		t.Fatalf("expected invalid-request for a colliding in-flight id, got %+v", dupResp)
	}

	close(release)
	firstResp := <-done
	if firstResp.Error != nil {
		t.Fatalf("unexpected error for the original in-flight request: %+v", firstResp.Error)
	}
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	return raw
}
