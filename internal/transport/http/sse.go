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

// Package http hosts the streamable-HTTP transport: POST (single reply or
// an SSE multi-event stream), GET (a long-lived session-scoped SSE
// stream), and DELETE (session termination).
package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/mcphost/mcphost/internal/mcp"
)

// SSEWriter frames JSON-RPC messages as Server-Sent Events on a single
// HTTP response, serializing concurrent writers and assigning each event
// a monotonically increasing id for best-effort Last-Event-ID resumption.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher

	mu      sync.Mutex
	nextID  uint64
	closed  atomic.Bool
}

// NewSSEWriter prepares w for event-stream output. The caller must have
// already set the response's status code (if non-default) before any
// write, since the first Write implicitly sends 200.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("sse: response writer does not support flushing")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	return &SSEWriter{w: w, flusher: flusher}, nil
}

// writeEvent emits one event: line, data: lines, and a trailing blank
// line, then flushes immediately so backpressure is visible to the
// caller's next write.
func (sw *SSEWriter) writeEvent(event string, payload []byte) error {
	if sw.closed.Load() {
		return fmt.Errorf("sse: stream closed")
	}
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.nextID++
	if event == "" {
		event = "message"
	}
	if _, err := fmt.Fprintf(sw.w, "id: %d\nevent: %s\n", sw.nextID, event); err != nil {
		return fmt.Errorf("sse: write header: %w", err)
	}
	for _, line := range splitLines(payload) {
		if _, err := fmt.Fprintf(sw.w, "data: %s\n", line); err != nil {
			return fmt.Errorf("sse: write data: %w", err)
		}
	}
	if _, err := fmt.Fprint(sw.w, "\n"); err != nil {
		return fmt.Errorf("sse: write terminator: %w", err)
	}
	sw.flusher.Flush()
	return nil
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, data[start:i])
			start = i + 1
		}
	}
	lines = append(lines, data[start:])
	return lines
}

// WriteResponse emits a final JSON-RPC reply as one event.
func (sw *SSEWriter) WriteResponse(resp *mcp.Response) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("sse: marshal response: %w", err)
	}
	return sw.writeEvent("message", raw)
}

// SendRequest implements session.OutboundSink by emitting a server-initiated
// JSON-RPC request as one event.
func (sw *SSEWriter) SendRequest(id json.RawMessage, method string, params any) error {
	raw, err := encodeOutbound(id, method, params)
	if err != nil {
		return err
	}
	return sw.writeEvent("message", raw)
}

// SendNotification implements session.OutboundSink by emitting a
// JSON-RPC notification (no id) as one event.
func (sw *SSEWriter) SendNotification(method string, params any) error {
	raw, err := encodeOutbound(nil, method, params)
	if err != nil {
		return err
	}
	return sw.writeEvent("message", raw)
}

// Close marks the stream unusable; subsequent writes return an error
// instead of touching a response writer whose request context is done.
func (sw *SSEWriter) Close() { sw.closed.Store(true) }

func encodeOutbound(id json.RawMessage, method string, params any) ([]byte, error) {
	paramsRaw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("sse: marshal params: %w", err)
	}
	req := mcp.Request{JSONRPC: mcp.Version, ID: id, Method: method, Params: paramsRaw}
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("sse: marshal outbound message: %w", err)
	}
	return raw, nil
}
