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

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mcphost/mcphost/internal/mcp"
)

// DefaultElicitationDeadline is used when a caller doesn't supply one.
const DefaultElicitationDeadline = 60 * time.Second

// OutboundSink is how a session pushes a server-initiated request or
// notification to the client. Transports (HTTP SSE writer, stdio framer)
// implement it; the session never writes to a wire directly.
type OutboundSink = mcp.OutboundSink

// pendingRequest is an in-flight server->client request awaiting a
// correlated reply (elicitation/create, roots/list, sampling/createMessage).
type pendingRequest struct {
	kind      string
	createdAt time.Time
	replyCh   chan json.RawMessage
}

func (s *Session) allocateOutboundID() json.RawMessage {
	s.pendingMu.Lock()
	s.nextID++
	id := s.nextID
	s.pendingMu.Unlock()
	return json.RawMessage(strconv.FormatUint(id, 10))
}

// registerPending records a new waiter under a freshly allocated id.
func (s *Session) registerPending(kind string) (json.RawMessage, *pendingRequest) {
	id := s.allocateOutboundID()
	p := &pendingRequest{kind: kind, createdAt: time.Now(), replyCh: make(chan json.RawMessage, 1)}
	s.pendingMu.Lock()
	s.pending[string(id)] = p
	s.pendingMu.Unlock()
	return id, p
}

// ResolvePending delivers a client reply to the waiter registered under
// id. Returns false if no such pending request exists (late or duplicate
// reply), which callers should treat as a no-op, not an error.
func (s *Session) ResolvePending(id json.RawMessage, result json.RawMessage) bool {
	s.pendingMu.Lock()
	p, ok := s.pending[string(id)]
	if ok {
		delete(s.pending, string(id))
	}
	s.pendingMu.Unlock()
	if !ok {
		return false
	}
	p.replyCh <- result
	return true
}

func (s *Session) cancelAllPending() {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	for id, p := range s.pending {
		close(p.replyCh)
		delete(s.pending, id)
	}
}

// Elicit sends an elicitation/create request over sink and blocks until
// the client replies, the deadline elapses, or the session closes.
// Blocking here suspends only the calling handler's task, never the
// session's own state mutations.
func (s *Session) Elicit(ctx context.Context, sink OutboundSink, params mcp.ElicitationCreateParams, deadline time.Duration) (mcp.ElicitationCreateResult, error) {
	if deadline <= 0 {
		deadline = DefaultElicitationDeadline
	}
	id, p := s.registerPending("elicitation")
	if err := sink.SendRequest(id, "elicitation/create", params); err != nil {
		s.dropPending(id)
		return mcp.ElicitationCreateResult{}, fmt.Errorf("session: unable to send elicitation request: %w", err)
	}

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case raw, ok := <-p.replyCh:
		if !ok {
			return mcp.ElicitationCreateResult{}, fmt.Errorf("session: closed while awaiting elicitation reply")
		}
		var result mcp.ElicitationCreateResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return mcp.ElicitationCreateResult{}, fmt.Errorf("session: malformed elicitation reply: %w", err)
		}
		return result, nil
	case <-timer.C:
		s.dropPending(id)
		return mcp.ElicitationCreateResult{}, mcp.NewError(mcp.KindRequestTimedOut, "")
	case <-ctx.Done():
		s.dropPending(id)
		return mcp.ElicitationCreateResult{}, ctx.Err()
	}
}

func (s *Session) dropPending(id json.RawMessage) {
	s.pendingMu.Lock()
	delete(s.pending, string(id))
	s.pendingMu.Unlock()
}

// PendingCount reports the number of in-flight outbound requests; used by
// tests and health checks.
func (s *Session) PendingCount() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending)
}
