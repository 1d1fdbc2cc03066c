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
	"testing"
	"time"

	"github.com/mcphost/mcphost/internal/mcp"
)

func TestLifecycleTransitions(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if s.State() != StateNew {
		t.Fatalf("new session should start in NEW")
	}
	if err := s.Activate(); err == nil {
		t.Fatalf("expected activate from NEW to fail")
	}
	if err := s.Initialize("2024-11-05", mcp.ClientCapabilities{}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if s.State() != StateInitializing {
		t.Fatalf("expected INITIALIZING after initialize")
	}
	if err := s.Initialize("2024-11-05", mcp.ClientCapabilities{}); err == nil {
		t.Fatalf("expected second initialize to fail")
	}
	if err := s.Activate(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if s.State() != StateActive {
		t.Fatalf("expected ACTIVE after activate")
	}
	s.Close()
	if s.State() != StateClosed {
		t.Fatalf("expected CLOSED after close")
	}
}

type fakeSink struct {
	requests      []string
	notifications []string
	reply         func(id json.RawMessage)
}

func (f *fakeSink) SendRequest(id json.RawMessage, method string, params any) error {
	f.requests = append(f.requests, method)
	if f.reply != nil {
		go f.reply(id)
	}
	return nil
}

func (f *fakeSink) SendNotification(method string, params any) error {
	f.notifications = append(f.notifications, method)
	return nil
}

func TestElicitRoundTrip(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	sink := &fakeSink{}
	sink.reply = func(id json.RawMessage) {
		raw, _ := json.Marshal(mcp.ElicitationCreateResult{Action: mcp.ElicitationAccept})
		s.ResolvePending(id, raw)
	}

	result, err := s.Elicit(context.Background(), sink, mcp.ElicitationCreateParams{Message: "ok?"}, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if result.Action != mcp.ElicitationAccept {
		t.Fatalf("got action %q, want accept", result.Action)
	}
}

func TestElicitTimesOut(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	sink := &fakeSink{}

	_, err = s.Elicit(context.Background(), sink, mcp.ElicitationCreateParams{Message: "ok?"}, 10*time.Millisecond)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if s.PendingCount() != 0 {
		t.Fatalf("expected pending entry to be reaped on timeout")
	}
}

func TestLogLevelFiltering(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	s.SetLogLevel(mcp.LogLevelWarning)
	sink := &fakeSink{}

	if err := s.EmitLog(sink, mcp.LogLevelInfo, "", "dropped"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(sink.notifications) != 0 {
		t.Fatalf("expected info below warning threshold to be dropped")
	}
	if err := s.EmitLog(sink, mcp.LogLevelError, "", "kept"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(sink.notifications) != 1 {
		t.Fatalf("expected error at/above threshold to be emitted")
	}
}

func TestStoreCreateGetDelete(t *testing.T) {
	st := NewStore(time.Hour)
	defer st.Close()

	s, err := st.Create()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if _, ok := st.Get(s.ID); !ok {
		t.Fatalf("expected to find created session")
	}
	st.Delete(s.ID)
	if _, ok := st.Get(s.ID); ok {
		t.Fatalf("expected session to be gone after delete")
	}
	if s.State() != StateClosed {
		t.Fatalf("expected deleted session to be closed")
	}
}
