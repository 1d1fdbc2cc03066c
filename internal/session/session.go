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

// Package session implements the per-client session actor: lifecycle
// state, negotiated capabilities, the pending-outbound-request map, the
// subscription set, and the progress/log/elicitation channels layered on
// top of them.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/mcphost/mcphost/internal/cursor"
	"github.com/mcphost/mcphost/internal/mcp"
)

// State is a session's position in the NEW -> INITIALIZING -> ACTIVE ->
// CLOSED lifecycle.
type State int

const (
	StateNew State = iota
	StateInitializing
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is a single MCP conversation. Lifecycle state, capabilities, log
// level, subscriptions and activity time are guarded by mu; the
// pending-outbound map has its own pendingMu and the broadcast sink its
// own lock. The narrow critical sections below are the session's "actor" in
// mutex-guarded-struct form (the in-process alternative to a message-queue
// task per spec.md's design notes).
type Session struct {
	ID string

	mu              sync.Mutex
	state           State
	protocolVersion string
	capabilities    mcp.ClientCapabilities
	logLevel        mcp.LogLevel
	subscriptions   map[string]struct{}
	closed          bool

	CursorSigner *cursor.Signer

	pendingMu sync.Mutex
	pending   map[string]*pendingRequest
	nextID    uint64

	lastActivity time.Time
	createdAt    time.Time

	broadcast broadcastHolder
}

// New allocates a fresh NEW-state session with a random 128-bit id and a
// freshly generated cursor signing key.
func New() (*Session, error) {
	id, err := generateID()
	if err != nil {
		return nil, err
	}
	key, err := cursor.NewSigningKey()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		ID:            id,
		state:         StateNew,
		logLevel:      mcp.LogLevelInfo,
		subscriptions: make(map[string]struct{}),
		CursorSigner:  cursor.NewSigner(key),
		pending:       make(map[string]*pendingRequest),
		createdAt:     now,
		lastActivity:  now,
	}, nil
}

func generateID() (string, error) {
	buf := make([]byte, 16) // 128 bits
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("session: unable to generate id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Touch records activity for idle-timeout accounting.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// IdleSince reports how long the session has gone without activity.
func (s *Session) IdleSince() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

// Initialize transitions NEW -> INITIALIZING, recording the negotiated
// version and the client's advertised capabilities. Returns an error if
// the session isn't in NEW.
func (s *Session) Initialize(protocolVersion string, caps mcp.ClientCapabilities) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateNew {
		return fmt.Errorf("session: initialize called in state %s", s.state)
	}
	s.protocolVersion = protocolVersion
	s.capabilities = caps
	s.state = StateInitializing
	return nil
}

// Activate transitions INITIALIZING -> ACTIVE on notifications/initialized.
func (s *Session) Activate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInitializing {
		return fmt.Errorf("session: activate called in state %s", s.state)
	}
	s.state = StateActive
	return nil
}

// Close transitions to CLOSED from any state and drains pending outbound
// requests so no waiter blocks forever.
func (s *Session) Close() {
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	s.cancelAllPending()
}

// ProtocolVersion returns the negotiated protocol version (empty before
// initialize completes).
func (s *Session) ProtocolVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.protocolVersion
}

// LogLevel returns the session's current logging threshold.
func (s *Session) LogLevel() mcp.LogLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logLevel
}

// SetLogLevel updates the session's logging threshold.
func (s *Session) SetLogLevel(level mcp.LogLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logLevel = level
}

// Subscribe adds uri to the subscription set.
func (s *Session) Subscribe(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[uri] = struct{}{}
}

// Unsubscribe removes uri from the subscription set.
func (s *Session) Unsubscribe(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, uri)
}

// IsSubscribed reports whether uri is currently subscribed.
func (s *Session) IsSubscribed(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subscriptions[uri]
	return ok
}

// Subscriptions returns a snapshot of the current subscription set.
func (s *Session) Subscriptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.subscriptions))
	for uri := range s.subscriptions {
		out = append(out, uri)
	}
	return out
}
