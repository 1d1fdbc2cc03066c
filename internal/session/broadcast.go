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

import "sync"

// broadcastHolder holds the session-wide GET stream a notification not tied
// to any in-flight request (resource updated, list changed, a log record
// emitted outside a request) is pushed on, per spec.md §4.F's third HTTP
// shape. At most one is registered at a time; a session with no open GET
// stream simply has nowhere to push such a notification and it is dropped.
type broadcastHolder struct {
	mu   sync.RWMutex
	sink OutboundSink
}

// SetBroadcastSink registers sink as the destination for session-wide
// pushes, e.g. when a GET /mcp stream is opened. Passing nil clears it,
// e.g. when that stream closes.
func (s *Session) SetBroadcastSink(sink OutboundSink) {
	s.broadcast.mu.Lock()
	defer s.broadcast.mu.Unlock()
	s.broadcast.sink = sink
}

// BroadcastSink returns the currently registered session-wide sink, or nil
// if no GET stream is open.
func (s *Session) BroadcastSink() OutboundSink {
	s.broadcast.mu.RLock()
	defer s.broadcast.mu.RUnlock()
	return s.broadcast.sink
}
