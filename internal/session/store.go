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
	"sync"
	"time"
)

// DefaultIdleTimeout matches the environment default in spec.md §6.
const DefaultIdleTimeout = 5 * time.Minute

// Store owns every live session for a process. It is the only place a
// transport should look a session up by id; sessions never register
// themselves.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	idleTimeout time.Duration

	stop chan struct{}
	once sync.Once
}

// NewStore builds a Store that reaps sessions idle longer than
// idleTimeout. A non-positive idleTimeout falls back to
// DefaultIdleTimeout.
func NewStore(idleTimeout time.Duration) *Store {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	st := &Store{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		stop:        make(chan struct{}),
	}
	go st.sweepLoop()
	return st
}

// Create allocates and registers a new session.
func (st *Store) Create() (*Session, error) {
	s, err := New()
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s, nil
}

// Get looks up a session by id.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Delete removes and closes a session, e.g. on DELETE /mcp.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	if ok {
		delete(st.sessions, id)
	}
	st.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Len reports how many sessions are currently live.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Close stops the idle sweep and closes every session, e.g. at shutdown.
func (st *Store) Close() {
	st.once.Do(func() { close(st.stop) })
	st.mu.Lock()
	sessions := make([]*Session, 0, len(st.sessions))
	for id, s := range st.sessions {
		sessions = append(sessions, s)
		delete(st.sessions, id)
	}
	st.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

func (st *Store) sweepLoop() {
	ticker := time.NewTicker(st.idleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-st.stop:
			return
		case <-ticker.C:
			st.sweepIdle()
		}
	}
}

func (st *Store) sweepIdle() {
	st.mu.Lock()
	var expired []*Session
	for id, s := range st.sessions {
		if s.IdleSince() >= st.idleTimeout {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()
	for _, s := range expired {
		s.Close()
	}
}
