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

package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ValueTextHandler is a slog.Handler that renders records as a timestamp,
// level, quoted message, and space-separated key=value attributes. It
// exists because the structured JSON handler built into log/slog is too
// noisy for a human-facing CLI run log.
type ValueTextHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	opts   *slog.HandlerOptions
	attrs  []slog.Attr
	groups []string
}

// NewValueTextHandler returns a ValueTextHandler writing to w.
func NewValueTextHandler(w io.Writer, opts *slog.HandlerOptions) *ValueTextHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &ValueTextHandler{mu: &sync.Mutex{}, w: w, opts: opts}
}

func (h *ValueTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *ValueTextHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(r.Level.String())
	b.WriteByte(' ')
	b.WriteString(strconv.Quote(r.Message))

	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		name := a.Key
		if len(h.groups) > 0 {
			name = strings.Join(h.groups, ".") + "." + name
		}
		fmt.Fprintf(&b, " %s=%v", name, a.Value)
		return true
	})
	b.WriteString(" \n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *ValueTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	n := &ValueTextHandler{mu: h.mu, w: h.w, opts: h.opts, groups: h.groups}
	n.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return n
}

func (h *ValueTextHandler) WithGroup(name string) slog.Handler {
	n := &ValueTextHandler{mu: h.mu, w: h.w, opts: h.opts, attrs: h.attrs}
	n.groups = append(append([]string{}, h.groups...), name)
	return n
}
