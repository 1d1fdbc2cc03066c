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

package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mcphost/mcphost/internal/dispatch"
	"github.com/mcphost/mcphost/internal/log"
	"github.com/mcphost/mcphost/internal/mcp"
	"github.com/mcphost/mcphost/internal/session"
)

const sessionHeader = "Mcp-Session-Id"

// Handler mounts the three streamable-HTTP shapes spec.md §4.F and §6
// describe -- POST (single reply or an SSE multi-event stream), GET (a
// long-lived session-scoped SSE stream), DELETE (session termination) --
// on top of a Dispatcher and a session Store. Any conforming HTTP stack
// can host it; the handler never assumes a particular router beyond the
// stdlib http.Handler contract (Router just offers chi wiring to match
// the rest of the reference binary).
type Handler struct {
	Dispatcher *dispatch.Dispatcher
	Sessions   *session.Store
	Logger     log.Logger
	Metrics    *Metrics
}

// NewHandler builds a Handler over the given dispatcher and session store.
func NewHandler(d *dispatch.Dispatcher, store *session.Store, logger log.Logger, metrics *Metrics) *Handler {
	return &Handler{Dispatcher: d, Sessions: store, Logger: logger, Metrics: metrics}
}

// Router mounts the handler's three verbs at the router's root; the
// caller is expected to Mount this at whatever path hosts MCP (e.g. /mcp).
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleGet)
	r.Post("/", h.handlePost)
	r.Delete("/", h.handleDelete)
	return r
}

// nopSink discards every push; used for notification-only dispatch and
// for non-streaming requests, which by registry declaration must never
// attempt to push progress or log events through it.
type nopSink struct{}

func (nopSink) SendRequest(id json.RawMessage, method string, params any) error { return nil }
func (nopSink) SendNotification(method string, params any) error                { return nil }

func (h *Handler) resolveSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		sess, err := h.Sessions.Create()
		if err != nil {
			h.writeTransportError(w, mcp.NewError(mcp.KindInternalError, "unable to create session"))
			return nil, false
		}
		if h.Metrics != nil {
			h.Metrics.SetActiveSessions(h.Sessions.Len())
		}
		return sess, true
	}
	sess, ok := h.Sessions.Get(id)
	if !ok {
		h.writeTransportError(w, mcp.NewError(mcp.KindInvalidRequest, "unknown session"))
		return nil, false
	}
	return sess, true
}

// handlePost implements the HTTP POST shape: parse request(s), dispatch
// each against the resolved session, and reply either as a single JSON
// document, an SSE stream, or (notification-only) a bare 202.
func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeTransportError(w, mcp.NewError(mcp.KindParseError, "unable to read request body"))
		return
	}

	reqs, isBatch, parseErr := mcp.ParseMessages(body)
	if parseErr != nil {
		if rpcErr, ok := parseErr.(*mcp.Error); ok {
			h.writeTransportError(w, rpcErr)
			return
		}
		h.writeTransportError(w, mcp.NewError(mcp.KindParseError, parseErr.Error()))
		return
	}

	sess, ok := h.resolveSession(w, r)
	if !ok {
		return
	}
	sess.Touch()
	w.Header().Set(sessionHeader, sess.ID)

	allNotifications := true
	needsStreaming := false
	for i := range reqs {
		if !reqs[i].IsNotification() {
			allNotifications = false
			if h.Dispatcher.RequiresStreaming(&reqs[i]) {
				needsStreaming = true
			}
		}
	}

	if allNotifications {
		for i := range reqs {
			h.Dispatcher.Dispatch(r.Context(), sess, nopSink{}, &reqs[i])
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if needsStreaming {
		h.servePostSSE(w, r, sess, reqs)
		return
	}

	responses := make([]*mcp.Response, 0, len(reqs))
	for i := range reqs {
		if resp := h.Dispatcher.Dispatch(r.Context(), sess, nopSink{}, &reqs[i]); resp != nil {
			responses = append(responses, resp)
		}
	}
	raw, err := mcp.EncodeResponses(responses, isBatch)
	if err != nil {
		h.writeTransportError(w, mcp.CollapseToInternal())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

func (h *Handler) servePostSSE(w http.ResponseWriter, r *http.Request, sess *session.Session, reqs []mcp.Request) {
	sw, err := NewSSEWriter(w)
	if err != nil {
		h.writeTransportError(w, mcp.CollapseToInternal())
		return
	}
	defer sw.Close()

	for i := range reqs {
		resp := h.Dispatcher.Dispatch(r.Context(), sess, sw, &reqs[i])
		if resp == nil {
			continue
		}
		if err := sw.WriteResponse(resp); err != nil {
			if h.Logger != nil {
				h.Logger.Error("transport: unable to write sse response", "error", err)
			}
			return
		}
	}
}

// handleGet implements the long-lived, session-scoped SSE stream the
// third HTTP shape describes: server-initiated notifications not tied to
// any particular request.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		h.writeTransportError(w, mcp.NewError(mcp.KindInvalidRequest, "missing Mcp-Session-Id header"))
		return
	}
	sess, ok := h.Sessions.Get(id)
	if !ok {
		h.writeTransportError(w, mcp.NewError(mcp.KindInvalidRequest, "unknown session"))
		return
	}

	sw, err := NewSSEWriter(w)
	if err != nil {
		h.writeTransportError(w, mcp.CollapseToInternal())
		return
	}
	sess.SetBroadcastSink(sw)
	defer func() {
		sess.SetBroadcastSink(nil)
		sw.Close()
	}()

	<-r.Context().Done()
}

// handleDelete terminates a session per spec.md §6's DELETE contract.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		h.writeTransportError(w, mcp.NewError(mcp.KindInvalidRequest, "missing Mcp-Session-Id header"))
		return
	}
	if _, ok := h.Sessions.Get(id); !ok {
		h.writeTransportError(w, mcp.NewError(mcp.KindInvalidRequest, "unknown session"))
		return
	}
	h.Sessions.Delete(id)
	if h.Metrics != nil {
		h.Metrics.SetActiveSessions(h.Sessions.Len())
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeTransportError replies with a session-less JSON-RPC error: these
// arise before a request id, or even a session, could be resolved.
func (h *Handler) writeTransportError(w http.ResponseWriter, rpcErr *mcp.Error) {
	resp := mcp.NewErrorResponse(nil, rpcErr)
	raw, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, rpcErr.Message, http.StatusInternalServerError)
		return
	}
	status := http.StatusOK
	switch rpcErr.Code {
	case mcp.CodeParseError, mcp.CodeInvalidRequest, mcp.CodeInvalidParams:
		status = http.StatusBadRequest
	case mcp.CodeInternalError:
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}
