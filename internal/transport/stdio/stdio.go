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

// Package stdio implements the trivial newline-delimited-JSON framer that
// wraps the same Dispatcher the HTTP transport uses: one implicit session,
// no session id, stderr reserved for logs (spec.md §6's "CLI / stdio
// transport" external collaborator, made concrete since this repo ships a
// reference binary that runs without an HTTP listener).
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/mcphost/mcphost/internal/dispatch"
	"github.com/mcphost/mcphost/internal/log"
	"github.com/mcphost/mcphost/internal/mcp"
	"github.com/mcphost/mcphost/internal/session"
)

// Transport reads newline-delimited JSON-RPC frames from an input stream
// and writes replies (and any server-initiated pushes) to an output
// stream, serialized against each other the way a single SSE stream would
// be.
type Transport struct {
	Dispatcher *dispatch.Dispatcher
	Session    *session.Session
	Logger     log.Logger

	in  *bufio.Reader
	out io.Writer

	writeMu sync.Mutex
}

// New builds a stdio Transport over a freshly created implicit session.
func New(d *dispatch.Dispatcher, in io.Reader, out io.Writer, logger log.Logger) (*Transport, error) {
	sess, err := session.New()
	if err != nil {
		return nil, fmt.Errorf("stdio: unable to create implicit session: %w", err)
	}
	t := &Transport{Dispatcher: d, Session: sess, Logger: logger, in: bufio.NewReader(in), out: out}
	sess.SetBroadcastSink(t)
	return t, nil
}

// SendRequest implements session.OutboundSink: a server-initiated request
// (elicitation, roots/list, sampling) framed as one line.
func (t *Transport) SendRequest(id json.RawMessage, method string, params any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("stdio: unable to marshal params: %w", err)
	}
	req := mcp.Request{JSONRPC: mcp.Version, ID: id, Method: method, Params: raw}
	return t.writeLine(req)
}

// SendNotification implements session.OutboundSink.
func (t *Transport) SendNotification(method string, params any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("stdio: unable to marshal params: %w", err)
	}
	note := mcp.Request{JSONRPC: mcp.Version, Method: method, Params: raw}
	return t.writeLine(note)
}

func (t *Transport) writeLine(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("stdio: unable to marshal message: %w", err)
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := fmt.Fprintf(t.out, "%s\n", raw); err != nil {
		return fmt.Errorf("stdio: unable to write message: %w", err)
	}
	return nil
}

// Run reads one JSON-RPC frame per line until ctx is cancelled or the
// input stream reaches EOF, dispatching each against the implicit
// session and writing the reply (if any) back on its own line.
func (t *Transport) Run(ctx context.Context) error {
	defer t.Session.Close()
	for {
		line, err := t.readLine(ctx)
		if err != nil {
			if err == io.EOF || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if len(line) == 0 {
			continue
		}

		reqs, _, parseErr := mcp.ParseMessages(line)
		if parseErr != nil {
			rpcErr, ok := parseErr.(*mcp.Error)
			if !ok {
				rpcErr = mcp.NewError(mcp.KindParseError, parseErr.Error())
			}
			if err := t.writeLine(mcp.NewErrorResponse(nil, rpcErr)); err != nil {
				return err
			}
			continue
		}

		for i := range reqs {
			resp := t.Dispatcher.Dispatch(ctx, t.Session, t, &reqs[i])
			if resp == nil {
				continue
			}
			if err := t.writeLine(resp); err != nil {
				return err
			}
		}
	}
}

// readLine blocks on the next newline-terminated frame while remaining
// cancellable through ctx, mirroring the teacher's cancellable stdin read.
func (t *Transport) readLine(ctx context.Context) ([]byte, error) {
	type result struct {
		line []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := t.in.ReadBytes('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil && r.err != io.EOF {
			return nil, fmt.Errorf("stdio: read error: %w", r.err)
		}
		if len(r.line) == 0 && r.err == io.EOF {
			return nil, io.EOF
		}
		return r.line, nil
	}
}
