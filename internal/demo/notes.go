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

// Package demo wires a small reference registry -- a couple of tools, a
// prompt, a templated resource backed by SQLite, and a completion hook --
// so the dispatch and transport packages have something real to run
// against, the way the teacher's own binary ships a handful of first-party
// sources and tools rather than an empty registry.
package demo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/mcphost/mcphost/internal/mcp"
	"github.com/mcphost/mcphost/internal/registry"
)

// NotesStore is a tiny SQLite-backed key/value note store addressed by the
// notes://{id} resource template.
type NotesStore struct {
	db *sql.DB
}

// OpenNotesStore opens (creating if necessary) a SQLite database at path
// and seeds it with a couple of notes, mirroring the teacher's
// sources/sqlite.Config.Initialize connection setup.
func OpenNotesStore(path string) (*NotesStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("demo: unable to open notes database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS notes (id TEXT PRIMARY KEY, body TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("demo: unable to create notes table: %w", err)
	}
	seed := map[string]string{
		"welcome": "Welcome to mcphost. Edit this note or add your own.",
		"todo":    "Wire up a real resource source for your own data.",
	}
	for id, body := range seed {
		if _, err := db.Exec(`INSERT OR IGNORE INTO notes (id, body) VALUES (?, ?)`, id, body); err != nil {
			db.Close()
			return nil, fmt.Errorf("demo: unable to seed note %q: %w", id, err)
		}
	}
	return &NotesStore{db: db}, nil
}

// Close releases the underlying connection.
func (n *NotesStore) Close() error { return n.db.Close() }

// Get reads a note's body by id.
func (n *NotesStore) Get(ctx context.Context, id string) (string, error) {
	var body string
	err := n.db.QueryRowContext(ctx, `SELECT body FROM notes WHERE id = ?`, id).Scan(&body)
	return body, err
}

// IDs lists every registered note id, used by the notes completion hook.
func (n *NotesStore) IDs(ctx context.Context) ([]string, error) {
	rows, err := n.db.QueryContext(ctx, `SELECT id FROM notes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReadHandler returns the registry.ResourceHandler for the notes://{id}
// template. It is marked Streaming in the registry entry: it pushes a log
// notification before replying, so the caller sees this machinery exercise
// the deferred-reply path rather than sitting dead in the dispatcher.
func (n *NotesStore) ReadHandler() registry.ResourceHandler {
	return func(ctx context.Context, hc registry.HandlerContext, uri string, vars map[string]string) (mcp.ResourceReadResult, error) {
		id := vars["id"]
		if hc.Sink != nil {
			data, _ := json.Marshal(fmt.Sprintf("looking up note %q", id))
			_ = hc.Sink.SendNotification("notifications/message", mcp.LogMessageNotification{
				Level: mcp.LogLevelDebug, Logger: "demo.notes", Data: data,
			})
		}
		// a deliberate small delay so the async path is actually
		// observable rather than resolving before the caller's GET
		// stream even attaches.
		select {
		case <-time.After(10 * time.Millisecond):
		case <-ctx.Done():
			return mcp.ResourceReadResult{}, ctx.Err()
		}
		body, err := n.Get(ctx, id)
		if err != nil {
			return mcp.ResourceReadResult{}, fmt.Errorf("demo: note %q not found: %w", id, err)
		}
		return mcp.ResourceReadResult{
			Contents: []mcp.ResourceContents{{URI: uri, MimeType: "text/plain", Text: body}},
		}, nil
	}
}

// CompletionHandler proposes known note ids for the template's "id" argument.
func (n *NotesStore) CompletionHandler() registry.CompletionHandler {
	return func(ctx context.Context, arg mcp.CompletionArgument) (mcp.Completion, error) {
		ids, err := n.IDs(ctx)
		if err != nil {
			return mcp.Completion{}, err
		}
		var matches []string
		for _, id := range ids {
			if len(arg.Value) == 0 || (len(id) >= len(arg.Value) && id[:len(arg.Value)] == arg.Value) {
				matches = append(matches, id)
			}
		}
		return mcp.Completion{Values: matches, HasMore: false}, nil
	}
}

// marshalSchema is a small helper so callers can build inline JSON Schema
// literals without importing an encoder at every call site.
func marshalSchema(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("demo: invalid inline schema: %s", err))
	}
	return raw
}
