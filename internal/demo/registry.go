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

package demo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcphost/mcphost/internal/mcp"
	"github.com/mcphost/mcphost/internal/registry"
	"github.com/mcphost/mcphost/internal/uritemplate"
)

// echoArgs is tools/call's arguments for echo_tool.
type echoArgs struct {
	Message string `json:"message"`
}

// Build assembles the reference registry: echo_tool and explode_tool (the
// two literal scenarios the dispatcher's own tests exercise), a greeting
// prompt, and a notes://{id} resource template backed by notes, plus its
// completion hook. dbPath is passed to OpenNotesStore; an empty dbPath
// selects a shared-cache in-memory SQLite database
// ("file::memory:?cache=shared") instead of a file.
func Build(dbPath string) (*registry.Registry, *NotesStore, error) {
	if dbPath == "" {
		dbPath = "file::memory:?cache=shared"
	}
	notes, err := OpenNotesStore(dbPath)
	if err != nil {
		return nil, nil, err
	}

	reg := registry.New()

	if err := reg.RegisterTool(registry.ToolEntry{
		Name:        "echo_tool",
		Description: "Echoes the message argument back as the tool result.",
		InputSchema: marshalSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{"type": "string"},
			},
			"required": []string{"message"},
		}),
		Handler: func(ctx context.Context, hc registry.HandlerContext, arguments json.RawMessage) (mcp.ToolCallResult, error) {
			var args echoArgs
			if err := json.Unmarshal(arguments, &args); err != nil {
				return mcp.ToolCallResult{}, fmt.Errorf("demo: malformed echo_tool arguments: %w", err)
			}
			return mcp.ToolCallResult{Content: []mcp.ContentBlock{mcp.TextContent(args.Message)}}, nil
		},
	}); err != nil {
		return nil, nil, err
	}

	if err := reg.RegisterTool(registry.ToolEntry{
		Name:        "explode_tool",
		Description: "Always fails, to exercise the dispatcher's panic/error collapse into -32603.",
		InputSchema: marshalSchema(map[string]any{"type": "object"}),
		Handler: func(ctx context.Context, hc registry.HandlerContext, arguments json.RawMessage) (mcp.ToolCallResult, error) {
			panic("explode_tool always panics")
		},
	}); err != nil {
		return nil, nil, err
	}

	if err := reg.RegisterPrompt(registry.PromptEntry{
		Name:        "greeting",
		Description: "Renders a short greeting for the named user.",
		Arguments:   []mcp.PromptArgument{{Name: "name", Description: "who to greet", Required: true}},
		Handler: func(ctx context.Context, hc registry.HandlerContext, arguments map[string]string) (mcp.PromptGetResult, error) {
			name := arguments["name"]
			if name == "" {
				name = "there"
			}
			return mcp.PromptGetResult{
				Description: "a one-line greeting",
				Messages: []mcp.PromptMessage{{
					Role:    "user",
					Content: mcp.TextContent(fmt.Sprintf("Say hello to %s.", name)),
				}},
			}, nil
		},
	}); err != nil {
		return nil, nil, err
	}

	notesTemplate, err := uritemplate.Parse("notes://{id}")
	if err != nil {
		return nil, nil, fmt.Errorf("demo: invalid notes template: %w", err)
	}
	if err := reg.RegisterResourceTemplate(registry.ResourceTemplateEntry{
		Template:       notesTemplate,
		Name:           "notes",
		Description:    "A note stored in the reference SQLite-backed note store.",
		MimeType:       "text/plain",
		Handler:        notes.ReadHandler(),
		CompletionHook: "notes-id",
		Streaming:      true,
	}); err != nil {
		return nil, nil, err
	}
	reg.RegisterCompletionHook("ref/resource", "notes://{id}", "id", notes.CompletionHandler())

	return reg, notes, nil
}
