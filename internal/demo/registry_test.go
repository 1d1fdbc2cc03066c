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
	"testing"

	"github.com/mcphost/mcphost/internal/mcp"
	"github.com/mcphost/mcphost/internal/registry"
)

func TestBuildRegistersEverything(t *testing.T) {
	reg, notes, err := Build("")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	defer notes.Close()

	if _, ok := reg.Tool("echo_tool"); !ok {
		t.Fatalf("expected echo_tool to be registered")
	}
	if _, ok := reg.Tool("explode_tool"); !ok {
		t.Fatalf("expected explode_tool to be registered")
	}
	if _, ok := reg.Prompt("greeting"); !ok {
		t.Fatalf("expected greeting prompt to be registered")
	}
	match, ok := reg.Resource("notes://welcome")
	if !ok {
		t.Fatalf("expected notes://welcome to resolve against the template")
	}
	if !match.Streaming {
		t.Fatalf("expected the notes template to be marked Streaming")
	}
	if _, ok := reg.CompletionHandlerFor("ref/resource", "notes://{id}", "id"); !ok {
		t.Fatalf("expected a completion hook for the notes template's id argument")
	}
}

func TestNotesReadHandlerReturnsSeededBody(t *testing.T) {
	_, notes, err := Build("")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	defer notes.Close()

	handler := notes.ReadHandler()
	result, err := handler(context.Background(), registry.HandlerContext{}, "notes://welcome", map[string]string{"id": "welcome"})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(result.Contents) != 1 || result.Contents[0].Text == "" {
		t.Fatalf("got %+v, want a non-empty seeded note body", result.Contents)
	}
}

func TestNotesCompletionHandlerFiltersByPrefix(t *testing.T) {
	_, notes, err := Build("")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	defer notes.Close()

	completion, err := notes.CompletionHandler()(context.Background(), mcp.CompletionArgument{Name: "id", Value: "we"})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(completion.Values) != 1 || completion.Values[0] != "welcome" {
		t.Fatalf("got %+v, want exactly [welcome]", completion.Values)
	}
}
