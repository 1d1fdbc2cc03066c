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

package dispatch

import (
	"encoding/json"

	"github.com/mcphost/mcphost/internal/mcp"
)

// RequiresStreaming reports whether req targets a registry entry that may
// push progress or log notifications before replying, per the registry
// Streaming flag. The transport must know this before it writes its first
// byte (spec.md §4.F), so this inspects only the registry -- never runs
// the handler.
func (d *Dispatcher) RequiresStreaming(req *mcp.Request) bool {
	switch req.Method {
	case "tools/call":
		var p mcp.ToolCallParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return false
		}
		entry, ok := d.Registry.Tool(p.Name)
		return ok && entry.Streaming
	case "prompts/get":
		var p mcp.PromptGetParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return false
		}
		entry, ok := d.Registry.Prompt(p.Name)
		return ok && entry.Streaming
	case "resources/read":
		var p mcp.ResourceReadParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return false
		}
		match, ok := d.Registry.Resource(p.URI)
		return ok && match.Streaming
	default:
		return false
	}
}
