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

package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mcphost/mcphost/internal/dispatch"
	"github.com/mcphost/mcphost/internal/mcp"
	"github.com/mcphost/mcphost/internal/registry"
)

func TestStdioInitializeAndPing(t *testing.T) {
	reg := registry.New()
	d := dispatch.New(reg, mcp.Implementation{Name: "Test", Version: "1.0"}, "", nil)

	in := strings.NewReader(
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"t","version":"1"}}}` + "\n" +
			`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n" +
			`{"jsonrpc":"2.0","id":2,"method":"ping"}` + "\n",
	)
	var out bytes.Buffer

	tr, err := New(d, in, &out, nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := tr.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	scanner := bufio.NewScanner(&out)
	var responses []mcp.Response
	for scanner.Scan() {
		var resp mcp.Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("unexpected error decoding line %q: %s", scanner.Text(), err)
		}
		responses = append(responses, resp)
	}

	// the notification never produces a line; only the two requests do.
	if len(responses) != 2 {
		t.Fatalf("got %d response lines, want 2: %+v", len(responses), responses)
	}
	if responses[0].Error != nil {
		t.Fatalf("unexpected initialize error: %+v", responses[0].Error)
	}
	if responses[1].Error != nil {
		t.Fatalf("unexpected ping error: %+v", responses[1].Error)
	}
}
