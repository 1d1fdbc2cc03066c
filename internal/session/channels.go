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
	"encoding/json"
	"fmt"

	"github.com/mcphost/mcphost/internal/mcp"
)

// EmitProgress pushes a notifications/progress message over sink if token
// is non-empty. A handler that never opted a request into progress
// tracking (no _meta.progressToken) should simply not call this.
func (s *Session) EmitProgress(sink OutboundSink, token json.RawMessage, progress float64, total *float64, message string) error {
	if len(token) == 0 {
		return nil
	}
	note := mcp.ProgressNotification{ProgressToken: token, Progress: progress, Total: total, Message: message}
	if err := sink.SendNotification("notifications/progress", note); err != nil {
		return fmt.Errorf("session: unable to emit progress: %w", err)
	}
	return nil
}

// EmitLog pushes a notifications/message record over sink if its level
// meets or exceeds the session's current threshold; records below
// threshold are silently dropped, matching the filtering rule in
// spec.md's progress/log/elicitation section.
func (s *Session) EmitLog(sink OutboundSink, level mcp.LogLevel, logger string, data any) error {
	if !level.AtLeast(s.LogLevel()) {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session: unable to marshal log data: %w", err)
	}
	note := mcp.LogMessageNotification{Level: level, Logger: logger, Data: raw}
	if err := sink.SendNotification("notifications/message", note); err != nil {
		return fmt.Errorf("session: unable to emit log: %w", err)
	}
	return nil
}
