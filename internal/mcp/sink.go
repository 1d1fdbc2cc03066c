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

package mcp

import "encoding/json"

// OutboundSink is how anything server-side pushes a server-initiated
// request or notification toward the client: the streamable-HTTP SSE
// writer, the stdio framer, or a test double. It lives in this package
// (rather than session or transport) so both registry handlers and the
// session actor can depend on it without creating an import cycle between
// those two.
type OutboundSink interface {
	SendRequest(id json.RawMessage, method string, params any) error
	SendNotification(method string, params any) error
}
