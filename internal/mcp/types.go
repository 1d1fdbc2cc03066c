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

// Implementation identifies either end of the conversation (client or
// server) in the initialize handshake.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientCapabilities is the capability bag a client advertises on initialize.
type ClientCapabilities struct {
	Roots       *RootsCapability       `json:"roots,omitempty"`
	Sampling    map[string]any         `json:"sampling,omitempty"`
	Elicitation map[string]any         `json:"elicitation,omitempty"`
	Experimental map[string]any        `json:"experimental,omitempty"`
}

// RootsCapability describes the client's filesystem-root feature flags.
type RootsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ServerCapabilities is the capability bag the server advertises back.
type ServerCapabilities struct {
	Tools       *ToolsCapability       `json:"tools,omitempty"`
	Prompts     *PromptsCapability     `json:"prompts,omitempty"`
	Resources   *ResourcesCapability   `json:"resources,omitempty"`
	Logging     map[string]any         `json:"logging,omitempty"`
	Completions map[string]any         `json:"completions,omitempty"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type PromptsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type ResourcesCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
	Subscribe   bool `json:"subscribe,omitempty"`
}

// InitializeParams is the payload of the initialize request.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// InitializeResult is the server's reply to initialize.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	Instructions    string             `json:"instructions,omitempty"`
}

// PaginatedParams is embedded by every *.list request.
type PaginatedParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ContentBlock is one element of a tool result or prompt message: text,
// inline blob, or an embedded resource link, per the MCP content union.
type ContentBlock struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	Data     string          `json:"data,omitempty"`
	MimeType string          `json:"mimeType,omitempty"`
	Resource *ResourceLink   `json:"resource,omitempty"`
	Meta     json.RawMessage `json:"_meta,omitempty"`
}

// TextContent builds a plain text content block.
func TextContent(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// Tool describes one invocable tool entry.
type Tool struct {
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	InputSchema  json.RawMessage `json:"inputSchema"`
	OutputSchema json.RawMessage `json:"outputSchema,omitempty"`
}

// ToolsListResult is the reply to tools/list.
type ToolsListResult struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// ToolCallParams is the payload of tools/call.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Meta      *RequestMeta    `json:"_meta,omitempty"`
}

// RequestMeta carries out-of-band request metadata, currently just the
// progress token a caller opts a request into.
type RequestMeta struct {
	ProgressToken json.RawMessage `json:"progressToken,omitempty"`
}

// ToolCallResult is the reply to tools/call. IsError signals a
// business-level tool failure: it is still a JSON-RPC success.
type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// IsErrorFlag satisfies IsBusinessError's errorFlagged check; named
// distinctly from the IsError field since Go forbids a method and a field
// sharing a name on the same struct.
func (r ToolCallResult) IsErrorFlag() bool { return r.IsError }

// Prompt describes one prompt entry.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument describes one named argument a prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptsListResult is the reply to prompts/list.
type PromptsListResult struct {
	Prompts    []Prompt `json:"prompts"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// PromptGetParams is the payload of prompts/get.
type PromptGetParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
	Meta      *RequestMeta      `json:"_meta,omitempty"`
}

// PromptMessage is one rendered message in a prompt reply.
type PromptMessage struct {
	Role    string       `json:"role"`
	Content ContentBlock `json:"content"`
}

// PromptGetResult is the reply to prompts/get.
type PromptGetResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// ResourceLink describes a concrete, URI-addressable resource.
type ResourceLink struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ResourceTemplate describes a dynamic, templated resource family.
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ResourcesListResult is the reply to resources/list.
type ResourcesListResult struct {
	Resources  []ResourceLink `json:"resources"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// ResourceTemplatesListResult is the reply to resources/templates/list.
type ResourceTemplatesListResult struct {
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
	NextCursor        string             `json:"nextCursor,omitempty"`
}

// ResourceReadParams is the payload of resources/read.
type ResourceReadParams struct {
	URI  string       `json:"uri"`
	Meta *RequestMeta `json:"_meta,omitempty"`
}

// ResourceContents is one content entry in a resources/read reply; either
// Text or Blob (base64) is set, never both.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// ResourceReadResult is the reply to resources/read.
type ResourceReadResult struct {
	Contents []ResourceContents `json:"contents"`
}

// ResourceSubscribeParams is shared by resources/subscribe and
// resources/unsubscribe.
type ResourceSubscribeParams struct {
	URI string `json:"uri"`
}

// ProgressNotification is pushed as notifications/progress.
type ProgressNotification struct {
	ProgressToken json.RawMessage `json:"progressToken"`
	Progress      float64         `json:"progress"`
	Total         *float64        `json:"total,omitempty"`
	Message       string          `json:"message,omitempty"`
}

// LogLevel is an MCP logging severity, ordered low to high.
type LogLevel string

const (
	LogLevelDebug     LogLevel = "debug"
	LogLevelInfo      LogLevel = "info"
	LogLevelNotice    LogLevel = "notice"
	LogLevelWarning   LogLevel = "warning"
	LogLevelError     LogLevel = "error"
	LogLevelCritical  LogLevel = "critical"
	LogLevelAlert     LogLevel = "alert"
	LogLevelEmergency LogLevel = "emergency"
)

var logLevelRank = map[LogLevel]int{
	LogLevelDebug: 0, LogLevelInfo: 1, LogLevelNotice: 2, LogLevelWarning: 3,
	LogLevelError: 4, LogLevelCritical: 5, LogLevelAlert: 6, LogLevelEmergency: 7,
}

// AtLeast reports whether l is at or above threshold in severity.
func (l LogLevel) AtLeast(threshold LogLevel) bool {
	return logLevelRank[l] >= logLevelRank[threshold]
}

// LogMessageNotification is pushed as notifications/message.
type LogMessageNotification struct {
	Level  LogLevel        `json:"level"`
	Logger string          `json:"logger,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// LoggingSetLevelParams is the payload of logging/setLevel.
type LoggingSetLevelParams struct {
	Level LogLevel `json:"level"`
}

// CancelledNotification is the payload of notifications/cancelled.
type CancelledNotification struct {
	RequestID json.RawMessage `json:"requestId"`
	Reason    string          `json:"reason,omitempty"`
}

// ElicitationCreateParams is the server->client elicitation/create request.
type ElicitationCreateParams struct {
	Message         string          `json:"message"`
	RequestedSchema json.RawMessage `json:"requestedSchema"`
}

// ElicitationAction is the client's disposition toward an elicitation.
type ElicitationAction string

const (
	ElicitationAccept  ElicitationAction = "accept"
	ElicitationDecline ElicitationAction = "decline"
	ElicitationCancel  ElicitationAction = "cancel"
)

// ElicitationCreateResult is the client's reply to elicitation/create.
type ElicitationCreateResult struct {
	Action  ElicitationAction `json:"action"`
	Content json.RawMessage   `json:"content,omitempty"`
}

// CompletionReference names the tool/prompt/resource argument a
// completion/complete call targets.
type CompletionReference struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// CompletionArgument is the argument being completed and its partial value.
type CompletionArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CompletionCompleteParams is the payload of completion/complete.
type CompletionCompleteParams struct {
	Ref      CompletionReference `json:"ref"`
	Argument CompletionArgument  `json:"argument"`
}

// Completion is the reply payload of completion/complete.
type Completion struct {
	Values  []string `json:"values"`
	Total   *int     `json:"total,omitempty"`
	HasMore bool     `json:"hasMore,omitempty"`
}

// CompletionCompleteResult is the reply to completion/complete.
type CompletionCompleteResult struct {
	Completion Completion `json:"completion"`
}
