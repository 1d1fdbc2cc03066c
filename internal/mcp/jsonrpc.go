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

// Package mcp implements the transport-neutral JSON-RPC 2.0 envelope used
// by the Model Context Protocol: message parsing/serialization, the MCP
// data model, and the error-kind-to-JSON-RPC-code mapping.
package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the version this package negotiates by default.
const ProtocolVersion = "2024-11-05"

// Version is the constant value of the "jsonrpc" field on every envelope.
const Version = "2.0"

// Request is a single JSON-RPC request or notification. A nil ID marks a
// notification: the dispatcher never emits a reply for it.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether this request carries no id.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

// Response is a single JSON-RPC reply. Exactly one of Result or Error is
// set, never both.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// NewResultResponse builds a successful reply for the given request id.
func NewResultResponse(id json.RawMessage, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal result: %w", err)
	}
	return &Response{JSONRPC: Version, ID: id, Result: raw}, nil
}

// NewErrorResponse builds a failing reply for the given request id.
func NewErrorResponse(id json.RawMessage, err *Error) *Response {
	return &Response{JSONRPC: Version, ID: id, Error: err}
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Standard and MCP-specific JSON-RPC error codes.
const (
	CodeParseError           = -32700
	CodeInvalidRequest       = -32600
	CodeMethodNotFound       = -32601
	CodeInvalidParams        = -32602
	CodeInternalError        = -32603
	CodeServerNotInitialized = -32002
	CodeRequestTimedOut      = -32001
	CodeRequestCancelled     = -32800
)

// ParseMessages decodes a raw HTTP/stdio frame body into one or more
// requests; an empty body or an empty batch is an error. isBatch tells the caller whether the reply must be serialized
// back as a JSON array even if it ends up containing a single element.
func ParseMessages(data []byte) (reqs []Request, isBatch bool, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, false, &Error{Code: CodeParseError, Message: "empty request body"}
	}

	if trimmed[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, true, &Error{Code: CodeParseError, Message: "invalid JSON: " + err.Error()}
		}
		if len(raw) == 0 {
			return nil, true, &Error{Code: CodeInvalidRequest, Message: "batch request must not be empty"}
		}
		reqs = make([]Request, len(raw))
		for i, r := range raw {
			if err := decodeOne(r, &reqs[i]); err != nil {
				return nil, true, err
			}
		}
		return reqs, true, nil
	}

	var req Request
	if err := decodeOne(trimmed, &req); err != nil {
		return nil, false, err
	}
	return []Request{req}, false, nil
}

func decodeOne(data json.RawMessage, req *Request) error {
	if err := json.Unmarshal(data, req); err != nil {
		return &Error{Code: CodeParseError, Message: "invalid JSON: " + err.Error()}
	}
	if req.JSONRPC != Version {
		return &Error{Code: CodeInvalidRequest, Message: fmt.Sprintf("unsupported jsonrpc version %q", req.JSONRPC)}
	}
	if req.Method == "" {
		return &Error{Code: CodeInvalidRequest, Message: "missing method"}
	}
	return nil
}

// EncodeResponses serializes replies back into the shape the request took:
// a single object if isBatch is false and exactly one reply was produced,
// an array otherwise. Notifications never contribute a Response and must
// be excluded by the caller before invoking this.
func EncodeResponses(responses []*Response, isBatch bool) ([]byte, error) {
	if !isBatch && len(responses) == 1 {
		return json.Marshal(responses[0])
	}
	return json.Marshal(responses)
}
