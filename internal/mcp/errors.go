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

// Kind names an error classification independent of the wire code it maps
// to, matching the taxonomy handlers are expected to reason about: parse
// failures are transport-local, everything else is a session-surviving
// fault.
type Kind string

const (
	KindParseError           Kind = "parse"
	KindInvalidRequest       Kind = "invalid_request"
	KindMethodNotFound       Kind = "method_not_found"
	KindInvalidParams        Kind = "invalid_params"
	KindInternalError        Kind = "internal_error"
	KindServerNotInitialized Kind = "server_not_initialized"
	KindRequestTimedOut      Kind = "request_timed_out"
	KindRequestCancelled     Kind = "request_cancelled"
)

var kindCodes = map[Kind]int{
	KindParseError:           CodeParseError,
	KindInvalidRequest:       CodeInvalidRequest,
	KindMethodNotFound:       CodeMethodNotFound,
	KindInvalidParams:        CodeInvalidParams,
	KindInternalError:        CodeInternalError,
	KindServerNotInitialized: CodeServerNotInitialized,
	KindRequestTimedOut:      CodeRequestTimedOut,
	KindRequestCancelled:     CodeRequestCancelled,
}

var kindMessages = map[Kind]string{
	KindParseError:           "parse error",
	KindInvalidRequest:       "invalid request",
	KindMethodNotFound:       "method not found",
	KindInvalidParams:        "invalid params",
	KindInternalError:        "internal error",
	KindServerNotInitialized: "server not initialized",
	KindRequestTimedOut:      "request timed out",
	KindRequestCancelled:     "request cancelled",
}

// NewError builds a JSON-RPC error object for the given kind. detail, if
// non-empty, replaces the stock message; it must already be redacted of
// anything the caller doesn't want echoed to the client.
func NewError(kind Kind, detail string) *Error {
	code, ok := kindCodes[kind]
	if !ok {
		code = CodeInternalError
	}
	msg := kindMessages[kind]
	if detail != "" {
		msg = detail
	}
	return &Error{Code: code, Message: msg}
}

// CollapseToInternal maps an arbitrary handler error (panic recover value
// or unclassified error) to the redacted internal-error shape that's safe
// to hand back to a client. The original error belongs in the local log,
// never in the response.
func CollapseToInternal() *Error {
	return NewError(KindInternalError, "")
}

// IsBusinessError reports the MCP distinction between a JSON-RPC
// transport-level error and a tool result whose payload merely signals
// isError:true. The dispatcher must only use NewError for the former.
func IsBusinessError(v any) bool {
	type errorFlagged interface {
		IsErrorFlag() bool
	}
	if ef, ok := v.(errorFlagged); ok {
		return ef.IsErrorFlag()
	}
	return false
}
