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

package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcphost/mcphost/internal/log"
	"github.com/mcphost/mcphost/internal/util"
)

type contextKey string

const requestIDKey contextKey = "requestID"

// RequestIDMiddleware stamps every request with a uuid so downstream logs
// can be correlated without threading a session id through code that
// hasn't looked one up yet.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext retrieves the id stamped by RequestIDMiddleware.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// OriginAllowlist rejects cross-origin requests whose Origin header isn't
// in allowed, protecting against DNS-rebinding attacks against a
// locally-bound MCP server. An empty allowed list disables the check.
func OriginAllowlist(allowed []string, logger log.Logger) func(http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		allowedSet[o] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowedSet) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := allowedSet[origin]; !ok {
				if logger != nil {
					logger.Warn("rejected request with disallowed origin", "origin", origin, "path", r.URL.Path)
				}
				http.Error(w, "origin not allowed", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allowedProtocolVersions is the small allow-list SPEC_FULL §4 requires
// every POST/GET to be validated against before a session is touched.
var allowedProtocolVersions = map[string]struct{}{
	"2024-11-05": {},
	"2025-03-26": {},
}

// ValidateProtocolVersion checks the MCP-Protocol-Version header, if
// present, against the known version list. A missing header is tolerated
// (older clients predate the header) but an unrecognized one is rejected.
func ValidateProtocolVersion(r *http.Request) bool {
	v := r.Header.Get("MCP-Protocol-Version")
	if v == "" {
		return true
	}
	_, ok := allowedProtocolVersions[v]
	return ok
}

// ProtocolVersionMiddleware rejects requests carrying an unrecognized
// MCP-Protocol-Version header before a session is ever touched.
func ProtocolVersionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ValidateProtocolVersion(r) {
			http.Error(w, "unsupported MCP-Protocol-Version", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// InstrumentationMiddleware threads instr through every request's context
// so the dispatcher can start spans and record counters against it, the
// same way RequestIDMiddleware threads a request id.
func InstrumentationMiddleware(instr util.Instrumentation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if instr == nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(util.WithInstrumentation(r.Context(), instr)))
		})
	}
}
