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
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcphost/mcphost/internal/mcp"
	"github.com/mcphost/mcphost/internal/registry"
)

var methodTable = map[string]HandlerFunc{
	"initialize":                handleInitialize,
	"ping":                      handlePing,
	"tools/list":                handleToolsList,
	"prompts/list":              handlePromptsList,
	"resources/list":            handleResourcesList,
	"resources/templates/list":  handleResourceTemplatesList,
	"tools/call":                handleToolsCall,
	"prompts/get":               handlePromptsGet,
	"resources/read":            handleResourcesRead,
	"resources/subscribe":       handleResourcesSubscribe,
	"resources/unsubscribe":     handleResourcesUnsubscribe,
	"completion/complete":       handleCompletionComplete,
	"logging/setLevel":          handleLoggingSetLevel,
}

func handleInitialize(ctx context.Context, hc *HandlerContext) (Outcome, *mcp.Error) {
	var params mcp.InitializeParams
	if err := json.Unmarshal(hc.Params, &params); err != nil {
		return Outcome{}, mcp.NewError(mcp.KindInvalidParams, "malformed initialize params")
	}
	if err := hc.Session.Initialize(params.ProtocolVersion, params.Capabilities); err != nil {
		return Outcome{}, mcp.NewError(mcp.KindInvalidRequest, err.Error())
	}

	result := mcp.InitializeResult{
		ProtocolVersion: mcp.ProtocolVersion,
		ServerInfo:      hc.Dispatcher.ServerInfo,
		Instructions:    hc.Dispatcher.Instructions,
		Capabilities: mcp.ServerCapabilities{
			Tools:       &mcp.ToolsCapability{ListChanged: true},
			Prompts:     &mcp.PromptsCapability{ListChanged: true},
			Resources:   &mcp.ResourcesCapability{ListChanged: true, Subscribe: true},
			Logging:     map[string]any{},
			Completions: map[string]any{},
		},
	}
	return Reply(result), nil
}

func handlePing(ctx context.Context, hc *HandlerContext) (Outcome, *mcp.Error) {
	return Reply(map[string]any{}), nil
}

func handleToolsList(ctx context.Context, hc *HandlerContext) (Outcome, *mcp.Error) {
	var params mcp.PaginatedParams
	_ = json.Unmarshal(hc.Params, &params)
	result, err := hc.Dispatcher.Registry.ListTools(hc.Session.CursorSigner, params.Cursor, hc.Dispatcher.PageSize)
	if err != nil {
		return Outcome{}, mcp.NewError(mcp.KindInvalidParams, err.Error())
	}
	return Reply(result), nil
}

func handlePromptsList(ctx context.Context, hc *HandlerContext) (Outcome, *mcp.Error) {
	var params mcp.PaginatedParams
	_ = json.Unmarshal(hc.Params, &params)
	result, err := hc.Dispatcher.Registry.ListPrompts(hc.Session.CursorSigner, params.Cursor, hc.Dispatcher.PageSize)
	if err != nil {
		return Outcome{}, mcp.NewError(mcp.KindInvalidParams, err.Error())
	}
	return Reply(result), nil
}

func handleResourcesList(ctx context.Context, hc *HandlerContext) (Outcome, *mcp.Error) {
	var params mcp.PaginatedParams
	_ = json.Unmarshal(hc.Params, &params)
	result, err := hc.Dispatcher.Registry.ListResources(hc.Session.CursorSigner, params.Cursor, hc.Dispatcher.PageSize)
	if err != nil {
		return Outcome{}, mcp.NewError(mcp.KindInvalidParams, err.Error())
	}
	return Reply(result), nil
}

func handleResourceTemplatesList(ctx context.Context, hc *HandlerContext) (Outcome, *mcp.Error) {
	var params mcp.PaginatedParams
	_ = json.Unmarshal(hc.Params, &params)
	result, err := hc.Dispatcher.Registry.ListResourceTemplates(hc.Session.CursorSigner, params.Cursor, hc.Dispatcher.PageSize)
	if err != nil {
		return Outcome{}, mcp.NewError(mcp.KindInvalidParams, err.Error())
	}
	return Reply(result), nil
}

// registryContext builds the facilities a registry handler needs from the
// dispatcher's own HandlerContext: the transport sink so a streaming
// handler can push progress or log notifications, and the caller's
// progress token, if any.
func registryContext(hc *HandlerContext, token json.RawMessage) registry.HandlerContext {
	return registry.HandlerContext{Sink: hc.Sink, ProgressToken: token}
}

func handleToolsCall(ctx context.Context, hc *HandlerContext) (Outcome, *mcp.Error) {
	var params mcp.ToolCallParams
	if err := json.Unmarshal(hc.Params, &params); err != nil {
		return Outcome{}, mcp.NewError(mcp.KindInvalidParams, "malformed tools/call params")
	}
	entry, ok := hc.Dispatcher.Registry.Tool(params.Name)
	if !ok {
		return Outcome{}, mcp.NewError(mcp.KindMethodNotFound, fmt.Sprintf("unknown tool %q", params.Name))
	}
	var token json.RawMessage
	if params.Meta != nil {
		token = params.Meta.ProgressToken
	}
	if entry.Streaming {
		runAsync(ctx, hc, func() (any, error) { return entry.Handler(ctx, registryContext(hc, token), params.Arguments) })
		return NoReply(), nil
	}
	result, err := entry.Handler(ctx, registryContext(hc, token), params.Arguments)
	if err != nil {
		return Outcome{}, mcp.CollapseToInternal()
	}
	return Reply(result), nil
}

// runAsync runs a Streaming registry handler on its own goroutine and
// posts its eventual result to hc.Deferred, so the caller can push
// progress/log notifications over hc.Sink for as long as it likes before
// the dispatcher's final reply goes out (spec.md's async-read scenario).
func runAsync(ctx context.Context, hc *HandlerContext, run func() (any, error)) {
	go func() {
		result, err := run()
		if err != nil {
			hc.Deferred.Post(nil, mcp.CollapseToInternal())
			return
		}
		hc.Deferred.Post(result, nil)
	}()
}

func handlePromptsGet(ctx context.Context, hc *HandlerContext) (Outcome, *mcp.Error) {
	var params mcp.PromptGetParams
	if err := json.Unmarshal(hc.Params, &params); err != nil {
		return Outcome{}, mcp.NewError(mcp.KindInvalidParams, "malformed prompts/get params")
	}
	entry, ok := hc.Dispatcher.Registry.Prompt(params.Name)
	if !ok {
		return Outcome{}, mcp.NewError(mcp.KindMethodNotFound, fmt.Sprintf("unknown prompt %q", params.Name))
	}
	var token json.RawMessage
	if params.Meta != nil {
		token = params.Meta.ProgressToken
	}
	result, err := entry.Handler(ctx, registryContext(hc, token), params.Arguments)
	if err != nil {
		return Outcome{}, mcp.CollapseToInternal()
	}
	return Reply(result), nil
}

func handleResourcesRead(ctx context.Context, hc *HandlerContext) (Outcome, *mcp.Error) {
	var params mcp.ResourceReadParams
	if err := json.Unmarshal(hc.Params, &params); err != nil {
		return Outcome{}, mcp.NewError(mcp.KindInvalidParams, "malformed resources/read params")
	}
	match, ok := hc.Dispatcher.Registry.Resource(params.URI)
	if !ok {
		return Outcome{}, mcp.NewError(mcp.KindMethodNotFound, fmt.Sprintf("unknown resource %q", params.URI))
	}
	var token json.RawMessage
	if params.Meta != nil {
		token = params.Meta.ProgressToken
	}
	if match.Streaming {
		runAsync(ctx, hc, func() (any, error) { return match.Handler(ctx, registryContext(hc, token), params.URI, match.Vars) })
		return NoReply(), nil
	}
	result, err := match.Handler(ctx, registryContext(hc, token), params.URI, match.Vars)
	if err != nil {
		return Outcome{}, mcp.CollapseToInternal()
	}
	return Reply(result), nil
}

func handleResourcesSubscribe(ctx context.Context, hc *HandlerContext) (Outcome, *mcp.Error) {
	var params mcp.ResourceSubscribeParams
	if err := json.Unmarshal(hc.Params, &params); err != nil {
		return Outcome{}, mcp.NewError(mcp.KindInvalidParams, "malformed resources/subscribe params")
	}
	hc.Session.Subscribe(params.URI)
	return Reply(map[string]any{}), nil
}

func handleResourcesUnsubscribe(ctx context.Context, hc *HandlerContext) (Outcome, *mcp.Error) {
	var params mcp.ResourceSubscribeParams
	if err := json.Unmarshal(hc.Params, &params); err != nil {
		return Outcome{}, mcp.NewError(mcp.KindInvalidParams, "malformed resources/unsubscribe params")
	}
	hc.Session.Unsubscribe(params.URI)
	return Reply(map[string]any{}), nil
}

func handleCompletionComplete(ctx context.Context, hc *HandlerContext) (Outcome, *mcp.Error) {
	var params mcp.CompletionCompleteParams
	if err := json.Unmarshal(hc.Params, &params); err != nil {
		return Outcome{}, mcp.NewError(mcp.KindInvalidParams, "malformed completion/complete params")
	}
	handler, ok := hc.Dispatcher.Registry.CompletionHandlerFor(params.Ref.Type, params.Ref.Name, params.Argument.Name)
	if !ok {
		return Outcome{}, mcp.NewError(mcp.KindMethodNotFound, "no completion hook registered for this argument")
	}
	completion, err := handler(ctx, params.Argument)
	if err != nil {
		return Outcome{}, mcp.CollapseToInternal()
	}
	return Reply(mcp.CompletionCompleteResult{Completion: completion}), nil
}

func handleLoggingSetLevel(ctx context.Context, hc *HandlerContext) (Outcome, *mcp.Error) {
	var params mcp.LoggingSetLevelParams
	if err := json.Unmarshal(hc.Params, &params); err != nil {
		return Outcome{}, mcp.NewError(mcp.KindInvalidParams, "malformed logging/setLevel params")
	}
	hc.Session.SetLogLevel(params.Level)
	return Reply(map[string]any{}), nil
}
