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

// Package registry holds the declarative description of every tool,
// prompt, resource, and resource template a server exposes, and serves
// the paginated listings the dispatcher's *.list methods return.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mcphost/mcphost/internal/cursor"
	"github.com/mcphost/mcphost/internal/mcp"
	"github.com/mcphost/mcphost/internal/uritemplate"
)

// HandlerContext carries the per-call facilities a handler needs beyond its
// arguments: a sink for pushing progress/log notifications (and, rarely, a
// nested server-initiated request) before the handler's own reply is ready,
// and the progress token the caller attached, if any.
type HandlerContext struct {
	Sink           mcp.OutboundSink
	ProgressToken  json.RawMessage
}

// ToolHandler invokes a registered tool. arguments is the raw JSON object
// from the request's "arguments" field.
type ToolHandler func(ctx context.Context, hc HandlerContext, arguments json.RawMessage) (mcp.ToolCallResult, error)

// PromptHandler renders a registered prompt given its arguments.
type PromptHandler func(ctx context.Context, hc HandlerContext, arguments map[string]string) (mcp.PromptGetResult, error)

// ResourceHandler reads a registered resource or resource-template match.
// vars is nil for a concrete resource link.
type ResourceHandler func(ctx context.Context, hc HandlerContext, uri string, vars map[string]string) (mcp.ResourceReadResult, error)

// CompletionHandler proposes completions for one argument of a tool,
// prompt, or resource template.
type CompletionHandler func(ctx context.Context, arg mcp.CompletionArgument) (mcp.Completion, error)

// ToolEntry is a registered tool.
type ToolEntry struct {
	Name           string
	Description    string
	InputSchema    json.RawMessage
	OutputSchema   json.RawMessage
	Handler        ToolHandler
	CompletionHook string
	// Streaming marks a handler that may push progress or log
	// notifications through HandlerContext.Sink before returning its
	// reply, so the transport must commit to an SSE response up front
	// rather than deciding after the handler has already run.
	Streaming bool
}

// PromptEntry is a registered prompt.
type PromptEntry struct {
	Name           string
	Description    string
	Arguments      []mcp.PromptArgument
	Handler        PromptHandler
	CompletionHook string
	Streaming      bool
}

// ResourceEntry is a registered concrete resource link.
type ResourceEntry struct {
	URI         string
	Name        string
	Description string
	MimeType    string
	Handler     ResourceHandler
	Streaming   bool
}

// ResourceTemplateEntry is a registered URI-templated resource family.
type ResourceTemplateEntry struct {
	Template       *uritemplate.Template
	Name           string
	Description    string
	MimeType       string
	Handler        ResourceHandler
	CompletionHook string
	Streaming      bool
}

type completionKey struct {
	refType string
	refName string
	arg     string
}

// Registry is the shared configuration every session dispatches against.
// Entries may be added at runtime through the Register* methods; no method
// removes one. Every mutation happens under the write lock, so readers
// never observe a torn update.
type Registry struct {
	mu sync.RWMutex

	tools   []ToolEntry
	prompts []PromptEntry

	resources         []ResourceEntry
	resourceTemplates []ResourceTemplateEntry
	templateRouter    *uritemplate.Router

	completions map[completionKey]CompletionHandler
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{completions: make(map[completionKey]CompletionHandler)}
}

// RegisterTool adds a tool entry. Returns an error if the name is already
// registered.
func (r *Registry) RegisterTool(entry ToolEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tools {
		if t.Name == entry.Name {
			return fmt.Errorf("registry: tool %q already registered", entry.Name)
		}
	}
	r.tools = append(r.tools, entry)
	return nil
}

// RegisterPrompt adds a prompt entry.
func (r *Registry) RegisterPrompt(entry PromptEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.prompts {
		if p.Name == entry.Name {
			return fmt.Errorf("registry: prompt %q already registered", entry.Name)
		}
	}
	r.prompts = append(r.prompts, entry)
	return nil
}

// RegisterResource adds a concrete resource link.
func (r *Registry) RegisterResource(entry ResourceEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.resources {
		if res.URI == entry.URI {
			return fmt.Errorf("registry: resource %q already registered", entry.URI)
		}
	}
	r.resources = append(r.resources, entry)
	return nil
}

// RegisterResourceTemplate adds a resource template, rejecting it if it
// would make any concrete URI's match ambiguous against an existing
// template (the registry invariant in spec.md §3).
func (r *Registry) RegisterResourceTemplate(entry ResourceTemplateEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	candidates := make([]*uritemplate.Template, 0, len(r.resourceTemplates)+1)
	for _, rt := range r.resourceTemplates {
		candidates = append(candidates, rt.Template)
	}
	candidates = append(candidates, entry.Template)
	if a, b, ok := uritemplate.Ambiguous(candidates); ok {
		return fmt.Errorf("registry: templates %q and %q produce ambiguous matches", a.String(), b.String())
	}

	r.resourceTemplates = append(r.resourceTemplates, entry)
	r.templateRouter = uritemplate.NewRouter(candidates)
	return nil
}

// RegisterCompletionHook binds a completion handler to one argument of a
// tool, prompt, or resource-template reference.
func (r *Registry) RegisterCompletionHook(refType, refName, argName string, handler CompletionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions[completionKey{refType: refType, refName: refName, arg: argName}] = handler
}

// CompletionHandlerFor looks up the completion hook for a given reference
// and argument name.
func (r *Registry) CompletionHandlerFor(refType, refName, argName string) (CompletionHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.completions[completionKey{refType: refType, refName: refName, arg: argName}]
	return h, ok
}

// Tool looks up a tool entry by name.
func (r *Registry) Tool(name string) (ToolEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tools {
		if t.Name == name {
			return t, true
		}
	}
	return ToolEntry{}, false
}

// Prompt looks up a prompt entry by name.
func (r *Registry) Prompt(name string) (PromptEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.prompts {
		if p.Name == name {
			return p, true
		}
	}
	return PromptEntry{}, false
}

// ResourceMatch is a resolved resource lookup: either a concrete link or a
// template match, with the variables extracted from the latter.
type ResourceMatch struct {
	Handler   ResourceHandler
	Vars      map[string]string
	Streaming bool
}

// Resource looks up a concrete resource by URI, falling back to the
// template router (longest-literal-prefix-first, then lexicographic) for
// dynamic URIs.
func (r *Registry) Resource(uri string) (ResourceMatch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, res := range r.resources {
		if res.URI == uri {
			return ResourceMatch{Handler: res.Handler, Streaming: res.Streaming}, true
		}
	}
	if r.templateRouter == nil {
		return ResourceMatch{}, false
	}
	tmpl, vars, ok := r.templateRouter.Resolve(uri)
	if !ok {
		return ResourceMatch{}, false
	}
	for _, rt := range r.resourceTemplates {
		if rt.Template == tmpl {
			return ResourceMatch{Handler: rt.Handler, Vars: vars, Streaming: rt.Streaming}, true
		}
	}
	return ResourceMatch{}, false
}

// ListTools returns one page of tools in registration order.
func (r *Registry) ListTools(signer *cursor.Signer, token string, pageSize int) (mcp.ToolsListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	offset, err := signer.Decode(cursor.NamespaceTools, token)
	if err != nil {
		return mcp.ToolsListResult{}, err
	}
	page, next := paginate(len(r.tools), offset, pageSize)
	out := make([]mcp.Tool, 0, len(page))
	for _, i := range page {
		t := r.tools[i]
		out = append(out, mcp.Tool{
			Name:         t.Name,
			Description:  t.Description,
			InputSchema:  t.InputSchema,
			OutputSchema: t.OutputSchema,
		})
	}
	result := mcp.ToolsListResult{Tools: out}
	if next >= 0 {
		result.NextCursor = signer.Encode(cursor.NamespaceTools, uint64(next))
	}
	return result, nil
}

// ListPrompts returns one page of prompts in registration order.
func (r *Registry) ListPrompts(signer *cursor.Signer, token string, pageSize int) (mcp.PromptsListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	offset, err := signer.Decode(cursor.NamespacePrompts, token)
	if err != nil {
		return mcp.PromptsListResult{}, err
	}
	page, next := paginate(len(r.prompts), offset, pageSize)
	out := make([]mcp.Prompt, 0, len(page))
	for _, i := range page {
		p := r.prompts[i]
		out = append(out, mcp.Prompt{Name: p.Name, Description: p.Description, Arguments: p.Arguments})
	}
	result := mcp.PromptsListResult{Prompts: out}
	if next >= 0 {
		result.NextCursor = signer.Encode(cursor.NamespacePrompts, uint64(next))
	}
	return result, nil
}

// ListResources returns one page of concrete resource links in
// registration order.
func (r *Registry) ListResources(signer *cursor.Signer, token string, pageSize int) (mcp.ResourcesListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	offset, err := signer.Decode(cursor.NamespaceResources, token)
	if err != nil {
		return mcp.ResourcesListResult{}, err
	}
	page, next := paginate(len(r.resources), offset, pageSize)
	out := make([]mcp.ResourceLink, 0, len(page))
	for _, i := range page {
		res := r.resources[i]
		out = append(out, mcp.ResourceLink{URI: res.URI, Name: res.Name, Description: res.Description, MimeType: res.MimeType})
	}
	result := mcp.ResourcesListResult{Resources: out}
	if next >= 0 {
		result.NextCursor = signer.Encode(cursor.NamespaceResources, uint64(next))
	}
	return result, nil
}

// ListResourceTemplates returns one page of resource templates in
// registration order.
func (r *Registry) ListResourceTemplates(signer *cursor.Signer, token string, pageSize int) (mcp.ResourceTemplatesListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	offset, err := signer.Decode(cursor.NamespaceResourceTemplates, token)
	if err != nil {
		return mcp.ResourceTemplatesListResult{}, err
	}
	page, next := paginate(len(r.resourceTemplates), offset, pageSize)
	out := make([]mcp.ResourceTemplate, 0, len(page))
	for _, i := range page {
		rt := r.resourceTemplates[i]
		out = append(out, mcp.ResourceTemplate{URITemplate: rt.Template.String(), Name: rt.Name, Description: rt.Description, MimeType: rt.MimeType})
	}
	result := mcp.ResourceTemplatesListResult{ResourceTemplates: out}
	if next >= 0 {
		result.NextCursor = signer.Encode(cursor.NamespaceResourceTemplates, uint64(next))
	}
	return result, nil
}

// paginate returns the indices [offset, offset+pageSize) clamped to
// [0,total), plus the next offset to resume at, or -1 if exhausted.
// offsets beyond total simply yield an empty page (an entry removed
// mid-iteration shifts later offsets but never duplicates an entry).
func paginate(total int, offset uint64, pageSize int) (page []int, next int) {
	if pageSize <= 0 {
		pageSize = cursor.DefaultPageSize
	}
	start := int(offset)
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	page = make([]int, 0, end-start)
	for i := start; i < end; i++ {
		page = append(page, i)
	}
	if end < total {
		return page, end
	}
	return page, -1
}
