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

// Package uritemplate implements the subset of RFC 6570 ("URI Template")
// mcphost's resource templates need: Level 1 expressions, one variable per
// path segment, e.g. "notes://{id}" or "repos/{owner}/{repo}/issues/{n}".
package uritemplate

import (
	"fmt"
	"net/url"
	"strings"
)

// segmentKind distinguishes a literal path segment from a variable one.
type segmentKind int

const (
	literal segmentKind = iota
	variable
)

type segment struct {
	kind segmentKind
	text string // literal text, or variable name
}

// Template is a parsed URI template ready for matching or expansion.
type Template struct {
	raw      string
	segments []segment
	// literalPrefixLen is the number of leading literal segments; used to
	// break registration ties by longest-literal-prefix-first.
	literalPrefixLen int
}

// Parse compiles a Level 1 template. Only "{name}" expressions are
// supported, one per segment; a segment mixing literal text and a
// variable (e.g. "foo{bar}") is rejected.
func Parse(raw string) (*Template, error) {
	parts := strings.Split(raw, "/")
	segs := make([]segment, 0, len(parts))
	prefixLen := 0
	sawVariable := false
	for _, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") && len(part) > 2 {
			name := part[1 : len(part)-1]
			if name == "" || strings.ContainsAny(name, "{}") {
				return nil, fmt.Errorf("uritemplate: invalid variable expression %q in %q", part, raw)
			}
			segs = append(segs, segment{kind: variable, text: name})
			sawVariable = true
			continue
		}
		if strings.ContainsAny(part, "{}") {
			return nil, fmt.Errorf("uritemplate: mixed literal/variable segment %q in %q", part, raw)
		}
		segs = append(segs, segment{kind: literal, text: part})
		if !sawVariable {
			prefixLen++
		}
	}
	return &Template{raw: raw, segments: segs, literalPrefixLen: prefixLen}, nil
}

// String returns the original template text.
func (t *Template) String() string { return t.raw }

// Match attempts to bind uri against the template, returning the captured
// variables. ok is false if the segment count or any literal segment
// doesn't match.
func (t *Template) Match(uri string) (vars map[string]string, ok bool) {
	parts := strings.Split(uri, "/")
	if len(parts) != len(t.segments) {
		return nil, false
	}
	vars = make(map[string]string, len(t.segments))
	for i, seg := range t.segments {
		switch seg.kind {
		case literal:
			if parts[i] != seg.text {
				return nil, false
			}
		case variable:
			decoded, err := url.PathUnescape(parts[i])
			if err != nil {
				return nil, false
			}
			vars[seg.text] = decoded
		}
	}
	return vars, true
}

// Expand substitutes vars into the template, percent-encoding values per
// RFC 3986 unreserved-character rules (net/url.PathEscape matches this).
func (t *Template) Expand(vars map[string]string) (string, error) {
	parts := make([]string, len(t.segments))
	for i, seg := range t.segments {
		switch seg.kind {
		case literal:
			parts[i] = seg.text
		case variable:
			v, ok := vars[seg.text]
			if !ok {
				return "", fmt.Errorf("uritemplate: missing value for variable %q", seg.text)
			}
			parts[i] = url.PathEscape(v)
		}
	}
	return strings.Join(parts, "/"), nil
}

// Router resolves a concrete URI against a set of registered templates
// using the tie-break rule from the registry invariant: longest literal
// prefix first, then lexicographic order of the template text.
type Router struct {
	templates []*Template
}

// NewRouter builds a Router over the given templates, sorted once up
// front so Resolve doesn't re-sort on every call.
func NewRouter(templates []*Template) *Router {
	sorted := append([]*Template(nil), templates...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && less(sorted[j], sorted[j-1]); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return &Router{templates: sorted}
}

func less(a, b *Template) bool {
	if a.literalPrefixLen != b.literalPrefixLen {
		return a.literalPrefixLen > b.literalPrefixLen
	}
	return a.raw < b.raw
}

// Resolve returns the first matching template (in tie-break order) along
// with its captured variables.
func (rt *Router) Resolve(uri string) (*Template, map[string]string, bool) {
	for _, t := range rt.templates {
		if vars, ok := t.Match(uri); ok {
			return t, vars, true
		}
	}
	return nil, nil, false
}

// Ambiguous reports whether any two templates in the set could match the
// same concrete URI (same segment count, and at every position either a
// variable on at least one side or the same literal on both), which the
// registry invariant requires be rejected at registration time.
func Ambiguous(templates []*Template) (*Template, *Template, bool) {
	for i := 0; i < len(templates); i++ {
		for j := i + 1; j < len(templates); j++ {
			if shapesCollide(templates[i], templates[j]) {
				return templates[i], templates[j], true
			}
		}
	}
	return nil, nil, false
}

func shapesCollide(a, b *Template) bool {
	if len(a.segments) != len(b.segments) {
		return false
	}
	for i := range a.segments {
		as, bs := a.segments[i], b.segments[i]
		if as.kind == literal && bs.kind == literal {
			if as.text != bs.text {
				return false
			}
			continue
		}
		// one or both variable: always collides at this position
	}
	return true
}
