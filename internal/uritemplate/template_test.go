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

package uritemplate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMatch(t *testing.T) {
	tmpl, err := Parse("notes://{id}")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	vars, ok := tmpl.Match("notes://42")
	if !ok {
		t.Fatalf("expected match")
	}
	if diff := cmp.Diff(map[string]string{"id": "42"}, vars); diff != "" {
		t.Fatalf("incorrect vars: diff %v", diff)
	}

	if _, ok := tmpl.Match("notes://42/extra"); ok {
		t.Fatalf("expected no match for wrong segment count")
	}
}

func TestExpand(t *testing.T) {
	tmpl, err := Parse("repos/{owner}/{repo}")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	got, err := tmpl.Expand(map[string]string{"owner": "a b", "repo": "c"})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	want := "repos/a%20b/c"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRouterTieBreak(t *testing.T) {
	a, _ := Parse("zzz/{id}")
	b, _ := Parse("aaa/static/{id}")
	c, _ := Parse("aaa/{id}")
	rt := NewRouter([]*Template{a, b, c})

	if rt.templates[0] != b {
		t.Fatalf("expected longest literal prefix first, got %q", rt.templates[0].String())
	}
	if rt.templates[1] != c && rt.templates[1] != a {
		t.Fatalf("unexpected second entry %q", rt.templates[1].String())
	}
}

func TestAmbiguous(t *testing.T) {
	a, _ := Parse("notes/{id}")
	b, _ := Parse("notes/{slug}")
	if _, _, ok := Ambiguous([]*Template{a, b}); !ok {
		t.Fatalf("expected collision between two single-variable templates")
	}

	c, _ := Parse("notes/{id}/comments")
	d, _ := Parse("notes/{id}")
	if _, _, ok := Ambiguous([]*Template{c, d}); ok {
		t.Fatalf("did not expect collision for differing segment counts")
	}
}
