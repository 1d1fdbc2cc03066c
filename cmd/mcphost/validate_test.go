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

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mcphost.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("unable to write temp config: %s", err)
	}
	return path
}

func TestValidateCommandAcceptsWellFormedConfig(t *testing.T) {
	path := writeTempConfig(t, "port: 9090\n")

	c := NewCommand()
	c.SilenceUsage = true
	c.SilenceErrors = true
	c.SetArgs([]string{"validate", "--config", path})

	if err := c.Execute(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
}

func TestValidateCommandRejectsMalformedConfig(t *testing.T) {
	path := writeTempConfig(t, "port: not-a-number\n")

	c := NewCommand()
	c.SilenceUsage = true
	c.SilenceErrors = true
	c.SetArgs([]string{"validate", "--config", path})

	err := c.Execute()
	if err == nil {
		t.Fatal("expected an error for a malformed config file")
	}
	if !strings.Contains(err.Error(), "config") {
		t.Errorf("got error %q, want it to mention the config decode failure", err)
	}
}

func TestValidateCommandRequiresConfigFlag(t *testing.T) {
	c := NewCommand()
	c.SilenceUsage = true
	c.SilenceErrors = true
	c.SetArgs([]string{"validate"})

	if err := c.Execute(); err == nil {
		t.Fatal("expected an error when --config is omitted")
	}
}
