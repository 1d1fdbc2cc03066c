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
	"errors"
	"io"
	"testing"

	"github.com/spf13/cobra"

	"github.com/mcphost/mcphost/internal/log"
)

func TestCommandOptions(t *testing.T) {
	logger, err := log.NewStdLogger(io.Discard, io.Discard, "INFO")
	if err != nil {
		t.Fatalf("unable to initialize logger: %s", err)
	}

	got, err := invokeWithOption(WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	if got.logger != logger {
		t.Errorf("WithLogger did not set Command.logger")
	}
}

func invokeWithOption(o Option) (*Command, error) {
	c := NewCommand(o)
	c.SilenceUsage = true
	c.SilenceErrors = true
	c.RunE = func(*cobra.Command, []string) error { return nil }
	err := c.Execute()
	return c, err
}
