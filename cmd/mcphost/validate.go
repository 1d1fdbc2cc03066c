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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcphost/mcphost/internal/config"
)

// newValidateCommand builds "mcphost validate", which strictly decodes and
// validates a server configuration file without opening a listener or
// touching a registry -- the lint-only counterpart to "mcphost run" (the
// root command's default action) per SPEC_FULL.md's CLI surface.
func newValidateCommand(cmd *Command) *cobra.Command {
	var path string

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Strictly decode and validate a server configuration file without serving.",
		RunE: func(c *cobra.Command, args []string) error {
			if path == "" {
				return fmt.Errorf("validate: --config is required")
			}
			if _, err := config.Load(c.Context(), path); err != nil {
				fmt.Fprintf(cmd.errStream, "invalid configuration: %s\n", err)
				return err
			}
			fmt.Fprintf(cmd.outStream, "%s is valid\n", path)
			return nil
		},
	}
	validateCmd.Flags().StringVar(&path, "config", "", "Path to the YAML server configuration file to validate.")
	_ = validateCmd.MarkFlagRequired("config")
	return validateCmd
}
