// Copyright 2025 CloudWeGo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ceejaey/llm-multiagent-sandbox/internal/workflow"
	"github.com/ceejaey/llm-multiagent-sandbox/llm/mcp"
	"github.com/ceejaey/llm-multiagent-sandbox/llm/prompt"
	"github.com/ceejaey/llm-multiagent-sandbox/version"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

func newListCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			catalog, err := g.catalog(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			defs := catalog.List()
			fmt.Fprintf(out, "Available workflows (%d):\n\n", len(defs))
			for _, def := range defs {
				fmt.Fprintf(out, "  %s (%s)\n", def.Name, def.Source)
				if def.Description != "" {
					fmt.Fprintf(out, "    %s\n", def.Description)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func newShowCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <workflow>",
		Short: "Show a workflow's stages and system prompts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			catalog, err := g.catalog(cfg)
			if err != nil {
				return err
			}
			def, err := catalog.Get(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Workflow: %s\n", def.Name)
			fmt.Fprintf(out, "Source: %s\n", def.Source)
			if def.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", def.Description)
			}
			fmt.Fprintf(out, "Seeds: %s\n", strings.Join(def.SeedFields(), ", "))
			if def.Example != "" {
				fmt.Fprintf(out, "Example: %s\n", def.Example)
			}
			fmt.Fprintf(out, "\nStages:\n")
			for i, s := range def.Stages {
				persona := prompt.Persona{Role: s.Role, Instructions: s.Prompt()}
				fmt.Fprintf(out, "  %d. %s (%s -> %s)\n", i+1, s.Name, s.Input, s.Output)
				fmt.Fprintf(out, "     %s\n", persona)
			}
			return nil
		},
	}
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of workflow definition files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeJSON(cmd.OutOrStdout(), definitionSchema())
		},
	}
}

func definitionSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
	}
	s := r.Reflect(&workflow.Definition{})
	s.Title = "sandbox workflow"
	return s
}

func newMCPCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve every workflow as an MCP tool over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := g.load()
			if err != nil {
				return err
			}
			catalog, err := g.catalog(cfg)
			if err != nil {
				return err
			}
			shutdown, err := startTracing(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer shutdown(context.Background())
			factory, err := g.factory(ctx, cfg)
			if err != nil {
				return err
			}
			svr, err := mcp.NewServer(mcp.ServerOptions{
				ServerName:    serviceName,
				ServerVersion: version.Version,
				Catalog:       catalog,
				Factory:       factory,
			})
			if err != nil {
				return err
			}
			return svr.ServeStdio(ctx)
		},
	}
}
