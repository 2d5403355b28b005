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

// sandbox runs multi-agent LLM workflows: each agent reads one field of a
// shared state and writes another.
//
// Usage:
//
//	sandbox run <workflow> [--input TEXT ...] [--input-file F] [-o out.json] [--json]
//	sandbox list
//	sandbox show <workflow>
//	sandbox schema
//	sandbox mcp
//	sandbox version
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ceejaey/llm-multiagent-sandbox/internal/config"
	"github.com/ceejaey/llm-multiagent-sandbox/internal/telemetry"
	"github.com/ceejaey/llm-multiagent-sandbox/internal/workflow"
	"github.com/ceejaey/llm-multiagent-sandbox/llm"
	"github.com/ceejaey/llm-multiagent-sandbox/llm/agent"
	"github.com/ceejaey/llm-multiagent-sandbox/llm/log"
	"github.com/ceejaey/llm-multiagent-sandbox/version"
	"github.com/spf13/cobra"
)

const serviceName = "llm-multiagent-sandbox"

// globalOptions are the persistent flags; non-empty values override the
// config file and environment.
type globalOptions struct {
	configPath string
	workflows  string
	apiType    string
	model      string
	baseURL    string
	verbose    bool
	trace      bool
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "sandbox",
		Short: "Run multi-agent LLM workflows",
		Long: "sandbox chains LLM agents into a linear pipeline. Each agent has a role and\n" +
			"instructions, reads one field of the shared state and writes another.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "YAML config file")
	pf.StringVar(&g.workflows, "workflows", "", "directory of workflow definitions (*.yaml)")
	pf.StringVar(&g.apiType, "api-type", "", "model backend: ollama, openai, claude, ark, dashscope, deepseek, echo")
	pf.StringVar(&g.model, "model", "", "model name, like gpt-4 or gemma3:4b")
	pf.StringVar(&g.baseURL, "base-url", "", "model endpoint base URL")
	pf.BoolVar(&g.verbose, "verbose", false, "verbose mode")
	pf.BoolVar(&g.trace, "trace", false, "write OpenTelemetry spans to stderr")

	root.AddCommand(
		newRunCmd(g),
		newListCmd(g),
		newShowCmd(g),
		newSchemaCmd(),
		newMCPCmd(g),
		newVersionCmd(),
	)
	return root
}

// load resolves the configuration and applies the log level.
func (g *globalOptions) load() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.workflows != "" {
		cfg.Workflows = g.workflows
	}
	if g.apiType != "" {
		cfg.Model.APIType = llm.NewModelType(g.apiType)
	}
	if g.model != "" {
		cfg.Model.ModelName = g.model
	}
	if g.baseURL != "" {
		cfg.Model.BaseURL = g.baseURL
	}
	if g.trace {
		cfg.Trace.Enabled = true
	}
	if g.verbose {
		cfg.Log.Level = "debug"
	}
	log.SetLogLevel(log.ParseLevel(cfg.Log.Level))
	log.Debug("config: %+v", redacted(cfg))
	return cfg, nil
}

func (g *globalOptions) catalog(cfg *config.Config) (*workflow.Catalog, error) {
	return workflow.NewCatalog(cfg.Workflows)
}

// factory validates cfg and builds the shared model backend.
func (g *globalOptions) factory(ctx context.Context, cfg *config.Config) (workflow.GeneratorFactory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f, err := agent.NewFactory(ctx, cfg.Model)
	if err != nil {
		return nil, err
	}
	return workflow.AgentFactory(ctx, f), nil
}

func startTracing(cfg *config.Config, w io.Writer) (telemetry.ShutdownFunc, error) {
	if !cfg.Trace.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	return telemetry.Init(serviceName, version.Version, w)
}

func redacted(cfg *config.Config) config.Config {
	out := *cfg
	if out.Model.APIKey != "" {
		out.Model.APIKey = "***"
	}
	return out
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version.Version)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
