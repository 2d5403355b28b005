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
	"io"
	"os"
	"strings"

	"github.com/ceejaey/llm-multiagent-sandbox/internal/pipeline"
	"github.com/ceejaey/llm-multiagent-sandbox/internal/utils"
	"github.com/ceejaey/llm-multiagent-sandbox/internal/workflow"
	"github.com/ceejaey/llm-multiagent-sandbox/llm/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type runOptions struct {
	inputs    []string
	inputFile string
	output    string
	json      bool
}

func newRunCmd(g *globalOptions) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Run a workflow on one or more inputs",
		Long: "Run a workflow. Without --input the workflow's example is used. Several\n" +
			"inputs run concurrently on the same compiled pipeline.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, g, o, args[0])
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&o.inputs, "input", nil, "seed text; repeat to run several inputs")
	f.StringVar(&o.inputFile, "input-file", "", "read the seed text from a file ('-' for stdin)")
	f.StringVarP(&o.output, "output", "o", "", "write the run records as JSON to this file")
	f.BoolVar(&o.json, "json", false, "print the run records as JSON instead of text")
	return cmd
}

func runWorkflow(cmd *cobra.Command, g *globalOptions, o *runOptions, name string) error {
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
	def, err := catalog.Get(name)
	if err != nil {
		return err
	}
	inputs, err := collectInputs(cmd.InOrStdin(), o, def)
	if err != nil {
		return err
	}
	seeds := def.SeedFields()
	if len(seeds) != 1 {
		return fmt.Errorf("workflow %s has seeds %v; run supports single-seed workflows", def.Name, seeds)
	}

	shutdown, err := startTracing(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Error("%v", err)
		}
	}()

	factory, err := g.factory(ctx, cfg)
	if err != nil {
		return err
	}
	p, err := workflow.Compile(def, factory)
	if err != nil {
		return err
	}

	runs := make([]*pipeline.Run, len(inputs))
	errs := make([]error, len(inputs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.Concurrency)
	for i, in := range inputs {
		eg.Go(func() error {
			// a failed input does not cancel the others
			runs[i], errs[i] = p.Execute(egCtx, map[string]string{seeds[0]: in})
			return nil
		})
	}
	_ = eg.Wait()

	out := cmd.OutOrStdout()
	if o.json {
		if err := writeJSON(out, runs); err != nil {
			return err
		}
	} else {
		for i, run := range runs {
			if len(runs) > 1 {
				fmt.Fprintf(out, "\n=== %s #%d ===\n", def.Name, i+1)
			}
			printRun(out, def, run, errs[i])
		}
	}
	if o.output != "" {
		if err := writeFile(o.output, runs); err != nil {
			return err
		}
		log.Info("run records written to %s", o.output)
	}

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		if len(errs) == 1 {
			return errs[0]
		}
		return fmt.Errorf("%d of %d runs failed", failed, len(errs))
	}
	return nil
}

func collectInputs(stdin io.Reader, o *runOptions, def *workflow.Definition) ([]string, error) {
	inputs := append([]string(nil), o.inputs...)
	if o.inputFile != "" {
		var (
			bs  []byte
			err error
		)
		if o.inputFile == "-" {
			bs, err = io.ReadAll(stdin)
		} else {
			bs, err = os.ReadFile(o.inputFile)
		}
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		inputs = append(inputs, strings.TrimSpace(string(bs)))
	}
	if len(inputs) == 0 {
		if def.Example == "" {
			return nil, fmt.Errorf("workflow %s has no example; pass --input", def.Name)
		}
		inputs = append(inputs, def.Example)
	}
	return inputs, nil
}

// printRun writes the final state followed by each stage's output under its
// title.
func printRun(w io.Writer, def *workflow.Definition, run *pipeline.Run, err error) {
	if err != nil {
		fmt.Fprintf(w, "\nRun %s failed: %v\n", run.ID, err)
		for _, step := range run.History {
			fmt.Fprintf(w, "  %s [%s] %s\n", step.Stage, step.Status, step.Error)
		}
		return
	}
	fmt.Fprintf(w, "\nFinal Result State:\n")
	for _, field := range run.State.Fields() {
		fmt.Fprintf(w, "  %s: %q\n", field, run.State[field])
	}
	for _, s := range def.Stages {
		fmt.Fprintf(w, "\n%s:\n%s\n", s.Heading(), run.State[s.Output])
	}
}

// writeFile writes runs as JSON to path. A failed close is reported since it
// may hide a short write.
func writeFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := writeJSON(f, v); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	bs, err := utils.MarshalJSONIndent(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	_, err = w.Write(append(bs, '\n'))
	return err
}
