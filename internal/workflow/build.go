// Copyright 2025 ByteDance Inc.
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

package workflow

import (
	"context"

	"github.com/ceejaey/llm-multiagent-sandbox/internal/pipeline"
	"github.com/ceejaey/llm-multiagent-sandbox/llm"
	"github.com/ceejaey/llm-multiagent-sandbox/llm/agent"
	"github.com/pkg/errors"
)

// GeneratorFactory returns the generator for one stage.
type GeneratorFactory func(stage StageDefinition) (llm.Generator, error)

// Build turns def into an uncompiled linear graph: stages run in the order
// they are listed, the first is the entry and the last is terminal.
func Build(def *Definition, factory GeneratorFactory) (*pipeline.Graph, error) {
	specs := make([]pipeline.StageSpec, 0, len(def.Stages))
	for _, s := range def.Stages {
		gen, err := factory(s)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %q", s.Name)
		}
		specs = append(specs, pipeline.StageSpec{
			Name:      s.Name,
			Input:     s.Input,
			Output:    s.Output,
			Generator: gen,
		})
	}
	return pipeline.Linear(def.Name, def.SeedFields(), specs...)
}

// Compile builds and compiles def.
func Compile(def *Definition, factory GeneratorFactory) (*pipeline.Pipeline, error) {
	g, err := Build(def, factory)
	if err != nil {
		return nil, err
	}
	return g.Compile()
}

// AgentFactory adapts an agent.Factory to a GeneratorFactory.
func AgentFactory(ctx context.Context, f *agent.Factory) GeneratorFactory {
	return func(s StageDefinition) (llm.Generator, error) {
		return f.Agent(ctx, s.Name, s.Role, s.Prompt())
	}
}
