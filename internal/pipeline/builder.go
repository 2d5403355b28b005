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

package pipeline

import (
	"fmt"

	"github.com/ceejaey/llm-multiagent-sandbox/llm"
)

// StageSpec describes one step of a linear pipeline.
type StageSpec struct {
	Name      string
	Input     string
	Output    string
	Generator llm.Generator
}

// Linear builds the graph spec[0] -> spec[1] -> ... -> End, entered at
// spec[0]. The graph is returned uncompiled.
func Linear(name string, seeds []string, specs ...StageSpec) (*Graph, error) {
	g := NewGraph(name, seeds...)
	for i, s := range specs {
		if s.Generator == nil {
			return nil, &GraphValidationError{Kind: KindInvalidStage, Stage: s.Name,
				Msg: fmt.Sprintf("stage %q has no generator", s.Name)}
		}
		if err := g.AddStage(NewGeneratorStage(s.Name, s.Generator, s.Input, s.Output)); err != nil {
			return nil, err
		}
		if i == 0 {
			g.SetEntry(s.Name)
		} else {
			g.AddEdge(specs[i-1].Name, s.Name)
		}
	}
	if len(specs) > 0 {
		g.AddEdge(specs[len(specs)-1].Name, End)
	}
	return g, nil
}
