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

// Package workflow holds declarative pipeline definitions: a named list of
// agents, each turning one state field into another.
package workflow

import (
	"github.com/ceejaey/llm-multiagent-sandbox/llm/prompt"
)

// DefaultSeed is the field a workflow is seeded with when it declares none.
const DefaultSeed = "input"

// Definition is one workflow as written in YAML.
type Definition struct {
	Name        string            `yaml:"name" json:"name" jsonschema:"required,description=workflow name; lowercase letters digits and hyphens"`
	Description string            `yaml:"description" json:"description,omitempty" jsonschema:"description=one line shown by list and as the MCP tool description"`
	Seeds       []string          `yaml:"seeds,omitempty" json:"seeds,omitempty" jsonschema:"description=fields supplied by the caller; defaults to [input]"`
	Example     string            `yaml:"example,omitempty" json:"example,omitempty" jsonschema:"description=seed text used when run is given no input"`
	Stages      []StageDefinition `yaml:"stages" json:"stages" jsonschema:"required,minItems=1"`

	// Source is where the definition was loaded from.
	Source Source `yaml:"-" json:"-"`
	// Path is the file the definition was read from, if any.
	Path string `yaml:"-" json:"-"`
}

// StageDefinition is one agent of a workflow.
type StageDefinition struct {
	Name             string `yaml:"name" json:"name" jsonschema:"required"`
	Role             string `yaml:"role" json:"role" jsonschema:"required,description=rendered as 'You are a <role>.'"`
	Instructions     string `yaml:"instructions,omitempty" json:"instructions,omitempty"`
	InstructionsFile string `yaml:"instructions_file,omitempty" json:"instructions_file,omitempty" jsonschema:"description=plain text or go-template file relative to the workflow file"`
	Input            string `yaml:"input" json:"input" jsonschema:"required"`
	Output           string `yaml:"output" json:"output" jsonschema:"required"`
	Title            string `yaml:"title,omitempty" json:"title,omitempty" jsonschema:"description=heading printed above the stage output"`
}

// Source tells builtin definitions apart from user files.
type Source int

const (
	SourceBuiltin Source = iota
	SourceLocal
)

func (s Source) String() string {
	switch s {
	case SourceBuiltin:
		return "builtin"
	case SourceLocal:
		return "local"
	default:
		return "unknown"
	}
}

// SeedFields returns the declared seeds, or [DefaultSeed].
func (d *Definition) SeedFields() []string {
	if len(d.Seeds) == 0 {
		return []string{DefaultSeed}
	}
	return append([]string(nil), d.Seeds...)
}

// Heading returns the title printed above a stage's output.
func (s StageDefinition) Heading() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Name
}

// Prompt returns the stage instructions. Inline text wins over a file.
func (s StageDefinition) Prompt() prompt.Prompt {
	return prompt.NewTextPrompt(s.Instructions)
}
