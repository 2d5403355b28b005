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
	"strings"
	"unicode"

	"github.com/ceejaey/llm-multiagent-sandbox/llm"
	"github.com/pkg/errors"
)

const maxNameLen = 64

// ValidateName checks a workflow name:
//   - 1-64 characters
//   - lowercase letters, digits and hyphens only
//   - no leading, trailing or doubled hyphen
func ValidateName(name string) error {
	if len(name) == 0 {
		return errors.New("workflow name cannot be empty")
	}
	if len(name) > maxNameLen {
		return errors.Errorf("workflow name must be 1-%d characters, got %d", maxNameLen, len(name))
	}
	for _, r := range name {
		if !unicode.IsLower(r) && !unicode.IsDigit(r) && r != '-' {
			return errors.Errorf("workflow name can only contain lowercase letters, numbers, and hyphens, got '%c'", r)
		}
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return errors.Errorf("workflow name %q cannot start or end with a hyphen", name)
	}
	if strings.Contains(name, "--") {
		return errors.Errorf("workflow name %q cannot contain consecutive hyphens", name)
	}
	return nil
}

// Validate checks the definition fields, then compiles it against offline
// generators so that graph problems surface at load time.
func Validate(def *Definition) error {
	if err := ValidateName(def.Name); err != nil {
		return err
	}
	if len(def.Stages) == 0 {
		return errors.Errorf("workflow %q has no stages", def.Name)
	}
	for i, s := range def.Stages {
		switch {
		case s.Name == "":
			return errors.Errorf("workflow %q: stage #%d has no name", def.Name, i+1)
		case strings.TrimSpace(s.Role) == "":
			return errors.Errorf("workflow %q: stage %q has no role", def.Name, s.Name)
		case s.Input == "" || s.Output == "":
			return errors.Errorf("workflow %q: stage %q must declare input and output", def.Name, s.Name)
		}
	}
	for _, seed := range def.SeedFields() {
		if seed == "" {
			return errors.Errorf("workflow %q: empty seed field", def.Name)
		}
	}

	g, err := Build(def, func(s StageDefinition) (llm.Generator, error) {
		return llm.EchoGenerator{Role: s.Role}, nil
	})
	if err != nil {
		return errors.Wrapf(err, "workflow %q", def.Name)
	}
	if _, err := g.Compile(); err != nil {
		return errors.Wrapf(err, "workflow %q", def.Name)
	}
	return nil
}
