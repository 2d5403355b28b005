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
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ceejaey/llm-multiagent-sandbox/llm/log"
	"github.com/ceejaey/llm-multiagent-sandbox/llm/prompt"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Parse decodes one YAML definition and validates it. Relative
// instructions_file paths are resolved against baseDir.
func Parse(data []byte, source Source, baseDir string) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, errors.Wrap(err, "decode workflow")
	}
	def.Source = source
	if err := resolveInstructions(&def, baseDir); err != nil {
		return nil, errors.Wrapf(err, "workflow %q", def.Name)
	}
	if err := Validate(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadFile reads a definition from path.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read workflow file %s", path)
	}
	def, err := Parse(data, SourceLocal, filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	def.Path = path
	return def, nil
}

// LoadDir reads every *.yaml and *.yml file directly under dir, sorted by
// file name. A file that fails to load is logged and skipped.
func LoadDir(dir string) ([]*Definition, error) {
	files, err := definitionFiles(dir)
	if err != nil {
		return nil, err
	}
	defs := make([]*Definition, 0, len(files))
	for _, f := range files {
		def, err := LoadFile(f)
		if err != nil {
			log.Error("skip workflow file: %v", err)
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func definitionFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read workflows directory %s", dir)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !isDefinitionFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func isDefinitionFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func resolveInstructions(def *Definition, baseDir string) error {
	for i := range def.Stages {
		s := &def.Stages[i]
		if s.InstructionsFile == "" || s.Instructions != "" {
			continue
		}
		path := s.InstructionsFile
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		typ := prompt.PromptTypePlainText
		if strings.HasSuffix(path, ".tmpl") || strings.HasSuffix(path, ".tpl") {
			typ = prompt.PromptTypeGoTemplate
		}
		p, err := prompt.NewFilePrompt(&prompt.FilePrompt{Type: typ, Path: path, Data: s})
		if err != nil {
			return errors.Wrapf(err, "stage %q instructions", s.Name)
		}
		s.Instructions = p.String()
	}
	return nil
}
