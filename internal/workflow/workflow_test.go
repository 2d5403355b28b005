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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ceejaey/llm-multiagent-sandbox/internal/pipeline"
	"github.com/ceejaey/llm-multiagent-sandbox/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoFactory(s StageDefinition) (llm.Generator, error) {
	return llm.EchoGenerator{Role: s.Role}, nil
}

func TestBuiltins(t *testing.T) {
	c, err := NewCatalog("")
	require.NoError(t, err)

	names := []string{}
	for _, def := range c.List() {
		names = append(names, def.Name)
		assert.Equal(t, SourceBuiltin, def.Source)
	}
	assert.Equal(t, []string{"python-coder", "user-story"}, names)

	def, err := c.Get("user-story")
	require.NoError(t, err)
	p, err := Compile(def, echoFactory)
	require.NoError(t, err)

	got, err := p.Invoke(context.Background(), map[string]string{"input": "X"})
	require.NoError(t, err)
	assert.Equal(t, "<User Story Writer:X>", got["story"])
	assert.Equal(t, "<Technical Reviewer with high degree of AWS experience:<User Story Writer:X>>", got["review"])
	assert.Equal(t,
		"<Developer who misinterprets stories not clearly defined:<Technical Reviewer with high degree of AWS experience:<User Story Writer:X>>>",
		got["fakenews"])

	coder, err := c.Get("python-coder")
	require.NoError(t, err)
	assert.Equal(t, "Create a function that calculates the factorial of a number", coder.Example)
	assert.Equal(t, []string{"coder", "reviewer", "refactor"}, []string{coder.Stages[0].Name, coder.Stages[1].Name, coder.Stages[2].Name})
	assert.Equal(t, "Refactored Code", coder.Stages[2].Heading())

	_, err = c.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidateName(t *testing.T) {
	for name, ok := range map[string]bool{
		"user-story": true,
		"a1":         true,
		"":           false,
		"Upper":      false,
		"-lead":      false,
		"trail-":     false,
		"dou--ble":   false,
		"under_sc":   false,
	} {
		err := ValidateName(name)
		if ok {
			assert.NoError(t, err, name)
		} else {
			assert.Error(t, err, name)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
		kind    string
	}{
		{
			name: "minimal",
			yaml: `
name: one
stages:
  - {name: a, role: Writer, input: input, output: out}
`,
		},
		{
			name:    "unknown key",
			yaml:    "name: one\nstagez: []\n",
			wantErr: "decode workflow",
		},
		{
			name:    "no stages",
			yaml:    "name: one\nstages: []\n",
			wantErr: "has no stages",
		},
		{
			name: "missing role",
			yaml: `
name: one
stages:
  - {name: a, input: input, output: out}
`,
			wantErr: "has no role",
		},
		{
			name: "unreachable field",
			yaml: `
name: one
stages:
  - {name: a, role: Writer, input: input, output: story}
  - {name: b, role: Reviewer, input: notes, output: review}
`,
			kind: pipeline.KindUnreachableField,
		},
		{
			name: "duplicate stage",
			yaml: `
name: one
stages:
  - {name: a, role: Writer, input: input, output: story}
  - {name: a, role: Reviewer, input: story, output: review}
`,
			kind: pipeline.KindDuplicateStage,
		},
		{
			name: "custom seeds",
			yaml: `
name: two
seeds: [topic, audience]
stages:
  - {name: a, role: Writer, input: topic, output: draft}
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := Parse([]byte(tt.yaml), SourceLocal, "")
			switch {
			case tt.kind != "":
				var ve *pipeline.GraphValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.kind, ve.Kind)
			case tt.wantErr != "":
				assert.ErrorContains(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.NotEmpty(t, def.SeedFields())
			}
		})
	}
}

func TestLoadFile_InstructionsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "writer.txt"), []byte("  Write a story.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "review.tmpl"), []byte("Review as {{.Role}}."), 0o644))
	writeDef(t, dir, "story.yaml", `
name: story
stages:
  - {name: writer, role: Writer, instructions_file: writer.txt, input: input, output: story}
  - {name: reviewer, role: Reviewer, instructions_file: review.tmpl, input: story, output: review}
`)

	def, err := LoadFile(filepath.Join(dir, "story.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Write a story.", def.Stages[0].Prompt().String())
	assert.Equal(t, "Review as Reviewer.", def.Stages[1].Prompt().String())
	assert.Equal(t, SourceLocal, def.Source)

	_, err = Parse([]byte(`
name: story
stages:
  - {name: writer, role: Writer, instructions_file: missing.txt, input: input, output: story}
`), SourceLocal, dir)
	assert.Error(t, err)
}

func TestCatalog_Directory(t *testing.T) {
	dir := t.TempDir()
	writeDef(t, dir, "override.yaml", `
name: user-story
description: local copy
stages:
  - {name: writer, role: Writer, input: input, output: story}
`)
	writeDef(t, dir, "extra.yml", `
name: extra
stages:
  - {name: a, role: A, input: input, output: out}
`)
	writeDef(t, dir, "broken.yaml", "name: [\n")
	writeDef(t, dir, "notes.txt", "ignored")

	c, err := NewCatalog(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Count())

	def, err := c.Get("user-story")
	require.NoError(t, err)
	assert.Equal(t, "local copy", def.Description)
	assert.Equal(t, SourceLocal, def.Source)

	_, err = NewCatalog(filepath.Join(dir, "absent"))
	assert.Error(t, err)
}

func TestCatalog_Watch(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCatalog(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Count())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx, func() { changed <- struct{}{} }) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	writeDef(t, dir, "extra.yaml", `
name: extra
stages:
  - {name: a, role: A, input: input, output: out}
`)

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("catalog was not reloaded")
	}
	_, err = c.Get("extra")
	assert.NoError(t, err)

	cancel()
	assert.NoError(t, <-done)
}

func writeDef(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
