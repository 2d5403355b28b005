/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersona_Render(t *testing.T) {
	t.Run("role and instructions", func(t *testing.T) {
		p := Persona{Role: "Coder", Instructions: NewTextPrompt("Write Python code based on the given requirements.")}
		s, err := p.Render()
		require.NoError(t, err)
		assert.Equal(t, "You are a Coder. Write Python code based on the given requirements.", s)
	})

	t.Run("no instructions", func(t *testing.T) {
		s, err := Persona{Role: "Reviewer"}.Render()
		require.NoError(t, err)
		assert.Equal(t, "You are a Reviewer.", s)
	})

	t.Run("empty role", func(t *testing.T) {
		_, err := Persona{Role: "  "}.Render()
		assert.Error(t, err)
	})
}

func TestNewFilePrompt(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "plain.md")
	require.NoError(t, os.WriteFile(plain, []byte("  Review the story.\n"), 0644))
	p, err := NewFilePrompt(&FilePrompt{Type: PromptTypePlainText, Path: plain})
	require.NoError(t, err)
	assert.Equal(t, "Review the story.", p.String())

	tplPath := filepath.Join(dir, "tpl.md")
	require.NoError(t, os.WriteFile(tplPath, []byte("Target {{.Cloud}} & <infra>."), 0644))
	p, err = NewFilePrompt(&FilePrompt{Type: PromptTypeGoTemplate, Path: tplPath, Data: map[string]string{"Cloud": "AWS"}})
	require.NoError(t, err)
	assert.Equal(t, "Target AWS & <infra>.", p.String())

	p, err = NewFilePrompt(&FilePrompt{Type: PromptTypeDummy})
	require.NoError(t, err)
	assert.Equal(t, "", p.String())

	_, err = NewFilePrompt(&FilePrompt{Type: PromptTypePlainText, Path: filepath.Join(dir, "missing.md")})
	assert.Error(t, err)

	_, err = NewFilePrompt(&FilePrompt{Type: "yaml"})
	assert.Error(t, err)
}
