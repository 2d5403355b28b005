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
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
)

type Prompt interface {
	String() string
}

// FilePrompt loads instructions from a file. Go templates are executed with
// Data once, when the prompt is built.
type FilePrompt struct {
	Type PromptType `json:"type" yaml:"type"`
	Path string     `json:"path" yaml:"path"`
	Data any        `json:"data" yaml:"data"`
	text string
}

type PromptType string

const (
	PromptTypePlainText  PromptType = "text"
	PromptTypeDummy      PromptType = "dummy"
	PromptTypeGoTemplate PromptType = "go-template"
)

func (p *FilePrompt) String() string {
	return p.text
}

func NewFilePrompt(c *FilePrompt) (Prompt, error) {
	switch c.Type {
	case PromptTypePlainText, "":
		bs, err := os.ReadFile(c.Path)
		if err != nil {
			return nil, err
		}
		c.text = strings.TrimSpace(string(bs))
		return c, nil
	case PromptTypeDummy:
		return TextPrompt(""), nil
	case PromptTypeGoTemplate:
		tpl, err := template.ParseFiles(c.Path)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := tpl.Execute(&buf, c.Data); err != nil {
			return nil, fmt.Errorf("execute template %s: %w", c.Path, err)
		}
		c.text = strings.TrimSpace(buf.String())
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported prompt type %q", c.Type)
	}
}

type TextPrompt string

func (p TextPrompt) String() string {
	return string(p)
}

func NewTextPrompt(content string) Prompt {
	return TextPrompt(content)
}

// Persona is the system prompt of one pipeline agent.
type Persona struct {
	Role         string
	Instructions Prompt
}

// Render returns "You are a <role>. <instructions>".
func (p Persona) Render() (string, error) {
	role := strings.TrimSpace(p.Role)
	if role == "" {
		return "", errors.New("persona role is empty")
	}
	system := "You are a " + role + "."
	if p.Instructions != nil {
		if ins := strings.TrimSpace(p.Instructions.String()); ins != "" {
			system += " " + ins
		}
	}
	return system, nil
}

func (p Persona) String() string {
	s, _ := p.Render()
	return s
}
