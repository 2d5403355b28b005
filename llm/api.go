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

package llm

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
)

type ModelConfig struct {
	Name        string    `json:"name" koanf:"name"` // alias of the config, not endpoint!
	APIType     ModelType `json:"type" koanf:"type"`
	BaseURL     string    `json:"base_url" koanf:"base_url"`
	APIKey      string    `json:"api_key" koanf:"api_key"`
	ModelName   string    `json:"model_name" koanf:"model_name"` // the endpoint of the model, like `gpt-4` or `gemma3:4b`
	Temperature *float32  `json:"temperature" koanf:"temperature"`
	MaxTokens   int       `json:"max_tokens" koanf:"max_tokens"`
	// Timeout bounds one Generate call, default: 600s
	Timeout time.Duration `json:"timeout" koanf:"timeout"`
}

type ModelType string

func NewModelType(t string) ModelType {
	switch strings.ToLower(t) {
	case "ollama":
		return ModelTypeOllama
	case "ark", "doubao":
		return ModelTypeARK
	case "openai", "gpt":
		return ModelTypeOpenAI
	case "claude", "anthropic":
		return ModelTypeClaude
	case "dashscope", "qwen", "tongyi":
		return ModelTypeDashScope
	case "deepseek":
		return ModelTypeDeepSeek
	case "echo":
		return ModelTypeEcho
	}
	return ModelTypeUnknown
}

const (
	ModelTypeUnknown   ModelType = ""
	ModelTypeOllama    ModelType = "ollama"
	ModelTypeARK       ModelType = "ark"
	ModelTypeOpenAI    ModelType = "openai"
	ModelTypeClaude    ModelType = "claude"
	ModelTypeDashScope ModelType = "dashscope"
	ModelTypeDeepSeek  ModelType = "deepseek"
	// ModelTypeEcho needs no backend; it answers "<role:input>".
	ModelTypeEcho ModelType = "echo"
)

// Hosted reports whether the backend needs an API key.
func (t ModelType) Hosted() bool {
	switch t {
	case ModelTypeOpenAI, ModelTypeClaude, ModelTypeARK, ModelTypeDashScope, ModelTypeDeepSeek:
		return true
	}
	return false
}

// Generator is a configured generation capability: role and instructions are
// fixed when it is built, and each call turns one input text into a result.
// Implementations must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, input string) (TextResult, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, input string) (TextResult, error)

func (f GeneratorFunc) Generate(ctx context.Context, input string) (TextResult, error) {
	return f(ctx, input)
}

// ChatModel is the interface for making LLM backend.
type ChatModel interface {
	model.ToolCallingChatModel
}
