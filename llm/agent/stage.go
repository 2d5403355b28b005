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

package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ceejaey/llm-multiagent-sandbox/llm"
	"github.com/ceejaey/llm-multiagent-sandbox/llm/log"
	"github.com/ceejaey/llm-multiagent-sandbox/llm/prompt"
)

// StageAgentOptions describes one pipeline agent.
type StageAgentOptions struct {
	Name         string
	Role         string
	Instructions prompt.Prompt
	// Model is the shared backend. When nil, one is built from ModelConfig.
	Model       llm.ChatModel
	ModelConfig llm.ModelConfig
	Timeout     time.Duration
}

// NewStageAgent returns the generator for one stage. The echo model type
// yields an offline llm.EchoGenerator for the role.
func NewStageAgent(ctx context.Context, opts StageAgentOptions) (llm.Generator, error) {
	log.Debug("NewStageAgent, name: %s, role: %s, type: %s", opts.Name, opts.Role, opts.ModelConfig.APIType)

	if strings.TrimSpace(opts.Role) == "" {
		return nil, fmt.Errorf("stage agent %s: role is empty", opts.Name)
	}
	if opts.Model == nil && opts.ModelConfig.APIType == llm.ModelTypeEcho {
		return llm.EchoGenerator{Role: opts.Role}, nil
	}

	model := opts.Model
	if model == nil {
		m, err := llm.NewChatModel(ctx, opts.ModelConfig)
		if err != nil {
			return nil, fmt.Errorf("stage agent %s: %w", opts.Name, err)
		}
		model = m
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = opts.ModelConfig.WithDefaults().Timeout
	}
	return llm.NewChatAgent(ctx, llm.ChatAgentOptions{
		Name: opts.Name,
		Persona: prompt.Persona{
			Role:         opts.Role,
			Instructions: opts.Instructions,
		},
		Model:   model,
		Timeout: timeout,
	})
}
