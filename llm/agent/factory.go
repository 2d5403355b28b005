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
	"sync"

	"github.com/ceejaey/llm-multiagent-sandbox/llm"
	"github.com/ceejaey/llm-multiagent-sandbox/llm/log"
	"github.com/ceejaey/llm-multiagent-sandbox/llm/prompt"
)

// Factory builds stage agents on top of one shared chat model. Agents are
// cached by name, role and instructions, so rebuilding a workflow reuses them.
type Factory struct {
	cfg    llm.ModelConfig
	model  llm.ChatModel
	agents map[string]llm.Generator
	mu     sync.RWMutex
}

// NewFactory creates the shared backend for cfg. No backend is built for the
// echo model type.
func NewFactory(ctx context.Context, cfg llm.ModelConfig) (*Factory, error) {
	cfg = cfg.WithDefaults()
	f := &Factory{
		cfg:    cfg,
		agents: make(map[string]llm.Generator),
	}
	if cfg.APIType == llm.ModelTypeEcho {
		return f, nil
	}
	model, err := llm.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	f.model = model
	log.Info("using %s model %q", cfg.APIType, cfg.ModelName)
	return f, nil
}

// NewFactoryWithModel uses an existing backend, typically a fake in tests.
func NewFactoryWithModel(cfg llm.ModelConfig, model llm.ChatModel) *Factory {
	return &Factory{
		cfg:    cfg.WithDefaults(),
		model:  model,
		agents: make(map[string]llm.Generator),
	}
}

// ModelConfig returns the configuration the factory was built with.
func (f *Factory) ModelConfig() llm.ModelConfig { return f.cfg }

// Agent returns the generator for a stage, creating it on first use.
func (f *Factory) Agent(ctx context.Context, name, role string, instructions prompt.Prompt) (llm.Generator, error) {
	ins := ""
	if instructions != nil {
		ins = instructions.String()
	}
	key := fmt.Sprintf("%s\x00%s\x00%s", name, role, ins)

	f.mu.RLock()
	a, ok := f.agents[key]
	f.mu.RUnlock()
	if ok {
		return a, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.agents[key]; ok {
		return a, nil
	}
	a, err := NewStageAgent(ctx, StageAgentOptions{
		Name:         name,
		Role:         role,
		Instructions: instructions,
		Model:        f.model,
		ModelConfig:  f.cfg,
		Timeout:      f.cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	f.agents[key] = a
	return a, nil
}

// Len returns the number of cached agents.
func (f *Factory) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.agents)
}
