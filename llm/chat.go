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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ceejaey/llm-multiagent-sandbox/llm/log"
	"github.com/ceejaey/llm-multiagent-sandbox/llm/prompt"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	eprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

var _ Generator = (*ChatAgent)(nil)

// ChatAgent is a Generator backed by a chat model. Its system prompt is
// rendered once from the persona; every call sends the input as the single
// user message. There is no retry: a failed call is returned as is.
type ChatAgent struct {
	name     string
	system   string
	runnable compose.Runnable[map[string]any, *schema.Message]
	timeout  time.Duration
}

type ChatAgentOptions struct {
	Name    string
	Persona prompt.Persona
	Model   model.BaseChatModel
	// Timeout bounds each Generate call; zero means only ctx applies.
	Timeout time.Duration
}

// NewChatAgent compiles the chain: chat template -> chat model.
func NewChatAgent(ctx context.Context, opts ChatAgentOptions) (*ChatAgent, error) {
	if opts.Model == nil {
		return nil, errors.New("chat agent: model is nil")
	}
	system, err := opts.Persona.Render()
	if err != nil {
		return nil, fmt.Errorf("chat agent %s: %w", opts.Name, err)
	}
	tpl := eprompt.FromMessages(schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{input}"),
	)
	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(tpl).AppendChatModel(opts.Model)
	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("chat agent %s: compile chain: %w", opts.Name, err)
	}
	return &ChatAgent{
		name:     opts.Name,
		system:   system,
		runnable: runnable,
		timeout:  opts.Timeout,
	}, nil
}

// SystemPrompt returns the rendered system message.
func (a *ChatAgent) SystemPrompt() string {
	return a.system
}

func (a *ChatAgent) Generate(ctx context.Context, input string) (TextResult, error) {
	log.Debug("[%s] [User] %s", a.name, input)
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	out, err := a.runnable.Invoke(ctx, map[string]any{
		"system": a.system,
		"input":  input,
	}, compose.WithCallbacks(CallbackHandler{}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return nil, fmt.Errorf("%s: %w", a.name, ErrEmptyResponse)
	}
	log.Debug("[%s] [Assistant] %s", a.name, out.Content)
	return NewEnvelope(out), nil
}

// EchoGenerator answers "<role:input>" without calling any backend. It backs
// the offline "echo" model type.
type EchoGenerator struct {
	Role string
}

func (g EchoGenerator) Generate(ctx context.Context, input string) (TextResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return PlainText(fmt.Sprintf("<%s:%s>", g.Role, input)), nil
}

type CallbackHandler struct{}

var _ callbacks.Handler = (*CallbackHandler)(nil)

func (h CallbackHandler) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	log.Debug("<OnStart> INFO: %+v", info)
	return ctx
}

func (h CallbackHandler) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	log.Debug("<OnEnd> INFO: %+v OUTPUT: %v", info, output)
	return ctx
}

func (h CallbackHandler) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	log.Error("<OnError> INFO: %+v ERROR: %v", info, err)
	return ctx
}

func (h CallbackHandler) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo,
	input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	return ctx
}

func (h CallbackHandler) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo,
	output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	return ctx
}
