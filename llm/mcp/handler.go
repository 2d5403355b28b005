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

package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/ceejaey/llm-multiagent-sandbox/internal/pipeline"
	"github.com/ceejaey/llm-multiagent-sandbox/internal/utils"
	"github.com/ceejaey/llm-multiagent-sandbox/internal/workflow"
	"github.com/ceejaey/llm-multiagent-sandbox/llm/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type Tool struct {
	mcp.Tool
	Handler server.ToolHandlerFunc
}

// NewWorkflowTool exposes a compiled workflow as a tool taking one required
// string argument per seed field. The result is the final state as JSON.
func NewWorkflowTool(def *workflow.Definition, p *pipeline.Pipeline) Tool {
	desc := def.Description
	if desc == "" {
		desc = fmt.Sprintf("Run the %s workflow", def.Name)
	}
	opts := []mcp.ToolOption{mcp.WithDescription(desc)}
	for _, seed := range p.Seeds() {
		opts = append(opts, mcp.WithString(seed,
			mcp.Required(),
			mcp.Description(fmt.Sprintf("value of the %q field", seed)),
		))
	}

	return Tool{
		Tool: mcp.NewTool(def.Name, opts...),
		Handler: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			initial := make(map[string]string, len(p.Seeds()))
			for _, seed := range p.Seeds() {
				v, err := request.RequireString(seed)
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				initial[seed] = v
			}
			run, err := p.Execute(ctx, initial)
			if err != nil {
				log.Error("tool %s: %v", def.Name, err)
				return mcp.NewToolResultError(describe(err)), nil
			}
			js, err := utils.MarshalJSONBytes(run.State)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(string(js)), nil
		},
	}
}

func describe(err error) string {
	var re *pipeline.RunError
	if errors.As(err, &re) && re.Stage != "" {
		return fmt.Sprintf("stage %s failed: %v", re.Stage, re.Err)
	}
	return err.Error()
}
