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
	"sort"
	"sync"

	"github.com/ceejaey/llm-multiagent-sandbox/internal/workflow"
	"github.com/ceejaey/llm-multiagent-sandbox/llm/log"
	"github.com/mark3labs/mcp-go/server"
)

type ServerOptions struct {
	ServerName    string
	ServerVersion string
	Catalog       *workflow.Catalog
	Factory       workflow.GeneratorFactory
}

// Server is an MCP server with one tool per workflow of the catalog.
type Server struct {
	*server.MCPServer
	opts ServerOptions

	mu    sync.Mutex
	tools []string
}

func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Catalog == nil {
		return nil, errors.New("mcp server: catalog is nil")
	}
	if opts.Factory == nil {
		return nil, errors.New("mcp server: generator factory is nil")
	}
	s := &Server{
		MCPServer: server.NewMCPServer(opts.ServerName, opts.ServerVersion,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
		opts: opts,
	}
	if err := s.Refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh recompiles every workflow and replaces the registered tools. A
// workflow that fails to compile is logged and left out.
func (s *Server) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		tools []server.ServerTool
		names []string
	)
	for _, def := range s.opts.Catalog.List() {
		p, err := workflow.Compile(def, s.opts.Factory)
		if err != nil {
			log.Error("skip workflow %s: %v", def.Name, err)
			continue
		}
		t := NewWorkflowTool(def, p)
		tools = append(tools, server.ServerTool{Tool: t.Tool, Handler: t.Handler})
		names = append(names, def.Name)
	}
	if len(s.tools) > 0 {
		s.DeleteTools(s.tools...)
	}
	s.AddTools(tools...)
	s.tools = names
	log.Info("mcp server registered %d workflow tools", len(names))
	return nil
}

// Tools returns the registered tool names, sorted.
func (s *Server) Tools() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.tools...)
	sort.Strings(out)
	return out
}

// ServeStdio serves over stdin and stdout. When the catalog has a directory,
// definition changes re-register the tools.
func (s *Server) ServeStdio(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		err := s.opts.Catalog.Watch(ctx, func() {
			if err := s.Refresh(); err != nil {
				log.Error("refresh tools: %v", err)
			}
		})
		if err != nil {
			log.Error("watch workflows: %v", err)
		}
	}()
	return server.ServeStdio(s.MCPServer)
}
