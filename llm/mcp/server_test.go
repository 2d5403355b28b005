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
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ceejaey/llm-multiagent-sandbox/internal/workflow"
	"github.com/ceejaey/llm-multiagent-sandbox/llm"
	alog "github.com/ceejaey/llm-multiagent-sandbox/llm/log"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcResponse struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func send(t *testing.T, w io.Writer, msg any) {
	t.Helper()
	bs, err := json.Marshal(msg)
	require.NoError(t, err)
	_, err = w.Write(append(bs, '\n'))
	require.NoError(t, err)
}

func sendAndRecv(t *testing.T, req any, w io.Writer, r *bufio.Reader) rpcResponse {
	t.Helper()
	send(t, w, req)
	line, err := r.ReadBytes('\n')
	require.NoError(t, err)
	var resp rpcResponse
	require.NoError(t, json.Unmarshal(line, &resp))
	return resp
}

func call(id int, method string, params any) map[string]any {
	return map[string]any{"jsonrpc": "2.0", "id": id, "method": method, "params": params}
}

func echoFactory(s workflow.StageDefinition) (llm.Generator, error) {
	return llm.EchoGenerator{Role: s.Role}, nil
}

func failingFactory(s workflow.StageDefinition) (llm.Generator, error) {
	if s.Name != "reviewer" {
		return llm.EchoGenerator{Role: s.Role}, nil
	}
	return llm.GeneratorFunc(func(ctx context.Context, input string) (llm.TextResult, error) {
		return nil, errors.New("backend unavailable")
	}), nil
}

func startServer(t *testing.T, factory workflow.GeneratorFactory) (io.Writer, *bufio.Reader) {
	t.Helper()
	alog.SetLogLevel(alog.DebugLevel)
	t.Cleanup(func() { alog.SetLogLevel(alog.InfoLevel) })

	catalog, err := workflow.NewCatalog("")
	require.NoError(t, err)
	svr, err := NewServer(ServerOptions{
		ServerName:    "sandbox",
		ServerVersion: "1.0.0",
		Catalog:       catalog,
		Factory:       factory,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"python-coder", "user-story"}, svr.Tools())

	stdinReader, stdinWriter := io.Pipe()
	stdoutReader, stdoutWriter := io.Pipe()
	stdioServer := server.NewStdioServer(svr.MCPServer)
	stdioServer.SetErrorLogger(log.New(io.Discard, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	serverErrCh := make(chan error, 1)
	go func() {
		err := stdioServer.Listen(ctx, stdinReader, stdoutWriter)
		if err != nil && err != io.EOF && err != context.Canceled {
			serverErrCh <- err
		}
		stdoutWriter.Close()
		close(serverErrCh)
	}()
	t.Cleanup(func() {
		cancel()
		stdinWriter.Close()
		if err := <-serverErrCh; err != nil {
			t.Errorf("unexpected server error: %v", err)
		}
	})

	time.Sleep(100 * time.Millisecond)
	r := bufio.NewReader(stdoutReader)
	resp := sendAndRecv(t, call(1, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"clientInfo": map[string]any{
			"name":    "test-client",
			"version": "1.0.0",
		},
	}), stdinWriter, r)
	require.Nil(t, resp.Error)
	send(t, stdinWriter, map[string]any{"jsonrpc": "2.0", "method": "notifications/initialized"})
	return stdinWriter, r
}

func TestWorkflowServer(t *testing.T) {
	w, r := startServer(t, echoFactory)

	resp := sendAndRecv(t, call(2, "tools/list", map[string]any{}), w, r)
	require.Nil(t, resp.Error)
	var list struct {
		Tools []struct {
			Name        string `json:"name"`
			InputSchema struct {
				Required []string `json:"required"`
			} `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &list))
	require.Len(t, list.Tools, 2)
	for _, tool := range list.Tools {
		assert.Equal(t, []string{"input"}, tool.InputSchema.Required)
	}

	resp = sendAndRecv(t, call(3, "tools/call", map[string]any{
		"name":      "python-coder",
		"arguments": map[string]any{"input": "X"},
	}), w, r)
	require.Nil(t, resp.Error)
	var res toolResult
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	var state map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &state))
	assert.Equal(t, "X", state["input"])
	assert.Equal(t, "<Coder:X>", state["code"])
	assert.Equal(t, "<Refactor:<Reviewer:<Coder:X>>>", state["refactored"])

	resp = sendAndRecv(t, call(4, "tools/call", map[string]any{
		"name":      "python-coder",
		"arguments": map[string]any{},
	}), w, r)
	require.Nil(t, resp.Error)
	res = toolResult{}
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	assert.True(t, res.IsError)
}

func TestWorkflowServer_StageFailure(t *testing.T) {
	w, r := startServer(t, failingFactory)

	resp := sendAndRecv(t, call(2, "tools/call", map[string]any{
		"name":      "user-story",
		"arguments": map[string]any{"input": "X"},
	}), w, r)
	require.Nil(t, resp.Error)
	var res toolResult
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	assert.True(t, res.IsError)
	require.Len(t, res.Content, 1)
	assert.Contains(t, res.Content[0].Text, "stage reviewer failed")
	assert.Contains(t, res.Content[0].Text, "backend unavailable")
}

func TestServer_Refresh(t *testing.T) {
	dir := t.TempDir()
	catalog, err := workflow.NewCatalog(dir)
	require.NoError(t, err)
	svr, err := NewServer(ServerOptions{ServerName: "sandbox", ServerVersion: "1.0.0", Catalog: catalog, Factory: echoFactory})
	require.NoError(t, err)
	assert.Len(t, svr.Tools(), 2)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.yaml"), []byte(`
name: extra
stages:
  - {name: a, role: A, input: input, output: out}
`), 0o644))
	require.NoError(t, catalog.Reload())
	require.NoError(t, svr.Refresh())
	assert.Equal(t, []string{"extra", "python-coder", "user-story"}, svr.Tools())

	_, err = NewServer(ServerOptions{Catalog: catalog})
	assert.Error(t, err)
}
