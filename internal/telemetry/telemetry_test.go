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

package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/ceejaey/llm-multiagent-sandbox/internal/pipeline"
	"github.com/ceejaey/llm-multiagent-sandbox/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_ExportsPipelineSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init("sandbox-test", "v0.0.1", &buf)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	g, err := pipeline.Linear("traced", []string{"input"},
		pipeline.StageSpec{Name: "writer", Input: "input", Output: "story", Generator: llm.EchoGenerator{Role: "Writer"}},
	)
	require.NoError(t, err)
	p, err := g.Compile()
	require.NoError(t, err)
	_, err = p.Invoke(context.Background(), map[string]string{"input": "X"})
	require.NoError(t, err)

	require.NoError(t, shutdown(context.Background()))
	out := buf.String()
	assert.Contains(t, out, "Pipeline.Invoke")
	assert.Contains(t, out, "Pipeline.Stage")
	assert.Contains(t, out, "sandbox-test")
}
