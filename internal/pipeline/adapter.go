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

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/ceejaey/llm-multiagent-sandbox/llm"
)

// Adapter is the unit of work bound to a stage. Apply reads from the
// accumulated state and returns only the delta; the executor owns the merge.
// Implementations must not retain or mutate st.
type Adapter interface {
	Apply(ctx context.Context, st State) (State, error)
}

// AdapterFunc adapts a function to Adapter.
type AdapterFunc func(ctx context.Context, st State) (State, error)

func (f AdapterFunc) Apply(ctx context.Context, st State) (State, error) {
	return f(ctx, st)
}

// FieldAdapter feeds one state field to a Generator and stores the generated
// text under another field.
type FieldAdapter struct {
	Generator llm.Generator
	Input     string
	Output    string
}

var _ Adapter = (*FieldAdapter)(nil)

// NewFieldAdapter binds gen to read input and write output.
func NewFieldAdapter(gen llm.Generator, input, output string) *FieldAdapter {
	return &FieldAdapter{Generator: gen, Input: input, Output: output}
}

// Apply returns {Output: text}. It fails with *MissingFieldError before
// calling the generator when Input is absent, and with *GenerationFailure
// when the generator errors or returns no result.
func (a *FieldAdapter) Apply(ctx context.Context, st State) (State, error) {
	value, err := st.Get(a.Input)
	if err != nil {
		return nil, err
	}
	if a.Generator == nil {
		return nil, &GenerationFailure{Err: errors.New("no generator bound")}
	}
	res, err := a.Generator.Generate(ctx, value)
	if err != nil {
		return nil, &GenerationFailure{Err: err}
	}
	text, err := extractText(res)
	if err != nil {
		return nil, &GenerationFailure{Err: err}
	}
	return State{a.Output: text}, nil
}

func extractText(res llm.TextResult) (string, error) {
	switch r := res.(type) {
	case llm.PlainText:
		return string(r), nil
	case *llm.Envelope:
		if r == nil {
			return "", llm.ErrEmptyResponse
		}
		return r.Payload, nil
	case nil:
		return "", llm.ErrEmptyResponse
	default:
		return "", fmt.Errorf("unsupported result type %T", res)
	}
}
