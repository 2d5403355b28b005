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
	"sort"
	"time"
)

// State is the record threaded through one invocation. A field that has not
// been produced yet is absent from the map; an empty string is a valid value.
type State map[string]string

// Get returns the value of field, or a *MissingFieldError if it is absent.
func (s State) Get(field string) (string, error) {
	v, ok := s[field]
	if !ok {
		return "", &MissingFieldError{Field: field}
	}
	return v, nil
}

// Has reports whether field has been populated.
func (s State) Has(field string) bool {
	_, ok := s[field]
	return ok
}

// Clone returns an independent copy of s. Cloning nil yields an empty state.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Fields returns the populated field names in sorted order.
func (s State) Fields() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// merge applies a stage update. The update may only carry the stage's
// declared output field, and that field must not be populated yet.
func (s State) merge(stage string, declared string, update State) error {
	for field := range update {
		if field != declared {
			return &FieldCollisionError{Stage: stage, Field: field, Reason: "undeclared output field"}
		}
		if s.Has(field) {
			return &FieldCollisionError{Stage: stage, Field: field, Reason: "field already populated"}
		}
	}
	for field, v := range update {
		s[field] = v
	}
	return nil
}

// RunStatus is the lifecycle position of one invocation.
type RunStatus string

const (
	RunCreated   RunStatus = "created"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// StepStatus is the outcome of a stage execution.
type StepStatus string

const (
	StepOK     StepStatus = "ok"
	StepFailed StepStatus = "failed"
)

// StepRecord is an immutable log entry for one stage execution.
type StepRecord struct {
	Stage     string     `json:"stage"`
	Input     string     `json:"input"`
	Output    string     `json:"output"`
	Status    StepStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   time.Time  `json:"ended_at"`
}

// Run is the record of one invocation of a compiled Pipeline. It is owned by
// the goroutine that called Execute and never shared with other invocations.
type Run struct {
	ID        string       `json:"id"`
	Pipeline  string       `json:"pipeline"`
	Status    RunStatus    `json:"status"`
	State     State        `json:"state,omitempty"`
	History   []StepRecord `json:"history,omitempty"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
}

// Current returns the stage that is running or last ran, or "".
func (r *Run) Current() string {
	if r == nil || len(r.History) == 0 {
		return ""
	}
	return r.History[len(r.History)-1].Stage
}

func errStr(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
