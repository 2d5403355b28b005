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
	"errors"
	"fmt"
)

// Sentinel errors for programmatic checking via errors.Is.
var (
	// ErrGraphValidation is returned by Graph.Compile only.
	ErrGraphValidation = errors.New("graph validation error")

	// ErrMissingField means a stage read a field absent from state.
	ErrMissingField = errors.New("missing field")

	// ErrGenerationFailure means the generation capability produced no result.
	ErrGenerationFailure = errors.New("generation failure")

	// ErrFieldCollision means a stage update would overwrite or introduce a field.
	ErrFieldCollision = errors.New("field collision")

	// ErrUnknownField means initial fields contain a name the pipeline never declares.
	ErrUnknownField = errors.New("unknown field")
)

// Validation kinds reported in GraphValidationError.Kind.
const (
	KindEmptyGraph           = "empty_graph"
	KindDuplicateStage       = "duplicate_stage"
	KindInvalidStage         = "invalid_stage"
	KindUnknownStage         = "unknown_stage"
	KindMissingEntry         = "missing_entry"
	KindMultipleEntries      = "multiple_entries"
	KindEntryHasIncoming     = "entry_has_incoming"
	KindSelfLoop             = "self_loop"
	KindCycle                = "cycle"
	KindBranching            = "branching"
	KindUnreachableStage     = "unreachable_stage"
	KindMissingTerminal      = "missing_terminal"
	KindTerminalHasSuccessor = "terminal_has_successor"
	KindUnreachableField     = "unreachable_field"
	KindDuplicateOutput      = "duplicate_output"
	KindOutputShadowsSeed    = "output_shadows_seed"
)

// GraphValidationError is a compile-time failure. Stage and Field name the
// offending stage and field when the kind involves one.
type GraphValidationError struct {
	Kind  string
	Stage string
	Field string
	Msg   string
}

func (e *GraphValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s", ErrGraphValidation.Error(), e.Kind)
	}
	return fmt.Sprintf("%s: %s", ErrGraphValidation.Error(), e.Msg)
}

func (e *GraphValidationError) Unwrap() error { return ErrGraphValidation }

// MissingFieldError is returned when a stage's input field is absent from
// state at the moment the stage executes.
type MissingFieldError struct {
	Stage string
	Field string
}

func (e *MissingFieldError) Error() string {
	if e == nil {
		return ""
	}
	if e.Stage == "" {
		return fmt.Sprintf("%s: %q", ErrMissingField.Error(), e.Field)
	}
	return fmt.Sprintf("%s: stage %q needs %q", ErrMissingField.Error(), e.Stage, e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// GenerationFailure wraps any error raised by a generation capability:
// transport errors, timeouts, empty or malformed responses and rejections.
type GenerationFailure struct {
	Stage string
	Err   error
}

func (e *GenerationFailure) Error() string {
	if e == nil {
		return ""
	}
	msg := ErrGenerationFailure.Error()
	if e.Stage != "" {
		msg = fmt.Sprintf("%s in stage %q", msg, e.Stage)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is lets errors.Is match both the sentinel and the wrapped cause.
func (e *GenerationFailure) Is(target error) bool { return target == ErrGenerationFailure }

func (e *GenerationFailure) Unwrap() error { return e.Err }

// FieldCollisionError is returned when a stage update names a field other
// than its declared output, or a field that is already populated.
type FieldCollisionError struct {
	Stage  string
	Field  string
	Reason string
}

func (e *FieldCollisionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: stage %q field %q: %s", ErrFieldCollision.Error(), e.Stage, e.Field, e.Reason)
}

func (e *FieldCollisionError) Unwrap() error { return ErrFieldCollision }

// RunError is the error returned by a failed invocation. Partial holds the
// state accumulated before the failure, for diagnostics only.
type RunError struct {
	RunID   string
	Stage   string
	Partial State
	Err     error
}

func (e *RunError) Error() string {
	if e == nil {
		return ""
	}
	if e.Stage == "" {
		return fmt.Sprintf("pipeline run %s: %v", e.RunID, e.Err)
	}
	return fmt.Sprintf("pipeline run %s: stage %q: %v", e.RunID, e.Stage, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// withStage returns err with the failing stage recorded. Adapters do not
// know the stage they are bound to and may share error values, so a typed
// error without a stage is copied rather than modified.
func withStage(err error, stage string) error {
	switch e := err.(type) {
	case *MissingFieldError:
		if e != nil && e.Stage == "" {
			c := *e
			c.Stage = stage
			return &c
		}
	case *GenerationFailure:
		if e != nil && e.Stage == "" {
			c := *e
			c.Stage = stage
			return &c
		}
	case *FieldCollisionError:
		if e != nil && e.Stage == "" {
			c := *e
			c.Stage = stage
			return &c
		}
	}
	return err
}
