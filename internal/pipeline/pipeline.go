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
	"fmt"
	"sort"
	"time"

	"github.com/ceejaey/llm-multiagent-sandbox/llm/log"
	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/ceejaey/llm-multiagent-sandbox/internal/pipeline"

	// node keys are prefixed so that stage names never meet compose.START
	// or compose.END
	nodePrefix = "stage/"
)

// Pipeline is a compiled graph. It is immutable and may be invoked from
// several goroutines at once; each invocation owns its own State.
type Pipeline struct {
	name     string
	seeds    []string
	stages   []Stage
	fields   map[string]bool
	producer map[string]string // output field -> stage
	tracer   trace.Tracer
	runner   compose.Runnable[State, State]
}

func newPipeline(name string, seeds []string, path []Stage) (*Pipeline, error) {
	p := &Pipeline{
		name:     name,
		seeds:    append([]string(nil), seeds...),
		stages:   append([]Stage(nil), path...),
		fields:   make(map[string]bool, len(seeds)+len(path)),
		producer: make(map[string]string, len(path)),
		tracer:   otel.Tracer(tracerName),
	}
	for _, s := range seeds {
		p.fields[s] = true
	}
	for _, s := range path {
		p.fields[s.Output] = true
		p.producer[s.Output] = s.Name
	}
	runner, err := p.buildRunner(context.Background())
	if err != nil {
		return nil, fmt.Errorf("compose pipeline %q: %w", name, err)
	}
	p.runner = runner
	return p, nil
}

// runRecord is the local state of one invocation of the stage graph.
type runRecord struct {
	history []StepRecord
	state   State // latest state: the input of the failed stage on failure
	failed  string
	err     error
}

type runRecordKey struct{}

// buildRunner lays the validated path out as START -> stage... -> END with one
// lambda node per stage.
func (p *Pipeline) buildRunner(ctx context.Context) (compose.Runnable[State, State], error) {
	g := compose.NewGraph[State, State](compose.WithGenLocalState(func(ctx context.Context) *runRecord {
		if rec, ok := ctx.Value(runRecordKey{}).(*runRecord); ok {
			return rec
		}
		return &runRecord{}
	}))
	prev := compose.START
	for _, stage := range p.stages {
		key := nodePrefix + stage.Name
		if err := g.AddLambdaNode(key, compose.InvokableLambda(p.stageNode(stage)), compose.WithNodeName(stage.Name)); err != nil {
			return nil, err
		}
		if err := g.AddEdge(prev, key); err != nil {
			return nil, err
		}
		prev = key
	}
	if err := g.AddEdge(prev, compose.END); err != nil {
		return nil, err
	}
	return g.Compile(ctx,
		compose.WithGraphName(p.name),
		compose.WithNodeTriggerMode(compose.AllPredecessor),
	)
}

func (p *Pipeline) stageNode(stage Stage) func(context.Context, State) (State, error) {
	return func(ctx context.Context, st State) (State, error) {
		var (
			rec     StepRecord
			next    State
			err     error
			started bool
		)
		if cerr := ctx.Err(); cerr != nil {
			err = &GenerationFailure{Stage: stage.Name, Err: cerr}
		} else {
			started = true
			rec, next, err = p.runStage(ctx, stage, st)
		}
		perr := compose.ProcessState[*runRecord](ctx, func(_ context.Context, r *runRecord) error {
			if started {
				r.history = append(r.history, rec)
			}
			if err != nil {
				r.state, r.failed, r.err = st, stage.Name, err
				return nil
			}
			r.state = next
			return nil
		})
		if err == nil {
			err = perr
		}
		return next, err
	}
}

func (p *Pipeline) Name() string { return p.name }

// Seeds returns the fields a caller is expected to supply.
func (p *Pipeline) Seeds() []string { return append([]string(nil), p.seeds...) }

// Stages returns the stages in execution order.
func (p *Pipeline) Stages() []Stage { return append([]Stage(nil), p.stages...) }

// Fields returns the static field set: seeds plus every stage output, sorted.
func (p *Pipeline) Fields() []string {
	out := make([]string, 0, len(p.fields))
	for f := range p.fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Invoke runs every stage in order and returns the final state: the seed
// fields plus each stage's output. On failure the returned state is nil and
// the error is a *RunError.
func (p *Pipeline) Invoke(ctx context.Context, initial map[string]string) (State, error) {
	run, err := p.Execute(ctx, initial)
	if err != nil {
		return nil, err
	}
	return run.State, nil
}

// Execute is Invoke that also returns the run record. The record is returned
// on failure too, with Status RunFailed and no State.
func (p *Pipeline) Execute(ctx context.Context, initial map[string]string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Pipeline:  p.name,
		Status:    RunCreated,
		StartedAt: time.Now(),
	}
	ctx, span := p.tracer.Start(ctx, "Pipeline.Invoke", trace.WithAttributes(
		attribute.String("pipeline.name", p.name),
		attribute.String("run.id", run.ID),
		attribute.Int("pipeline.stages", len(p.stages)),
	))
	defer span.End()

	st := State(initial).Clone()
	if err := p.checkInitial(st); err != nil {
		return p.fail(span, run, "", st, err)
	}

	run.Status = RunRunning
	rr := &runRecord{state: st}
	out, err := p.runner.Invoke(context.WithValue(ctx, runRecordKey{}, rr), st)
	run.History = rr.history
	if err != nil {
		stage, cause := rr.failed, rr.err
		if cause == nil {
			stage, cause = p.interrupted(ctx, len(rr.history), err)
		}
		return p.fail(span, run, stage, rr.state, cause)
	}

	run.Status = RunCompleted
	run.State = out
	run.EndedAt = time.Now()
	span.SetStatus(codes.Ok, "")
	log.Debug("pipeline %s run %s completed in %v", p.name, run.ID, run.EndedAt.Sub(run.StartedAt))
	return run, nil
}

// interrupted names the stage that did not get to run when the graph stopped
// outside any stage. Cancellation is a generation failure of that stage.
func (p *Pipeline) interrupted(ctx context.Context, done int, err error) (string, error) {
	var stage string
	if done < len(p.stages) {
		stage = p.stages[done].Name
	}
	if cerr := ctx.Err(); cerr != nil {
		return stage, &GenerationFailure{Stage: stage, Err: cerr}
	}
	return stage, err
}

func (p *Pipeline) checkInitial(st State) error {
	for _, f := range st.Fields() {
		if !p.fields[f] {
			return fmt.Errorf("%w: %q is not a field of pipeline %q", ErrUnknownField, f, p.name)
		}
		if stage, ok := p.producer[f]; ok {
			return &FieldCollisionError{Stage: stage, Field: f, Reason: "initial fields supply a stage output"}
		}
	}
	return nil
}

// runStage applies the stage's adapter to st and returns the merged state.
// st itself is left untouched.
func (p *Pipeline) runStage(ctx context.Context, stage Stage, st State) (StepRecord, State, error) {
	rec := StepRecord{
		Stage:     stage.Name,
		Input:     stage.Input,
		Output:    stage.Output,
		StartedAt: time.Now(),
	}
	ctx, span := p.tracer.Start(ctx, "Pipeline.Stage", trace.WithAttributes(
		attribute.String("stage.name", stage.Name),
		attribute.String("stage.input", stage.Input),
		attribute.String("stage.output", stage.Output),
	))
	defer span.End()
	log.Debug("pipeline %s: stage %s (%s -> %s)", p.name, stage.Name, stage.Input, stage.Output)

	next := st.Clone()
	update, err := stage.Adapter.Apply(ctx, st.Clone())
	if err == nil {
		err = next.merge(stage.Name, stage.Output, update)
		if _, ok := update[stage.Output]; err == nil && !ok {
			err = &GenerationFailure{Stage: stage.Name, Err: fmt.Errorf("no value produced for %q", stage.Output)}
		}
	}
	rec.EndedAt = time.Now()
	if err != nil {
		err = withStage(err, stage.Name)
		rec.Status = StepFailed
		rec.Error = errStr(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return rec, nil, err
	}
	rec.Status = StepOK
	span.SetStatus(codes.Ok, "")
	return rec, next, nil
}

func (p *Pipeline) fail(span trace.Span, run *Run, stage string, st State, err error) (*Run, error) {
	run.Status = RunFailed
	run.EndedAt = time.Now()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Error("pipeline %s run %s failed at stage %q: %v", p.name, run.ID, stage, err)
	return run, &RunError{RunID: run.ID, Stage: stage, Partial: st.Clone(), Err: err}
}
