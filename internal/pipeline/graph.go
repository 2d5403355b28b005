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
	"fmt"
	"sort"

	"github.com/ceejaey/llm-multiagent-sandbox/llm"
)

// End is the terminal marker. AddEdge(name, End) is MarkTerminal(name).
const End = "__end__"

// Stage is a named step bound to one adapter. Input and Output are the
// fields the adapter reads and writes; they drive compile-time validation.
type Stage struct {
	Name    string
	Input   string
	Output  string
	Adapter Adapter
}

// NewStage binds a FieldAdapter to name, taking its declared fields. A nil
// adapter gives a stage that AddStage rejects.
func NewStage(name string, a *FieldAdapter) Stage {
	if a == nil {
		return Stage{Name: name}
	}
	return Stage{Name: name, Input: a.Input, Output: a.Output, Adapter: a}
}

// NewGeneratorStage builds a stage whose FieldAdapter calls gen.
func NewGeneratorStage(name string, gen llm.Generator, input, output string) Stage {
	return NewStage(name, NewFieldAdapter(gen, input, output))
}

// Graph is the uncompiled definition: stages, edges between them, the entry
// and the terminal markers. The edge set is an adjacency list so that it can
// describe branches, though Compile only accepts a single path.
type Graph struct {
	name      string
	seeds     []string
	stages    map[string]Stage
	edges     map[string][]string
	entries   []string
	terminals map[string]bool

	// construction problems, reported again by Compile
	buildErrs []*GraphValidationError
}

// NewGraph creates an empty graph whose invocations are seeded with the
// given fields.
func NewGraph(name string, seeds ...string) *Graph {
	return &Graph{
		name:      name,
		seeds:     append([]string(nil), seeds...),
		stages:    make(map[string]Stage),
		edges:     make(map[string][]string),
		terminals: make(map[string]bool),
	}
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// AddStage registers s. Duplicate names and incomplete stages are rejected
// here and again by Compile.
func (g *Graph) AddStage(s Stage) error {
	var verr *GraphValidationError
	switch {
	case s.Name == "" || s.Name == End:
		verr = &GraphValidationError{Kind: KindInvalidStage, Stage: s.Name, Msg: fmt.Sprintf("invalid stage name %q", s.Name)}
	case s.Adapter == nil:
		verr = &GraphValidationError{Kind: KindInvalidStage, Stage: s.Name, Msg: fmt.Sprintf("stage %q has no adapter", s.Name)}
	case s.Input == "" || s.Output == "":
		verr = &GraphValidationError{Kind: KindInvalidStage, Stage: s.Name, Msg: fmt.Sprintf("stage %q must declare input and output fields", s.Name)}
	case s.Input == s.Output:
		verr = &GraphValidationError{Kind: KindInvalidStage, Stage: s.Name, Field: s.Input, Msg: fmt.Sprintf("stage %q reads and writes the same field %q", s.Name, s.Input)}
	default:
		if _, dup := g.stages[s.Name]; dup {
			verr = &GraphValidationError{Kind: KindDuplicateStage, Stage: s.Name, Msg: fmt.Sprintf("duplicate stage %q", s.Name)}
		}
	}
	if verr != nil {
		g.buildErrs = append(g.buildErrs, verr)
		return verr
	}
	g.stages[s.Name] = s
	return nil
}

// SetEntry designates the first stage. Setting two different entries makes
// the graph invalid.
func (g *Graph) SetEntry(name string) {
	for _, e := range g.entries {
		if e == name {
			return
		}
	}
	g.entries = append(g.entries, name)
}

// AddEdge states that to runs after from. Stage names are resolved by Compile.
func (g *Graph) AddEdge(from, to string) {
	if to == End {
		g.MarkTerminal(from)
		return
	}
	for _, t := range g.edges[from] {
		if t == to {
			return
		}
	}
	g.edges[from] = append(g.edges[from], to)
}

// MarkTerminal designates name as an end of the path.
func (g *Graph) MarkTerminal(name string) {
	g.terminals[name] = true
}

// Compile validates the graph and returns the executable pipeline. It does
// not modify g, so compiling the same graph twice gives the same result.
func (g *Graph) Compile() (*Pipeline, error) {
	if len(g.buildErrs) > 0 {
		return nil, g.buildErrs[0]
	}
	if len(g.stages) == 0 {
		return nil, &GraphValidationError{Kind: KindEmptyGraph, Msg: fmt.Sprintf("graph %q has no stages", g.name)}
	}
	names := g.sortedStages()

	if err := g.checkReferences(); err != nil {
		return nil, err
	}
	if err := g.checkCycles(names); err != nil {
		return nil, err
	}
	entry, err := g.resolveEntry(names)
	if err != nil {
		return nil, err
	}
	path, err := g.walk(entry)
	if err != nil {
		return nil, err
	}
	if len(path) != len(g.stages) {
		onPath := make(map[string]bool, len(path))
		for _, s := range path {
			onPath[s.Name] = true
		}
		for _, n := range names {
			if !onPath[n] {
				return nil, &GraphValidationError{Kind: KindUnreachableStage, Stage: n,
					Msg: fmt.Sprintf("stage %q is not on the path from entry %q", n, entry)}
			}
		}
	}
	if err := g.checkFields(path); err != nil {
		return nil, err
	}
	return newPipeline(g.name, g.seeds, path)
}

func (g *Graph) sortedStages() []string {
	names := make([]string, 0, len(g.stages))
	for n := range g.stages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (g *Graph) successors(name string) []string {
	next := append([]string(nil), g.edges[name]...)
	sort.Strings(next)
	return next
}

func (g *Graph) checkReferences() error {
	for _, from := range g.sortedEdgeSources() {
		for _, to := range g.successors(from) {
			if from == to {
				return &GraphValidationError{Kind: KindSelfLoop, Stage: from,
					Msg: fmt.Sprintf("self-referential edge: %q -> %q", from, to)}
			}
			if _, ok := g.stages[from]; !ok {
				return &GraphValidationError{Kind: KindUnknownStage, Stage: from,
					Msg: fmt.Sprintf("edge references unknown stage %q", from)}
			}
			if _, ok := g.stages[to]; !ok {
				return &GraphValidationError{Kind: KindUnknownStage, Stage: to,
					Msg: fmt.Sprintf("edge references unknown stage %q", to)}
			}
		}
	}
	for _, e := range g.entries {
		if _, ok := g.stages[e]; !ok {
			return &GraphValidationError{Kind: KindUnknownStage, Stage: e,
				Msg: fmt.Sprintf("entry references unknown stage %q", e)}
		}
	}
	for _, t := range g.sortedTerminals() {
		if _, ok := g.stages[t]; !ok {
			return &GraphValidationError{Kind: KindUnknownStage, Stage: t,
				Msg: fmt.Sprintf("terminal marker references unknown stage %q", t)}
		}
	}
	return nil
}

// checkCycles runs a colouring DFS over every stage.
func (g *Graph) checkCycles(names []string) error {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(names))
	var stack []string

	var dfs func(n string) error
	dfs = func(n string) error {
		color[n] = grey
		stack = append(stack, n)
		for _, next := range g.successors(n) {
			switch color[next] {
			case grey:
				start := 0
				for i, s := range stack {
					if s == next {
						start = i
						break
					}
				}
				cycle := append(append([]string(nil), stack[start:]...), next)
				return &GraphValidationError{Kind: KindCycle, Stage: next,
					Msg: fmt.Sprintf("cycle detected: %v", cycle)}
			case white:
				if err := dfs(next); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
		return nil
	}
	for _, n := range names {
		if color[n] == white {
			if err := dfs(n); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Graph) incoming() map[string]int {
	in := make(map[string]int, len(g.stages))
	for _, tos := range g.edges {
		for _, to := range tos {
			in[to]++
		}
	}
	return in
}

func (g *Graph) resolveEntry(names []string) (string, error) {
	in := g.incoming()
	switch len(g.entries) {
	case 1:
		entry := g.entries[0]
		if in[entry] > 0 {
			return "", &GraphValidationError{Kind: KindEntryHasIncoming, Stage: entry,
				Msg: fmt.Sprintf("entry stage %q has incoming edges", entry)}
		}
		return entry, nil
	case 0:
		var candidates []string
		for _, n := range names {
			if in[n] == 0 {
				candidates = append(candidates, n)
			}
		}
		if len(candidates) == 1 {
			return candidates[0], nil
		}
		if len(candidates) == 0 {
			return "", &GraphValidationError{Kind: KindMissingEntry, Msg: "no entry stage found"}
		}
		return "", &GraphValidationError{Kind: KindMultipleEntries, Stage: candidates[0],
			Msg: fmt.Sprintf("no entry set and several candidate entries: %v", candidates)}
	default:
		entries := append([]string(nil), g.entries...)
		sort.Strings(entries)
		return "", &GraphValidationError{Kind: KindMultipleEntries, Stage: entries[0],
			Msg: fmt.Sprintf("multiple entry stages: %v", entries)}
	}
}

// walk follows the single path from entry to a terminal marker.
func (g *Graph) walk(entry string) ([]Stage, error) {
	var path []Stage
	visited := make(map[string]bool, len(g.stages))
	cur := entry
	for {
		if visited[cur] {
			return nil, &GraphValidationError{Kind: KindCycle, Stage: cur,
				Msg: fmt.Sprintf("stage %q visited twice", cur)}
		}
		visited[cur] = true
		path = append(path, g.stages[cur])

		next := g.successors(cur)
		if g.terminals[cur] {
			if len(next) > 0 {
				return nil, &GraphValidationError{Kind: KindTerminalHasSuccessor, Stage: cur,
					Msg: fmt.Sprintf("terminal stage %q has outgoing edges to %v", cur, next)}
			}
			return path, nil
		}
		switch len(next) {
		case 0:
			return nil, &GraphValidationError{Kind: KindMissingTerminal, Stage: cur,
				Msg: fmt.Sprintf("path ends at %q, which is not marked terminal", cur)}
		case 1:
			cur = next[0]
		default:
			return nil, &GraphValidationError{Kind: KindBranching, Stage: cur,
				Msg: fmt.Sprintf("stage %q branches to %v; only linear paths can be executed", cur, next)}
		}
	}
}

// checkFields verifies every input is a seed or an earlier output, and that
// each field is written at most once.
func (g *Graph) checkFields(path []Stage) error {
	seeds := make(map[string]bool, len(g.seeds))
	for _, s := range g.seeds {
		seeds[s] = true
	}
	producedBy := make(map[string]string, len(path))
	for _, s := range path {
		if !seeds[s.Input] && producedBy[s.Input] == "" {
			return &GraphValidationError{Kind: KindUnreachableField, Stage: s.Name, Field: s.Input,
				Msg: fmt.Sprintf("stage %q reads %q, which is neither a seed field nor produced by an earlier stage", s.Name, s.Input)}
		}
		if seeds[s.Output] {
			return &GraphValidationError{Kind: KindOutputShadowsSeed, Stage: s.Name, Field: s.Output,
				Msg: fmt.Sprintf("stage %q writes seed field %q", s.Name, s.Output)}
		}
		if prev := producedBy[s.Output]; prev != "" {
			return &GraphValidationError{Kind: KindDuplicateOutput, Stage: s.Name, Field: s.Output,
				Msg: fmt.Sprintf("stages %q and %q both write %q", prev, s.Name, s.Output)}
		}
		producedBy[s.Output] = s.Name
	}
	return nil
}

func (g *Graph) sortedEdgeSources() []string {
	from := make([]string, 0, len(g.edges))
	for n := range g.edges {
		from = append(from, n)
	}
	sort.Strings(from)
	return from
}

func (g *Graph) sortedTerminals() []string {
	ts := make([]string, 0, len(g.terminals))
	for n := range g.terminals {
		ts = append(ts, n)
	}
	sort.Strings(ts)
	return ts
}
