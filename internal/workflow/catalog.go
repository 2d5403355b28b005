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

package workflow

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ceejaey/llm-multiagent-sandbox/internal/workflow/builtin"
	"github.com/ceejaey/llm-multiagent-sandbox/llm/log"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// ErrNotFound is returned by Get for an unknown workflow name.
var ErrNotFound = errors.New("workflow not found")

// Catalog holds the builtin workflows plus those found in a directory.
// A directory file overrides the builtin with the same name.
type Catalog struct {
	mu   sync.RWMutex
	dir  string
	defs map[string]*Definition
}

// NewCatalog loads the builtins and, when dir is not empty, the definitions
// under dir.
func NewCatalog(dir string) (*Catalog, error) {
	c := &Catalog{dir: dir}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the workflows directory, or "".
func (c *Catalog) Dir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dir
}

// Reload rebuilds the catalog from scratch. On error the previous content is
// kept.
func (c *Catalog) Reload() error {
	defs, err := loadBuiltins()
	if err != nil {
		return err
	}
	c.mu.RLock()
	dir := c.dir
	c.mu.RUnlock()

	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return errors.Wrap(err, "workflows directory")
		}
		local, err := LoadDir(dir)
		if err != nil {
			return err
		}
		for _, def := range local {
			if prev, ok := defs[def.Name]; ok && prev.Source == SourceLocal {
				log.Error("workflow %q defined twice, %s wins over %s", def.Name, def.Path, prev.Path)
			}
			defs[def.Name] = def
		}
	}

	c.mu.Lock()
	c.defs = defs
	c.mu.Unlock()
	log.Info("loaded %d workflows", len(defs))
	return nil
}

func loadBuiltins() (map[string]*Definition, error) {
	defs := make(map[string]*Definition)
	for _, path := range builtin.Paths() {
		data, err := builtin.FS.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read builtin workflow %s", path)
		}
		def, err := Parse(data, SourceBuiltin, "")
		if err != nil {
			return nil, errors.Wrapf(err, "builtin workflow %s", path)
		}
		def.Path = path
		defs[def.Name] = def
	}
	return defs, nil
}

// Get returns the named definition.
func (c *Catalog) Get(name string) (*Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.defs[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%q", name)
	}
	return def, nil
}

// List returns every definition sorted by name.
func (c *Catalog) List() []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Definition, 0, len(c.defs))
	for _, def := range c.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of definitions.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.defs)
}

// settle is how long Watch waits for a burst of file events to end.
const settle = 200 * time.Millisecond

// Watch reloads the catalog whenever a definition file under the directory
// changes, then calls onChange. It blocks until ctx is done. Without a
// directory it returns immediately.
func (c *Catalog) Watch(ctx context.Context, onChange func()) error {
	dir := c.Dir()
	if dir == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "new watcher")
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}
	log.Info("watching %s for workflow changes", dir)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isDefinitionFile(filepath.Base(ev.Name)) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug("workflow file event: %s", ev)
			if timer == nil {
				timer = time.NewTimer(settle)
			} else {
				timer.Reset(settle)
			}
			pending = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error("workflow watcher: %v", err)
		case <-pending:
			pending = nil
			if err := c.Reload(); err != nil {
				log.Error("reload workflows: %v", err)
				continue
			}
			if onChange != nil {
				onChange()
			}
		}
	}
}
