// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package task defines the boundary between dsfetch and a host
// workflow engine. A task declares its input and output fields, runs
// against a set of input values, and binds its results to the
// declared outputs. Tasks are registered by name so that engines can
// look them up.
package task

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/grailbio/dsfetch"
	"github.com/grailbio/dsfetch/errors"
)

// Kind is the type of a field's value.
type Kind int

const (
	// String is an arbitrary string value.
	String Kind = iota
	// Directory is a directory path; it need not exist.
	Directory
	// File is the path of a file that must exist.
	File
)

var kinds = [...]string{
	String:    "str",
	Directory: "directory",
	File:      "file",
}

func (k Kind) String() string {
	return kinds[k]
}

// Field describes a single input or output of a task.
type Field struct {
	// Name is the field's name.
	Name string
	// Kind is the type of the field's value.
	Kind Kind
	// Mandatory tells whether an input must be provided.
	Mandatory bool
	// Help is a short description of the field.
	Help string
	// Requires lists the inputs an output is derived from.
	Requires []string
	// Template computes an output's value from the inputs: each
	// {name} is replaced by the value of input name.
	Template string
}

// Values maps field names to values.
type Values map[string]string

// Expand substitutes the values v into the template s.
func (v Values) Expand(s string) string {
	var pairs []string
	for name, value := range v {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// A Task is a unit of work invoked by a workflow engine.
type Task interface {
	// Inputs returns the task's input fields.
	Inputs() []Field
	// Outputs returns the task's output fields.
	Outputs() []Field
	// Run performs the task and returns its outputs.
	Run(ctx context.Context, inputs Values) (Values, error)
	// ListOutputs returns the outputs the task would produce for
	// the given inputs, without running it.
	ListOutputs(inputs Values) (Values, error)
}

// Validate checks that every mandatory input field is present.
func Validate(t Task, inputs Values) error {
	var missing []string
	for _, f := range t.Inputs() {
		if f.Mandatory && inputs[f.Name] == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return errors.E("validate", errors.Invalid,
			errors.Errorf("missing mandatory inputs: %s", strings.Join(missing, ", ")))
	}
	return nil
}

// Bind binds the values produced by a task, in order, to its declared
// output fields. File outputs must exist. Bind returns an Arity error
// if the number of values differs from the number of outputs.
func Bind(t Task, values ...string) (Values, error) {
	fields := t.Outputs()
	if len(values) != len(fields) {
		return nil, errors.E("bind", errors.Arity,
			errors.Errorf("task produced %d values for %d outputs", len(values), len(fields)))
	}
	out := make(Values)
	for i, f := range fields {
		if f.Kind == File {
			if _, err := os.Stat(values[i]); err != nil {
				return nil, errors.E("bind", f.Name, err)
			}
		}
		out[f.Name] = values[i]
	}
	return out, nil
}

// A Factory constructs a task that fetches through the provided
// fetcher.
type Factory func(dsfetch.Fetcher) Task

var (
	mu        sync.Mutex
	factories = map[string]Factory{}
)

// Register registers a task factory under the given name. Register
// panics if a task with the same name is already registered.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	if factories[name] != nil {
		panic(fmt.Sprintf("task %s already registered", name))
	}
	factories[name] = factory
}

// Lookup returns the factory registered under the given name.
func Lookup(name string) (Factory, bool) {
	mu.Lock()
	defer mu.Unlock()
	f, ok := factories[name]
	return f, ok
}

// Names returns the names of the registered tasks, sorted.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	var names []string
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// absJoin returns the absolute path of file within dir.
func absJoin(dir, file string) (string, error) {
	return filepath.Abs(filepath.Join(dir, file))
}
