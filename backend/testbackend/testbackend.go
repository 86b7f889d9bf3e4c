// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package testbackend implements a dataset backend appropriate for
// testing. It simulates the on-disk layout of installed datasets
// (the marker directory and annex placeholder links) without running
// any external tools, and records every call made to it.
package testbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/grailbio/dsfetch"
	"github.com/grailbio/dsfetch/dataset"
	"github.com/grailbio/dsfetch/errors"
)

// Call records a single call to the backend.
type Call struct {
	// Op is either "install" or "get".
	Op string
	// Source is the installation source (install only).
	Source string
	// Path is the dataset path for installs, and the dataset-relative
	// file path for gets.
	Path string
	// Dataset is the dataset path (get only).
	Dataset string
}

// Backend is an in-memory dsfetch.Backend. Sources are registered
// with Add; installing a source creates the dataset marker and one
// placeholder link per file. Getting a placeholder writes the file's
// content to the link's target.
type Backend struct {
	// InstallErr, if set, is returned by every Install call.
	InstallErr error
	// GetErr, if set, is returned by every Get call.
	GetErr error
	// Status overrides the status reported by Get for the given
	// dataset-relative paths. Files with an overridden status are
	// not touched.
	Status map[string]dsfetch.Status

	mu      sync.Mutex
	sources map[string]map[string]string
	objects map[string]string
	calls   []Call
}

// New returns a new, empty Backend.
func New() *Backend {
	return &Backend{
		Status:  make(map[string]dsfetch.Status),
		sources: make(map[string]map[string]string),
		objects: make(map[string]string),
	}
}

// Add registers a source with the given files (mapping
// dataset-relative paths to their contents).
func (b *Backend) Add(source string, files map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources[source] = files
}

// Calls returns the calls made to the backend so far.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// Ops returns the operations of the calls made so far, in order.
func (b *Backend) Ops() []string {
	var ops []string
	for _, call := range b.Calls() {
		ops = append(ops, call.Op)
	}
	return ops
}

// Install implements dsfetch.Backend.
func (b *Backend) Install(ctx context.Context, source, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, Call{Op: "install", Source: source, Path: path})
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.InstallErr != nil {
		return b.InstallErr
	}
	files, ok := b.sources[source]
	if !ok {
		return errors.E("install", source, errors.Install, errors.New("no such dataset source"))
	}
	if err := os.MkdirAll(filepath.Join(path, dataset.MarkerDir), 0777); err != nil {
		return err
	}
	for name, content := range files {
		key := dsfetch.Digester.FromString(content).Hex()
		object := filepath.Join(path, ".git", "annex", "objects", key)
		link := filepath.Join(path, name)
		if err := os.MkdirAll(filepath.Dir(link), 0777); err != nil {
			return err
		}
		if err := os.Symlink(object, link); err != nil {
			return err
		}
		b.objects[object] = content
	}
	return nil
}

// Get implements dsfetch.Backend.
func (b *Backend) Get(ctx context.Context, ds dsfetch.Dataset, path string) (dsfetch.Records, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, Call{Op: "get", Dataset: ds.Path, Path: path})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.GetErr != nil {
		return nil, b.GetErr
	}
	full := filepath.Join(ds.Path, path)
	if status, ok := b.Status[path]; ok {
		return dsfetch.Records{record(full, status, "status override")}, nil
	}
	state, err := dataset.Stat(full)
	if err != nil {
		return nil, err
	}
	switch state {
	case dataset.Missing:
		return dsfetch.Records{record(full, dsfetch.StatusImpossible, "path does not exist")}, nil
	case dataset.Materialized:
		return dsfetch.Records{record(full, dsfetch.StatusNotNeeded, "")}, nil
	}
	target, err := os.Readlink(full)
	if err != nil {
		return nil, err
	}
	content, ok := b.objects[target]
	if !ok {
		return dsfetch.Records{record(full, dsfetch.StatusError, "not available")}, nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0777); err != nil {
		return nil, err
	}
	if err := ioutil.WriteFile(target, []byte(content), 0444); err != nil {
		return nil, err
	}
	return dsfetch.Records{record(full, dsfetch.StatusOK, "")}, nil
}

func record(path string, status dsfetch.Status, message string) dsfetch.Record {
	r := dsfetch.Record{
		Action:  "get",
		Path:    path,
		Type:    "file",
		Status:  status,
		Message: message,
	}
	raw, err := json.Marshal(r)
	if err != nil {
		panic(fmt.Sprintf("marshal record: %v", err))
	}
	r.Raw = raw
	return r
}
