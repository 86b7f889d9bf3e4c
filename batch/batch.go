// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package batch implements support for fetching batches of dataset
// files. A batch is described by a YAML manifest listing datasets
// and, for each, the files to retrieve:
//
//	datasets:
//	- path: /data/studyforrest
//	  url: https://github.com/psychoinformatics-de/studyforrest-data-phase2.git
//	  files:
//	  - sub-01/func/sub-01_task-movie_run-1_bold.nii.gz
//	  - participants.tsv
//	- path: /data/local
//	  files: [README]
//
// Distinct datasets are fetched in parallel; files within a single
// dataset are fetched serially, since dataset tools do not support
// concurrent operations on a single dataset.
package batch

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"sync"

	"github.com/grailbio/base/status"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/dsfetch"
	"github.com/grailbio/dsfetch/errors"
	"github.com/grailbio/dsfetch/log"
	yaml "gopkg.in/yaml.v2"
)

// State tells the state of an individual batch run.
type State int

const (
	// StateInit indicates that the run has not yet started.
	StateInit State = iota
	// StateRunning indicates that the file is being fetched.
	StateRunning
	// StateDone indicates that the file was fetched.
	StateDone
	// StateError indicates that the fetch failed.
	StateError
	stateMax
)

// Name returns an abbreviated name for a state.
func (s State) Name() string {
	switch s {
	case StateInit:
		return "init"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		panic("bad state")
	}
}

// Entry is a single dataset in a manifest.
type Entry struct {
	// Path is the local path of the dataset.
	Path string `yaml:"path"`
	// URL is the source from which the dataset is installed.
	URL string `yaml:"url,omitempty"`
	// Files are the files to fetch, relative to the dataset.
	Files []string `yaml:"files"`
}

// Manifest describes a batch.
type Manifest struct {
	Datasets []Entry `yaml:"datasets"`
}

// ParseManifest parses a YAML-formatted manifest. Relative dataset
// paths are interpreted relative to dir.
func ParseManifest(b []byte, dir string) (Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalStrict(b, &m); err != nil {
		return Manifest{}, errors.E("parsemanifest", errors.Invalid, err)
	}
	if len(m.Datasets) == 0 {
		return Manifest{}, errors.E("parsemanifest", errors.Invalid, errors.New("empty batch"))
	}
	for i := range m.Datasets {
		e := &m.Datasets[i]
		if e.Path == "" {
			return Manifest{}, errors.E("parsemanifest", errors.Invalid,
				errors.Errorf("dataset %d has no path", i))
		}
		if !filepath.IsAbs(e.Path) {
			e.Path = filepath.Join(dir, e.Path)
		}
		if len(e.Files) == 0 {
			return Manifest{}, errors.E("parsemanifest", e.Path, errors.Invalid, errors.New("no files"))
		}
	}
	return m, nil
}

// ReadManifest reads and parses the manifest in the provided file.
func ReadManifest(path string) (Manifest, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return Manifest{}, errors.E("readmanifest", path, err)
	}
	return ParseManifest(b, filepath.Dir(path))
}

// A Run comprises the state of a single file fetch.
type Run struct {
	// Request is the fetch request.
	Request dsfetch.Request
	// State is the run's current state.
	State State
	// Result is the fetch result, valid when State is StateDone.
	Result dsfetch.Result
	// Err is the fetch error, valid when State is StateError.
	Err error
}

// Batch fetches the files in a manifest.
type Batch struct {
	// Fetcher performs the individual fetches.
	Fetcher dsfetch.Fetcher
	// Parallel is the maximum number of datasets processed
	// concurrently. Zero means no limit.
	Parallel int
	// Status receives progress updates. It may be nil.
	Status *status.Group
	// Log receives per-file outcomes.
	Log *log.Logger

	// Runs contains the runs of the batch, in manifest order.
	Runs []*Run

	groups [][]*Run
	mu     sync.Mutex
}

// New creates a batch for the provided manifest. Entries naming the
// same dataset path are processed together.
func New(m Manifest, digest bool) *Batch {
	b := new(Batch)
	index := make(map[string]int)
	for _, e := range m.Datasets {
		key := filepath.Clean(e.Path)
		i, ok := index[key]
		if !ok {
			i = len(b.groups)
			index[key] = i
			b.groups = append(b.groups, nil)
		}
		for _, file := range e.Files {
			run := &Run{Request: dsfetch.Request{
				Dataset: dsfetch.Dataset{Path: e.Path, Source: e.URL},
				File:    file,
				Digest:  digest,
			}}
			b.Runs = append(b.Runs, run)
			b.groups[i] = append(b.groups[i], run)
		}
	}
	return b
}

// Run fetches every file in the batch. Failed fetches do not stop
// the batch; Run returns an error if any fetch failed, or if the
// context was done.
func (b *Batch) Run(ctx context.Context) error {
	if len(b.groups) == 0 {
		return nil
	}
	parallel := b.Parallel
	if parallel <= 0 {
		parallel = len(b.groups)
	}
	err := traverse.Limit(parallel).Each(len(b.groups), func(i int) error {
		return b.runGroup(ctx, b.groups[i])
	})
	if err != nil {
		return err
	}
	var failed int
	for _, run := range b.Runs {
		if run.State == StateError {
			failed++
		}
	}
	if failed > 0 {
		return errors.E("batch", errors.Errorf("%d of %d fetches failed", failed, len(b.Runs)))
	}
	return nil
}

func (b *Batch) runGroup(ctx context.Context, runs []*Run) error {
	var task *status.Task
	if b.Status != nil {
		task = b.Status.Start(leftabbrev(runs[0].Request.Dataset.Path, maxTitle))
		defer task.Done()
	}
	for i, run := range runs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if task != nil {
			task.Printf("%d/%d: %s", i+1, len(runs), run.Request.File)
		}
		b.setState(run, StateRunning)
		res, err := b.Fetcher.Fetch(ctx, run.Request)
		b.mu.Lock()
		if err != nil {
			run.State, run.Err = StateError, err
			b.Log.Errorf("%s: error: %v", run.Request.Path(), err)
		} else {
			run.State, run.Result = StateDone, res
			b.Log.Debugf("%s: done: %s", run.Request.Path(), res.Path)
		}
		b.mu.Unlock()
	}
	return nil
}

func (b *Batch) setState(run *Run, state State) {
	b.mu.Lock()
	run.State = state
	b.mu.Unlock()
}

// Counts returns the number of runs in each state.
func (b *Batch) Counts() map[State]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	counts := make(map[State]int)
	for _, run := range b.Runs {
		counts[run.State]++
	}
	return counts
}
