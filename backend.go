// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dsfetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/grailbio/dsfetch/dataset"
	"github.com/grailbio/dsfetch/errors"
)

// Status is the outcome of a single action reported by the dataset
// tool.
type Status string

const (
	// StatusOK indicates the action completed.
	StatusOK Status = "ok"
	// StatusNotNeeded indicates there was nothing to do, for example
	// because the content was already present.
	StatusNotNeeded Status = "notneeded"
	// StatusImpossible indicates the action could not be attempted.
	StatusImpossible Status = "impossible"
	// StatusError indicates the action was attempted and failed.
	StatusError Status = "error"
)

// Failed tells whether the status denotes a failure.
func (s Status) Failed() bool {
	return s == StatusError || s == StatusImpossible
}

// Record is a status record reported by the dataset tool for one
// action on one path.
type Record struct {
	Action  string `json:"action"`
	Path    string `json:"path"`
	Type    string `json:"type,omitempty"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`

	// Raw is the payload as reported by the tool, kept for
	// diagnostics.
	Raw json.RawMessage `json:"-"`
}

// String renders the record's raw payload if present, or else a
// summary of the record.
func (r Record) String() string {
	if len(r.Raw) > 0 {
		return string(bytes.TrimSpace(r.Raw))
	}
	s := fmt.Sprintf("%s(%s): %s", r.Action, r.Status, r.Path)
	if r.Message != "" {
		s += " [" + r.Message + "]"
	}
	return s
}

// Records is the list of records reported for a single invocation of
// the dataset tool.
type Records []Record

// Err returns a Fetch error for the first failed record, or nil if no
// record failed. The error includes the complete payload.
func (rs Records) Err() error {
	for _, r := range rs {
		if !r.Status.Failed() {
			continue
		}
		return errors.E(r.Action, r.Path, errors.Fetch,
			errors.Errorf("%s: %s", r.Status, rs))
	}
	return nil
}

// impossible tells whether the records report a failure and every
// failed record has status impossible.
func (rs Records) impossible() bool {
	var n int
	for _, r := range rs {
		switch r.Status {
		case StatusImpossible:
			n++
		case StatusError:
			return false
		}
	}
	return n > 0
}

// String renders the records as a list of payloads.
func (rs Records) String() string {
	var b bytes.Buffer
	b.WriteString("[")
	for i, r := range rs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r.String())
	}
	b.WriteString("]")
	return b.String()
}

// A Backend drives the external dataset tool. Backends perform
// blocking calls and must honor context cancellation. They provide no
// mutual exclusion: concurrent calls against a single dataset
// directory must be serialized by the caller.
type Backend interface {
	// Install installs the dataset at source into the (existing,
	// empty) directory path.
	Install(ctx context.Context, source, path string) error

	// Get retrieves the content of path (relative to the dataset
	// root) and returns the tool's records. An error is returned
	// only if the tool could not be run or its output could not be
	// interpreted; failed retrievals are reported through the
	// returned records.
	Get(ctx context.Context, ds Dataset, path string) (Records, error)
}

// An InstallChecker is a Backend that recognizes its own installed
// datasets. Backends that do not implement it are taken to install
// datasets with the dataset marker directory.
type InstallChecker interface {
	Installed(path string) bool
}

// Installed tells whether a dataset is installed at path, as judged
// by backend b.
func Installed(b Backend, path string) bool {
	if c, ok := b.(InstallChecker); ok {
		return c.Installed(path)
	}
	return dataset.Installed(path)
}

// WrapError annotates an error returned by a backend with op and arg.
// Errors without a kind of their own are given the provided kind;
// errors that already carry one, for example Canceled or
// NotSupported, keep it.
func WrapError(op, arg string, kind errors.Kind, err error) error {
	if errors.Recover(err).Kind == errors.Other {
		return errors.E(op, arg, kind, err)
	}
	return errors.E(op, arg, err)
}

// EnsureMaterialized makes sure that the content of the file at path
// (relative to the dataset root) is present on disk. It is
// idempotent: a file whose content is already present is left alone
// and the backend is not called. Otherwise a single get, scoped to
// the dataset and the file, is issued. EnsureMaterialized returns a
// Fetch error if the get fails or leaves the file as an unresolved
// placeholder, and a NotExist error if the file is absent afterwards
// or the tool reports it impossible to get a file that was absent
// beforehand.
func EnsureMaterialized(ctx context.Context, b Backend, ds Dataset, path string) error {
	full := filepath.Join(ds.Path, path)
	state, err := dataset.Stat(full)
	if err != nil {
		return errors.E("ensurematerialized", full, err)
	}
	if state == dataset.Materialized {
		return nil
	}
	records, err := b.Get(ctx, ds, path)
	if err != nil {
		return WrapError("get", full, errors.Fetch, err)
	}
	if err := records.Err(); err != nil {
		if state == dataset.Missing && records.impossible() {
			return errors.E("ensurematerialized", full, errors.NotExist,
				errors.Errorf("file %s not found in %s: %s", path, ds.Path, records))
		}
		return err
	}
	state, err = dataset.Stat(full)
	if err != nil {
		return errors.E("ensurematerialized", full, err)
	}
	switch state {
	case dataset.Missing:
		return errors.E("ensurematerialized", full, errors.NotExist,
			errors.Errorf("file %s not found in %s", path, ds.Path))
	case dataset.Placeholder:
		return errors.E("ensurematerialized", full, errors.Fetch,
			errors.Errorf("content still missing after get: %s", records))
	}
	return nil
}
