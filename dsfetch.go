// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dsfetch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/grailbio/dsfetch/errors"
)

// Dataset identifies a local directory containing, or about to
// contain, a dataset.
type Dataset struct {
	// Path is the local directory of the dataset.
	Path string
	// Source is the (optional) location from which the dataset is
	// installed when it is not yet present at Path. It may be a URL
	// or a local path understood by the backend.
	Source string `json:",omitempty"`
}

// String returns an abbreviated description of the dataset.
func (d Dataset) String() string {
	if d.Source == "" {
		return d.Path
	}
	return fmt.Sprintf("%s (from %s)", d.Path, d.Source)
}

// Request describes a single file to be fetched from a dataset.
// Requests are immutable for the duration of a fetch.
type Request struct {
	Dataset Dataset
	// File is the path of the requested file, relative to the
	// dataset root.
	File string
	// Digest tells whether the fetcher should also compute the
	// digest of the materialized file.
	Digest bool `json:",omitempty"`
}

// Validate checks that the request names a dataset and a file, and
// that the file stays within the dataset's root.
func (r Request) Validate() error {
	if r.Dataset.Path == "" {
		return errors.E("validate", errors.Invalid, errors.New("dataset path is required"))
	}
	if r.File == "" {
		return errors.E("validate", r.Dataset.Path, errors.Invalid, errors.New("file is required"))
	}
	if filepath.IsAbs(r.File) {
		return errors.E("validate", r.File, errors.Invalid, errors.New("file must be relative to the dataset"))
	}
	clean := filepath.Clean(r.File)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return errors.E("validate", r.File, errors.Invalid, errors.New("file escapes the dataset"))
	}
	return nil
}

// Path returns the (unresolved) path of the requested file.
func (r Request) Path() string {
	return filepath.Join(r.Dataset.Path, r.File)
}

// Result is the outcome of a successful fetch. Ownership passes to
// the caller; fetchers retain no state.
type Result struct {
	// Path is the absolute path of the materialized file.
	Path string
	// File is the file's digest and size. It is set only when
	// requested.
	File *File `json:",omitempty"`
}

// A Fetcher guarantees that the requested file's content is present
// locally and returns its absolute path.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Result, error)
}

// OriginPolicy determines what a fetcher does when a request names a
// source that differs from the origin of an already-installed
// dataset.
type OriginPolicy int

const (
	// OriginWarn logs the mismatch and proceeds with the installed dataset.
	OriginWarn OriginPolicy = iota
	// OriginIgnore proceeds silently.
	OriginIgnore
	// OriginError fails the fetch.
	OriginError
)

var originPolicies = map[string]OriginPolicy{
	"warn":   OriginWarn,
	"ignore": OriginIgnore,
	"error":  OriginError,
}

// String returns the configuration name of the policy.
func (p OriginPolicy) String() string {
	for name, q := range originPolicies {
		if p == q {
			return name
		}
	}
	return fmt.Sprintf("originpolicy(%d)", int(p))
}

// ParseOriginPolicy returns the policy named s: one of "warn",
// "ignore" or "error".
func ParseOriginPolicy(s string) (OriginPolicy, error) {
	p, ok := originPolicies[s]
	if !ok {
		return OriginWarn, errors.E("parseoriginpolicy", s, errors.Invalid)
	}
	return p, nil
}

// FetcherFunc adapts an ordinary function to a Fetcher.
type FetcherFunc func(ctx context.Context, req Request) (Result, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
