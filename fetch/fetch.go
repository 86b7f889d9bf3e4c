// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package fetch implements the dataset file fetcher: it installs a
// dataset if it is not yet present locally, makes sure the requested
// file's content is materialized, and returns the file's absolute
// path.
//
// Fetches are synchronous and are never retried; every failure is
// returned to the caller immediately, classified as an Install, Fetch
// or NotExist error (see package errors). Failures that carry a kind
// of their own, such as Canceled or NotSupported, keep it.
package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grailbio/base/data"
	"github.com/grailbio/dsfetch"
	"github.com/grailbio/dsfetch/dataset"
	"github.com/grailbio/dsfetch/errors"
	"github.com/grailbio/dsfetch/internal/fs"
	"github.com/grailbio/dsfetch/lock"
	"github.com/grailbio/dsfetch/log"
)

// Fetcher implements dsfetch.Fetcher on top of a dsfetch.Backend.
// A Fetcher holds no per-fetch state and may be shared; however,
// unless a Locker is configured, fetches against the same dataset
// must not run concurrently.
type Fetcher struct {
	// Backend drives the dataset tool. It must be set.
	Backend dsfetch.Backend
	// Locker serializes fetches against a dataset directory. If nil,
	// lock.Nop is used.
	Locker lock.Locker
	// Origin determines how a source that does not match the origin
	// of an already-installed dataset is treated.
	Origin dsfetch.OriginPolicy
	// Log receives progress messages.
	Log *log.Logger
}

var _ dsfetch.Fetcher = (*Fetcher)(nil)

// Fetch installs the request's dataset if needed, materializes the
// requested file, and returns its absolute path.
func (f *Fetcher) Fetch(ctx context.Context, req dsfetch.Request) (dsfetch.Result, error) {
	if err := req.Validate(); err != nil {
		return dsfetch.Result{}, err
	}
	ds := req.Dataset
	logger := f.Log.Tee(nil, ds.Path+": ")
	locker := f.Locker
	if locker == nil {
		locker = lock.Nop
	}
	unlock, err := locker.Lock(ctx, ds.Path)
	if err != nil {
		return dsfetch.Result{}, errors.E("fetch", req.Path(), err)
	}
	defer unlock()

	if err := f.install(ctx, logger, ds); err != nil {
		return dsfetch.Result{}, err
	}
	logger.Debugf("ensuring %s is materialized", req.File)
	if err := dsfetch.EnsureMaterialized(ctx, f.Backend, ds, req.File); err != nil {
		return dsfetch.Result{}, errors.E("fetch", req.Path(), err)
	}
	path, err := filepath.Abs(req.Path())
	if err != nil {
		return dsfetch.Result{}, errors.E("fetch", req.Path(), err)
	}
	result := dsfetch.Result{Path: path}
	if req.Digest {
		file, err := dsfetch.DigestFile(path)
		if err != nil {
			return dsfetch.Result{}, errors.E("fetch", req.Path(), err)
		}
		result.File = &file
	}
	return result, nil
}

// install installs the dataset if it is not present. If it is, the
// requested source is checked against the dataset's origin.
func (f *Fetcher) install(ctx context.Context, logger *log.Logger, ds dsfetch.Dataset) error {
	if dsfetch.Installed(f.Backend, ds.Path) {
		return f.checkOrigin(logger, ds)
	}
	if ds.Source == "" {
		return errors.E("install", ds.Path, errors.Install,
			errors.New("dataset is not installed and no source was given"))
	}
	if err := os.MkdirAll(ds.Path, 0777); err != nil {
		return errors.E("install", ds.Path, errors.Install, err)
	}
	logger.Printf("installing dataset from %s", ds.Source)
	if usage, err := fs.Stat(ds.Path); err == nil {
		logger.Debugf("%s available of %s", data.Size(usage.Avail), data.Size(usage.Total))
	}
	if err := f.Backend.Install(ctx, ds.Source, ds.Path); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.E("install", ds.Path, ctxErr)
		}
		return dsfetch.WrapError("install", ds.Path, errors.Install, err)
	}
	return nil
}

func (f *Fetcher) checkOrigin(logger *log.Logger, ds dsfetch.Dataset) error {
	if ds.Source == "" || f.Origin == dsfetch.OriginIgnore {
		return nil
	}
	origin, err := dataset.Origin(ds.Path)
	switch {
	case err == nil:
		if dataset.SameSource(origin, ds.Source) {
			return nil
		}
	case errors.Is(errors.NotExist, err):
		// Datasets created in place have no origin.
		logger.Debugf("dataset has no origin; not checking source %s", ds.Source)
		return nil
	default:
		logger.Debugf("could not determine origin: %v", err)
		return nil
	}
	msg := fmt.Sprintf("dataset was installed from %q, not %q", origin, ds.Source)
	if f.Origin == dsfetch.OriginError {
		return errors.E("install", ds.Path, errors.Invalid, errors.New(msg))
	}
	logger.Errorf("warning: %s; using the installed dataset", msg)
	return nil
}
