// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package lock provides lockers that serialize fetches against a
// single dataset directory. Installing a dataset or retrieving its
// content concurrently from two fetchers is unsafe; fetchers acquire
// the configured Locker for the dataset path for the duration of each
// fetch.
package lock

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grailbio/base/retry"
	"github.com/grailbio/base/sync/ctxsync"
	"github.com/grailbio/dsfetch/errors"
	fslock "github.com/ipfs/go-fs-lock"
)

// A Locker acquires exclusive access to a dataset directory. Lock
// blocks until the lock is acquired or the context is done; the
// returned function releases the lock.
type Locker interface {
	Lock(ctx context.Context, path string) (unlock func(), err error)
}

// Nop is a Locker that never blocks. It is the default: the caller is
// then responsible for serializing fetches against a dataset.
var Nop Locker = nop{}

type nop struct{}

func (nop) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

// Mutex is a Locker that serializes fetches within a single process.
// Paths are compared after cleaning and conversion to absolute form.
// The zero Mutex is ready for use.
type Mutex struct {
	mu   sync.Mutex
	cond *ctxsync.Cond
	held map[string]bool
}

// Lock implements Locker.
func (m *Mutex) Lock(ctx context.Context, path string) (func(), error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.E("lock", path, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cond == nil {
		m.cond = ctxsync.NewCond(&m.mu)
		m.held = make(map[string]bool)
	}
	for m.held[key] {
		if err := m.cond.Wait(ctx); err != nil {
			return nil, errors.E("lock", path, err)
		}
	}
	m.held[key] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.held, key)
			m.cond.Broadcast()
			m.mu.Unlock()
		})
	}, nil
}

// DefaultName is the default suffix of lock files created by File.
const DefaultName = ".dsfetch.lock"

var filePolicy = retry.Backoff(50*time.Millisecond, 2*time.Second, 1.5)

// File is a Locker that serializes fetches across processes using a
// lock file placed next to the dataset directory (the dataset itself
// may not exist yet). The lock file for dataset /data/ds is
// /data/.ds<Name>.
type File struct {
	// Name is the suffix of the lock file name. DefaultName is
	// used if it is empty.
	Name string
}

// Lock implements Locker. Lock files are not blocking; Lock polls
// until the lock can be taken or the context is done.
func (f File) Lock(ctx context.Context, path string) (func(), error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.E("lock", path, err)
	}
	name := f.Name
	if name == "" {
		name = DefaultName
	}
	dir, base := filepath.Split(path)
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, errors.E("lock", path, err)
	}
	name = "." + base + name
	var closer io.Closer
	for retries := 0; ; retries++ {
		closer, err = fslock.Lock(dir, name)
		if err == nil {
			break
		}
		if os.IsPermission(err) {
			return nil, errors.E("lock", path, err)
		}
		if err := retry.Wait(ctx, filePolicy, retries); err != nil {
			return nil, errors.E("lock", path, errors.Unavailable, err)
		}
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// The lock file stays in place; waiters must contend on
			// the same file.
			closer.Close()
		})
	}, nil
}
