// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package fslockconfig registers the fslock lock provider, which
// serializes fetches across processes using lock files.
package fslockconfig

import (
	"github.com/grailbio/dsfetch/config"
	"github.com/grailbio/dsfetch/errors"
	"github.com/grailbio/dsfetch/lock"
)

func init() {
	config.Register(config.Lock, "fslock", "name", "serialize fetches across processes with a lock file next to each dataset",
		func(cfg config.Config, arg string) (config.Config, error) {
			name := arg
			if name == "" {
				if v := cfg.Value("fslock"); v != nil {
					s, ok := v.(string)
					if !ok {
						return nil, errors.Errorf("fslock: expected string, got %T", v)
					}
					name = s
				}
			}
			return &fslock{cfg, lock.File{Name: name}}, nil
		},
	)
}

type fslock struct {
	config.Config
	locker lock.File
}

func (c *fslock) Locker() (lock.Locker, error) {
	return c.locker, nil
}
