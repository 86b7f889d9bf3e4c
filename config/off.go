// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package config

import (
	"github.com/grailbio/dsfetch/lock"
)

func init() {
	Register(Lock, "off", "", "do not serialize fetches",
		func(cfg Config, arg string) (Config, error) {
			return &lockOff{cfg}, nil
		},
	)
	Register(Lock, "mutex", "", "serialize fetches against each dataset within this process",
		func(cfg Config, arg string) (Config, error) {
			return &lockMutex{cfg, new(lock.Mutex)}, nil
		},
	)
}

type lockOff struct {
	Config
}

func (c *lockOff) Locker() (lock.Locker, error) {
	return lock.Nop, nil
}

type lockMutex struct {
	Config
	mu *lock.Mutex
}

func (c *lockMutex) Locker() (lock.Locker, error) {
	return c.mu, nil
}
