// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package config

import (
	"github.com/grailbio/base/sync/once"
	"github.com/grailbio/dsfetch"
	"github.com/grailbio/dsfetch/lock"
)

// OnceConfig memoizes the first call of the following methods to the
// underlying config: Backend and Locker.
type OnceConfig struct {
	Config

	backendOnce once.Task
	backend     dsfetch.Backend

	lockerOnce once.Task
	locker     lock.Locker
}

// Once constructs a new OnceConfig using the provided
// underlying configuration.
func Once(cfg Config) *OnceConfig {
	return &OnceConfig{Config: cfg}
}

// Backend returns the result of the first call to the underlying
// configuration's Backend.
func (o *OnceConfig) Backend() (dsfetch.Backend, error) {
	err := o.backendOnce.Do(func() (err error) {
		o.backend, err = o.Config.Backend()
		return
	})
	return o.backend, err
}

// Locker returns the result of the first call to the underlying
// configuration's Locker. In particular, a mutex locker is shared
// by all users of the configuration.
func (o *OnceConfig) Locker() (lock.Locker, error) {
	err := o.lockerOnce.Do(func() (err error) {
		o.locker, err = o.Config.Locker()
		return
	})
	return o.locker, err
}
