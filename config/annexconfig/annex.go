// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package annexconfig registers the git-annex backend provider,
// which installs datasets with a git clone and materializes files
// with git-annex directly, without datalad.
package annexconfig

import (
	"github.com/grailbio/dsfetch"
	"github.com/grailbio/dsfetch/backend/gitannex"
	"github.com/grailbio/dsfetch/config"
)

func init() {
	config.Register(config.Backend, "gitannex", "git", "drive git-annex, optionally using the provided git binary",
		func(cfg config.Config, arg string) (config.Config, error) {
			return &backend{cfg, arg}, nil
		},
	)
}

type backend struct {
	config.Config
	git string
}

func (b *backend) Backend() (dsfetch.Backend, error) {
	log, err := b.Logger()
	if err != nil {
		return nil, err
	}
	return &gitannex.Backend{Git: b.git, Log: log}, nil
}
