// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package dataladconfig registers the datalad backend provider.
package dataladconfig

import (
	"github.com/grailbio/dsfetch"
	"github.com/grailbio/dsfetch/backend/datalad"
	"github.com/grailbio/dsfetch/config"
)

func init() {
	config.Register(config.Backend, "datalad", "binary", "drive datalad, optionally using the provided binary",
		func(cfg config.Config, arg string) (config.Config, error) {
			return &backend{cfg, arg}, nil
		},
	)
}

type backend struct {
	config.Config
	binary string
}

func (b *backend) Backend() (dsfetch.Backend, error) {
	log, err := b.Logger()
	if err != nil {
		return nil, err
	}
	return &datalad.Backend{Binary: b.binary, Log: log}, nil
}
