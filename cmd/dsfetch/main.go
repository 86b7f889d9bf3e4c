// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/grailbio/dsfetch/config"
	_ "github.com/grailbio/dsfetch/config/all"
	"github.com/grailbio/dsfetch/tool"
)

var configFile = os.ExpandEnv("$HOME/.dsfetch/config.yaml")

// version is set by the linker:
//
//	go build -ldflags "-X main.version=$(date +%Y%m%d)" ./cmd/dsfetch
var version string

const intro = `Backends

By default, dsfetch drives the datalad command, which must be
installed together with git-annex. Dsfetch may instead drive
git-annex directly (installing datasets with a git clone):

	dsfetch -backend gitannex fetch ...

The command check verifies that the configured backend's tools are
installed and recent enough:

	dsfetch check`

func main() {
	var cfg config.Config = make(config.Base)
	cfg = &config.KeyConfig{Config: cfg, Key: config.Backend, Val: "datalad"}
	cfg = &config.KeyConfig{Config: cfg, Key: config.Lock, Val: "off"}
	cfg = &config.KeyConfig{Config: cfg, Key: config.Origin, Val: "warn"}
	cmd := &tool.Cmd{
		Config:            cfg,
		DefaultConfigFile: configFile,
		Version:           version,
		Intro:             intro,
	}
	cmd.Flags().Parse(os.Args[1:])
	cmd.Main()
}
