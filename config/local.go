// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package config

import (
	golog "log"
	"os"

	"github.com/grailbio/dsfetch"
	"github.com/grailbio/dsfetch/log"
)

func init() {
	Register(Logger, "stderr", "level", "log to standard error at the given level (off, error, info, debug)",
		func(cfg Config, arg string) (Config, error) {
			level := log.InfoLevel
			if arg != "" {
				var err error
				if level, err = log.ParseLevel(arg); err != nil {
					return nil, err
				}
			}
			return &stderrLogger{cfg, level}, nil
		},
	)
	for _, name := range []string{"warn", "ignore", "error"} {
		policy, err := dsfetch.ParseOriginPolicy(name)
		if err != nil {
			panic(err)
		}
		Register(Origin, name, "", originUsage[policy],
			func(cfg Config, arg string) (Config, error) {
				return &originConfig{cfg, policy}, nil
			},
		)
	}
}

var originUsage = map[dsfetch.OriginPolicy]string{
	dsfetch.OriginWarn:   "log mismatched dataset sources and use the installed dataset",
	dsfetch.OriginIgnore: "ignore mismatched dataset sources",
	dsfetch.OriginError:  "fail fetches whose source does not match the installed dataset",
}

type stderrLogger struct {
	Config
	level log.Level
}

func (c *stderrLogger) Logger() (*log.Logger, error) {
	return log.New(golog.New(os.Stderr, "", golog.LstdFlags), c.level), nil
}

type originConfig struct {
	Config
	policy dsfetch.OriginPolicy
}

func (c *originConfig) OriginPolicy() (dsfetch.OriginPolicy, error) {
	return c.policy, nil
}
