// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package tool

import (
	"context"
	"flag"
	"fmt"
	"runtime"
)

func (c *Cmd) version(ctx context.Context, args ...string) {
	var (
		flags = flag.NewFlagSet("version", flag.ExitOnError)
		help  = "Version displays this binary's version (datestamp) and git hash from which it was built."
	)
	c.Parse(flags, args, help, "version")
	if flags.NArg() != 0 {
		flags.Usage()
	}
	c.Println(c.versionString())
}

func (c *Cmd) versionString() string {
	version := c.Version
	if version == "" {
		version = "broken"
	}
	if c.Variant != "" {
		return fmt.Sprintf("%s (%s, %s)", version, c.Variant, runtime.Version())
	}
	return fmt.Sprintf("%s (%s)", version, runtime.Version())
}
