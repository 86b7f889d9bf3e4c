// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package tool

import (
	"context"
	"flag"
	"fmt"
)

// A checker is a backend that can verify its tools.
type checker interface {
	Check(ctx context.Context) (string, error)
}

func (c *Cmd) check(ctx context.Context, args ...string) {
	flags := flag.NewFlagSet("check", flag.ExitOnError)
	help := `Check verifies that the tools required by the configured backend
are installed and recent enough, and prints their version. If they are
not, check exits with code 1.`
	c.Parse(flags, args, help, "check")
	if flags.NArg() != 0 {
		flags.Usage()
	}
	backend, err := c.Config.Backend()
	if err != nil {
		c.Fatal(err)
	}
	ch, ok := backend.(checker)
	if !ok {
		c.Fatalf("backend %T cannot be checked", backend)
	}
	version, err := ch.Check(ctx)
	if err != nil {
		c.Fatal(err)
	}
	c.Println(fmt.Sprint(c.Config.Value("backend")), version)
}
