// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package tool

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"sort"

	"github.com/grailbio/dsfetch/config"
)

func (c *Cmd) config(ctx context.Context, args ...string) {
	var (
		flags  = flag.NewFlagSet("config", flag.ExitOnError)
		header = `Config writes the current dsfetch configuration to standard 
output.

The configuration is a YAML file with the following toplevel keys,
each naming a provider and an optional argument (provider,arg):

`
		footer = `A dsfetch distribution may contain a builtin configuration that may be
modified and overriden:

	$ dsfetch config > myconfig
	<edit myconfig>
	$ dsfetch -config myconfig ...`
	)
	// Construct a help string from the available providers.
	b := new(bytes.Buffer)
	b.WriteString(header)
	help := config.Help()
	for _, key := range config.AllKeys {
		fmt.Fprintf(b, "%s:\n", key)
		usages := help[key]
		sort.Slice(usages, func(i, j int) bool { return usages[i].Kind < usages[j].Kind })
		for _, u := range usages {
			name := u.Kind
			if u.Arg != "" {
				name += "," + u.Arg
			}
			fmt.Fprintf(b, "\t%s\n\t\t%s\n", name, u.Usage)
		}
	}
	b.WriteString("\n")
	b.WriteString(footer)

	c.Parse(flags, args, b.String(), "config")

	if flags.NArg() != 0 {
		flags.Usage()
	}
	data, err := config.Marshal(c.Config)
	if err != nil {
		c.Fatal(err)
	}
	c.Stdout.Write(data)
}
