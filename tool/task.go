// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package tool

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/grailbio/dsfetch/errors"
	"github.com/grailbio/dsfetch/task"
)

func (c *Cmd) task(ctx context.Context, args ...string) {
	var (
		flags = flag.NewFlagSet("task", flag.ExitOnError)
		help  = `Task runs a registered task with the provided inputs and prints
its outputs. Inputs are given as name=value pairs. For example,
the following runs the datalad task:

	dsfetch task datalad in_file=sub/file.txt dataset_path=/data/ds \
		dataset_url=https://example.com/ds.git

With -list, task prints the outputs the task would produce, without
running it. With -describe, task prints the task's fields.`
		listFlag     = flags.Bool("list", false, "list outputs without running the task")
		describeFlag = flags.Bool("describe", false, "describe the task's inputs and outputs")
	)
	help += "\n\nRegistered tasks: " + strings.Join(task.Names(), ", ")
	c.Parse(flags, args, help, "task [-list] [-describe] name [input=value...]")
	if flags.NArg() < 1 {
		flags.Usage()
	}
	factory, ok := task.Lookup(flags.Arg(0))
	if !ok {
		c.Fatalf("task %s not registered", flags.Arg(0))
	}
	f, err := c.Fetcher()
	if err != nil {
		c.Fatal(err)
	}
	t := factory(f)
	if *describeFlag {
		describeTask(c.Stdout, t)
		return
	}
	inputs, err := parseValues(flags.Args()[1:])
	if err != nil {
		c.Fatal(err)
	}
	var outputs task.Values
	if *listFlag {
		outputs, err = t.ListOutputs(inputs)
	} else {
		outputs, err = t.Run(ctx, inputs)
	}
	if err != nil {
		c.Fatal(err)
	}
	writeValues(c.Stdout, outputs)
}

// parseValues parses name=value pairs.
func parseValues(args []string) (task.Values, error) {
	values := make(task.Values)
	for _, arg := range args {
		i := strings.Index(arg, "=")
		if i <= 0 {
			return nil, errors.E("task", arg, errors.Invalid, errors.New("expected name=value"))
		}
		values[arg[:i]] = arg[i+1:]
	}
	return values, nil
}

func writeValues(w io.Writer, values task.Values) {
	var names []string
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s=%s\n", name, values[name])
	}
}

func describeTask(w io.Writer, t task.Task) {
	tw := tabwriter.NewWriter(w, 4, 4, 1, ' ', 0)
	defer tw.Flush()
	describe := func(kind string, fields []task.Field) {
		for _, f := range fields {
			var attrs []string
			if f.Mandatory {
				attrs = append(attrs, "mandatory")
			}
			if len(f.Requires) > 0 {
				attrs = append(attrs, "requires "+strings.Join(f.Requires, ","))
			}
			if f.Template != "" {
				attrs = append(attrs, "template "+f.Template)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", kind, f.Name, f.Kind, strings.Join(attrs, "; "), f.Help)
		}
	}
	describe("input", t.Inputs())
	describe("output", t.Outputs())
}
