// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package tool

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/grailbio/dsfetch/batch"
	"github.com/grailbio/dsfetch/fetch"
)

func (c *Cmd) batch(ctx context.Context, args ...string) {
	flags := flag.NewFlagSet("batch", flag.ExitOnError)
	help := `Batch fetches the files listed in a YAML manifest.

The manifest lists datasets, each with a local path, an optional
source URL, and the files to fetch:

	datasets:
	- path: /data/ds
	  url: https://example.com/ds.git
	  files:
	  - sub-01/anat.nii.gz
	  - participants.tsv

Relative dataset paths are interpreted relative to the manifest's
directory. Distinct datasets are fetched in parallel (up to -parallel
at a time); the files of each dataset are fetched one at a time.
Batch prints the state and path of each file, and exits with code 1
if any fetch failed.`
	parallelFlag := flags.Int("parallel", 4, "maximum number of datasets fetched concurrently")
	digestFlag := flags.Bool("digest", false, "compute digests of the fetched files")
	retriesFlag := flags.Int("retries", 0, "number of times transient failures are retried")
	c.Parse(flags, args, help, "batch [-parallel n] [-digest] [-retries n] manifest.yaml")
	if flags.NArg() != 1 {
		flags.Usage()
	}
	m, err := batch.ReadManifest(flags.Arg(0))
	if err != nil {
		c.Fatal(err)
	}
	f, err := c.Fetcher()
	if err != nil {
		c.Fatal(err)
	}
	b := batch.New(m, *digestFlag)
	b.Fetcher = &fetch.Retrier{Fetcher: f, Policy: retryPolicy(*retriesFlag), Log: c.Log}
	b.Parallel = *parallelFlag
	b.Status = c.Status.Group("fetch")
	b.Log = c.Log
	err = b.Run(ctx)
	writeRuns(c.Stdout, b.Runs)
	if err != nil {
		c.Fatal(err)
	}
}

func writeRuns(w io.Writer, runs []*batch.Run) {
	tw := tabwriter.NewWriter(w, 4, 4, 1, ' ', 0)
	defer tw.Flush()
	for _, run := range runs {
		switch run.State {
		case batch.StateDone:
			if run.Result.File != nil {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", run.State.Name(), run.Result.Path, run.Result.File.ID)
			} else {
				fmt.Fprintf(tw, "%s\t%s\n", run.State.Name(), run.Result.Path)
			}
		case batch.StateError:
			fmt.Fprintf(tw, "%s\t%s\t%v\n", run.State.Name(), run.Request.Path(), run.Err)
		default:
			fmt.Fprintf(tw, "%s\t%s\n", run.State.Name(), run.Request.Path())
		}
	}
}
