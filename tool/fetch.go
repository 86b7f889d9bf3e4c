// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package tool

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/grailbio/base/data"
	"github.com/grailbio/base/retry"
	"github.com/grailbio/dsfetch"
	"github.com/grailbio/dsfetch/fetch"
)

func (c *Cmd) fetch(ctx context.Context, args ...string) {
	var (
		flags = flag.NewFlagSet("fetch", flag.ExitOnError)
		help  = `Fetch retrieves a file from a dataset and prints its absolute path.

If the dataset is not installed at the given path, it is first
installed from the URL given by -url. The file's annexed content is
then retrieved, if it is not already present.

With -digest, fetch also prints the file's SHA-256 digest and size.
With -json, the result is printed as a JSON object.

Fetches that fail with transient errors (for example, because a
remote is temporarily unavailable) are retried up to -retries times.`
		urlFlag     = flags.String("url", "", "source from which the dataset is installed if absent")
		digestFlag  = flags.Bool("digest", false, "compute the file's digest")
		jsonFlag    = flags.Bool("json", false, "print the result as JSON")
		retriesFlag = flags.Int("retries", 0, "number of times transient failures are retried")
		timeoutFlag = flags.Duration("timeout", 0, "abandon the fetch after this duration")
	)
	c.Parse(flags, args, help, "fetch [-url url] [-digest] [-json] [-retries n] [-timeout d] dataset file")
	if flags.NArg() != 2 {
		flags.Usage()
	}
	if *timeoutFlag > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeoutFlag)
		defer cancel()
	}
	f, err := c.Fetcher()
	if err != nil {
		c.Fatal(err)
	}
	req := dsfetch.Request{
		Dataset: dsfetch.Dataset{Path: flags.Arg(0), Source: *urlFlag},
		File:    flags.Arg(1),
		Digest:  *digestFlag,
	}
	retrier := &fetch.Retrier{Fetcher: f, Policy: retryPolicy(*retriesFlag), Log: c.Log}
	res, err := retrier.Fetch(ctx, req)
	if err != nil {
		c.Fatal(err)
	}
	c.must(writeResult(c.Stdout, res, *jsonFlag))
}

// retryPolicy returns the policy used to retry fetches up to n
// times, or nil if n is not positive.
func retryPolicy(n int) retry.Policy {
	if n <= 0 {
		return nil
	}
	return retry.MaxTries(retry.Backoff(time.Second, 30*time.Second, 2), n)
}

// writeResult writes a fetch result to w, either as a JSON object or
// as a tab-separated line: the path, followed by the digest and size
// when present.
func writeResult(w io.Writer, res dsfetch.Result, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(res)
	}
	var err error
	if res.File == nil {
		_, err = fmt.Fprintln(w, res.Path)
	} else {
		_, err = fmt.Fprintf(w, "%s\t%s\t%s\n", res.Path, res.File.ID, data.Size(res.File.Size))
	}
	return err
}
