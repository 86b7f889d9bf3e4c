// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package fetch

import (
	"context"

	"github.com/grailbio/base/retry"
	"github.com/grailbio/dsfetch"
	"github.com/grailbio/dsfetch/errors"
	"github.com/grailbio/dsfetch/log"
)

// Retrier is a dsfetch.Fetcher that retries fetches of an
// underlying fetcher that fail with transient errors (see
// errors.Transient), according to a retry policy. Other errors are
// returned immediately.
type Retrier struct {
	Fetcher dsfetch.Fetcher
	// Policy is the retry policy. If nil, fetches are not retried.
	Policy retry.Policy
	Log    *log.Logger
}

// Fetch implements dsfetch.Fetcher.
func (r *Retrier) Fetch(ctx context.Context, req dsfetch.Request) (dsfetch.Result, error) {
	for retries := 0; ; retries++ {
		res, err := r.Fetcher.Fetch(ctx, req)
		if err == nil || r.Policy == nil || !errors.Transient(err) || ctx.Err() != nil {
			return res, err
		}
		r.Log.Printf("fetch %s: %v (retry %d)", req.Path(), err, retries+1)
		if werr := retry.Wait(ctx, r.Policy, retries); werr != nil {
			if ctx.Err() != nil {
				return res, err
			}
			return res, errors.E("fetch", req.Path(), errors.TooManyTries, err)
		}
	}
}
