// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package dsfetch implements the core data structures for fetching
// files out of version-controlled, content-addressed datasets
// (DataLad datasets backed by git-annex).
//
// A dataset file is fetched in two steps. First the dataset itself
// must be present locally: if its directory lacks the ".datalad"
// marker, the dataset is installed from its source. Then the
// requested file's content must be materialized: git-annex represents
// files whose content has not been retrieved as symbolic links into
// the annex object store, and those links dangle until the content
// is fetched ("got").
//
// The package defines the data model (Dataset, Request, Result), the
// Backend capability through which the external dataset tool is
// driven, and EnsureMaterialized, the idempotent operation that
// retrieves a single file's content. Concrete backends live in
// package backend/datalad and backend/gitannex; the fetcher that
// composes installation and materialization lives in package fetch.
package dsfetch
