// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dsfetch

import (
	"crypto"
	_ "crypto/sha256"
	"io"
	"os"

	"github.com/grailbio/base/digest"
	"github.com/grailbio/dsfetch/errors"
)

// Digester is the digester used to identify materialized file
// contents. It is independent of the annex key backend used by the
// dataset, so that results from different datasets are comparable.
var Digester = digest.Digester(crypto.SHA256)

// File represents a materialized file by its content digest.
type File struct {
	// The digest of the contents of the file.
	ID digest.Digest
	// The size of the file.
	Size int64
}

// DigestFile computes the File of the (materialized) file at path.
// Symbolic links are followed.
func DigestFile(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, errors.E("digest", path, err)
	}
	defer f.Close()
	w := Digester.NewWriter()
	n, err := io.Copy(w, f)
	if err != nil {
		return File{}, errors.E("digest", path, err)
	}
	return File{ID: w.Digest(), Size: n}, nil
}
