// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package fetch

import (
	"context"
	"io/ioutil"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/grailbio/dsfetch"
	"github.com/grailbio/dsfetch/backend/datalad"
	"github.com/grailbio/dsfetch/errors"
	"github.com/grailbio/testutil"
)

// needDatalad skips the test unless datalad and a recent enough
// git-annex are installed.
func needDatalad(t *testing.T) *datalad.Backend {
	t.Helper()
	if _, err := exec.LookPath(datalad.DefaultBinary); err != nil {
		t.Skip("datalad not installed")
	}
	b := new(datalad.Backend)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := b.Check(ctx); err != nil {
		t.Skipf("datalad unusable: %v", err)
	}
	return b
}

func runTool(t *testing.T, dir string, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("%s %v: %v\n%s", name, args, err, out)
	}
}

func TestDataladEndToEnd(t *testing.T) {
	b := needDatalad(t)
	dir, cleanup := testutil.TempDir(t, "", "fetch-datalad-")
	defer cleanup()

	a := filepath.Join(dir, "a")
	runTool(t, dir, "datalad", "create", a)
	if err := ioutil.WriteFile(filepath.Join(a, "file.txt"), []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}
	runTool(t, a, "datalad", "save", "-m", "add file.txt")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	f := &Fetcher{Backend: b}
	ds := dsfetch.Dataset{Path: filepath.Join(dir, "b"), Source: a}
	res, err := f.Fetch(ctx, dsfetch.Request{Dataset: ds, File: "file.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := res.Path, filepath.Join(ds.Path, "file.txt"); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := readFile(t, res.Path), "test"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}

	// Fetching again is a no-op.
	if _, err := f.Fetch(ctx, dsfetch.Request{Dataset: ds, File: "file.txt"}); err != nil {
		t.Fatal(err)
	}

	_, err = f.Fetch(ctx, dsfetch.Request{Dataset: ds, File: "nonexistent.txt"})
	if err == nil || !(errors.Is(errors.NotExist, err) || errors.Is(errors.Fetch, err)) {
		t.Errorf("expected NotExist or Fetch error, got %v", err)
	}

	_, err = f.Fetch(ctx, dsfetch.Request{
		Dataset: dsfetch.Dataset{Path: filepath.Join(dir, "c"), Source: filepath.Join(dir, "nonexistent")},
		File:    "file.txt",
	})
	if !errors.Is(errors.Install, err) {
		t.Errorf("expected Install error, got %v", err)
	}
}
