// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package datalad

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/grailbio/dsfetch"
	"github.com/grailbio/dsfetch/errors"
	"github.com/grailbio/testutil"
)

// fakeTool writes an executable shell script named name to dir. The
// script records its arguments in dir/args and then runs body.
func fakeTool(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\necho \"$@\" >> " + filepath.Join(dir, "args") + "\n" + body + "\n"
	if err := ioutil.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func args(t *testing.T, dir string) []string {
	t.Helper()
	b, err := ioutil.ReadFile(filepath.Join(dir, "args"))
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

func TestGet(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "datalad-")
	defer cleanup()
	bin := fakeTool(t, dir, "datalad", `
echo "[INFO] starting"
echo '{"action": "get", "path": "/ds/file.txt", "type": "file", "status": "ok", "message": ["from %s...", "origin"]}'
`)
	b := &Backend{Binary: bin}
	ds := dsfetch.Dataset{Path: filepath.Join(dir, "ds")}
	if err := os.MkdirAll(ds.Path, 0777); err != nil {
		t.Fatal(err)
	}
	records, err := b.Get(context.Background(), ds, "file.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(records), 1; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	r := records[0]
	if got, want := r.Status, dsfetch.StatusOK; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := r.Message, "from origin..."; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := r.Path, "/ds/file.txt"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if err := records.Err(); err != nil {
		t.Error(err)
	}
	if got, want := args(t, dir), []string{"-f json get -d " + ds.Path + " " + filepath.Join(ds.Path, "file.txt")}; strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestGetFailure(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "datalad-")
	defer cleanup()
	bin := fakeTool(t, dir, "datalad", `
echo '{"action": "get", "path": "/ds/file.txt", "type": "file", "status": "error", "message": "not available"}'
exit 1
`)
	b := &Backend{Binary: bin}
	records, err := b.Get(context.Background(), dsfetch.Dataset{Path: dir}, "file.txt")
	if err != nil {
		t.Fatal(err)
	}
	err = records.Err()
	if !errors.Is(errors.Fetch, err) {
		t.Fatalf("expected Fetch error, got %v", err)
	}
	if !strings.Contains(err.Error(), `"message": "not available"`) {
		t.Errorf("error %q does not include the raw payload", err)
	}
}

func TestGetFailureWithoutRecords(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "datalad-")
	defer cleanup()
	bin := fakeTool(t, dir, "datalad", `
echo "datalad: no dataset found" >&2
exit 1
`)
	b := &Backend{Binary: bin}
	records, err := b.Get(context.Background(), dsfetch.Dataset{Path: dir}, "file.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(records), 1; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got, want := records[0].Message, "datalad: no dataset found"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if !errors.Is(errors.Fetch, records.Err()) {
		t.Errorf("expected Fetch error, got %v", records.Err())
	}
}

func TestInstall(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "datalad-")
	defer cleanup()
	bin := fakeTool(t, dir, "datalad", `
case "$4" in
--source)
	if [ "$5" = "bad" ]; then
		echo '{"action": "install", "path": "'$6'", "status": "error", "message": "clone failed"}'
		exit 1
	fi
	echo '{"action": "install", "path": "'$6'", "type": "dataset", "status": "ok"}'
	;;
esac
`)
	b := &Backend{Binary: bin}
	ctx := context.Background()
	path := filepath.Join(dir, "ds")
	if err := b.Install(ctx, "https://example.com/ds", path); err != nil {
		t.Fatal(err)
	}
	if got, want := args(t, dir)[0], "-f json install --source https://example.com/ds "+path; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if err := b.Install(ctx, "bad", path); !errors.Is(errors.Install, err) {
		t.Errorf("expected Install error, got %v", err)
	}
	if err := b.Install(ctx, "", path); !errors.Is(errors.Install, err) {
		t.Errorf("expected Install error, got %v", err)
	}
}

func TestMissingBinary(t *testing.T) {
	b := &Backend{Binary: "datalad-does-not-exist"}
	_, err := b.Get(context.Background(), dsfetch.Dataset{Path: "/tmp"}, "file.txt")
	if !errors.Is(errors.NotSupported, err) {
		t.Errorf("expected NotSupported error, got %v", err)
	}
	err = b.Install(context.Background(), "https://example.com/ds", "/tmp/ds")
	if got, want := errors.Recover(err).Kind, errors.NotSupported; got != want {
		t.Errorf("got %v, want %v (%v)", got, want, err)
	}
	if errors.Is(errors.Install, err) {
		t.Errorf("unexpected Install error %v", err)
	}
}

func TestCheck(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "datalad-")
	defer cleanup()
	git := fakeTool(t, dir, "git", `echo 8.20210223`)
	for _, tc := range []struct {
		output string
		ok     bool
	}{
		{"datalad 0.19.3", true},
		{"datalad 0.12.0rc6", true},
		{"datalad 0.11.8", false},
		{"unknown", false},
	} {
		bin := fakeTool(t, dir, "datalad", "echo "+tc.output)
		b := &Backend{Binary: bin, Git: git}
		_, err := b.Check(context.Background())
		if got, want := err == nil, tc.ok; got != want {
			t.Errorf("%s: got %v, want %v (%v)", tc.output, got, want, err)
		}
	}
	old := fakeTool(t, dir, "git", `echo 7.20190912`)
	bin := fakeTool(t, dir, "datalad", "echo datalad 0.19.3")
	b := &Backend{Binary: bin, Git: old}
	if _, err := b.Check(context.Background()); !errors.Is(errors.NotSupported, err) {
		t.Errorf("expected NotSupported error, got %v", err)
	}
}

func TestMessage(t *testing.T) {
	for _, tc := range []struct {
		raw, want string
	}{
		{``, ``},
		{`"plain"`, `plain`},
		{`["%s of %d files", "2", 3]`, `2 of 3 files`},
		{`[1, 2]`, `[1, 2]`},
		{`{"x": 1}`, `{"x": 1}`},
	} {
		if got := message([]byte(tc.raw)); got != tc.want {
			t.Errorf("message(%s): got %q, want %q", tc.raw, got, tc.want)
		}
	}
}
