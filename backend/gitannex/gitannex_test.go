// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package gitannex

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/grailbio/dsfetch"
	"github.com/grailbio/dsfetch/dataset"
	"github.com/grailbio/dsfetch/errors"
	"github.com/grailbio/dsfetch/fetch"
	"github.com/grailbio/testutil"
)

func fakeGit(t *testing.T, dir, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(dir, "git")
	script := "#!/bin/sh\necho \"$@\" >> " + filepath.Join(dir, "args") + "\n" + body + "\n"
	if err := ioutil.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOlderVersion(t *testing.T) {
	for _, tc := range []struct {
		v, w  string
		older bool
	}{
		{"8.20200226", "8.20200309", true},
		{"8.20200309", "8.20200309", false},
		{"8.20210223", "8.20200309", false},
		{"7.20191230", "8.20200309", true},
		{"10.20230126-g1ab2c3d", "8.20200309", false},
		{"10.20230126", "10.20230127", true},
	} {
		older, err := OlderVersion(tc.v, tc.w)
		if err != nil {
			t.Errorf("%s: %v", tc.v, err)
			continue
		}
		if got, want := older, tc.older; got != want {
			t.Errorf("OlderVersion(%s, %s): got %v, want %v", tc.v, tc.w, got, want)
		}
	}
	for _, bad := range []string{"", "eight", "8", "8.x"} {
		if _, err := OlderVersion(bad, MinVersion); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestParseRecord(t *testing.T) {
	r, ok := parseRecord("/ds", []byte(`{"command":"get","note":"from origin...","success":true,"key":"SHA256E-s4--abc.txt","file":"file.txt"}`))
	if !ok {
		t.Fatal("record not parsed")
	}
	if got, want := r.Path, "/ds/file.txt"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := r.Status, dsfetch.StatusOK; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := r.Message, "from origin..."; got != want {
		t.Errorf("got %v, want %v", got, want)
	}

	r, ok = parseRecord("/ds", []byte(`{"command":"get","success":false,"file":"file.txt","error-messages":["not available","no remotes"]}`))
	if !ok {
		t.Fatal("record not parsed")
	}
	if got, want := r.Status, dsfetch.StatusError; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := r.Message, "not available; no remotes"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}

	for _, line := range []string{``, `get file.txt (from origin...) ok`, `{"success": true}`} {
		if _, ok := parseRecord("/ds", []byte(line)); ok {
			t.Errorf("%q: unexpectedly parsed", line)
		}
	}
}

func TestGet(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "gitannex-")
	defer cleanup()
	git := fakeGit(t, dir, `
echo '{"command":"get","success":false,"file":"file.txt","error-messages":["not available"]}'
exit 1
`)
	b := &Backend{Git: git}
	records, err := b.Get(context.Background(), dsfetch.Dataset{Path: dir}, "file.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(errors.Fetch, records.Err()) {
		t.Errorf("expected Fetch error, got %v", records.Err())
	}
	args, err := ioutil.ReadFile(filepath.Join(dir, "args"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := strings.TrimSpace(string(args)), "annex get --json --json-error-messages -- file.txt"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestGetNothingToDo(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "gitannex-")
	defer cleanup()
	git := fakeGit(t, dir, `exit 0`)
	b := &Backend{Git: git}
	records, err := b.Get(context.Background(), dsfetch.Dataset{Path: dir}, "file.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(records), 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestGetFailureWithoutRecords(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "gitannex-")
	defer cleanup()
	git := fakeGit(t, dir, `
echo "git-annex: file.txt not found" >&2
exit 1
`)
	b := &Backend{Git: git}
	records, err := b.Get(context.Background(), dsfetch.Dataset{Path: dir}, "file.txt")
	if err != nil {
		t.Fatal(err)
	}
	err = records.Err()
	if !errors.Is(errors.Fetch, err) {
		t.Fatalf("expected Fetch error, got %v", err)
	}
	if !strings.Contains(err.Error(), "file.txt not found") {
		t.Errorf("error %q does not include git-annex's message", err)
	}
}

// annexInit is a fake git body that creates the annex directory
// when run as "git annex init".
const annexInit = `if [ "$1 $2" = "annex init" ]; then mkdir -p .git/annex; fi`

// newSource creates a git repository in dir with one committed file,
// file.txt. If marker is set, the repository also carries the dataset
// marker directory.
func newSource(t *testing.T, dir string, marker bool) {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	files := map[string]string{"file.txt": "test"}
	if marker {
		files[filepath.Join(dataset.MarkerDir, "config")] = "[datalad \"dataset\"]\n\tid = test\n"
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
			t.Fatal(err)
		}
		if err := ioutil.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := wt.Add(name); err != nil {
			t.Fatal(err)
		}
	}
	_, err = wt.Commit("create dataset", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestInstall(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "gitannex-")
	defer cleanup()
	git := fakeGit(t, dir, annexInit)
	source := filepath.Join(dir, "source")
	newSource(t, source, true)

	b := &Backend{Git: git}
	ctx := context.Background()
	path := filepath.Join(dir, "clone")
	if b.Installed(path) {
		t.Errorf("%s: installed before install", path)
	}
	if err := b.Install(ctx, source, path); err != nil {
		t.Fatal(err)
	}
	if !dataset.Installed(path) {
		t.Errorf("%s: dataset not installed", path)
	}
	if !b.Installed(path) {
		t.Errorf("%s: not installed", path)
	}
	origin, err := dataset.Origin(path)
	if err != nil {
		t.Fatal(err)
	}
	if !dataset.SameSource(origin, source) {
		t.Errorf("origin %s, want %s", origin, source)
	}

	err = b.Install(ctx, filepath.Join(dir, "nonexistent"), filepath.Join(dir, "clone2"))
	if !errors.Is(errors.Install, err) {
		t.Errorf("expected Install error, got %v", err)
	}
	if err := b.Install(ctx, "", filepath.Join(dir, "clone3")); !errors.Is(errors.Install, err) {
		t.Errorf("expected Install error, got %v", err)
	}
}

func TestInstallPlainRepository(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "gitannex-")
	defer cleanup()
	git := fakeGit(t, dir, annexInit)
	source := filepath.Join(dir, "source")
	newSource(t, source, false)

	b := &Backend{Git: git}
	path := filepath.Join(dir, "clone")
	if err := b.Install(context.Background(), source, path); err != nil {
		t.Fatal(err)
	}
	if dataset.Installed(path) {
		t.Errorf("%s: unexpected dataset marker", path)
	}
	if !b.Installed(path) {
		t.Errorf("%s: not installed", path)
	}
}

func TestFetchPlainRepository(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "gitannex-")
	defer cleanup()
	git := fakeGit(t, dir, annexInit)
	source := filepath.Join(dir, "source")
	newSource(t, source, false)

	f := &fetch.Fetcher{Backend: &Backend{Git: git}}
	req := dsfetch.Request{
		Dataset: dsfetch.Dataset{Path: filepath.Join(dir, "ds"), Source: source},
		File:    "file.txt",
	}
	for i := 0; i < 2; i++ {
		res, err := f.Fetch(context.Background(), req)
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if got, want := res.Path, filepath.Join(dir, "ds", "file.txt"); got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}
	args, err := ioutil.ReadFile(filepath.Join(dir, "args"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := strings.TrimSpace(string(args)), "annex init"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInstallAnnexInitFailure(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "gitannex-")
	defer cleanup()
	git := fakeGit(t, dir, `
echo "git: 'annex' is not a git command" >&2
exit 1
`)
	source := filepath.Join(dir, "source")
	newSource(t, source, true)
	b := &Backend{Git: git}
	path := filepath.Join(dir, "clone")
	err := b.Install(context.Background(), source, path)
	if !errors.Is(errors.Install, err) {
		t.Fatalf("expected Install error, got %v", err)
	}
	if !strings.Contains(err.Error(), "not a git command") {
		t.Errorf("error %q does not include git's message", err)
	}
	if b.Installed(path) {
		t.Errorf("%s: installed after failed annex init", path)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("%s: clone not removed: %v", path, err)
	}
}

func TestCheck(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "gitannex-")
	defer cleanup()
	b := &Backend{Git: fakeGit(t, dir, `echo 8.20210223`)}
	version, err := b.Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got, want := version, "8.20210223"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	b = &Backend{Git: fakeGit(t, dir, `echo 8.20200226`)}
	if _, err := b.Check(context.Background()); !errors.Is(errors.NotSupported, err) {
		t.Errorf("expected NotSupported error, got %v", err)
	}
}
