// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package gitannex implements a dsfetch.Backend that uses git-annex
// directly, without datalad. Datasets are cloned in-process with
// go-git and initialized with "git annex init"; content is retrieved
// with "git annex get".
package gitannex

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/grailbio/dsfetch"
	"github.com/grailbio/dsfetch/dataset"
	"github.com/grailbio/dsfetch/errors"
	"github.com/grailbio/dsfetch/internal/command"
	"github.com/grailbio/dsfetch/log"
)

// DefaultGit is the name of the git executable.
const DefaultGit = "git"

// MinVersion is the oldest supported git-annex release.
const MinVersion = "8.20200309"

// Backend runs git-annex.
type Backend struct {
	// Git is the git executable; git-annex is invoked as a git
	// subcommand. DefaultGit is used if it is empty.
	Git string
	// Log receives the commands run by the backend at debug level.
	Log *log.Logger
}

func (b *Backend) git() string {
	if b.Git == "" {
		return DefaultGit
	}
	return b.Git
}

// Install clones source into path and initializes the clone's annex.
func (b *Backend) Install(ctx context.Context, source, path string) error {
	if source == "" {
		return errors.E("install", path, errors.Install, errors.New("no dataset source given"))
	}
	b.Log.Debugf("cloning %s into %s", source, path)
	_, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{URL: source})
	if err != nil {
		if ctx.Err() != nil {
			return errors.E("install", path, ctx.Err())
		}
		return errors.E("install", path, errors.Install, errors.E("clone", source, err))
	}
	out, err := command.Run(ctx, b.Log, path, b.git(), "annex", "init")
	if err == nil {
		err = out.Err()
		if err != nil {
			err = errors.E("annex init", errors.Install, err)
		}
	}
	if err != nil {
		// A clone without an initialized annex is not installed.
		if rmErr := os.RemoveAll(path); rmErr != nil {
			b.Log.Errorf("remove %s: %v", path, rmErr)
		}
		return dsfetch.WrapError("install", path, errors.Install, err)
	}
	return nil
}

var _ dsfetch.InstallChecker = (*Backend)(nil)

// Installed tells whether path holds a git repository whose annex
// has been initialized, or a datalad dataset.
func (b *Backend) Installed(path string) bool {
	if dataset.Installed(path) {
		return true
	}
	info, err := os.Stat(filepath.Join(path, ".git", "annex"))
	return err == nil && info.IsDir()
}

type jsonRecord struct {
	Command       string   `json:"command"`
	File          string   `json:"file"`
	Success       bool     `json:"success"`
	Note          string   `json:"note"`
	ErrorMessages []string `json:"error-messages"`
}

// Get runs "git annex get" on path within the dataset. git-annex
// reports nothing for files whose content is already present.
func (b *Backend) Get(ctx context.Context, ds dsfetch.Dataset, path string) (dsfetch.Records, error) {
	root, err := filepath.Abs(ds.Path)
	if err != nil {
		return nil, errors.E("get", ds.Path, err)
	}
	out, err := command.Run(ctx, b.Log, root, b.git(), "annex", "get", "--json", "--json-error-messages", "--", path)
	if err != nil {
		return nil, err
	}
	var records dsfetch.Records
	for _, line := range out.Lines() {
		r, ok := parseRecord(root, line)
		if !ok {
			b.Log.Debugf("git annex get: %s", line)
			continue
		}
		records = append(records, r)
	}
	if len(records) == 0 && out.ExitErr != nil {
		full := filepath.Join(root, path)
		message := strings.TrimSpace(string(out.Stderr))
		if message == "" {
			message = out.ExitErr.Error()
		}
		raw, _ := json.Marshal(jsonRecord{Command: "get", File: path, ErrorMessages: []string{message}})
		records = append(records, dsfetch.Record{
			Action:  "get",
			Path:    full,
			Status:  dsfetch.StatusError,
			Message: message,
			Raw:     raw,
		})
	}
	return records, nil
}

func parseRecord(root string, line []byte) (dsfetch.Record, bool) {
	if len(line) == 0 || line[0] != '{' {
		return dsfetch.Record{}, false
	}
	var j jsonRecord
	if err := json.Unmarshal(line, &j); err != nil || j.Command == "" {
		return dsfetch.Record{}, false
	}
	r := dsfetch.Record{
		Action: j.Command,
		Path:   j.File,
		Type:   "file",
		Status: dsfetch.StatusOK,
		Raw:    append(json.RawMessage(nil), line...),
	}
	if r.Path != "" && !filepath.IsAbs(r.Path) {
		r.Path = filepath.Join(root, r.Path)
	}
	if j.Success {
		r.Message = strings.TrimSpace(j.Note)
	} else {
		r.Status = dsfetch.StatusError
		r.Message = strings.Join(j.ErrorMessages, "; ")
	}
	return r, true
}

// Check verifies that git-annex is installed and at least MinVersion,
// and returns its version.
func (b *Backend) Check(ctx context.Context) (string, error) {
	out, err := command.Run(ctx, b.Log, "", b.git(), "annex", "version", "--raw")
	if err != nil {
		return "", errors.E("check", "git-annex", err)
	}
	if err := out.Err(); err != nil {
		return "", errors.E("check", "git-annex", errors.NotSupported, err)
	}
	version := strings.TrimSpace(string(out.Stdout))
	older, err := OlderVersion(version, MinVersion)
	if err != nil {
		return "", errors.E("check", "git-annex", errors.NotSupported, err)
	}
	if older {
		return version, errors.E("check", "git-annex", errors.NotSupported,
			errors.Errorf("git-annex %s is older than the required %s", version, MinVersion))
	}
	return version, nil
}

// OlderVersion tells whether git-annex version v is strictly older
// than version w. git-annex versions have the form MAJOR.YYYYMMDD,
// optionally followed by a build suffix (for example
// "10.20230126-g1ab2c3d").
func OlderVersion(v, w string) (bool, error) {
	vmaj, vdate, err := parseVersion(v)
	if err != nil {
		return false, err
	}
	wmaj, wdate, err := parseVersion(w)
	if err != nil {
		return false, err
	}
	if vmaj != wmaj {
		return vmaj < wmaj, nil
	}
	return vdate < wdate, nil
}

func parseVersion(v string) (major, date int, err error) {
	parts := strings.SplitN(strings.TrimSpace(v), ".", 2)
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("invalid git-annex version %q", v)
	}
	if major, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, errors.Errorf("invalid git-annex version %q", v)
	}
	digits := parts[1]
	for i, c := range digits {
		if c < '0' || c > '9' {
			digits = digits[:i]
			break
		}
	}
	if date, err = strconv.Atoi(digits); err != nil {
		return 0, 0, errors.Errorf("invalid git-annex version %q", v)
	}
	return major, date, nil
}
