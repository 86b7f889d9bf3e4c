// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package dataset inspects local dataset directories: whether a
// dataset is installed, whether a file's content has been
// materialized, and where the dataset was installed from. It never
// modifies a dataset; installation and retrieval are the
// responsibility of a dsfetch.Backend.
package dataset

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/grailbio/dsfetch/errors"
)

// MarkerDir is the name of the metadata directory present at the root
// of every installed dataset.
const MarkerDir = ".datalad"

// Installed tells whether the directory path contains an installed
// dataset.
func Installed(path string) bool {
	info, err := os.Stat(filepath.Join(path, MarkerDir))
	return err == nil && info.IsDir()
}

// State describes the local state of a dataset file.
type State int

const (
	// Missing indicates there is no file at the path.
	Missing State = iota
	// Placeholder indicates the file is a symbolic link whose target
	// does not exist: its annexed content has not been retrieved.
	Placeholder
	// Materialized indicates the file's content is present.
	Materialized
)

func (s State) String() string {
	switch s {
	case Missing:
		return "missing"
	case Placeholder:
		return "placeholder"
	case Materialized:
		return "materialized"
	default:
		return "unknown"
	}
}

// Stat returns the state of the file at path.
func Stat(path string) (State, error) {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return Missing, nil
	}
	if err != nil {
		return Missing, errors.E("stat", path, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return Materialized, nil
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		return Materialized, nil
	case os.IsNotExist(err):
		return Placeholder, nil
	default:
		return Missing, errors.E("stat", path, err)
	}
}

// Origin returns the URL of the "origin" remote of the dataset at
// path. Datasets created in place (rather than installed) have no
// origin; Origin returns a NotExist error for them.
func Origin(path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		if err == git.ErrRepositoryNotExists {
			return "", errors.E("origin", path, errors.NotExist, err)
		}
		return "", errors.E("origin", path, err)
	}
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		if err == git.ErrRemoteNotFound {
			return "", errors.E("origin", path, errors.NotExist, err)
		}
		return "", errors.E("origin", path, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", errors.E("origin", path, errors.NotExist, errors.New("origin has no URL"))
	}
	return urls[0], nil
}

// SameSource tells whether the sources a and b refer to the same
// dataset. Local paths and file:// URLs are compared by their
// absolute, cleaned paths; other URLs are compared after removing
// trailing slashes and ".git" suffixes.
func SameSource(a, b string) bool {
	return normalize(a) == normalize(b)
}

func normalize(source string) string {
	source = strings.TrimSpace(source)
	if u, err := url.Parse(source); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		if u.Scheme == "file" {
			return normalizePath(u.Path)
		}
		u.Path = trimRepo(u.Path)
		u.RawPath = ""
		return u.String()
	}
	// scp-like syntax, e.g. git@github.com:org/repo.git
	if i := strings.Index(source, ":"); i > 0 && !strings.Contains(source[:i], "/") && len(source[:i]) > 1 {
		return source[:i] + ":" + trimRepo(source[i+1:])
	}
	return normalizePath(source)
}

func normalizePath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	return trimRepo(filepath.Clean(path))
}

func trimRepo(path string) string {
	path = strings.TrimRight(path, "/")
	path = strings.TrimSuffix(path, ".git")
	return strings.TrimRight(path, "/")
}
