// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package datalad implements a dsfetch.Backend that drives the
// datalad command line tool. Datalad is asked to render its results
// as JSON records (one per line), which are translated into
// dsfetch.Records.
package datalad

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grailbio/dsfetch"
	"github.com/grailbio/dsfetch/backend/gitannex"
	"github.com/grailbio/dsfetch/errors"
	"github.com/grailbio/dsfetch/internal/command"
	"github.com/grailbio/dsfetch/log"
)

// DefaultBinary is the name of the datalad executable.
const DefaultBinary = "datalad"

// MinVersion is the oldest datalad release whose JSON result records
// the backend understands.
const MinVersion = "0.12.0"

// Backend runs datalad.
type Backend struct {
	// Binary is the datalad executable. DefaultBinary is used if it
	// is empty.
	Binary string
	// Git is the git executable used to check git-annex's version.
	Git string
	// Log receives the commands run by the backend at debug level.
	Log *log.Logger
}

func (b *Backend) binary() string {
	if b.Binary == "" {
		return DefaultBinary
	}
	return b.Binary
}

// Install installs the dataset at source into path by running
// "datalad install --source source path".
func (b *Backend) Install(ctx context.Context, source, path string) error {
	if source == "" {
		return errors.E("install", path, errors.Install, errors.New("no dataset source given"))
	}
	records, err := b.run(ctx, "", "install", "--source", source, path)
	if err != nil {
		return dsfetch.WrapError("install", path, errors.Install, err)
	}
	if err := records.Err(); err != nil {
		return errors.E("install", path, errors.Install, err)
	}
	return nil
}

// Get runs "datalad get -d dataset path". Paths are passed to datalad
// in absolute form so that they are interpreted relative to the
// dataset regardless of the working directory.
func (b *Backend) Get(ctx context.Context, ds dsfetch.Dataset, path string) (dsfetch.Records, error) {
	root, err := filepath.Abs(ds.Path)
	if err != nil {
		return nil, errors.E("get", ds.Path, err)
	}
	return b.run(ctx, root, "get", "-d", root, filepath.Join(root, path))
}

// run invokes datalad with JSON result rendering. Datalad exits with
// a nonzero status when any result failed; the records are returned
// regardless. If datalad failed without reporting a record, a
// synthetic error record carrying its standard error is returned.
func (b *Backend) run(ctx context.Context, dir, cmd string, args ...string) (dsfetch.Records, error) {
	args = append([]string{"-f", "json", cmd}, args...)
	out, err := command.Run(ctx, b.Log, dir, b.binary(), args...)
	if err != nil {
		return nil, err
	}
	var records dsfetch.Records
	for _, line := range out.Lines() {
		r, ok := parseRecord(line)
		if !ok {
			b.Log.Debugf("datalad %s: %s", cmd, line)
			continue
		}
		records = append(records, r)
	}
	if len(records) == 0 && out.ExitErr != nil {
		path := ""
		if len(args) > 0 {
			path = args[len(args)-1]
		}
		message := strings.TrimSpace(string(out.Stderr))
		if message == "" {
			message = out.ExitErr.Error()
		}
		raw, _ := json.Marshal(map[string]string{
			"action":  cmd,
			"path":    path,
			"status":  string(dsfetch.StatusError),
			"message": message,
		})
		records = append(records, dsfetch.Record{
			Action:  cmd,
			Path:    path,
			Status:  dsfetch.StatusError,
			Message: message,
			Raw:     raw,
		})
	}
	return records, nil
}

type jsonRecord struct {
	Action       string          `json:"action"`
	Path         string          `json:"path"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	Message      json.RawMessage `json:"message"`
	ErrorMessage json.RawMessage `json:"error_message"`
}

// parseRecord parses a single datalad JSON result record. Lines that
// are not records (for example progress output) are rejected.
func parseRecord(line []byte) (dsfetch.Record, bool) {
	if len(line) == 0 || line[0] != '{' {
		return dsfetch.Record{}, false
	}
	var j jsonRecord
	if err := json.Unmarshal(line, &j); err != nil || j.Status == "" {
		return dsfetch.Record{}, false
	}
	r := dsfetch.Record{
		Action:  j.Action,
		Path:    j.Path,
		Type:    j.Type,
		Status:  dsfetch.Status(j.Status),
		Message: message(j.Message),
		Raw:     append(json.RawMessage(nil), line...),
	}
	if r.Message == "" {
		r.Message = message(j.ErrorMessage)
	}
	return r, true
}

// message renders a datalad message. Datalad reports messages either
// as plain strings or as a list comprising a %-style format string
// followed by its arguments.
func message(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []interface{}
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) == 0 {
		return string(raw)
	}
	format, ok := parts[0].(string)
	if !ok {
		return string(raw)
	}
	args := parts[1:]
	for i, arg := range args {
		// JSON numbers decode as float64; %d needs integers.
		if f, ok := arg.(float64); ok && f == float64(int64(f)) {
			args[i] = int64(f)
		}
	}
	return fmt.Sprintf(format, args...)
}

var versionRE = regexp.MustCompile(`(\d+\.\d+(\.\d+)?)`)

// Check verifies that datalad (and the git-annex it relies on) is
// installed and recent enough, and returns datalad's version.
func (b *Backend) Check(ctx context.Context) (string, error) {
	out, err := command.Run(ctx, b.Log, "", b.binary(), "--version")
	if err != nil {
		return "", errors.E("check", b.binary(), err)
	}
	if err := out.Err(); err != nil {
		return "", errors.E("check", b.binary(), errors.NotSupported, err)
	}
	version := versionRE.FindString(string(out.Stdout))
	if !dsfetch.IsSemVer(version) {
		return "", errors.E("check", b.binary(), errors.NotSupported,
			errors.Errorf("unrecognized version output %q", strings.TrimSpace(string(out.Stdout))))
	}
	if dsfetch.IsOlderVersion(version, MinVersion) {
		return version, errors.E("check", b.binary(), errors.NotSupported,
			errors.Errorf("datalad %s is older than the required %s", version, MinVersion))
	}
	annex := gitannex.Backend{Git: b.Git, Log: b.Log}
	if _, err := annex.Check(ctx); err != nil {
		return version, err
	}
	return version, nil
}
