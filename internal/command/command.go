// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package command runs the external dataset tools on behalf of the
// backends.
package command

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/grailbio/dsfetch/errors"
	"github.com/grailbio/dsfetch/log"
)

// Output is the output of a completed command.
type Output struct {
	Stdout, Stderr []byte
	// ExitErr is set if the command ran but exited with a nonzero
	// status.
	ExitErr *exec.ExitError
}

// Lines returns the nonempty lines of the command's standard output.
func (o Output) Lines() [][]byte {
	var lines [][]byte
	s := bufio.NewScanner(bytes.NewReader(o.Stdout))
	s.Buffer(make([]byte, 64<<10), 16<<20)
	for s.Scan() {
		line := bytes.TrimSpace(s.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
	}
	return lines
}

// Err returns an error describing a failed command, including its
// standard error, or nil if the command succeeded.
func (o Output) Err() error {
	if o.ExitErr == nil {
		return nil
	}
	msg := strings.TrimSpace(string(o.Stderr))
	if msg == "" {
		return o.ExitErr
	}
	return errors.Errorf("%v: %s", o.ExitErr, msg)
}

// Run runs the named program with the provided arguments in directory
// dir (the current directory if empty). Run returns an error only if
// the program could not be started or was interrupted by the context;
// a nonzero exit status is reported through Output.ExitErr.
func Run(ctx context.Context, logger *log.Logger, dir, name string, args ...string) (Output, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	logger.Debugf("exec %s %s (dir %q)", name, strings.Join(args, " "), dir)
	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, errors.E("exec", name, ctxErr)
	}
	switch err := err.(type) {
	case nil:
	case *exec.ExitError:
		out.ExitErr = err
	default:
		if e, ok := err.(*exec.Error); ok && e.Err == exec.ErrNotFound {
			return out, errors.E("exec", name, errors.NotSupported, err)
		}
		return out, errors.E("exec", name, err)
	}
	return out, nil
}
