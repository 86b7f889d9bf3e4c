// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package fs reports disk usage of the filesystem holding a path.
package fs

import "syscall"

// Usage specifies disk usage information.
type Usage struct {
	// Total is the total number of bytes on the disk.
	Total uint64
	// Avail is the number of free bytes that are available to
	// unprivileged users on the disk.
	Avail uint64
}

// Stat queries and returns disk usage information for the disk
// holding the given path.
func Stat(path string) (Usage, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return Usage{}, err
	}
	size := uint64(stat.Bsize)
	return Usage{
		Total: uint64(stat.Blocks) * size,
		Avail: uint64(stat.Bavail) * size,
	}, nil
}
