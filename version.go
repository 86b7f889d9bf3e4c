// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dsfetch

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// IsSemVer returns whether the given string is a semantic version
// as described in https://semver.org/. The customary "v" prefix is
// optional, as tools such as datalad omit it.
func IsSemVer(v string) bool {
	return semver.IsValid(toSemver(v))
}

// IsOlderVersion returns whether the first of the given two version
// strings is strictly older. Panics if either version is not valid
// (so user should call IsSemVer first).
func IsOlderVersion(v1, v2 string) bool {
	if !IsSemVer(v1) {
		panic(fmt.Errorf("not a valid version: %s", v1))
	}
	if !IsSemVer(v2) {
		panic(fmt.Errorf("not a valid version: %s", v2))
	}
	return semver.Compare(toSemver(v1), toSemver(v2)) < 0
}

func toSemver(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
