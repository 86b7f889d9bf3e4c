// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package batch

// maxTitle is the maximum length of a status task title.
const maxTitle = 40

// leftabbrev abbreviates string s by retaining its rightmost 'max'
// characters.
func leftabbrev(s string, max int) string {
	if len(s) <= max {
		return s
	}
	a := make([]byte, 0, max)
	a = append(a, ".."...)
	a = append(a, s[len(s)-max+2:]...)
	return string(a)
}
