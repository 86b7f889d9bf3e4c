// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package all imports all standard configuration providers
// in dsfetch.
package all

import (
	_ "github.com/grailbio/dsfetch/config/annexconfig"
	_ "github.com/grailbio/dsfetch/config/dataladconfig"
	_ "github.com/grailbio/dsfetch/config/fslockconfig"
)
