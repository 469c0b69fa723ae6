// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package version holds the version of the pin manager.
package version

import (
	semversion "github.com/juju/version/v2"
)

// The presence and format of this constant is very important.
// The dev/release scripts check it.
const version = "0.1.0"

// Current gives the current version of the pin manager.
var Current = semversion.MustParse(version)

// GitCommit is set at link time with
// -ldflags "-X github.com/canonical/pinmanager/version.GitCommit=<sha>".
var GitCommit string

// String returns the version, with the commit it was built from when it
// is known.
func String() string {
	if GitCommit == "" {
		return Current.String()
	}
	return Current.String() + " (" + GitCommit + ")"
}
