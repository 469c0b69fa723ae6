// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package cmd

import (
	"os"

	"github.com/juju/errors"
)

// FileVar represents a path to a file.
type FileVar struct {
	Path string
}

// Set stores the path name. The file is read by Read.
func (f *FileVar) Set(v string) error {
	f.Path = v
	return nil
}

// Read returns the contents of the file, relative to the context.
func (f *FileVar) Read(ctx *Context) ([]byte, error) {
	if f.Path == "" {
		return nil, errors.NotValidf("empty file path")
	}
	return os.ReadFile(ctx.AbsPath(f.Path))
}

// String returns the path to the file.
func (f *FileVar) String() string {
	return f.Path
}
