// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/canonical/pinmanager/apiserver/params"
	"github.com/canonical/pinmanager/cmd"
)

type moveCommand struct {
	cmd.CommandBase

	api *apiFlags

	fileID string
	args   params.MovePinsArgs
	owners string
}

func (c *moveCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:        "move",
		Args:        "<file> <source-pool> <target-pool>",
		Purpose:     "Move the pins of a file to another pool.",
		Intersperse: true,
		Doc:         `
Sticky flags of the source pool owned by pins that no longer exist are
cleared first. Pass the owners currently holding flags with --owners.
`,
	}
}

func (c *moveCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.owners, "owners", "", "Comma separated sticky flag owners on the source pool")
}

func (c *moveCommand) Init(args []string) error {
	if len(args) < 3 {
		return errors.New("expected a file, a source pool and a target pool")
	}
	c.fileID = args[0]
	c.args.SourcePool, c.args.TargetPool = args[1], args[2]
	if c.owners != "" {
		c.args.StickyOwners = strings.Split(c.owners, ",")
	}
	return cmd.CheckEmpty(args[3:])
}

func (c *moveCommand) Run(ctx *cmd.Context) error {
	result, err := c.api.client().MovePins(ctx, c.fileID, c.args)
	if err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(ctx.Stdout, "Moved %d pins of %s to %s, cleared %d stale flags.\n",
		result.Moved, c.fileID, c.args.TargetPool, result.Cleared)
	return nil
}
