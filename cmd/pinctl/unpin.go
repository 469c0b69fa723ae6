// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"github.com/juju/errors"

	"github.com/canonical/pinmanager/cmd"
)

type unpinCommand struct {
	cmd.CommandBase

	api *apiFlags

	fileID string
	pinID  string
}

func (c *unpinCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:        "unpin",
		Args:        "<file> <pin>",
		Purpose:     "Release a pin.",
		Intersperse: true,
	}
}

func (c *unpinCommand) Init(args []string) error {
	if len(args) < 2 {
		return errors.New("expected a file and a pin")
	}
	c.fileID, c.pinID = args[0], args[1]
	return cmd.CheckEmpty(args[2:])
}

func (c *unpinCommand) Run(ctx *cmd.Context) error {
	if err := c.api.client().Unpin(ctx, c.fileID, c.pinID); err != nil {
		return errors.Trace(err)
	}
	ctx.Infof("Released pin %s of %s.", c.pinID, c.fileID)
	return nil
}
