// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"

	"github.com/canonical/pinmanager/cmd"
	"github.com/canonical/pinmanager/version"
)

type versionCommand struct {
	cmd.CommandBase

	api *apiFlags
}

func (c *versionCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "version",
		Purpose: "Print the client and server versions.",
	}
}

func (c *versionCommand) Run(ctx *cmd.Context) error {
	fmt.Fprintf(ctx.Stdout, "client: %s\n", version.String())
	server, err := c.api.client().Version(ctx)
	if err != nil {
		ctx.Infof("cannot reach server: %v", err)
		return cmd.ErrSilent
	}
	fmt.Fprintf(ctx.Stdout, "server: %s\n", server)
	return nil
}
