// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/canonical/pinmanager/cmd"
)

type extendCommand struct {
	cmd.CommandBase
	lifetimeFlags

	api   *apiFlags
	clock clock.Clock

	fileID string
	pinID  string
}

func (c *extendCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:        "extend",
		Args:        "<file> <pin>",
		Purpose:     "Extend the lifetime of a pin.",
		Intersperse: true,
		Doc:         `
The pin is kept for at least --lifetime from now. A pin already lasting
longer is left unchanged, and the lifetime may be capped by the server.
`,
	}
}

func (c *extendCommand) SetFlags(f *gnuflag.FlagSet) {
	c.lifetimeFlags.SetFlags(f)
}

func (c *extendCommand) Init(args []string) error {
	if len(args) < 2 {
		return errors.New("expected a file and a pin")
	}
	c.fileID, c.pinID = args[0], args[1]
	return cmd.CheckEmpty(args[2:])
}

func (c *extendCommand) Run(ctx *cmd.Context) error {
	expiration, err := c.api.client().ExtendPin(ctx, c.fileID, c.pinID, c.value())
	if err != nil {
		return errors.Trace(err)
	}
	if expiration == nil {
		fmt.Fprintf(ctx.Stdout, "Pin %s never expires.\n", c.pinID)
		return nil
	}
	fmt.Fprintf(ctx.Stdout, "Pin %s expires %s (%s).\n",
		c.pinID, relativeExpiry(expiration, c.clock.Now()), expiration.UTC().Format(time.RFC3339))
	return nil
}
