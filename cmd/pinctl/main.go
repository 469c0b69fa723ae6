// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// pinctl is the command line client of the pin manager API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/juju/clock"

	"github.com/canonical/pinmanager/cmd"
)

func main() {
	ctx, err := cmd.DefaultContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR %v\n", err)
		os.Exit(2)
	}
	os.Exit(cmd.Main(newPinctlCommand(clock.WallClock), ctx, os.Args[1:]))
}

var pinctlDoc = `
pinctl manages the pins of a pin manager. Pins keep a file resident on a
storage pool until they expire or are released.

The API address defaults to $PINCTL_API and the acting user to $USER.
`

func newPinctlCommand(clk clock.Clock) *cmd.SuperCommand {
	api := &apiFlags{}
	super := cmd.NewSuperCommand(cmd.SuperCommandParams{
		Name:        "pinctl",
		Purpose:     "Manage file pins.",
		Doc:         pinctlDoc,
		GlobalFlags: api.SetFlags,
	})
	super.Register(&listCommand{api: api, clock: clk})
	super.Register(&pinCommand{api: api, clock: clk})
	super.Register(&unpinCommand{api: api})
	super.Register(&extendCommand{api: api, clock: clk})
	super.Register(&moveCommand{api: api})
	super.Register(&versionCommand{api: api})
	return super
}
