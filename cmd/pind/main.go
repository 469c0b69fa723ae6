// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// pind runs the pin manager daemon.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/canonical/pinmanager/cmd"
)

func main() {
	ctx, err := cmd.DefaultContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR %v\n", err)
		os.Exit(2)
	}
	os.Exit(cmd.Main(newDaemonCommand(), ctx, os.Args[1:]))
}
