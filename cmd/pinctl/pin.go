// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"
	"io"

	"github.com/gosuri/uitable"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/canonical/pinmanager/apiserver/params"
	"github.com/canonical/pinmanager/cmd"
)

type pinCommand struct {
	cmd.CommandBase
	lifetimeFlags

	api   *apiFlags
	clock clock.Clock
	out   cmd.Output

	fileID string
	pool   string
}

func (c *pinCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:        "pin",
		Args:        "<file> <pool>",
		Purpose:     "Pin a file on a pool.",
		Intersperse: true,
		Doc:         `
The file is kept resident on the pool for --lifetime, or until it is
released when --unbounded is given.
`,
	}
}

func (c *pinCommand) SetFlags(f *gnuflag.FlagSet) {
	c.lifetimeFlags.SetFlags(f)
	c.out.AddFlags(f, "summary", map[string]cmd.Formatter{
		"yaml":    cmd.FormatYaml,
		"json":    cmd.FormatJson,
		"summary": c.formatSummary,
	})
}

func (c *pinCommand) Init(args []string) error {
	if len(args) < 2 {
		return errors.New("expected a file and a pool")
	}
	c.fileID, c.pool = args[0], args[1]
	return cmd.CheckEmpty(args[2:])
}

func (c *pinCommand) Run(ctx *cmd.Context) error {
	p, err := c.api.client().PinFile(ctx, c.fileID, c.pool, c.value())
	if err != nil {
		return errors.Trace(err)
	}
	return c.out.Write(ctx, p)
}

func (c *pinCommand) formatSummary(w io.Writer, value any) error {
	p, ok := value.(params.Pin)
	if !ok {
		return errors.Errorf("expected value of type %T, got %T", p, value)
	}
	table := uitable.New()
	table.AddRow("ID:", p.ID)
	table.AddRow("File:", p.FileID)
	table.AddRow("Pool:", p.Pool)
	table.AddRow("State:", p.State)
	table.AddRow("Owner:", p.Owner)
	table.AddRow("Expires:", relativeExpiry(p.Expiration, c.clock.Now()))
	_, err := fmt.Fprintln(w, table)
	return errors.Trace(err)
}
