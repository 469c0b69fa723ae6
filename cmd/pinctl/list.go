// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/juju/ansiterm"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/mattn/go-isatty"

	"github.com/canonical/pinmanager/apiserver/params"
	"github.com/canonical/pinmanager/cmd"
)

var stateColor = map[string]*ansiterm.Context{
	"PINNING":   ansiterm.Foreground(ansiterm.Yellow),
	"PINNED":    ansiterm.Foreground(ansiterm.Green),
	"UNPINNING": ansiterm.Foreground(ansiterm.BrightRed),
}

type listCommand struct {
	cmd.CommandBase

	api   *apiFlags
	clock clock.Clock
	out   cmd.Output

	fileID string
	pool   string
	color  bool
}

func (c *listCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:        "list",
		Args:        "<file>",
		Purpose:     "List the pins of a file.",
		Intersperse: true,
	}
}

func (c *listCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.pool, "pool", "", "Only list pins on this pool")
	f.BoolVar(&c.color, "color", false, "Use ANSI color codes in tabular output")
	c.out.AddFlags(f, "tabular", map[string]cmd.Formatter{
		"yaml":    cmd.FormatYaml,
		"json":    cmd.FormatJson,
		"tabular": c.formatTabular,
	})
}

func (c *listCommand) Init(args []string) error {
	if len(args) == 0 {
		return errors.New("no file specified")
	}
	c.fileID = args[0]
	return cmd.CheckEmpty(args[1:])
}

func (c *listCommand) Run(ctx *cmd.Context) error {
	pins, err := c.api.client().ListPins(ctx, c.fileID, c.pool)
	if err != nil {
		return errors.Trace(err)
	}
	if len(pins) == 0 && c.out.Name() == "tabular" {
		ctx.Infof("No pins of %s.", c.fileID)
		return nil
	}
	return c.out.Write(ctx, pins)
}

func (c *listCommand) formatTabular(w io.Writer, value any) error {
	pins, ok := value.([]params.Pin)
	if !ok {
		return errors.Errorf("expected value of type %T, got %T", pins, value)
	}
	now := c.clock.Now()

	tw := ansiterm.NewTabWriter(w, 0, 1, 1, ' ', 0)
	tw.SetColorCapable(c.color || isTerminal(w))
	fmt.Fprintln(tw, "ID\tPool\tState\tOwner\tExpires")
	for _, p := range pins {
		fmt.Fprintf(tw, "%s\t%s\t", p.ID, p.Pool)
		if color, ok := stateColor[p.State]; ok {
			color.Fprintf(tw, "%s", p.State)
		} else {
			fmt.Fprint(tw, p.State)
		}
		fmt.Fprintf(tw, "\t%s\t%s\n", p.Owner, relativeExpiry(p.Expiration, now))
	}
	return errors.Trace(tw.Flush())
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
