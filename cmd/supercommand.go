// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
)

// SuperCommandParams provides a way to have default parameter to the
// NewSuperCommand call.
type SuperCommandParams struct {
	Name    string
	Purpose string
	Doc     string

	// GlobalFlags are added to the flags of every subcommand.
	GlobalFlags func(f *gnuflag.FlagSet)
}

// SuperCommand is a Command that selects a subcommand and assumes its
// properties; any command line arguments that were not used in selecting
// the subcommand are passed down to it.
type SuperCommand struct {
	params   SuperCommandParams
	subcmds  map[string]Command
	subcmd   Command
	showHelp bool
}

// NewSuperCommand creates and initializes a new SuperCommand.
func NewSuperCommand(params SuperCommandParams) *SuperCommand {
	return &SuperCommand{
		params:  params,
		subcmds: make(map[string]Command),
	}
}

// Register makes a subcommand available for use on the command line. The
// command will be available via its own name.
func (c *SuperCommand) Register(subcmd Command) {
	name := subcmd.Info().Name
	if _, found := c.subcmds[name]; found || name == "help" {
		panic(fmt.Sprintf("command already registered: %q", name))
	}
	c.subcmds[name] = subcmd
}

// Info is part of the Command interface.
func (c *SuperCommand) Info() *Info {
	if c.subcmd != nil {
		info := *c.subcmd.Info()
		info.Name = c.params.Name + " " + info.Name
		return &info
	}
	return &Info{
		Name:    c.params.Name,
		Args:    "<command> ...",
		Purpose: c.params.Purpose,
		Doc:     strings.TrimSpace(c.params.Doc + "\n\n" + c.describeCommands()),
	}
}

// SetFlags is part of the Command interface.
func (c *SuperCommand) SetFlags(f *gnuflag.FlagSet) {
	if c.subcmd != nil {
		c.subcmd.SetFlags(f)
	}
	if c.params.GlobalFlags != nil {
		c.params.GlobalFlags(f)
	}
	f.BoolVar(&c.showHelp, "h", false, "Show help on a command")
	f.BoolVar(&c.showHelp, "help", false, "")
}

// Init is part of the Command interface. The first argument selects the
// subcommand, the rest are parsed as its flags and arguments.
func (c *SuperCommand) Init(args []string) error {
	if len(args) == 0 || args[0] == "help" {
		c.showHelp = true
		if len(args) > 1 {
			c.subcmd = c.subcmds[args[1]]
		}
		return nil
	}
	subcmd, found := c.subcmds[args[0]]
	if !found {
		return errors.Errorf("unrecognized command: %s %s", c.params.Name, args[0])
	}
	c.subcmd = subcmd
	return Parse(c.subcmdWithGlobals(), args[1:])
}

// Run is part of the Command interface.
func (c *SuperCommand) Run(ctx *Context) error {
	if c.showHelp || c.subcmd == nil {
		PrintUsage(ctx.Stdout, c)
		return nil
	}
	return c.subcmd.Run(ctx)
}

func (c *SuperCommand) subcmdWithGlobals() Command {
	return &globalsCommand{Command: c.subcmd, super: c}
}

func (c *SuperCommand) describeCommands() string {
	if len(c.subcmds) == 0 {
		return ""
	}
	names := make([]string, 0, len(c.subcmds))
	width := 0
	for name := range c.subcmds {
		names = append(names, name)
		if len(name) > width {
			width = len(name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("commands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "    %-*s - %s\n", width, name, c.subcmds[name].Info().Purpose)
	}
	return b.String()
}

// globalsCommand parses the flags of a subcommand together with the
// global flags of its super command.
type globalsCommand struct {
	Command
	super *SuperCommand
}

func (g *globalsCommand) SetFlags(f *gnuflag.FlagSet) {
	g.Command.SetFlags(f)
	if g.super.params.GlobalFlags != nil {
		g.super.params.GlobalFlags(f)
	}
	f.BoolVar(&g.super.showHelp, "h", false, "Show help on a command")
	f.BoolVar(&g.super.showHelp, "help", false, "")
}

// Init skips the subcommand's argument checks when help was asked for.
func (g *globalsCommand) Init(args []string) error {
	if g.super.showHelp {
		return nil
	}
	return g.Command.Init(args)
}

