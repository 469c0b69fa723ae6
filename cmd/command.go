// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
)

// ErrSilent is returned by commands that already reported their failure.
const ErrSilent = errors.ConstError("cmd: error out silently")

// Info holds everything necessary to describe a Command's intent and usage.
type Info struct {
	// Name is the Command's name.
	Name string

	// Args describes the command's expected arguments.
	Args string

	// Purpose is a short explanation of the Command's purpose.
	Purpose string

	// Doc is the long documentation for the Command.
	Doc string

	// Intersperse controls whether the Command will accept interspersed
	// options and positional args.
	Intersperse bool
}

// Usage combines Name and Args to describe the Command's intended usage.
func (i *Info) Usage() string {
	if i.Args == "" {
		return i.Name
	}
	return fmt.Sprintf("%s %s", i.Name, i.Args)
}

// Command is implemented by types that interpret command-line arguments.
type Command interface {
	// Info returns information about the command.
	Info() *Info

	// SetFlags prepares a FlagSet such that parsing it will initialize the
	// Command's options.
	SetFlags(f *gnuflag.FlagSet)

	// Init is called with the positional command-line arguments once the
	// flags are parsed.
	Init(args []string) error

	// Run executes the command according to the options and positional
	// arguments interpreted by Init.
	Run(ctx *Context) error
}

// CommandBase provides the default implementation of the optional parts
// of Command.
type CommandBase struct{}

// SetFlags is part of the Command interface.
func (CommandBase) SetFlags(f *gnuflag.FlagSet) {}

// Init is part of the Command interface.
func (CommandBase) Init(args []string) error {
	return CheckEmpty(args)
}

// NewFlagSet returns a FlagSet initialized for use with c.
func NewFlagSet(c Command) *gnuflag.FlagSet {
	f := gnuflag.NewFlagSet(c.Info().Name, gnuflag.ContinueOnError)
	f.SetOutput(io.Discard)
	c.SetFlags(f)
	return f
}

// PrintUsage prints usage information for c to w.
func PrintUsage(w io.Writer, c Command) {
	i := c.Info()
	fmt.Fprintf(w, "usage: %s\n", i.Usage())
	fmt.Fprintf(w, "purpose: %s\n", i.Purpose)

	f := NewFlagSet(c)
	var hasFlags bool
	f.VisitAll(func(*gnuflag.Flag) { hasFlags = true })
	if hasFlags {
		fmt.Fprintf(w, "\noptions:\n")
		f.SetOutput(w)
		f.PrintDefaults()
	}
	if i.Doc != "" {
		fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(i.Doc))
	}
}

// Parse parses args on c. This must be called before c is Run.
func Parse(c Command, args []string) error {
	f := NewFlagSet(c)
	if err := f.Parse(c.Info().Intersperse, args); err != nil {
		return err
	}
	return c.Init(f.Args())
}

// CheckEmpty is a utility function that returns an error if args is not empty.
func CheckEmpty(args []string) error {
	if len(args) != 0 {
		return errors.Errorf("unrecognised args: %s", args)
	}
	return nil
}

// Main parses and runs a Command, returning the exit code: 2 for usage
// errors, 1 for failures and 0 on success. args excludes the program name.
func Main(c Command, ctx *Context, args []string) int {
	if err := Parse(c, args); err != nil {
		if errors.Is(err, gnuflag.ErrHelp) {
			PrintUsage(ctx.Stdout, c)
			return 0
		}
		fmt.Fprintf(ctx.Stderr, "ERROR %v\n", err)
		PrintUsage(ctx.Stderr, c)
		return 2
	}
	if err := c.Run(ctx); err != nil {
		if !errors.Is(err, ErrSilent) {
			fmt.Fprintf(ctx.Stderr, "ERROR %v\n", err)
		}
		return 1
	}
	return 0
}
