// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package cmd

import (
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"gopkg.in/yaml.v3"
)

// Formatter writes an arbitrary object to w.
type Formatter func(w io.Writer, value any) error

// FormatYaml writes value as YAML, unless value is nil.
func FormatYaml(w io.Writer, value any) error {
	if value == nil {
		return nil
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(value); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(enc.Close())
}

// FormatJson writes value as a line of JSON, unless value is nil.
func FormatJson(w io.Writer, value any) error {
	if value == nil {
		return nil
	}
	return errors.Trace(json.NewEncoder(w).Encode(value))
}

// DefaultFormatters are used by most commands.
var DefaultFormatters = map[string]Formatter{
	"yaml": FormatYaml,
	"json": FormatJson,
}

// formatterValue implements gnuflag.Value for the --format flag.
type formatterValue struct {
	name       string
	formatters map[string]Formatter
}

// newFormatterValue returns a new formatterValue. The initial Formatter name
// must be present in formatters.
func newFormatterValue(initial string, formatters map[string]Formatter) *formatterValue {
	v := &formatterValue{formatters: formatters}
	if err := v.Set(initial); err != nil {
		panic(err)
	}
	return v
}

// Set stores the chosen formatter name in v.name.
func (v *formatterValue) Set(value string) error {
	if v.formatters[value] == nil {
		return errors.Errorf("unknown format: %s", value)
	}
	v.name = value
	return nil
}

// String returns the chosen formatter name.
func (v *formatterValue) String() string {
	return v.name
}

// doc returns documentation for the --format flag.
func (v *formatterValue) doc() string {
	choices := make([]string, 0, len(v.formatters))
	for name := range v.formatters {
		choices = append(choices, name)
	}
	sort.Strings(choices)
	return "Specify output format (" + strings.Join(choices, "|") + ")"
}

// Output is responsible for interpreting output-related command line flags
// and writing a value to a file or to stdout as directed.
type Output struct {
	formatter *formatterValue
	outPath   string
}

// AddFlags injects appropriate command line flags into f.
func (c *Output) AddFlags(f *gnuflag.FlagSet, name string, formatters map[string]Formatter) {
	c.formatter = newFormatterValue(name, formatters)
	f.Var(c.formatter, "format", c.formatter.doc())
	f.StringVar(&c.outPath, "o", "", "Specify an output file")
	f.StringVar(&c.outPath, "output", "", "")
}

// Name returns the name of the chosen formatter.
func (c *Output) Name() string {
	return c.formatter.name
}

// Write formats and outputs value as directed by the --format and --output
// command line flags.
func (c *Output) Write(ctx *Context, value any) error {
	target := ctx.Stdout
	if c.outPath != "" {
		f, err := os.Create(ctx.AbsPath(c.outPath))
		if err != nil {
			return errors.Trace(err)
		}
		defer f.Close()
		target = f
	}
	if err := c.formatter.formatters[c.formatter.name](target, value); err != nil {
		return errors.Annotatef(err, "formatting output as %s", c.formatter.name)
	}
	return nil
}
