// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/lumberjack/v2"
	"github.com/juju/mutex/v2"

	"github.com/canonical/pinmanager/cmd"
	"github.com/canonical/pinmanager/internal/config"
	"github.com/canonical/pinmanager/internal/logger"
	"github.com/canonical/pinmanager/version"
	"github.com/canonical/pinmanager/worker/signalwatcher"
)

const (
	// lockName serialises daemons sharing a host, so two of them never
	// write the same database file.
	lockName = "pinmanager-db"

	logMaxSizeMB  = 100
	logMaxBackups = 5
)

var doc = `
pind serves the pin manager API, keeping pins in the configured database
and their sticky flags on the configured pools.

It stops cleanly on SIGINT or SIGTERM.
`

type daemonCommand struct {
	cmd.CommandBase

	configFile  cmd.FileVar
	logConfig   string
	showVersion bool
	lockTimeout time.Duration

	clock clock.Clock
}

func newDaemonCommand() *daemonCommand {
	return &daemonCommand{clock: clock.WallClock}
}

// Info is part of the cmd.Command interface.
func (c *daemonCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "pind",
		Purpose: "Run the pin manager daemon.",
		Doc:     doc,
	}
}

// SetFlags is part of the cmd.Command interface.
func (c *daemonCommand) SetFlags(f *gnuflag.FlagSet) {
	f.Var(&c.configFile, "config", "Path to the YAML configuration file")
	f.StringVar(&c.logConfig, "log-config", "", "Logging config, overriding the file's log-config")
	f.BoolVar(&c.showVersion, "version", false, "Print the version and exit")
	f.DurationVar(&c.lockTimeout, "lock-timeout", time.Minute, "How long to wait for another daemon to release the database")
}

// Init is part of the cmd.Command interface.
func (c *daemonCommand) Init(args []string) error {
	if err := cmd.CheckEmpty(args); err != nil {
		return err
	}
	if !c.showVersion && c.configFile.Path == "" {
		return errors.New("--config is required")
	}
	return nil
}

// Run is part of the cmd.Command interface.
func (c *daemonCommand) Run(ctx *cmd.Context) error {
	if c.showVersion {
		fmt.Fprintln(ctx.Stdout, version.String())
		return nil
	}

	data, err := c.configFile.Read(ctx)
	if err != nil {
		return errors.Annotate(err, "reading config")
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return errors.Annotatef(err, "parsing config %q", c.configFile.Path)
	}
	if c.logConfig != "" {
		cfg.LogConfig = c.logConfig
	}
	cfg.DatabasePath = ctx.AbsPath(cfg.DatabasePath)

	var logWriter io.Writer = ctx.Stderr
	if cfg.LogFile != "" {
		ljLogger := &lumberjack.Logger{
			Filename:   ctx.AbsPath(cfg.LogFile),
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			Compress:   true,
		}
		defer ljLogger.Close()
		logWriter = ljLogger
	}
	if err := logger.Configure(logWriter, cfg.LogConfig); err != nil {
		return errors.Trace(err)
	}
	log := logger.GetLogger("pinmanager.pind")

	releaser, err := mutex.Acquire(mutex.Spec{
		Name:    lockName,
		Clock:   c.clock,
		Delay:   250 * time.Millisecond,
		Timeout: c.lockTimeout,
	})
	if err != nil {
		return errors.Annotate(err, "acquiring database lock")
	}
	defer releaser.Release()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	d, err := newDaemon(ctx, daemonConfig{
		Config:  cfg,
		Logger:  log,
		Clock:   c.clock,
		Signals: signals,
	})
	if err != nil {
		return errors.Trace(err)
	}
	log.Infof(ctx, "pind %s serving on %s", version.String(), d.Addr())

	err = d.Wait()
	if errors.Is(err, signalwatcher.ErrTerminated) {
		log.Infof(ctx, "stopped")
		return nil
	}
	return errors.Trace(err)
}
