// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/juju/gnuflag"

	"github.com/canonical/pinmanager/api/client/pins"
)

const (
	apiEnvKey      = "PINCTL_API"
	defaultAPIAddr = "http://localhost:17080"
)

// apiFlags are the flags shared by every command talking to the API.
type apiFlags struct {
	addr string
	user string
}

// SetFlags adds the API flags to f. Values already parsed before the
// subcommand are kept as defaults.
func (a *apiFlags) SetFlags(f *gnuflag.FlagSet) {
	addr := a.addr
	if addr == "" {
		addr = os.Getenv(apiEnvKey)
	}
	if addr == "" {
		addr = defaultAPIAddr
	}
	user := a.user
	if user == "" {
		user = os.Getenv("USER")
	}
	f.StringVar(&a.addr, "api", addr, "Address of the pin manager API")
	f.StringVar(&a.user, "user", user, "User to act as")
}

func (a *apiFlags) client() *pins.Client {
	return pins.NewClient(a.addr, a.user, nil)
}

// lifetimeFlags select the lifetime of a pin.
type lifetimeFlags struct {
	lifetime  time.Duration
	unbounded bool
}

func (l *lifetimeFlags) SetFlags(f *gnuflag.FlagSet) {
	f.DurationVar(&l.lifetime, "lifetime", 24*time.Hour, "How long the pin lasts")
	f.BoolVar(&l.unbounded, "unbounded", false, "The pin never expires")
}

func (l *lifetimeFlags) value() time.Duration {
	if l.unbounded {
		return -1
	}
	return l.lifetime
}

// relativeExpiry describes when an expiration lapses, relative to now.
func relativeExpiry(expiration *time.Time, now time.Time) string {
	if expiration == nil {
		return "never"
	}
	return humanize.RelTime(*expiration, now, "ago", "from now")
}
