// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package config reads the pin manager daemon configuration file.
package config

import (
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/juju/schema"
	"gopkg.in/yaml.v3"
)

const (
	ListenAddressKey   = "listen-address"
	DatabasePathKey    = "database-path"
	RemoteTimeoutKey   = "remote-timeout"
	MaxLifetimeKey     = "max-lifetime"
	SweepIntervalKey   = "sweep-interval"
	MoveParallelismKey = "move-parallelism"
	MaxConnectionsKey  = "max-connections"
	AdminsKey          = "admins"
	PoolsKey           = "pools"
	PoolRateLimitKey   = "pool-rate-limit"
	PoolBurstKey       = "pool-burst"
	LogConfigKey       = "log-config"
	LogFileKey         = "log-file"
	TraceEndpointKey   = "trace-endpoint"
	TraceInsecureKey   = "trace-insecure"
)

const (
	DefaultListenAddress   = "localhost:17080"
	DefaultRemoteTimeout   = 30 * time.Second
	DefaultSweepInterval   = time.Minute
	DefaultMoveParallelism = 4
	DefaultPoolBurst       = 10
	DefaultLogConfig       = "<root>=INFO"
)

var configFields = schema.Fields{
	ListenAddressKey:   schema.String(),
	DatabasePathKey:    schema.String(),
	RemoteTimeoutKey:   schema.TimeDuration(),
	MaxLifetimeKey:     schema.TimeDuration(),
	SweepIntervalKey:   schema.TimeDuration(),
	MoveParallelismKey: schema.ForceInt(),
	MaxConnectionsKey:  schema.ForceInt(),
	AdminsKey:          schema.List(schema.String()),
	PoolsKey:           schema.StringMap(schema.String()),
	PoolRateLimitKey:   schema.OneOf(schema.Float(), schema.ForceInt()),
	PoolBurstKey:       schema.ForceInt(),
	LogConfigKey:       schema.String(),
	LogFileKey:         schema.String(),
	TraceEndpointKey:   schema.String(),
	TraceInsecureKey:   schema.Bool(),
}

var configDefaults = schema.Defaults{
	ListenAddressKey:   DefaultListenAddress,
	DatabasePathKey:    schema.Omit,
	PoolsKey:           schema.Omit,
	RemoteTimeoutKey:   DefaultRemoteTimeout,
	MaxLifetimeKey:     time.Duration(0),
	SweepIntervalKey:   DefaultSweepInterval,
	MoveParallelismKey: DefaultMoveParallelism,
	MaxConnectionsKey:  0,
	AdminsKey:          schema.Omit,
	PoolRateLimitKey:   0.0,
	PoolBurstKey:       DefaultPoolBurst,
	LogConfigKey:       DefaultLogConfig,
	LogFileKey:         "",
	TraceEndpointKey:   "",
	TraceInsecureKey:   false,
}

// Config is the validated daemon configuration.
type Config struct {
	// ListenAddress is where the API is served.
	ListenAddress string

	// DatabasePath is the SQLite file, or the dqlite data directory when
	// built with dqlite support.
	DatabasePath string

	// RemoteTimeout bounds every sticky flag call.
	RemoteTimeout time.Duration

	// MaxLifetime caps requested pin lifetimes, zero means no cap.
	MaxLifetime time.Duration

	// SweepInterval is how often expired pins are released.
	SweepInterval time.Duration

	MoveParallelism int

	// MaxConnections limits concurrent API connections, zero means no
	// limit.
	MaxConnections int

	// Admins may extend and release any pin.
	Admins []string

	// Pools maps pool names to the base URL of their sticky flag API.
	Pools map[string]string

	PoolRateLimit float64
	PoolBurst     int

	// LogConfig is a loggo configuration string.
	LogConfig string

	// LogFile is written to instead of stderr when set. It is rotated.
	LogFile string

	// TraceEndpoint is the OTLP gRPC collector spans are exported to.
	// Tracing is disabled when it is empty.
	TraceEndpoint string
	TraceInsecure bool
}

// Validate returns an error if the daemon cannot run with the config.
func (c Config) Validate() error {
	if c.ListenAddress == "" {
		return errors.NotValidf("empty %s", ListenAddressKey)
	}
	if c.DatabasePath == "" {
		return errors.NotValidf("empty %s", DatabasePathKey)
	}
	if c.RemoteTimeout <= 0 {
		return errors.NotValidf("non-positive %s", RemoteTimeoutKey)
	}
	if c.MaxLifetime < 0 {
		return errors.NotValidf("negative %s", MaxLifetimeKey)
	}
	if c.SweepInterval <= 0 {
		return errors.NotValidf("non-positive %s", SweepIntervalKey)
	}
	if c.MoveParallelism <= 0 {
		return errors.NotValidf("non-positive %s", MoveParallelismKey)
	}
	if c.MaxConnections < 0 {
		return errors.NotValidf("negative %s", MaxConnectionsKey)
	}
	if len(c.Pools) == 0 {
		return errors.NotValidf("empty %s", PoolsKey)
	}
	if c.PoolRateLimit < 0 {
		return errors.NotValidf("negative %s", PoolRateLimitKey)
	}
	if c.PoolRateLimit > 0 && c.PoolBurst <= 0 {
		return errors.NotValidf("non-positive %s", PoolBurstKey)
	}
	return nil
}

// Read reads and parses the YAML config file at path.
func Read(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Annotatef(err, "reading config %q", path)
	}
	cfg, err := Parse(data)
	return cfg, errors.Annotatef(err, "parsing config %q", path)
}

// Parse parses YAML config data, filling in defaults for missing keys.
func Parse(data []byte) (Config, error) {
	var attrs map[string]any
	if err := yaml.Unmarshal(data, &attrs); err != nil {
		return Config{}, errors.Trace(err)
	}
	if attrs == nil {
		attrs = make(map[string]any)
	}
	return FromAttrs(attrs)
}

// FromAttrs coerces raw attributes into a validated Config.
func FromAttrs(attrs map[string]any) (Config, error) {
	checker := schema.FieldMap(configFields, configDefaults)
	coerced, err := checker.Coerce(attrs, nil)
	if err != nil {
		return Config{}, errors.Trace(err)
	}
	valid := coerced.(map[string]any)

	cfg := Config{
		ListenAddress:   valid[ListenAddressKey].(string),
		RemoteTimeout:   duration(valid[RemoteTimeoutKey]),
		MaxLifetime:     duration(valid[MaxLifetimeKey]),
		SweepInterval:   duration(valid[SweepIntervalKey]),
		MoveParallelism: valid[MoveParallelismKey].(int),
		MaxConnections:  valid[MaxConnectionsKey].(int),
		PoolBurst:       valid[PoolBurstKey].(int),
		LogConfig:       valid[LogConfigKey].(string),
		LogFile:         valid[LogFileKey].(string),
		TraceEndpoint:   valid[TraceEndpointKey].(string),
		TraceInsecure:   valid[TraceInsecureKey].(bool),
	}
	cfg.DatabasePath, _ = valid[DatabasePathKey].(string)
	switch rate := valid[PoolRateLimitKey].(type) {
	case float64:
		cfg.PoolRateLimit = rate
	case int:
		cfg.PoolRateLimit = float64(rate)
	}
	if admins, ok := valid[AdminsKey].([]any); ok {
		for _, admin := range admins {
			cfg.Admins = append(cfg.Admins, admin.(string))
		}
	}
	if pools, ok := valid[PoolsKey].(map[string]any); ok {
		cfg.Pools = make(map[string]string, len(pools))
		for name, url := range pools {
			cfg.Pools[name] = url.(string)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Trace(err)
	}
	return cfg, nil
}

// duration returns the coerced duration, which is passed through untouched
// when it was not parsed from a string.
func duration(v any) time.Duration {
	switch d := v.(type) {
	case time.Duration:
		return d
	case int64:
		return time.Duration(d)
	}
	return 0
}
