// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package devdrv

import "time"

// DefaultOpenTimeout is the open-probe deadline a [Config] uses when
// neither the caller nor an [Opener.OpenTimeout] implementation
// supplies one, grounded on original_source/src/default.rs's default
// open-timeout constant: a probe with no bound at all would never
// resolve.
const DefaultOpenTimeout = 5 * time.Second

// DefaultChannelMultiplier is the multiple of the multi-supervisor's
// target size used to size its bounded event queue (~2T per spec §4.5).
const DefaultChannelMultiplier = 2

// channelMultiplier is DefaultChannelMultiplier, kept as an unexported
// alias so multi.go reads naturally without importing a package constant.
const channelMultiplier = DefaultChannelMultiplier

// Config configures a [Single] or [Multi] supervisor's construction.
// Mirrors the teacher's fluent Options/Builder pair
// (New(capacity).SingleProducer()...): a required-arguments
// constructor followed by chained With* methods for everything optional.
type Config struct {
	openTimeout time.Duration
	log         *Logger
}

// NewConfig creates a supervisor configuration with the given
// open-probe timeout, used as the fallback deadline for any candidate
// whose [Opener.OpenTimeout] returns zero. openTimeout itself may be
// zero to take [DefaultOpenTimeout].
func NewConfig(openTimeout time.Duration) *Config {
	if openTimeout <= 0 {
		openTimeout = DefaultOpenTimeout
	}
	return &Config{openTimeout: openTimeout}
}

// WithLogger attaches a logger for supervisor lifecycle diagnostics.
// A nil logger (the default) disables logging.
func (c *Config) WithLogger(log *Logger) *Config {
	c.log = log
	return c
}

// OpenTimeout returns the configured fallback open-probe deadline.
func (c *Config) OpenTimeout() time.Duration { return c.openTimeout }

// Logger returns the configured logger, possibly nil.
func (c *Config) Logger() *Logger { return c.log }

// resolveConfig unpacks a possibly-nil Config into the values
// [Single] and [Multi] construction need, applying every default a
// nil Config would otherwise have left unset.
func resolveConfig(cfg *Config) (log *Logger, openTimeout time.Duration) {
	openTimeout = DefaultOpenTimeout
	if cfg != nil {
		log = cfg.Logger()
		if cfg.OpenTimeout() > 0 {
			openTimeout = cfg.OpenTimeout()
		}
	}
	return log, openTimeout
}
