// Package config holds the configuration surface consumed by the mixin
// runtime: identifier bounds, the identity scheme, mutation locking,
// metrics and the unicast policy. Configs can be loaded from TOML or HCL.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is returned by Validate for out-of-range settings.
var ErrInvalid = errors.New("config: invalid")

// Identity selects how mixins are keyed across modules.
type Identity string

const (
	// IdentityName keys mixins by their canonical declared name.
	IdentityName Identity = "name"
	// IdentityType keys mixins by their Go reflect.Type.
	IdentityType Identity = "type"
)

// UnicastPolicy decides what a unicast does with several top-priority implementers.
type UnicastPolicy string

const (
	// PolicyStrict fails with an ambiguity error.
	PolicyStrict UnicastPolicy = "strict"
	// PolicyFirstMatch calls the earliest attached implementer.
	PolicyFirstMatch UnicastPolicy = "first"
)

const (
	DefaultMaxMixins   = 256
	DefaultMaxMessages = 512

	// Identifiers are uint32 with the all-ones value reserved.
	maxIdentifiers = 1 << 20
)

// Config is the runtime configuration.
type Config struct {
	MaxMixins           int           `toml:"max_mixins"`
	MaxMessages         int           `toml:"max_messages"`
	ThreadSafeMutations bool          `toml:"thread_safe_mutations"`
	Identity            Identity      `toml:"identity"`
	AdditionalMetrics   bool          `toml:"additional_metrics"`
	UnicastPolicy       UnicastPolicy `toml:"unicast_policy"`
	Plugins             []string      `toml:"plugins"`
	Log                 LogConfig     `toml:"log"`
}

// LogConfig configures the CLI logger. The runtime packages only consume it
// through internal/logging.
type LogConfig struct {
	Level     string `toml:"level"`
	NoColor   bool   `toml:"no_color"`
	Timestamp *bool  `toml:"timestamp"`
}

// Default returns the configuration used when none is supplied.
func Default() Config {
	return Config{
		MaxMixins:     DefaultMaxMixins,
		MaxMessages:   DefaultMaxMessages,
		Identity:      IdentityName,
		UnicastPolicy: PolicyStrict,
		Log:           LogConfig{Level: "info"},
	}
}

// withDefaults fills zero values from Default.
func (c Config) withDefaults() Config {
	d := Default()
	if c.MaxMixins == 0 {
		c.MaxMixins = d.MaxMixins
	}
	if c.MaxMessages == 0 {
		c.MaxMessages = d.MaxMessages
	}
	if c.Identity == "" {
		c.Identity = d.Identity
	}
	if c.UnicastPolicy == "" {
		c.UnicastPolicy = d.UnicastPolicy
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = d.Log.Level
	}
	return c
}

// Normalize fills defaults and validates.
func (c Config) Normalize() (Config, error) {
	c = c.withDefaults()
	c.Identity = Identity(strings.ToLower(strings.TrimSpace(string(c.Identity))))
	c.UnicastPolicy = UnicastPolicy(strings.ToLower(strings.TrimSpace(string(c.UnicastPolicy))))
	if err := Validate(c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks bounds and enumerations.
func Validate(c Config) error {
	if c.MaxMixins < 1 || c.MaxMixins > maxIdentifiers {
		return fmt.Errorf("%w: max_mixins %d out of range [1, %d]", ErrInvalid, c.MaxMixins, maxIdentifiers)
	}
	if c.MaxMessages < 1 || c.MaxMessages > maxIdentifiers {
		return fmt.Errorf("%w: max_messages %d out of range [1, %d]", ErrInvalid, c.MaxMessages, maxIdentifiers)
	}
	switch c.Identity {
	case IdentityName, IdentityType:
	default:
		return fmt.Errorf("%w: identity %q (want %q or %q)", ErrInvalid, c.Identity, IdentityName, IdentityType)
	}
	switch c.UnicastPolicy {
	case PolicyStrict, PolicyFirstMatch:
	default:
		return fmt.Errorf("%w: unicast_policy %q (want %q or %q)", ErrInvalid, c.UnicastPolicy, PolicyStrict, PolicyFirstMatch)
	}
	for i, p := range c.Plugins {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: plugins[%d] is empty", ErrInvalid, i)
		}
	}
	return nil
}
