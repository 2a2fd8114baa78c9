package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Load reads a config file, choosing the decoder from its extension
// (.toml or .hcl), then fills defaults and validates.
func Load(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return LoadTOML(path)
	case ".hcl":
		return LoadHCL(path)
	default:
		return Config{}, fmt.Errorf("%w: unsupported config extension %q", ErrInvalid, filepath.Ext(path))
	}
}

// LoadTOML decodes a TOML config file.
func LoadTOML(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown keys in %s: %v", ErrInvalid, path, undecoded)
	}
	return cfg.Normalize()
}

// hclConfig mirrors Config with gohcl tags; HCL attributes are optional.
type hclConfig struct {
	MaxMixins           *int     `hcl:"max_mixins,optional"`
	MaxMessages         *int     `hcl:"max_messages,optional"`
	ThreadSafeMutations *bool    `hcl:"thread_safe_mutations,optional"`
	Identity            *string  `hcl:"identity,optional"`
	AdditionalMetrics   *bool    `hcl:"additional_metrics,optional"`
	UnicastPolicy       *string  `hcl:"unicast_policy,optional"`
	Plugins             []string `hcl:"plugins,optional"`
	Log                 *hclLog  `hcl:"log,block"`
}

type hclLog struct {
	Level     *string `hcl:"level,optional"`
	NoColor   *bool   `hcl:"no_color,optional"`
	Timestamp *bool   `hcl:"timestamp,optional"`
}

// LoadHCL decodes an HCL config file.
func LoadHCL(path string) (Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse HCL config %s: %s", path, diags.Error())
	}

	var raw hclConfig
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to decode HCL config %s: %s", path, diags.Error())
	}
	return raw.config().Normalize()
}

func (h hclConfig) config() Config {
	var cfg Config
	if h.MaxMixins != nil {
		cfg.MaxMixins = *h.MaxMixins
	}
	if h.MaxMessages != nil {
		cfg.MaxMessages = *h.MaxMessages
	}
	if h.ThreadSafeMutations != nil {
		cfg.ThreadSafeMutations = *h.ThreadSafeMutations
	}
	if h.Identity != nil {
		cfg.Identity = Identity(*h.Identity)
	}
	if h.AdditionalMetrics != nil {
		cfg.AdditionalMetrics = *h.AdditionalMetrics
	}
	if h.UnicastPolicy != nil {
		cfg.UnicastPolicy = UnicastPolicy(*h.UnicastPolicy)
	}
	cfg.Plugins = h.Plugins
	if h.Log != nil {
		if h.Log.Level != nil {
			cfg.Log.Level = *h.Log.Level
		}
		if h.Log.NoColor != nil {
			cfg.Log.NoColor = *h.Log.NoColor
		}
		cfg.Log.Timestamp = h.Log.Timestamp
	}
	return cfg
}
