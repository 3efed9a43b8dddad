package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/kyaoi/webcode/internal/embed"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nested keys: WEBCODE_SERVER__ADDR sets server.addr.
const EnvPrefix = "WEBCODE_"

// listKeys are split on commas when they come from the environment.
var listKeys = map[string]bool{
	"files":        true,
	"langs":        true,
	"preview_tags": true,
}

// Load reads configuration from the given YAML file, overlays environment
// variable overrides (WEBCODE_*), then the front matter of the descriptor
// file if one is given. A missing config file is not an error; a missing
// descriptor is.
func Load(path, descriptor string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if descriptor != "" {
		if err := loadDescriptor(k, descriptor); err != nil {
			return nil, err
		}
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

func envKey(key, value string) (string, any) {
	name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	name = strings.ReplaceAll(name, "__", ".")
	if listKeys[name] {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return name, items
	}
	return name, value
}

// loadDescriptor merges the YAML front matter of a markdown file.
func loadDescriptor(k *koanf.Koanf, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening descriptor %s: %w", path, err)
	}
	defer f.Close()

	var matter map[string]any
	if _, err := frontmatter.Parse(f, &matter); err != nil {
		return fmt.Errorf("parsing descriptor %s: %w", path, err)
	}
	for key, value := range matter {
		if err := k.Set(key, stringKeys(value)); err != nil {
			return fmt.Errorf("descriptor %s: %s: %w", path, key, err)
		}
	}
	return nil
}

// stringKeys converts the map[any]any values produced by the front matter
// decoder into map[string]any so koanf can merge them.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = stringKeys(val)
		}
		return m
	case map[string]any:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = stringKeys(val)
		}
		return t
	default:
		return v
	}
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validFormats = map[string]bool{
	"text": true,
	"json": true,
}

var validLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

var validLoading = map[string]bool{
	"":      true,
	"lazy":  true,
	"eager": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if len(c.Files) == 0 {
		return fmt.Errorf("files is required")
	}
	for i, f := range c.Files {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("files[%d] is empty", i)
		}
	}
	if _, err := c.BreakpointValue(); err != nil {
		return fmt.Errorf("invalid breakpoint %q: %w", c.Breakpoint, err)
	}
	if _, err := c.HeightValue(); err != nil {
		return fmt.Errorf("invalid height %q: %w", c.Height, err)
	}
	if _, err := c.WidthValue(); err != nil {
		return fmt.Errorf("invalid width %q: %w", c.Width, err)
	}
	if _, err := c.RatioValue(); err != nil {
		return fmt.Errorf("invalid ratio: %w", err)
	}
	if !validLoading[strings.ToLower(c.Loading)] {
		return fmt.Errorf("invalid loading %q: must be lazy or eager", c.Loading)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	if c.Logging.Format != "" && !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid logging.format %q: must be text or json", c.Logging.Format)
	}
	if c.Logging.Level != "" && !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	return nil
}

// BreakpointValue parses the breakpoint option.
func (c *Config) BreakpointValue() (embed.Breakpoint, error) {
	return embed.NewBreakpoint(c.Breakpoint)
}

// HeightValue parses the height option.
func (c *Config) HeightValue() (embed.Length, error) {
	return embed.ParseLength(c.Height)
}

// WidthValue parses the width option. The zero Length means no cap.
func (c *Config) WidthValue() (embed.Length, error) {
	if strings.TrimSpace(c.Width) == "" {
		return embed.Length{}, nil
	}
	return embed.ParseLength(c.Width)
}

// RatioValue parses the ratio option, defaulting to an even split.
func (c *Config) RatioValue() (embed.Ratio, error) {
	if strings.TrimSpace(c.Ratio) == "" {
		return embed.ParseRatio(embed.DefaultRatio)
	}
	return embed.ParseRatio(c.Ratio)
}
