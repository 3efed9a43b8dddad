package config

import (
	"slices"

	"github.com/kyaoi/webcode/internal/embed"
	"github.com/kyaoi/webcode/internal/highlight"
)

const (
	// DefaultPath is the config file looked up in the working directory.
	DefaultPath       = ".webcode.yml"
	DefaultBreakpoint = "39.9375em"
	DefaultHeight     = "500px"
	DefaultAddr       = "127.0.0.1:8080"
)

// DefaultConfig returns a Config with the documented defaults. Files is left
// empty; it is required.
func DefaultConfig() *Config {
	return &Config{
		Theme:       highlight.DefaultTheme,
		Langs:       slices.Clone(highlight.DefaultLangs),
		StartIndex:  0,
		Breakpoint:  DefaultBreakpoint,
		Height:      DefaultHeight,
		Ratio:       embed.DefaultRatio,
		PreviewTags: slices.Clone(embed.DefaultPreviewTags),
		Root:        ".",
		Concurrency: 4,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "discard",
		},
		Server: ServerConfig{
			Addr: DefaultAddr,
		},
	}
}
