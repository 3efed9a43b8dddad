package config

// Config is the widget configuration, corresponding to .webcode.yml. It is
// built once at startup and not changed afterwards.
//
// Width caps the widget width and is empty for the full terminal or page.
// Ratio is the code:preview split in wide mode. CSP restricts the preview
// page, and Loading is the preview iframe's loading attribute.
type Config struct {
	Files        []string      `yaml:"files" koanf:"files"`
	Theme        string        `yaml:"theme" koanf:"theme"`
	Langs        []string      `yaml:"langs" koanf:"langs"`
	StartIndex   int           `yaml:"start_index" koanf:"start_index"`
	Breakpoint   string        `yaml:"breakpoint" koanf:"breakpoint"`
	Height       string        `yaml:"height" koanf:"height"`
	Width        string        `yaml:"width,omitempty" koanf:"width"`
	Ratio        string        `yaml:"ratio" koanf:"ratio"`
	CSP          string        `yaml:"csp,omitempty" koanf:"csp"`
	Loading      string        `yaml:"loading,omitempty" koanf:"loading"`
	PreviewTags  []string      `yaml:"preview_tags" koanf:"preview_tags"`
	FollowResize bool          `yaml:"follow_resize" koanf:"follow_resize"`
	Root         string        `yaml:"root" koanf:"root"`
	Concurrency  int           `yaml:"concurrency" koanf:"concurrency"`
	Logging      LoggingConfig `yaml:"logging" koanf:"logging"`
	Server       ServerConfig  `yaml:"server" koanf:"server"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
	// Output is "stderr", "stdout", "discard" or a file path.
	Output string `yaml:"output" koanf:"output"`
}

// ServerConfig holds settings for `webcode serve`.
type ServerConfig struct {
	Addr            string `yaml:"addr" koanf:"addr"`
	AllowAllOrigins bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}
