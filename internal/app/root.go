package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kyaoi/webcode/internal/config"
)

// Version is set via ldflags at build time.
var Version = "dev"

type options struct {
	configPath   string
	descriptor   string
	theme        string
	langs        []string
	startIndex   int
	breakpoint   string
	height       string
	root         string
	followResize bool
	concurrency  int
	logLevel     string
	logFormat    string
	logFile      string
}

// Execute runs the command line until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the webcode command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{})
}

func newRootCommand(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "webcode [files...]",
		Short: "Tabbed code and live preview widget",
		Long: `webcode shows a set of source files as tabs next to a rendered
preview of the page they build. In a wide terminal the selected file and
the preview sit side by side; in a narrow one a single panel is shown.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd, args)
			if err != nil {
				return err
			}
			return Run(cmd.Context(), cfg, opts.title())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.DefaultPath, "config file path")
	flags.StringVar(&opts.descriptor, "descriptor", "", "markdown file whose front matter configures the widget")
	flags.StringVar(&opts.theme, "theme", "", "highlighting theme")
	flags.StringSliceVar(&opts.langs, "langs", nil, "languages to highlight")
	flags.IntVar(&opts.startIndex, "start-index", 0, "code tab selected at load")
	flags.StringVar(&opts.breakpoint, "breakpoint", "", "width at or below which one panel is shown (em, px, cols)")
	flags.StringVar(&opts.height, "height", "", "maximum panel height (px, em, rows)")
	flags.StringVar(&opts.root, "root", "", "directory local files are read from")
	flags.BoolVar(&opts.followResize, "follow-resize", false, "re-apply the layout when the terminal crosses the breakpoint")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "files fetched in parallel")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (text, json)")
	flags.StringVar(&opts.logFile, "log-file", "", "log destination (stderr, stdout or a file path)")

	root.AddCommand(
		newServeCommand(opts),
		newCheckCommand(opts),
		newInitCommand(opts),
		newVersionCommand(),
	)
	return root
}

func newServeCommand(opts *options) *cobra.Command {
	var addr string
	var allowAll bool
	cmd := &cobra.Command{
		Use:   "serve [files...]",
		Short: "Serve the widget to browsers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd, args)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("allow-all-origins") {
				cfg.Server.AllowAllOrigins = allowAll
			}
			if !cmd.Flags().Changed("log-file") && cfg.Logging.Output == "discard" {
				cfg.Logging.Output = "stderr"
			}
			return Serve(cmd.Context(), cfg, opts.title())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address")
	cmd.Flags().BoolVar(&allowAll, "allow-all-origins", false, "allow every CORS origin")
	return cmd
}

func newCheckCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check [files...]",
		Short: "Load every file once and report failures",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd, args)
			if err != nil {
				return err
			}
			return Check(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}

func newInitCommand(opts *options) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [files...]",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := Init(opts.configPath, args, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of webcode",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "webcode %s\n", Version)
		},
	}
}

// resolve loads the config layers and applies positional files and the
// flags set on the command line last.
func (o *options) resolve(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.Load(o.configPath, o.descriptor)
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Files = args
	}

	flags := cmd.Flags()
	if flags.Changed("theme") {
		cfg.Theme = o.theme
	}
	if flags.Changed("langs") {
		cfg.Langs = o.langs
	}
	if flags.Changed("start-index") {
		cfg.StartIndex = o.startIndex
	}
	if flags.Changed("breakpoint") {
		cfg.Breakpoint = o.breakpoint
	}
	if flags.Changed("height") {
		cfg.Height = o.height
	}
	if flags.Changed("root") {
		cfg.Root = o.root
	}
	if flags.Changed("follow-resize") {
		cfg.FollowResize = o.followResize
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = o.concurrency
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = o.logFormat
	}
	if flags.Changed("log-file") {
		cfg.Logging.Output = o.logFile
	}
	return cfg, nil
}

// title names the widget after its descriptor, if any.
func (o *options) title() string {
	if o.descriptor == "" {
		return ""
	}
	base := filepath.Base(o.descriptor)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
