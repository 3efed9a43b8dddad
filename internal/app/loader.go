package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kyaoi/webcode/internal/config"
	"github.com/kyaoi/webcode/internal/embed"
	"github.com/kyaoi/webcode/internal/highlight"
	"github.com/kyaoi/webcode/internal/logging"
	"github.com/kyaoi/webcode/internal/source"
	"github.com/kyaoi/webcode/internal/ui"
)

// runtime holds the components built from one configuration.
type runtime struct {
	cfg        *config.Config
	logger     *slog.Logger
	closer     io.Closer
	router     *source.Router
	refs       []string
	breakpoint embed.Breakpoint
	height     embed.Length
	width      embed.Length
	ratio      embed.Ratio
	title      string
}

// newRuntime validates the configuration and prepares logging and sources.
func newRuntime(cfg *config.Config, title string) (*runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	breakpoint, err := cfg.BreakpointValue()
	if err != nil {
		return nil, err
	}
	height, err := cfg.HeightValue()
	if err != nil {
		return nil, err
	}
	width, err := cfg.WidthValue()
	if err != nil {
		return nil, err
	}
	ratio, err := cfg.RatioValue()
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.New(cfg.Logging, Version)
	if err != nil {
		return nil, fmt.Errorf("opening log output: %w", err)
	}

	router := source.NewRouter(cfg.Root)
	refs, err := router.Expand(cfg.Files)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("expanding files: %w", err)
	}
	logger.Debug("files resolved", "root", router.Local.Root(), "patterns", cfg.Files, "files", refs)

	if title == "" {
		title = filepath.Base(router.Local.Root())
	}
	return &runtime{
		cfg:        cfg,
		logger:     logger,
		closer:     closer,
		router:     router,
		refs:       refs,
		breakpoint: breakpoint,
		height:     height,
		width:      width,
		ratio:      ratio,
		title:      title,
	}, nil
}

func (rt *runtime) Close() error {
	return rt.closer.Close()
}

func (rt *runtime) highlightConfig() embed.HighlightConfig {
	if !highlight.KnownTheme(rt.cfg.Theme) {
		rt.logger.Warn("unknown theme, using fallback style", "theme", rt.cfg.Theme)
	}
	return embed.HighlightConfig{Theme: rt.cfg.Theme}
}

func (rt *runtime) loader(format highlight.Format) *embed.Loader {
	return embed.NewLoader(
		rt.router,
		highlight.New(format, rt.cfg.Langs),
		embed.WithPreviewTags(rt.cfg.PreviewTags),
		embed.WithConcurrency(rt.cfg.Concurrency),
		embed.WithLogger(rt.logger),
	)
}

// load fetches every file once in the given output format.
func (rt *runtime) load(ctx context.Context, format highlight.Format) (*embed.LoadReport, error) {
	return rt.loader(format).Load(ctx, rt.refs, rt.highlightConfig())
}

// uiState prepares the terminal model. Files are loaded by the model itself
// so quitting early cancels the fetches.
func (rt *runtime) uiState() ui.State {
	loader := rt.loader(terminalFormat())
	hc := rt.highlightConfig()
	return ui.State{
		Load: func(ctx context.Context) (*embed.WidgetState, error) {
			report, err := loader.Load(ctx, rt.refs, hc)
			if err != nil {
				return nil, err
			}
			return embed.Initialize(report, rt.cfg.StartIndex)
		},
		Reload: func(ctx context.Context, ref string) (string, string, error) {
			res := loader.LoadFile(ctx, ref, hc)
			if !res.OK() {
				return "", "", res.Err
			}
			return res.Record.Raw, res.Record.Markup, nil
		},
		Watchable:    rt.router.Watchable,
		Breakpoint:   rt.breakpoint,
		Height:       rt.height,
		Width:        rt.width,
		Ratio:        rt.ratio,
		FollowResize: rt.cfg.FollowResize,
		Title:        rt.title,
		Logger:       rt.logger,
	}
}

// terminalFormat picks true color output when the terminal advertises it.
func terminalFormat() highlight.Format {
	switch strings.ToLower(os.Getenv("COLORTERM")) {
	case "truecolor", "24bit":
		return highlight.FormatTrueColor
	default:
		return highlight.FormatTerminal256
	}
}
