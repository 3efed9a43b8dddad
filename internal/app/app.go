package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/kyaoi/webcode/internal/config"
	"github.com/kyaoi/webcode/internal/embed"
	"github.com/kyaoi/webcode/internal/highlight"
	"github.com/kyaoi/webcode/internal/telemetry"
	"github.com/kyaoi/webcode/internal/ui"
	"github.com/kyaoi/webcode/internal/web"
)

// Run executes the Bubble Tea program for the widget.
func Run(ctx context.Context, cfg *config.Config, title string) error {
	rt, err := newRuntime(cfg, title)
	if err != nil {
		return err
	}
	defer rt.Close()

	shutdown, err := startTelemetry(ctx)
	if err != nil {
		return err
	}
	defer shutdown()

	return runProgram(ctx, rt.uiState())
}

func runProgram(ctx context.Context, state ui.State) error {
	model := ui.NewModel(state)
	defer model.Close()

	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Serve hosts the widget over HTTP until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config, title string) error {
	rt, err := newRuntime(cfg, title)
	if err != nil {
		return err
	}
	defer rt.Close()

	shutdown, err := startTelemetry(ctx)
	if err != nil {
		return err
	}
	defer shutdown()

	srv := web.New(web.Config{
		Addr:       cfg.Server.Addr,
		AllowAll:   cfg.Server.AllowAllOrigins,
		Theme:      cfg.Theme,
		StartIndex: cfg.StartIndex,
		Breakpoint: rt.breakpoint,
		Height:     rt.height,
		Width:      rt.width,
		Ratio:      rt.ratio,
		CSP:        cfg.CSP,
		Loading:    cfg.Loading,
		Title:      rt.title,
	}, func(ctx context.Context) (*embed.LoadReport, error) {
		return rt.load(ctx, highlight.FormatHTML)
	}, rt.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff6b6b"))
)

// Check loads every file once and reports the outcome per file. It fails
// when no file loads.
func Check(ctx context.Context, cfg *config.Config, out io.Writer) error {
	rt, err := newRuntime(cfg, "")
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := rt.load(ctx, highlight.FormatTerminal256)
	if err != nil {
		return err
	}
	for _, res := range report.Results {
		if res.OK() {
			fmt.Fprintf(out, "%s %s (%s, %d bytes)\n", okStyle.Render("ok  "), res.Ref, res.Record.Tag, len(res.Record.Raw))
			continue
		}
		fmt.Fprintf(out, "%s %s: %v\n", failStyle.Render("fail"), res.Ref, res.Err)
	}

	preview := report.PreviewSource
	if preview == "" {
		preview = "(none)"
	}
	fmt.Fprintf(out, "preview: %s\n", preview)

	if _, err := embed.Initialize(report, cfg.StartIndex); err != nil {
		return err
	}
	if failed := report.Failed(); len(failed) > 0 {
		fmt.Fprintf(out, "%d of %d files failed\n", len(failed), len(report.Results))
	}
	return nil
}

// Init writes a starter configuration listing files.
func Init(path string, files []string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	cfg := config.DefaultConfig()
	if len(files) > 0 {
		cfg.Files = files
	} else {
		cfg.Files = []string{"index.html", "*.css", "*.js"}
	}
	return cfg.Save(path)
}

func startTelemetry(ctx context.Context) (func(), error) {
	provider, err := telemetry.Setup(ctx)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
	}, nil
}
