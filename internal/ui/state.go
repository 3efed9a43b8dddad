package ui

import (
	"context"
	"log/slog"

	"github.com/kyaoi/webcode/internal/embed"
)

// LoadFunc fetches and highlights the widget files.
type LoadFunc func(ctx context.Context) (*embed.WidgetState, error)

// ReloadFunc fetches and highlights a single file again.
type ReloadFunc func(ctx context.Context, ref string) (raw, markup string, err error)

// State contains the data required to bootstrap the Bubble Tea model.
type State struct {
	// Widget is used as is when set; otherwise Load runs from Init.
	Widget *embed.WidgetState
	Load   LoadFunc
	Reload ReloadFunc
	// Watchable maps a ref to a local path for live reload.
	Watchable func(ref string) (string, bool)

	// Width caps the columns used; zero uses the whole terminal. Ratio
	// splits them between code and preview in wide mode.
	Breakpoint   embed.Breakpoint
	Height       embed.Length
	Width        embed.Length
	Ratio        embed.Ratio
	FollowResize bool
	Title        string
	Logger       *slog.Logger
}
