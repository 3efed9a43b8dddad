package ui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyaoi/webcode/internal/embed"
)

const (
	htmlID    embed.PanelID = 0
	cssID     embed.PanelID = 1
	jsID      embed.PanelID = 2
	previewID embed.PanelID = 3
)

func testReport() *embed.LoadReport {
	record := func(ref, tag, raw string) embed.Result {
		return embed.Result{Ref: ref, Record: &embed.ContentRecord{Ref: ref, Tag: tag, Raw: raw, Markup: raw}}
	}
	return &embed.LoadReport{
		Results: []embed.Result{
			record("index.html", "html", "<h1>Hello widget</h1>"),
			record("style.css", "css", "h1 { color: red; }"),
			record("app.js", "js", "console.log(1)"),
		},
		PreviewSource: "index.html",
	}
}

func testWidget(t *testing.T) *embed.WidgetState {
	t.Helper()
	w, err := embed.Initialize(testReport(), 0)
	require.NoError(t, err)
	return w
}

func newTestModel(t *testing.T, state State) *Model {
	t.Helper()
	state.Breakpoint = embed.Breakpoint{Max: embed.MustParseLength("39.9375em")}
	m := NewModel(state)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func press(m *Model, keys ...string) {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "shift+tab":
			msg = tea.KeyMsg{Type: tea.KeyShiftTab}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m.Update(msg)
	}
}

func resize(m *Model, width, height int) {
	m.Update(tea.WindowSizeMsg{Width: width, Height: height})
}

func TestWideLayoutShowsCodeAndPreview(t *testing.T) {
	m := newTestModel(t, State{Widget: testWidget(t)})
	resize(m, 120, 30)

	assert.Equal(t, []embed.PanelID{htmlID, previewID}, m.Widget().VisiblePanels())
	assert.Equal(t, embed.LayoutWide, m.Widget().Mode)
	assert.Equal(t, 60, m.codeVP.Width)
	assert.Equal(t, 60, m.previewVP.Width)

	view := ansi.Strip(m.View())
	assert.Contains(t, view, "HTML")
	assert.Contains(t, view, "CSS")
	assert.Contains(t, view, "Result")
	assert.Contains(t, view, "Hello widget")
}

func TestNarrowLayoutShowsSinglePanel(t *testing.T) {
	m := newTestModel(t, State{Widget: testWidget(t)})
	resize(m, 79, 30)

	assert.Equal(t, embed.LayoutNarrow, m.Widget().Mode)
	assert.Equal(t, []embed.PanelID{htmlID}, m.Widget().VisiblePanels())
	assert.Equal(t, 79, m.codeVP.Width)
}

func TestBreakpointBoundary(t *testing.T) {
	m := newTestModel(t, State{Widget: testWidget(t)})
	resize(m, 80, 30)
	assert.Equal(t, embed.LayoutWide, m.Widget().Mode)
}

func TestKeysActAsClicksWide(t *testing.T) {
	m := newTestModel(t, State{Widget: testWidget(t)})
	resize(m, 120, 30)

	press(m, "2")
	assert.Equal(t, []embed.PanelID{cssID, previewID}, m.Widget().VisiblePanels())
	assert.Equal(t, 1, m.Widget().ActiveCodeIndex())

	press(m, "p")
	assert.Equal(t, []embed.PanelID{cssID}, m.Widget().VisiblePanels())
	assert.Equal(t, 120, m.codeVP.Width)

	press(m, "r")
	assert.Equal(t, []embed.PanelID{cssID, previewID}, m.Widget().VisiblePanels())

	// out of range tab number is ignored
	press(m, "9")
	assert.Equal(t, []embed.PanelID{cssID, previewID}, m.Widget().VisiblePanels())
}

func TestKeysActAsClicksNarrow(t *testing.T) {
	m := newTestModel(t, State{Widget: testWidget(t)})
	resize(m, 60, 30)

	press(m, "p")
	assert.Equal(t, []embed.PanelID{previewID}, m.Widget().VisiblePanels())
	assert.True(t, m.focusPreview)

	press(m, "3")
	assert.Equal(t, []embed.PanelID{jsID}, m.Widget().VisiblePanels())
	assert.False(t, m.focusPreview)

	// the only visible panel cannot be hidden
	press(m, "3")
	assert.Equal(t, []embed.PanelID{jsID}, m.Widget().VisiblePanels())
}

func TestClickAfterShrinkCollapsesLayout(t *testing.T) {
	m := newTestModel(t, State{Widget: testWidget(t)})
	resize(m, 120, 30)
	resize(m, 60, 30)
	require.Equal(t, []embed.PanelID{htmlID, previewID}, m.Widget().VisiblePanels())

	press(m, "p")
	assert.Equal(t, []embed.PanelID{previewID}, m.Widget().VisiblePanels())
	assert.Equal(t, embed.LayoutNarrow, m.Widget().Mode)
	assert.Equal(t, 60, m.previewVP.Width)
}

func TestRatioAndWidthCap(t *testing.T) {
	m := newTestModel(t, State{
		Widget: testWidget(t),
		Width:  embed.MustParseLength("80cols"),
		Ratio:  embed.Ratio{Code: 2, Preview: 1},
	})
	resize(m, 120, 30)

	assert.Equal(t, embed.LayoutWide, m.Widget().Mode, "the mode follows the terminal, not the cap")
	assert.Equal(t, 53, m.codeVP.Width)
	assert.Equal(t, 27, m.previewVP.Width)

	press(m, "p")
	assert.Equal(t, 80, m.codeVP.Width)
}

func TestTabCyclesCodePanels(t *testing.T) {
	m := newTestModel(t, State{Widget: testWidget(t)})
	resize(m, 120, 30)

	press(m, "tab")
	assert.Equal(t, 1, m.Widget().ActiveCodeIndex())
	press(m, "tab", "tab")
	assert.Equal(t, 0, m.Widget().ActiveCodeIndex())
	press(m, "shift+tab")
	assert.Equal(t, 2, m.Widget().ActiveCodeIndex())
	assert.Equal(t, []embed.PanelID{jsID, previewID}, m.Widget().VisiblePanels())
}

func TestModeFixedAfterLoad(t *testing.T) {
	m := newTestModel(t, State{Widget: testWidget(t)})
	resize(m, 120, 30)
	resize(m, 60, 30)

	// visibility keeps the wide layout until the next click
	assert.Equal(t, []embed.PanelID{htmlID, previewID}, m.Widget().VisiblePanels())

	// clicks use the width at the time of the click
	press(m, "2")
	assert.Equal(t, []embed.PanelID{cssID}, m.Widget().VisiblePanels())
	assert.Equal(t, embed.LayoutNarrow, m.Widget().Mode)
}

func TestFollowResize(t *testing.T) {
	m := newTestModel(t, State{Widget: testWidget(t), FollowResize: true})
	resize(m, 120, 30)
	resize(m, 60, 30)
	assert.Equal(t, []embed.PanelID{htmlID}, m.Widget().VisiblePanels())

	resize(m, 100, 30)
	assert.Equal(t, []embed.PanelID{htmlID, previewID}, m.Widget().VisiblePanels())
}

func TestHeightCapsBody(t *testing.T) {
	m := newTestModel(t, State{Widget: testWidget(t), Height: embed.MustParseLength("160px")})
	resize(m, 120, 40)
	assert.Equal(t, 10, m.codeVP.Height)
}

func TestAsyncLoad(t *testing.T) {
	m := newTestModel(t, State{
		Load: func(ctx context.Context) (*embed.WidgetState, error) {
			return embed.Initialize(testReport(), 1)
		},
	})
	resize(m, 120, 30)
	assert.Contains(t, m.View(), "Loading")

	cmd := m.Init()
	require.NotNil(t, cmd)
	m.Update(cmd())

	require.NotNil(t, m.Widget())
	assert.Equal(t, []embed.PanelID{cssID, previewID}, m.Widget().VisiblePanels())
}

func TestAsyncLoadFailure(t *testing.T) {
	m := newTestModel(t, State{
		Load: func(ctx context.Context) (*embed.WidgetState, error) {
			return nil, embed.ErrEmptyPanelSet
		},
	})
	resize(m, 120, 30)
	m.Update(m.Init()())

	assert.Nil(t, m.Widget())
	assert.Contains(t, ansi.Strip(m.View()), "cannot render widget")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestQuitCancelsLoad(t *testing.T) {
	started := make(chan struct{})
	m := newTestModel(t, State{
		Load: func(ctx context.Context) (*embed.WidgetState, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	cmd := m.Init()
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	<-started

	press(m, "q")
	m.Update(<-done)
	assert.Nil(t, m.Widget())
	assert.Nil(t, m.fatal)
}

func TestReloadKeepsVisibility(t *testing.T) {
	m := newTestModel(t, State{
		Widget: testWidget(t),
		Reload: func(ctx context.Context, ref string) (string, string, error) {
			return "<h1>Changed</h1>", "<h1>Changed</h1>", nil
		},
	})
	resize(m, 120, 30)
	before := m.Widget().VisiblePanels()

	cmd := m.reloadPanel("index.html")
	require.NotNil(t, cmd)
	p, _ := m.Widget().PanelByRef("index.html")
	assert.NotEqual(t, "<h1>Changed</h1>", p.Raw, "content changes only when the reload message arrives")

	m.Update(cmd())

	p, ok := m.Widget().PanelByRef("index.html")
	require.True(t, ok)
	assert.Equal(t, "<h1>Changed</h1>", p.Raw)
	assert.Equal(t, before, m.Widget().VisiblePanels())
	assert.Contains(t, ansi.Strip(m.View()), "Changed")
}

func TestReloadFailureShowsError(t *testing.T) {
	m := newTestModel(t, State{
		Widget: testWidget(t),
		Reload: func(ctx context.Context, ref string) (string, string, error) {
			return "", "", errors.New("file vanished")
		},
	})
	resize(m, 120, 30)

	m.Update(m.reloadPanel("style.css")())
	assert.Contains(t, ansi.Strip(m.View()), "file vanished")
	assert.Equal(t, []embed.PanelID{htmlID, previewID}, m.Widget().VisiblePanels())
}

func TestHelpOverlay(t *testing.T) {
	m := newTestModel(t, State{Widget: testWidget(t)})
	resize(m, 120, 30)

	press(m, "?")
	assert.True(t, m.showHelp)
	assert.Contains(t, ansi.Strip(m.View()), "code tab")

	// keys do not reach the widget while help is open
	press(m, "2")
	assert.Equal(t, 0, m.Widget().ActiveCodeIndex())

	press(m, "esc")
	assert.False(t, m.showHelp)
}

func TestScrollFollowsFocus(t *testing.T) {
	m := newTestModel(t, State{Widget: testWidget(t)})
	resize(m, 120, 30)

	assert.Same(t, &m.codeVP, m.focusedViewport())
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Same(t, &m.previewVP, m.focusedViewport())
}
