package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/fsnotify/fsnotify"
	zone "github.com/lrstanley/bubblezone"

	"github.com/kyaoi/webcode/internal/embed"
	"github.com/kyaoi/webcode/internal/logging"
	"github.com/kyaoi/webcode/internal/preview"
)

const (
	tabBarHeight  = 1
	footerHeight  = 1
	maxLabelWidth = 24
	noPanel       = embed.PanelID(-1)
)

var (
	blurBorderColor  = lipgloss.Color("#3b4261")
	focusBorderColor = lipgloss.Color("#7aa2f7")
	tabStyle         = lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(lipgloss.Color("#a9b1d6")).
				Background(lipgloss.Color("#1f2335"))
	tabVisibleStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("#1a1b26")).
			Background(lipgloss.Color("#7aa2f7")).
			Bold(true)
	tabActiveStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("#c0caf5")).
			Background(lipgloss.Color("#283457")).
			Underline(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff6b6b"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
	helpBoxStyle = lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7aa2f7")).
			Background(lipgloss.Color("#1f2335"))
)

// Model implements the Bubble Tea program hosting one widget.
type Model struct {
	ctx       context.Context
	cancel    context.CancelFunc
	load      LoadFunc
	reload    ReloadFunc
	watchable func(ref string) (string, bool)
	logger    *slog.Logger

	widget       *embed.WidgetState
	breakpoint   embed.Breakpoint
	maxRows      int
	maxCols      int
	ratio        embed.Ratio
	followResize bool
	title        string
	reconciled   bool
	fatal        error
	err          error

	codeVP       viewport.Model
	previewVP    viewport.Model
	shownCode    embed.PanelID
	previewWidth int
	focusPreview bool

	keys       keyMap
	help       help.Model
	showHelp   bool
	pendingKey string
	width      int
	height     int

	watcher   *fsnotify.Watcher
	watchChan chan tea.Msg
	watchDirs map[string]bool
	watched   map[string]string
}

type loadedMsg struct {
	widget *embed.WidgetState
	err    error
}

// NewModel constructs the widget model with the provided initial state.
func NewModel(state State) *Model {
	zone.NewGlobal()

	codeVP := viewport.New(0, 0)
	codeVP.Style = panelStyle(focusBorderColor)
	codeVP.SetHorizontalStep(2)

	previewVP := viewport.New(0, 0)
	previewVP.Style = panelStyle(blurBorderColor)

	logger := state.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Model{
		ctx:          ctx,
		cancel:       cancel,
		load:         state.Load,
		reload:       state.Reload,
		watchable:    state.Watchable,
		logger:       logger,
		widget:       state.Widget,
		breakpoint:   state.Breakpoint,
		maxRows:      state.Height.Rows(),
		maxCols:      state.Width.Columns(),
		ratio:        state.Ratio,
		followResize: state.FollowResize,
		title:        state.Title,
		codeVP:       codeVP,
		previewVP:    previewVP,
		shownCode:    noPanel,
		previewWidth: -1,
		keys:         defaultKeyMap(),
		help:         help.New(),
		watchDirs:    make(map[string]bool),
		watched:      make(map[string]string),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.widget != nil {
		return m.watchPanels()
	}
	if m.load == nil {
		return nil
	}
	load, ctx := m.load, m.ctx
	return func() tea.Msg {
		w, err := load(ctx)
		return loadedMsg{widget: w, err: err}
	}
}

// Close stops any pending load and the file watcher.
func (m *Model) Close() error {
	m.cancel()
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}

// Widget returns the hosted panel state, nil while loading.
func (m *Model) Widget() *embed.WidgetState {
	return m.widget
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.showHelp {
		helpContent := lipgloss.JoinVertical(lipgloss.Left,
			"Help (? or Esc to close)",
			"",
			m.help.FullHelpView(m.keys.FullHelp()),
		)
		helpOverlay := helpBoxStyle.Render(helpContent)
		if m.width > 0 && m.height > 0 {
			return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, helpOverlay)
		}
		return helpOverlay
	}

	if m.fatal != nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			errorStyle.Render(fmt.Sprintf("cannot render widget: %v", m.fatal)),
			mutedStyle.Render("press q to quit"),
		)
	}
	if m.widget == nil {
		return mutedStyle.Render("Loading…")
	}

	lines := []string{m.tabBar()}
	if m.err != nil {
		lines = append(lines, errorStyle.Render(m.err.Error()))
	}
	lines = append(lines, m.body(), m.help.View(m.keys))
	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) body() string {
	var panes []string
	if m.shownCode != noPanel {
		panes = append(panes, m.codeVP.View())
	}
	if m.widget.Preview().Visible {
		panes = append(panes, m.previewVP.View())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, panes...)
}

func (m *Model) tabBar() string {
	active := m.widget.ActiveCode().ID
	tabs := make([]string, 0, m.widget.CodeCount()+2)
	if m.title != "" {
		tabs = append(tabs, mutedStyle.Render(ansi.Truncate(m.title, maxLabelWidth, "…")))
	}
	for _, p := range m.widget.Panels() {
		style := tabStyle
		switch {
		case p.Visible:
			style = tabVisibleStyle
		case p.ID == active:
			style = tabActiveStyle
		}
		label := ansi.Truncate(p.Label, maxLabelWidth, "…")
		tabs = append(tabs, zone.Mark(tabZoneID(p.ID), style.Render(label)))
	}
	return strings.Join(tabs, " ")
}

func tabZoneID(id embed.PanelID) string {
	return fmt.Sprintf("tab-%d", id)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, context.Canceled) {
				return m, nil
			}
			m.fatal = msg.err
			return m, nil
		}
		m.widget = msg.widget
		m.reconcile()
		m.layout()
		return m, m.watchPanels()
	case fileEventMsg:
		return m, m.handleFileEvent(msg)
	case reloadedMsg:
		m.applyReload(msg)
		return m, nil
	case fileWatchErrMsg:
		m.err = msg.err
		return m, m.waitForFileEvent()
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.MouseMsg:
		return m, m.handleMouse(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	if k != "g" {
		m.pendingKey = ""
	}

	if m.showHelp {
		m.pendingKey = ""
		switch k {
		case "q", "?", "esc":
			m.showHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	}
	if m.widget == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Code):
		if id, ok := m.widget.CodePanelID(int(k[0] - '1')); ok {
			m.click(id)
		}
	case key.Matches(msg, m.keys.Preview):
		m.click(m.widget.Preview().ID)
	case key.Matches(msg, m.keys.Next):
		m.cycle(1)
	case key.Matches(msg, m.keys.Prev):
		m.cycle(-1)
	case key.Matches(msg, m.keys.Focus):
		m.switchFocus()
	default:
		m.handleScrollKey(msg)
	}
	return m, nil
}

func (m *Model) handleScrollKey(msg tea.KeyMsg) {
	vp := m.focusedViewport()
	if vp == nil {
		return
	}
	switch {
	case key.Matches(msg, m.keys.Down):
		vp.ScrollDown(1)
	case key.Matches(msg, m.keys.Up):
		vp.ScrollUp(1)
	case key.Matches(msg, m.keys.HalfDown):
		vp.HalfPageDown()
	case key.Matches(msg, m.keys.HalfUp):
		vp.HalfPageUp()
	case key.Matches(msg, m.keys.Left):
		vp.ScrollLeft(max(2, vp.Width/6))
	case key.Matches(msg, m.keys.Right):
		vp.ScrollRight(max(2, vp.Width/6))
	case key.Matches(msg, m.keys.Top):
		if m.pendingKey == "g" {
			vp.GotoTop()
			m.pendingKey = ""
		} else {
			m.pendingKey = "g"
		}
	case key.Matches(msg, m.keys.Bottom):
		vp.GotoBottom()
	}
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if m.widget == nil {
		return nil
	}
	if tea.MouseEvent(msg).IsWheel() {
		vp := m.focusedViewport()
		if vp == nil {
			return nil
		}
		var cmd tea.Cmd
		*vp, cmd = vp.Update(msg)
		return cmd
	}
	if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return nil
	}
	for _, p := range m.widget.Panels() {
		if zone.Get(tabZoneID(p.ID)).InBounds(msg) {
			m.click(p.ID)
			break
		}
	}
	return nil
}

// mode is the layout mode for the current terminal width.
func (m *Model) mode() embed.LayoutMode {
	return m.breakpoint.ModeForColumns(m.width)
}

func (m *Model) click(id embed.PanelID) {
	mode := m.mode()
	if !m.widget.Click(id, mode) {
		return
	}
	m.logger.Debug("panel toggled", "panel", int(id), "mode", mode.String(), "visible", len(m.widget.VisiblePanels()))
	if p, ok := m.widget.Panel(id); ok && p.Visible {
		m.focusPreview = p.IsPreview()
	}
	m.layout()
}

// cycle selects the next or previous code panel.
func (m *Model) cycle(delta int) {
	n := m.widget.CodeCount()
	next := ((m.widget.ActiveCodeIndex()+delta)%n + n) % n
	if id, ok := m.widget.CodePanelID(next); ok && !m.widget.IsVisible(id) {
		m.click(id)
	}
}

func (m *Model) switchFocus() {
	if m.shownCode != noPanel && m.widget.Preview().Visible {
		m.focusPreview = !m.focusPreview
		m.updatePanelStyles()
	}
}

func (m *Model) focusedViewport() *viewport.Model {
	if m.focusPreview {
		return &m.previewVP
	}
	if m.shownCode == noPanel {
		return nil
	}
	return &m.codeVP
}

// reconcile applies the layout mode once both the panels and the terminal
// size are known.
func (m *Model) reconcile() {
	if m.widget == nil || m.width <= 0 || m.reconciled {
		return
	}
	mode := m.mode()
	m.widget.Reconcile(mode)
	m.reconciled = true
	m.logger.Debug("layout reconciled", "mode", mode.String(), "width", m.width)
}

func (m *Model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width = width
	m.height = height
	m.help.Width = width

	if m.widget != nil {
		if !m.reconciled {
			m.reconcile()
		} else if mode := m.mode(); m.followResize && mode != m.widget.Mode {
			m.widget.Reconcile(mode)
			m.logger.Debug("layout followed resize", "mode", mode.String(), "width", width)
		}
	}
	m.layout()
}

// layout sizes the viewports for the visible panels and refreshes their
// content when needed.
func (m *Model) layout() {
	if m.widget == nil || m.width <= 0 || m.height <= 0 {
		return
	}

	bodyHeight := m.height - tabBarHeight - footerHeight
	if m.err != nil {
		bodyHeight--
	}
	if m.maxRows > 0 && bodyHeight > m.maxRows {
		bodyHeight = m.maxRows
	}
	bodyHeight = max(bodyHeight, 3)

	var code *embed.Panel
	for _, p := range m.widget.CodePanels() {
		if p.Visible {
			code = &p
			break
		}
	}
	showPreview := m.widget.Preview().Visible

	width := m.width
	if m.maxCols > 0 {
		width = min(width, m.maxCols)
	}
	codeWidth, previewWidth := width, width
	if code != nil && showPreview {
		codeWidth, previewWidth = m.ratio.Split(width)
	}

	if code == nil {
		m.shownCode = noPanel
	} else {
		m.codeVP.Width = codeWidth
		m.codeVP.Height = bodyHeight
		if code.ID != m.shownCode {
			m.codeVP.SetContent(code.Content)
			m.codeVP.GotoTop()
			m.shownCode = code.ID
		}
	}

	if showPreview {
		m.previewVP.Width = previewWidth
		m.previewVP.Height = bodyHeight
		m.renderPreview()
	}

	switch {
	case code == nil && showPreview:
		m.focusPreview = true
	case !showPreview:
		m.focusPreview = false
	}
	m.updatePanelStyles()
}

// renderPreview renders the preview source for the current pane width.
func (m *Model) renderPreview() {
	wrap := max(m.previewVP.Width-m.previewVP.Style.GetHorizontalFrameSize(), 0)
	if wrap == m.previewWidth {
		return
	}
	m.previewWidth = wrap

	src, ok := m.widget.PanelByRef(m.widget.Preview().Content)
	if !ok {
		m.previewVP.SetContent(mutedStyle.Render(preview.Empty))
		return
	}
	rendered, err := preview.Terminal(src.Raw, src.Lang, wrap)
	if err != nil {
		m.err = err
		return
	}
	m.previewVP.SetContent(rendered)
}

func (m *Model) updatePanelStyles() {
	if m.focusPreview {
		m.codeVP.Style = panelStyle(blurBorderColor)
		m.previewVP.Style = panelStyle(focusBorderColor)
		return
	}
	m.codeVP.Style = panelStyle(focusBorderColor)
	m.previewVP.Style = panelStyle(blurBorderColor)
}

func panelStyle(color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(color).
		Padding(0, 1)
}
