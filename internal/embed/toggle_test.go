package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newScenario loads index.html, style.css and app.js; ids 0-2 are code, 3 is the preview.
func newScenario(t *testing.T, mode LayoutMode) *WidgetState {
	t.Helper()
	report := &LoadReport{
		Results: []Result{
			okResult("index.html", "html"),
			okResult("style.css", "css"),
			okResult("app.js", "js"),
		},
		PreviewSource: "index.html",
	}
	s, err := Initialize(report, 0)
	require.NoError(t, err)
	s.Reconcile(mode)
	return s
}

const (
	htmlID    PanelID = 0
	cssID     PanelID = 1
	jsID      PanelID = 2
	previewID PanelID = 3
)

func TestClick_EndToEndWide(t *testing.T) {
	s := newScenario(t, LayoutWide)
	assert.Equal(t, []PanelID{htmlID, previewID}, s.VisiblePanels())

	assert.True(t, s.Click(cssID, LayoutWide))
	assert.Equal(t, []PanelID{cssID, previewID}, s.VisiblePanels())
	assert.Equal(t, 1, s.ActiveCodeIndex())

	assert.True(t, s.Click(previewID, LayoutWide))
	assert.Equal(t, []PanelID{cssID}, s.VisiblePanels())

	assert.True(t, s.Click(previewID, LayoutWide))
	assert.Equal(t, []PanelID{cssID, previewID}, s.VisiblePanels())
}

func TestClick_WideHideCodeLeavesPreview(t *testing.T) {
	s := newScenario(t, LayoutWide)

	assert.True(t, s.Click(htmlID, LayoutWide))
	assert.Equal(t, []PanelID{previewID}, s.VisiblePanels())

	// the preview is now the last visible panel
	assert.False(t, s.Click(previewID, LayoutWide))
	assert.Equal(t, []PanelID{previewID}, s.VisiblePanels())

	// re-selecting the hidden active tab shows it again
	assert.True(t, s.Click(htmlID, LayoutWide))
	assert.Equal(t, []PanelID{htmlID, previewID}, s.VisiblePanels())
	assert.Equal(t, 0, s.ActiveCodeIndex())
}

func TestClick_SoleVisibleCodeIsNoop(t *testing.T) {
	s := newScenario(t, LayoutWide)
	require.True(t, s.Click(previewID, LayoutWide))
	before := s.Panels()

	assert.False(t, s.Click(htmlID, LayoutWide))
	assert.Equal(t, before, s.Panels())
	assert.Equal(t, 0, s.ActiveCodeIndex())
}

func TestClick_Narrow(t *testing.T) {
	s := newScenario(t, LayoutNarrow)
	assert.Equal(t, []PanelID{htmlID}, s.VisiblePanels())

	assert.False(t, s.Click(htmlID, LayoutNarrow))
	assert.Equal(t, []PanelID{htmlID}, s.VisiblePanels())

	assert.True(t, s.Click(jsID, LayoutNarrow))
	assert.Equal(t, []PanelID{jsID}, s.VisiblePanels())
	assert.Equal(t, 2, s.ActiveCodeIndex())

	assert.True(t, s.Click(previewID, LayoutNarrow))
	assert.Equal(t, []PanelID{previewID}, s.VisiblePanels())
	assert.Equal(t, 2, s.ActiveCodeIndex(), "active index survives preview toggles")

	assert.False(t, s.Click(previewID, LayoutNarrow))
	assert.Equal(t, []PanelID{previewID}, s.VisiblePanels())

	assert.True(t, s.Click(cssID, LayoutNarrow))
	assert.Equal(t, []PanelID{cssID}, s.VisiblePanels())
}

func TestClick_NarrowAfterWideReconcile(t *testing.T) {
	s := newScenario(t, LayoutWide)
	require.Equal(t, []PanelID{htmlID, previewID}, s.VisiblePanels())

	assert.True(t, s.Click(previewID, LayoutNarrow))
	assert.Equal(t, LayoutNarrow, s.Mode)
	assert.Equal(t, []PanelID{previewID}, s.VisiblePanels())

	s = newScenario(t, LayoutWide)
	assert.True(t, s.Click(htmlID, LayoutNarrow), "collapsing to one panel is a change")
	assert.Equal(t, []PanelID{htmlID}, s.VisiblePanels())

	s = newScenario(t, LayoutWide)
	assert.True(t, s.Click(jsID, LayoutNarrow))
	assert.Equal(t, []PanelID{jsID}, s.VisiblePanels())
	assert.Equal(t, 2, s.ActiveCodeIndex())
}

func TestClick_WideAfterNarrowKeepsSelection(t *testing.T) {
	s := newScenario(t, LayoutNarrow)
	require.True(t, s.Click(previewID, LayoutNarrow))

	// one visible panel fits wide mode, so the click applies as is
	assert.True(t, s.Click(cssID, LayoutWide))
	assert.Equal(t, []PanelID{cssID, previewID}, s.VisiblePanels())
	assert.Equal(t, 1, s.ActiveCodeIndex())
	assert.Equal(t, LayoutWide, s.Mode)
}

func TestClick_IgnoresUnknownInput(t *testing.T) {
	s := newScenario(t, LayoutWide)
	before := s.Panels()

	assert.False(t, s.Click(99, LayoutWide))
	assert.False(t, s.Click(-1, LayoutNarrow))
	assert.False(t, s.Click(cssID, LayoutMode(7)))
	assert.Equal(t, before, s.Panels())
}

func TestClick_SwitchSemantics(t *testing.T) {
	for _, mode := range []LayoutMode{LayoutWide, LayoutNarrow} {
		t.Run(mode.String(), func(t *testing.T) {
			s := newScenario(t, mode)
			for _, target := range []PanelID{cssID, jsID, htmlID, jsID} {
				prev := s.ActiveCode().ID
				s.Click(target, mode)
				assert.True(t, s.IsVisible(target))
				if prev != target {
					assert.False(t, s.IsVisible(prev))
				}
				assert.Equal(t, target, s.ActiveCode().ID)
			}
		})
	}
}

func TestReconcile(t *testing.T) {
	s := newScenario(t, LayoutWide)
	s.Click(jsID, LayoutWide)
	s.Click(previewID, LayoutWide)
	require.Equal(t, []PanelID{jsID}, s.VisiblePanels())

	s.Reconcile(LayoutNarrow)
	assert.Equal(t, []PanelID{jsID}, s.VisiblePanels())
	assert.Equal(t, LayoutNarrow, s.Mode)

	s.Click(previewID, LayoutNarrow)
	s.Reconcile(LayoutWide)
	assert.Equal(t, []PanelID{jsID, previewID}, s.VisiblePanels())

	s.Reconcile(LayoutMode(-1))
	assert.Equal(t, []PanelID{jsID, previewID}, s.VisiblePanels())
}

// forEachSequence calls fn with every click sequence of the given length over ids.
func forEachSequence(ids []PanelID, length int, fn func(seq []PanelID)) {
	seq := make([]PanelID, length)
	var walk func(pos int)
	walk = func(pos int) {
		if pos == length {
			fn(seq)
			return
		}
		for _, id := range ids {
			seq[pos] = id
			walk(pos + 1)
		}
	}
	walk(0)
}

func TestClick_InvariantsHoldForAllSequences(t *testing.T) {
	ids := []PanelID{htmlID, cssID, jsID, previewID, 17}

	for _, mode := range []LayoutMode{LayoutWide, LayoutNarrow} {
		t.Run(mode.String(), func(t *testing.T) {
			forEachSequence(ids, 5, func(seq []PanelID) {
				s := newScenario(t, mode)
				for step, id := range seq {
					s.Click(id, mode)
					visible := len(s.VisiblePanels())
					if visible < 1 || visible > mode.MaxVisible() {
						t.Fatalf("sequence %v step %d: %d panels visible", seq, step, visible)
					}
					if !s.Preview().IsPreview() {
						t.Fatalf("sequence %v: preview panel moved", seq)
					}
				}
			})
		})
	}
}

func TestClick_MixedModesNeverHideEverything(t *testing.T) {
	ids := []PanelID{htmlID, cssID, previewID}
	modes := []LayoutMode{LayoutWide, LayoutNarrow}

	forEachSequence(ids, 4, func(seq []PanelID) {
		for start := range modes {
			s := newScenario(t, modes[start])
			for step, id := range seq {
				mode := modes[(start+step)%2]
				s.Click(id, mode)
				visible := len(s.VisiblePanels())
				if visible == 0 {
					t.Fatalf("sequence %v: all panels hidden", seq)
				}
				if visible > mode.MaxVisible() {
					t.Fatalf("sequence %v step %d: %d panels visible in %s mode", seq, step, visible, mode)
				}
			}
		}
	})
}
