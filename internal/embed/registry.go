package embed

import (
	"path"
	"slices"
	"strings"
)

// WidgetState is the panel set of one widget instance.
type WidgetState struct {
	panels []Panel
	// code holds the indexes into panels of the code panels, in order.
	code   []int
	active int
	// Mode is the layout mode observed by the last click or reconciliation.
	Mode LayoutMode
}

// Initialize builds one code panel per loaded file, in input order, plus the
// preview panel last. The code panel at startIndex (clamped) is active and
// visible; callers apply Reconcile once the layout mode is known.
func Initialize(report *LoadReport, startIndex int) (*WidgetState, error) {
	if report == nil {
		return nil, ErrEmptyPanelSet
	}
	s := &WidgetState{}
	for _, res := range report.Results {
		if !res.OK() {
			continue
		}
		rec := res.Record
		id := PanelID(len(s.panels))
		s.code = append(s.code, len(s.panels))
		s.panels = append(s.panels, Panel{
			ID:      id,
			Kind:    KindCode,
			Ref:     rec.Ref,
			Label:   strings.ToUpper(rec.Tag),
			Lang:    rec.Tag,
			Raw:     rec.Raw,
			Content: rec.Markup,
		})
	}
	if len(s.code) == 0 {
		return nil, ErrEmptyPanelSet
	}
	s.disambiguateLabels()

	s.panels = append(s.panels, Panel{
		ID:      PanelID(len(s.panels)),
		Kind:    KindPreview,
		Ref:     report.PreviewSource,
		Label:   PreviewLabel,
		Content: report.PreviewSource,
	})

	s.active = clamp(startIndex, 0, len(s.code)-1)
	s.panels[s.code[s.active]].Visible = true
	return s, nil
}

// disambiguateLabels falls back to file names when two code panels share a tag.
func (s *WidgetState) disambiguateLabels() {
	counts := make(map[string]int)
	for _, i := range s.code {
		counts[s.panels[i].Label]++
	}
	for _, i := range s.code {
		p := &s.panels[i]
		if counts[p.Label] > 1 {
			p.Label = path.Base(strings.ReplaceAll(p.Ref, "\\", "/"))
		}
	}
}

// SetVisible sets one panel's flag. It does not enforce any layout rule.
// Unknown ids are ignored.
func (s *WidgetState) SetVisible(id PanelID, visible bool) {
	if p := s.panel(id); p != nil {
		p.Visible = visible
	}
}

// VisiblePanels returns the ids of the visible panels in panel order.
func (s *WidgetState) VisiblePanels() []PanelID {
	var ids []PanelID
	for _, p := range s.panels {
		if p.Visible {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// IsVisible reports whether the panel is shown.
func (s *WidgetState) IsVisible(id PanelID) bool {
	p := s.panel(id)
	return p != nil && p.Visible
}

// Panels returns a copy of the panels in order, preview last.
func (s *WidgetState) Panels() []Panel {
	return slices.Clone(s.panels)
}

// CodePanels returns a copy of the code panels in order.
func (s *WidgetState) CodePanels() []Panel {
	out := make([]Panel, 0, len(s.code))
	for _, i := range s.code {
		out = append(out, s.panels[i])
	}
	return out
}

// Panel returns the panel with the given id.
func (s *WidgetState) Panel(id PanelID) (Panel, bool) {
	p := s.panel(id)
	if p == nil {
		return Panel{}, false
	}
	return *p, true
}

// Preview returns the preview panel.
func (s *WidgetState) Preview() Panel {
	return s.panels[len(s.panels)-1]
}

// ActiveCodeIndex is the position of the selected code panel among the code panels.
func (s *WidgetState) ActiveCodeIndex() int {
	return s.active
}

// ActiveCode returns the selected code panel.
func (s *WidgetState) ActiveCode() Panel {
	return s.panels[s.code[s.active]]
}

// CodeCount is the number of code panels.
func (s *WidgetState) CodeCount() int {
	return len(s.code)
}

// CodePanelID returns the id of the n-th code panel.
func (s *WidgetState) CodePanelID(n int) (PanelID, bool) {
	if n < 0 || n >= len(s.code) {
		return 0, false
	}
	return s.panels[s.code[n]].ID, true
}

// UpdateContent replaces the text of a code panel after a reload. The panel
// keeps its id and visibility.
func (s *WidgetState) UpdateContent(id PanelID, raw, markup string) bool {
	p := s.panel(id)
	if p == nil || !p.IsCode() {
		return false
	}
	p.Raw = raw
	p.Content = markup
	return true
}

// PanelByRef finds the code panel loaded from ref.
func (s *WidgetState) PanelByRef(ref string) (Panel, bool) {
	for _, i := range s.code {
		if s.panels[i].Ref == ref {
			return s.panels[i], true
		}
	}
	return Panel{}, false
}

func (s *WidgetState) panel(id PanelID) *Panel {
	i := int(id)
	if i < 0 || i >= len(s.panels) {
		return nil
	}
	return &s.panels[i]
}

func (s *WidgetState) codePosition(id PanelID) int {
	for pos, i := range s.code {
		if s.panels[i].ID == id {
			return pos
		}
	}
	return -1
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
