package embed

// Click applies a click on a panel's button in the given layout mode and
// reports whether the visible set changed. Unknown panels and modes are
// ignored. At least one panel stays visible, and at most one does in
// narrow mode.
//
// When the mode differs from the last one seen and more panels are visible
// than the new mode allows, the state is reconciled to that mode before the
// click is applied.
func (s *WidgetState) Click(id PanelID, mode LayoutMode) bool {
	if !mode.valid() {
		return false
	}
	p := s.panel(id)
	if p == nil {
		return false
	}

	reconciled := false
	if mode != s.Mode && s.visibleCount() > mode.MaxVisible() {
		s.Reconcile(mode)
		reconciled = true
	}
	s.Mode = mode

	var changed bool
	switch {
	case p.Visible:
		changed = s.hide(p, mode)
	case p.IsPreview():
		changed = s.showPreview(p, mode)
	default:
		changed = s.selectCode(id, mode)
	}
	return changed || reconciled
}

// hide drops a visible panel only when it is one of two shown in wide mode.
func (s *WidgetState) hide(p *Panel, mode LayoutMode) bool {
	if mode != LayoutWide || s.visibleCount() != 2 {
		return false
	}
	p.Visible = false
	return true
}

// selectCode swaps the shown code panel for the clicked one. In narrow mode
// the preview is hidden too so a single panel remains.
func (s *WidgetState) selectCode(id PanelID, mode LayoutMode) bool {
	pos := s.codePosition(id)
	if pos < 0 {
		return false
	}
	for _, i := range s.code {
		s.panels[i].Visible = false
	}
	if mode == LayoutNarrow {
		s.previewPanel().Visible = false
	}
	s.panels[s.code[pos]].Visible = true
	s.active = pos
	return true
}

// showPreview brings the preview back. In narrow mode it replaces the code
// panel on screen.
func (s *WidgetState) showPreview(p *Panel, mode LayoutMode) bool {
	if mode == LayoutNarrow {
		for _, i := range s.code {
			s.panels[i].Visible = false
		}
	}
	p.Visible = true
	return true
}

// Reconcile resets visibility for a layout mode: the active code panel alone
// in narrow mode, the active code panel and the preview in wide mode.
func (s *WidgetState) Reconcile(mode LayoutMode) {
	if !mode.valid() {
		return
	}
	s.Mode = mode
	for i := range s.panels {
		s.panels[i].Visible = false
	}
	s.panels[s.code[s.active]].Visible = true
	if mode == LayoutWide {
		s.previewPanel().Visible = true
	}
}

func (s *WidgetState) previewPanel() *Panel {
	return &s.panels[len(s.panels)-1]
}

func (s *WidgetState) visibleCount() int {
	n := 0
	for _, p := range s.panels {
		if p.Visible {
			n++
		}
	}
	return n
}
