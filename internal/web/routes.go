package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kyaoi/webcode/internal/embed"
	"github.com/kyaoi/webcode/internal/preview"
)

var tracer = otel.Tracer("webcode/web")

type panelView struct {
	ID      int           `json:"id"`
	Kind    string        `json:"kind"`
	Label   string        `json:"label"`
	Ref     string        `json:"ref,omitempty"`
	Lang    string        `json:"lang,omitempty"`
	Visible bool          `json:"visible"`
	Active  bool          `json:"active,omitempty"`
	Markup  template.HTML `json:"-"`
}

type stateView struct {
	ID      string      `json:"id"`
	Mode    string      `json:"mode"`
	Active  int         `json:"active"`
	Visible []int       `json:"visible"`
	Panels  []panelView `json:"panels"`
}

type clickView struct {
	Changed bool      `json:"changed"`
	State   stateView `json:"state"`
}

func snapshot(inst *instance) stateView {
	st := inst.state
	active := st.ActiveCode().ID
	v := stateView{
		ID:      inst.id,
		Mode:    st.Mode.String(),
		Active:  st.ActiveCodeIndex(),
		Visible: []int{},
	}
	for _, p := range st.Panels() {
		pv := panelView{
			ID:      int(p.ID),
			Kind:    p.Kind.String(),
			Label:   p.Label,
			Ref:     p.Ref,
			Lang:    p.Lang,
			Visible: p.Visible,
			Active:  p.ID == active,
		}
		if p.IsCode() {
			// chroma's HTML formatter escapes the source text.
			pv.Markup = template.HTML(p.Content)
		}
		if p.Visible {
			v.Visible = append(v.Visible, int(p.ID))
		}
		v.Panels = append(v.Panels, pv)
	}
	return v
}

// modeParam reads the client's media query result.
func modeParam(r *http.Request) embed.LayoutMode {
	switch strings.ToLower(r.FormValue("narrow")) {
	case "1", "true", "on", "narrow":
		return embed.LayoutNarrow
	default:
		return embed.LayoutWide
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*instance, bool) {
	inst, ok := s.instances.get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "widget not found", http.StatusNotFound)
	}
	return inst, ok
}

func (s *Server) bootstrapHandler(w http.ResponseWriter, r *http.Request) {
	render(w, bootstrapTemplate, map[string]string{
		"Title":      s.cfg.Title,
		"MediaQuery": s.cfg.Breakpoint.MediaQuery(),
	})
}

func (s *Server) newInstanceHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "web.NewInstance")
	defer span.End()

	report, err := s.load(ctx)
	if err != nil {
		s.logger.Error("loading widget files", "error", err)
		http.Error(w, "loading widget files: "+err.Error(), http.StatusBadGateway)
		return
	}
	state, err := embed.Initialize(report, s.cfg.StartIndex)
	if errors.Is(err, embed.ErrEmptyPanelSet) {
		msg := err.Error()
		if failed := report.Failed(); len(failed) > 0 {
			msg += ": " + errors.Join(failed...).Error()
		}
		http.Error(w, msg, http.StatusUnprocessableEntity)
		return
	} else if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	mode := modeParam(r)
	state.Reconcile(mode)
	inst := s.instances.add(state)
	span.SetAttributes(attribute.String("widget.id", inst.id), attribute.String("widget.mode", mode.String()))
	s.logger.Info("widget created", "id", inst.id, "mode", mode.String(), "panels", len(state.Panels()))

	if wantsJSON(r) {
		inst.mu.Lock()
		v := snapshot(inst)
		inst.mu.Unlock()
		writeJSON(w, http.StatusCreated, v)
		return
	}
	http.Redirect(w, r, "/w/"+inst.id, http.StatusSeeOther)
}

func (s *Server) widgetHandler(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.lookup(w, r)
	if !ok {
		return
	}
	inst.mu.Lock()
	v := snapshot(inst)
	inst.mu.Unlock()

	page := widgetPage{
		State:       v,
		Title:       s.cfg.Title,
		Height:      s.cfg.Height.CSS(),
		MediaQuery:  s.cfg.Breakpoint.MediaQuery(),
		CodeFlex:    s.cfg.Ratio.Code,
		PreviewFlex: s.cfg.Ratio.Preview,
		CSP:         s.cfg.CSP,
		Loading:     s.cfg.Loading,
	}
	if page.CodeFlex <= 0 || page.PreviewFlex <= 0 {
		page.CodeFlex, page.PreviewFlex = 1, 1
	}
	if s.cfg.Width.Pixels > 0 {
		page.MaxWidth = s.cfg.Width.CSS()
	}
	render(w, widgetTemplate, page)
}

func (s *Server) clickHandler(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.lookup(w, r)
	if !ok {
		return
	}
	id, err := strconv.Atoi(r.FormValue("panel"))
	if err != nil {
		http.Error(w, "panel must be an integer", http.StatusBadRequest)
		return
	}
	mode := modeParam(r)

	_, span := tracer.Start(r.Context(), "web.Click")
	span.SetAttributes(
		attribute.String("widget.id", inst.id),
		attribute.Int("panel.id", id),
		attribute.String("widget.mode", mode.String()),
	)
	inst.mu.Lock()
	changed := inst.state.Click(embed.PanelID(id), mode)
	v := snapshot(inst)
	inst.mu.Unlock()
	span.SetAttributes(attribute.Bool("changed", changed))
	span.End()

	s.logger.Debug("panel clicked", "id", inst.id, "panel", id, "mode", mode.String(), "changed", changed)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, clickView{Changed: changed, State: v})
		return
	}
	http.Redirect(w, r, "/w/"+inst.id, http.StatusSeeOther)
}

func (s *Server) previewHandler(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.lookup(w, r)
	if !ok {
		return
	}
	inst.mu.Lock()
	src, found := inst.state.PanelByRef(inst.state.Preview().Content)
	inst.mu.Unlock()

	raw, tag, base := preview.Empty, "txt", filesPath(inst.id, "")
	if found {
		raw, tag, base = src.Raw, src.Lang, filesPath(inst.id, src.Ref)
	}
	doc, err := preview.Document(raw, tag, s.cfg.Theme)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if s.cfg.CSP != "" {
		w.Header().Set("Content-Security-Policy", s.cfg.CSP)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, preview.WithBase(doc, base))
}

// filesPath is the directory URL that relative references in the preview
// page of ref resolve against.
func filesPath(id, ref string) string {
	dir := path.Dir(ref)
	if ref == "" || dir == "." || strings.Contains(ref, "://") {
		return "/w/" + id + "/files/"
	}
	return "/w/" + id + "/files/" + strings.TrimPrefix(dir, "/") + "/"
}

// fileHandler serves the raw text of a loaded code panel so the preview page
// can load its own stylesheets and scripts.
func (s *Server) fileHandler(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.lookup(w, r)
	if !ok {
		return
	}
	ref := path.Clean("/" + chi.URLParam(r, "*"))[1:]

	inst.mu.Lock()
	p, found := inst.state.PanelByRef(ref)
	inst.mu.Unlock()
	if !found || !p.IsCode() {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	ctype := mime.TypeByExtension(path.Ext(ref))
	if ctype == "" {
		ctype = "text/plain; charset=utf-8"
	}
	if s.cfg.CSP != "" {
		w.Header().Set("Content-Security-Policy", s.cfg.CSP)
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	fmt.Fprint(w, p.Raw)
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	inst, ok := s.lookup(w, r)
	if !ok {
		return
	}
	inst.mu.Lock()
	v := snapshot(inst)
	inst.mu.Unlock()
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) deleteHandler(w http.ResponseWriter, r *http.Request) {
	if !s.instances.remove(chi.URLParam(r, "id")) {
		http.Error(w, "widget not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
