package web

import (
	"bytes"
	"html/template"
	"net/http"
)

type widgetPage struct {
	State       stateView
	Title       string
	Height      string
	MaxWidth    string
	MediaQuery  string
	CodeFlex    float64
	PreviewFlex float64
	CSP         string
	Loading     string
}

// The bootstrap page evaluates the breakpoint once, at load time.
var bootstrapTemplate = template.Must(template.New("bootstrap").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<noscript><a href="/w/new">Open widget</a></noscript>
<script>
const narrow = window.matchMedia({{.MediaQuery}}).matches;
location.replace("/w/new?narrow=" + (narrow ? "1" : "0"));
</script>
</body></html>`))

var widgetTemplate = template.Must(template.New("widget").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title>
<style>
body{margin:0;font-family:system-ui,sans-serif;background:#1a1b26;color:#c0caf5}
.widget{ {{- if .MaxWidth}}max-width:{{.MaxWidth}};margin:0 auto{{end -}} }
.tabs{display:flex;gap:.25rem;padding:.25rem;background:#1f2335}
.tabs button{border:0;padding:.25rem .75rem;background:#1f2335;color:#a9b1d6;cursor:pointer}
.tabs button.visible{background:#7aa2f7;color:#1a1b26;font-weight:bold}
.tabs button.active{text-decoration:underline}
.panels{display:flex;height:{{.Height}}}
.panel{flex:1 1 0;min-width:0;overflow:auto}
.panel.code{flex-grow:{{.CodeFlex}}}
.panel.preview{flex-grow:{{.PreviewFlex}}}
.panel pre{margin:0;padding:.5rem;min-height:100%;box-sizing:border-box}
.panel iframe{border:0;width:100%;height:100%;background:#fff}
</style></head>
<body>
<div class="widget">
<form class="tabs" method="post" action="/w/{{.State.ID}}/click">
<input type="hidden" name="narrow" value="{{if eq .State.Mode "narrow"}}1{{else}}0{{end}}">
{{range .State.Panels}}<button type="submit" name="panel" value="{{.ID}}" class="{{if .Visible}}visible{{end}}{{if .Active}} active{{end}}">{{.Label}}</button>
{{end}}</form>
<div class="panels">
{{range .State.Panels}}{{if .Visible}}{{if eq .Kind "code"}}<div class="panel code" data-panel="{{.ID}}">{{.Markup}}</div>
{{else}}<div class="panel preview"><iframe src="/w/{{$.State.ID}}/preview" sandbox="allow-scripts" title="{{.Label}}"{{if $.Loading}} loading="{{$.Loading}}"{{end}}{{if $.CSP}} csp="{{$.CSP}}"{{end}}></iframe></div>
{{end}}{{end}}{{end}}</div>
</div>
<script>
const query = window.matchMedia({{.MediaQuery}});
document.querySelector("form.tabs").addEventListener("submit", () => {
  document.querySelector("input[name=narrow]").value = query.matches ? "1" : "0";
});
</script>
</body></html>`))

func render(w http.ResponseWriter, t *template.Template, data any) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}
