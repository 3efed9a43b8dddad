// Package preview renders the preview page of a widget for the terminal and
// for the browser.
package preview

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"
	styles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/x/ansi"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/kyaoi/webcode/internal/highlight"
)

var (
	blockTags  = regexp.MustCompile(`(?i)</?(p|div|h[1-6]|li|ul|ol|br|tr|table|section|article|header|footer|main|nav|pre|blockquote)[^>]*>`)
	blankLines = regexp.MustCompile(`\n[ \t]*(\n[ \t]*)+`)
	textPolicy = bluemonday.StrictPolicy()
	headOpen   = regexp.MustCompile(`(?i)<head(\s[^>]*)?>`)
	htmlOpen   = regexp.MustCompile(`(?i)<html(\s[^>]*)?>`)
	baseTag    = regexp.MustCompile(`(?i)<base[\s>]`)
)

// IsMarkdown reports whether tag names a markdown page.
func IsMarkdown(tag string) bool {
	switch strings.ToLower(tag) {
	case "md", "markdown", "mdx":
		return true
	default:
		return false
	}
}

// Terminal renders a page for a terminal pane of the given width.
func Terminal(raw, tag string, width int) (string, error) {
	if IsMarkdown(tag) {
		renderer, err := newRenderer(width)
		if err != nil {
			return "", err
		}
		return renderer.Render(raw)
	}
	text := HTMLText(raw)
	if width > 0 {
		text = ansi.Wordwrap(text, width, "")
	}
	return text, nil
}

// HTMLText reduces an HTML page to readable text. Scripts and styles are
// dropped; block elements become line breaks.
func HTMLText(raw string) string {
	marked := blockTags.ReplaceAllString(raw, "\n$0")
	text := html.UnescapeString(textPolicy.Sanitize(marked))
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	text = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n")
	return strings.TrimSpace(text)
}

func newRenderer(width int) (*glamour.TermRenderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithStandardStyle(styles.TokyoNightStyle)}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	} else {
		opts = append(opts, glamour.WithWordWrap(0))
	}
	return glamour.NewTermRenderer(opts...)
}

// Document returns the page served to the preview iframe. HTML pages are
// returned as is, markdown is rendered with highlighted code blocks, and any
// other type is shown preformatted.
func Document(raw, tag, theme string) (string, error) {
	switch {
	case tag == "html" || tag == "htm":
		return raw, nil
	case IsMarkdown(tag):
		var buf bytes.Buffer
		if err := newMarkdown(theme).Convert([]byte(raw), &buf); err != nil {
			return "", fmt.Errorf("render markdown: %w", err)
		}
		return wrapPage(template.HTML(buf.String())), nil
	default:
		return wrapPage(template.HTML("<pre>" + template.HTMLEscapeString(raw) + "</pre>")), nil
	}
}

// WithBase points the relative URLs of a document at href by inserting a
// <base> element at the start of its head. A document that already declares
// a base is returned unchanged.
func WithBase(doc, href string) string {
	if baseTag.MatchString(doc) {
		return doc
	}
	tag := `<base href="` + html.EscapeString(href) + `">`
	for _, re := range []*regexp.Regexp{headOpen, htmlOpen} {
		if loc := re.FindStringIndex(doc); loc != nil {
			return doc[:loc[1]] + tag + doc[loc[1]:]
		}
	}
	return tag + doc
}

// Empty is shown when no file qualifies as the preview page.
const Empty = "Nothing to preview."

func newMarkdown(theme string) goldmark.Markdown {
	style, _ := highlight.Style(theme)
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style.Name),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			goldhtml.WithUnsafe(),
		),
	)
}

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><style>body{font-family:system-ui,sans-serif;margin:1rem;line-height:1.5}pre{overflow:auto;padding:.5rem}</style></head>
<body>{{.}}</body></html>`))

func wrapPage(body template.HTML) string {
	var buf bytes.Buffer
	_ = pageTemplate.Execute(&buf, body)
	return buf.String()
}
