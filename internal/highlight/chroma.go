package highlight

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Format selects the markup the highlighter produces.
type Format string

const (
	FormatTerminal256 Format = "terminal256"
	FormatTrueColor   Format = "terminal16m"
	FormatHTML        Format = "html"
)

// DefaultTheme is used when no theme is configured.
const DefaultTheme = "vitesse-dark"

// themeAliases maps theme names without a chroma style to the closest one.
var themeAliases = map[string]string{
	"vitesse-dark":  "github-dark",
	"vitesse-black": "github-dark",
	"vitesse-light": "github",
	"github-light":  "github",
	"one-dark-pro":  "onedark",
	"tokyo-night":   "tokyonight-night",
}

// DefaultLangs is the language set highlighted when none is configured.
var DefaultLangs = []string{"html", "css", "javascript"}

// Chroma implements embed.Highlighter with chroma lexers and styles.
type Chroma struct {
	formatter chroma.Formatter
	langs     map[string]bool
}

// New creates a highlighter. Languages outside langs are rendered as plain
// text; an empty langs highlights every language chroma knows.
func New(format Format, langs []string) *Chroma {
	c := &Chroma{
		formatter: newFormatter(format),
		langs:     make(map[string]bool, len(langs)),
	}
	for _, l := range langs {
		if lexer := lexers.Get(strings.TrimSpace(l)); lexer != nil {
			c.langs[lexerName(lexer)] = true
		}
	}
	return c
}

func newFormatter(format Format) chroma.Formatter {
	if format == FormatHTML {
		return chromahtml.New(
			chromahtml.WithClasses(false),
			chromahtml.TabWidth(2),
		)
	}
	return formatters.Get(string(format))
}

// Highlight renders text for the language tag in the named theme.
func (c *Chroma) Highlight(text, lang, theme string) (string, error) {
	lexer := chroma.Coalesce(c.Lexer(lang))
	style, _ := Style(theme)

	it, err := lexer.Tokenise(nil, text)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := c.formatter.Format(&b, style, it); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Lexer returns the lexer used for a type tag.
func (c *Chroma) Lexer(lang string) chroma.Lexer {
	lexer := lexers.Get(lang)
	if lexer == nil {
		return lexers.Fallback
	}
	if len(c.langs) > 0 && !c.langs[lexerName(lexer)] {
		return lexers.Fallback
	}
	return lexer
}

// Style resolves a theme name to a chroma style and reports whether the
// name was recognised. Unknown names get chroma's fallback style.
func Style(theme string) (*chroma.Style, bool) {
	name := strings.ToLower(strings.TrimSpace(theme))
	if name == "" {
		name = DefaultTheme
	}
	if alias, ok := themeAliases[name]; ok {
		name = alias
	}
	if style, ok := styles.Registry[name]; ok {
		return style, true
	}
	return styles.Fallback, false
}

// KnownTheme reports whether theme resolves to a real style.
func KnownTheme(theme string) bool {
	_, ok := Style(theme)
	return ok
}

func lexerName(l chroma.Lexer) string {
	return strings.ToLower(l.Config().Name)
}
