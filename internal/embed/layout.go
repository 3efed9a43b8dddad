package embed

import (
	"fmt"
	"strconv"
	"strings"
)

// LayoutMode is the responsive mode the widget is displayed in.
type LayoutMode int

const (
	// LayoutWide shows up to two panels side by side.
	LayoutWide LayoutMode = iota
	// LayoutNarrow shows a single panel.
	LayoutNarrow
)

func (m LayoutMode) String() string {
	switch m {
	case LayoutWide:
		return "wide"
	case LayoutNarrow:
		return "narrow"
	default:
		return fmt.Sprintf("layout(%d)", int(m))
	}
}

func (m LayoutMode) valid() bool {
	return m == LayoutWide || m == LayoutNarrow
}

// MaxVisible is the number of panels that may be shown at once in the mode.
func (m LayoutMode) MaxVisible() int {
	if m == LayoutNarrow {
		return 1
	}
	return 2
}

const (
	pixelsPerEm   = 16.0
	pixelsPerCol  = 8.0
	pixelsPerLine = 16.0
)

// Length is a CSS-like size converted to pixels. Terminal cells count as
// 8px wide and 16px tall.
type Length struct {
	Pixels float64
	raw    string
}

// ParseLength accepts em, rem, px, ch and col units. A bare number is a
// count of terminal cells. A "(max-width: ...)" wrapper is unwrapped.
func ParseLength(s string) (Length, error) {
	raw := strings.TrimSpace(s)
	v := strings.ToLower(raw)
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		v = strings.TrimSpace(v[1 : len(v)-1])
		if i := strings.Index(v, ":"); i >= 0 {
			v = strings.TrimSpace(v[i+1:])
		}
	}
	if v == "" {
		return Length{}, fmt.Errorf("empty length")
	}

	unit := strings.TrimLeft(v, "0123456789.+-")
	number := strings.TrimSpace(strings.TrimSuffix(v, unit))
	n, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return Length{}, fmt.Errorf("parse length %q: %w", raw, err)
	}
	if n < 0 {
		return Length{}, fmt.Errorf("negative length %q", raw)
	}

	var px float64
	switch strings.TrimSpace(unit) {
	case "em", "rem":
		px = n * pixelsPerEm
	case "px":
		px = n
	case "", "ch", "col", "cols":
		px = n * pixelsPerCol
	default:
		return Length{}, fmt.Errorf("unsupported unit %q in %q", unit, raw)
	}
	return Length{Pixels: px, raw: v}, nil
}

// MustParseLength is ParseLength for constants known to be valid.
func MustParseLength(s string) Length {
	l, err := ParseLength(s)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Length) String() string {
	if l.raw != "" {
		return l.raw
	}
	return strconv.FormatFloat(l.Pixels, 'f', -1, 64) + "px"
}

// CSS renders the length for a stylesheet. Terminal cell units have no CSS
// counterpart and are written in pixels.
func (l Length) CSS() string {
	switch {
	case strings.HasSuffix(l.raw, "em"), strings.HasSuffix(l.raw, "px"):
		return l.raw
	default:
		return strconv.FormatFloat(l.Pixels, 'f', -1, 64) + "px"
	}
}

// Columns is the length in terminal columns, rounded down.
func (l Length) Columns() int {
	return int(l.Pixels / pixelsPerCol)
}

// Rows is the length in terminal rows, rounded down.
func (l Length) Rows() int {
	return int(l.Pixels / pixelsPerLine)
}

// Breakpoint decides the layout mode from a viewport width.
type Breakpoint struct {
	Max Length
}

// NewBreakpoint parses a max-width breakpoint.
func NewBreakpoint(s string) (Breakpoint, error) {
	l, err := ParseLength(s)
	if err != nil {
		return Breakpoint{}, err
	}
	return Breakpoint{Max: l}, nil
}

// ModeForPixels is narrow when the width is within the breakpoint.
func (b Breakpoint) ModeForPixels(width float64) LayoutMode {
	if width <= b.Max.Pixels {
		return LayoutNarrow
	}
	return LayoutWide
}

// ModeForColumns is ModeForPixels for a terminal width.
func (b Breakpoint) ModeForColumns(cols int) LayoutMode {
	return b.ModeForPixels(float64(cols) * pixelsPerCol)
}

// MediaQuery renders the breakpoint as a CSS media query.
func (b Breakpoint) MediaQuery() string {
	return "(max-width: " + b.Max.CSS() + ")"
}

// DefaultRatio splits the wide layout evenly.
const DefaultRatio = "1:1"

// Ratio is the relative width of the code and preview panels when both are
// shown in wide mode.
type Ratio struct {
	Code    float64
	Preview float64
}

// ParseRatio accepts "code:preview" with positive numbers, e.g. "2:1".
func ParseRatio(s string) (Ratio, error) {
	left, right, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Ratio{}, fmt.Errorf("ratio %q must look like 1:1", s)
	}
	code, err := strconv.ParseFloat(strings.TrimSpace(left), 64)
	if err != nil {
		return Ratio{}, fmt.Errorf("parse ratio %q: %w", s, err)
	}
	prev, err := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if err != nil {
		return Ratio{}, fmt.Errorf("parse ratio %q: %w", s, err)
	}
	if code <= 0 || prev <= 0 {
		return Ratio{}, fmt.Errorf("ratio %q must be positive", s)
	}
	return Ratio{Code: code, Preview: prev}, nil
}

// Split divides total cells between the code and preview panels. Each side
// gets at least one cell when total allows it. The zero Ratio splits evenly.
func (r Ratio) Split(total int) (code, preview int) {
	if total <= 0 {
		return 0, 0
	}
	if r.Code <= 0 || r.Preview <= 0 {
		r = Ratio{Code: 1, Preview: 1}
	}
	code = int(float64(total) * r.Code / (r.Code + r.Preview))
	if total >= 2 {
		code = min(max(code, 1), total-1)
	}
	return code, total - code
}

func (r Ratio) String() string {
	if r.Code <= 0 || r.Preview <= 0 {
		return DefaultRatio
	}
	return strconv.FormatFloat(r.Code, 'f', -1, 64) + ":" + strconv.FormatFloat(r.Preview, 'f', -1, 64)
}
