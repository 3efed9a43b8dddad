package embed

import "fmt"

// PanelID identifies a panel within one widget instance.
type PanelID int

// Kind distinguishes code panels from the preview panel.
type Kind int

const (
	KindCode Kind = iota
	KindPreview
)

func (k Kind) String() string {
	switch k {
	case KindCode:
		return "code"
	case KindPreview:
		return "preview"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// PreviewLabel is the label of the preview toggle button.
const PreviewLabel = "Result"

// Panel is one toggle-able region of the widget.
type Panel struct {
	ID    PanelID
	Kind  Kind
	Ref   string
	Label string
	// Lang is the type tag of a code panel. Empty for the preview.
	Lang string
	// Raw holds the fetched text of a code panel.
	Raw string
	// Content is the highlighted markup of a code panel, or the preview
	// source reference of the preview panel.
	Content string
	Visible bool
}

// IsCode reports whether the panel shows a source file.
func (p Panel) IsCode() bool {
	return p.Kind == KindCode
}

// IsPreview reports whether the panel is the live preview.
func (p Panel) IsPreview() bool {
	return p.Kind == KindPreview
}
