// Package embed holds the widget core: loading files into content records,
// the panel registry, and the rules that decide which panels are visible.
//
// A WidgetState belongs to one widget instance and is not safe for
// concurrent use; hosts serialise events per instance.
package embed
