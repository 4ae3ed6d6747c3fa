package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#9147FF", "#04B575", "#EB0400", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	link  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		link:  NewStyle(t).Underline(true),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// Success renders s in the palette's success color.
func Success(s string) string { return styles.ok.Render(s) }

// Failure renders s in the palette's error color.
func Failure(s string) string { return styles.err.Render(s) }

// Warning renders s in the palette's warning color.
func Warning(s string) string { return styles.warn.Render(s) }
