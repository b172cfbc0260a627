package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// rowDelegate renders one-line rows with a cursor marker on the selected
// entry. Titles are padded and cut width-safely so wide runes and styled
// text never wrap a row.
type rowDelegate struct {
	normal   lipgloss.Style
	selected lipgloss.Style
}

func newRowDelegate() rowDelegate {
	return rowDelegate{
		normal: lipgloss.NewStyle(),
		selected: lipgloss.NewStyle().
			Foreground(colorSelectedFg).
			Background(colorSelectedBg).
			Bold(true),
	}
}

func (d rowDelegate) Height() int                             { return 1 }
func (d rowDelegate) Spacing() int                            { return 0 }
func (d rowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d rowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	width := m.Width()
	if width < 4 {
		return
	}

	marker, style := "  ", d.normal
	if index == m.Index() {
		marker, style = "> ", d.selected
	}

	title := fmt.Sprint(item)
	if t, ok := item.(interface{ Title() string }); ok {
		title = t.Title()
	}

	line := marker + title
	switch lineW := xansi.StringWidth(line); {
	case lineW > width:
		line = xansi.Cut(line, 0, width)
	case lineW < width:
		line += strings.Repeat(" ", width-lineW)
	}
	fmt.Fprint(w, style.Render(line))
}
