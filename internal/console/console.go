// Package console renders end-of-run summaries for the terminal.
package console

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	colorPrimary = lipgloss.Color("62")
	colorMuted   = lipgloss.Color("241")
	colorSuccess = lipgloss.Color("78")
	colorError   = lipgloss.Color("203")
)

var titleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorPrimary).
	MarginTop(1)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorPrimary).
	Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

var keyStyle = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)

var okStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)

var errStyle = lipgloss.NewStyle().Foreground(colorError).Bold(true)

func Title(s string) string { return titleStyle.Render(s) }

func OK(s string) string { return okStyle.Render(s) }

func Err(s string) string { return errStyle.Render(s) }

// Table renders rows under headers with a rounded border.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorMuted)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

// KeyValues renders label/value pairs as a two-column table without headers.
func KeyValues(pairs [][2]string) string {
	rows := make([][]string, len(pairs))
	for i, p := range pairs {
		rows[i] = []string{p[0], p[1]}
	}
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Rows(rows...).
		StyleFunc(func(_, col int) lipgloss.Style {
			if col == 0 {
				return keyStyle
			}
			return cellStyle
		})
	return t.String()
}

// Section writes a title followed by body.
func Section(w io.Writer, title, body string) {
	fmt.Fprintln(w, Title(title))
	fmt.Fprintln(w, body)
}
