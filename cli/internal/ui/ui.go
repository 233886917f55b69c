package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

var (
	// Out and Err are where the printers write.
	Out io.Writer = os.Stdout
	Err io.Writer = os.Stderr

	noColor bool
)

var (
	// Colors
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	SecondaryColor = lipgloss.Color("#6C757D")

	// Styles
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)
)

// SetNoColor turns colored output off or on.
func SetNoColor(disable bool) {
	noColor = disable
	color.NoColor = disable
	if disable {
		pterm.DisableColor()
	} else {
		pterm.EnableColor()
	}
}

func render(style lipgloss.Style, s string) string {
	if noColor {
		return s
	}
	return style.Render(s)
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...any) {
	fmt.Fprintln(Out, render(SuccessStyle, "✓ "+fmt.Sprintf(format, args...)))
}

// PrintError prints an error message
func PrintError(format string, args ...any) {
	fmt.Fprintln(Err, render(ErrorStyle, "✗ "+fmt.Sprintf(format, args...)))
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...any) {
	fmt.Fprintln(Err, render(WarningStyle, "⚠ "+fmt.Sprintf(format, args...)))
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...any) {
	fmt.Fprintln(Out, render(InfoStyle, "ℹ "+fmt.Sprintf(format, args...)))
}

// PrintSection prints a section header
func PrintSection(title string) {
	fmt.Fprintln(Out, render(TitleStyle, title))
}

// PrintTable prints a table using pterm
func PrintTable(headers []string, rows [][]string) error {
	data := pterm.TableData{headers}
	data = append(data, rows...)
	return pterm.DefaultTable.WithHasHeader().WithWriter(Out).WithData(data).Render()
}

// PrintSQL prints a statement with keywords highlighted.
func PrintSQL(sql string) {
	keyword := color.New(color.FgCyan, color.Bold)
	var b strings.Builder
	for i, word := range strings.Fields(sql) {
		if i > 0 {
			b.WriteByte(' ')
		}
		if isKeyword(word) {
			b.WriteString(keyword.Sprint(word))
			continue
		}
		b.WriteString(word)
	}
	fmt.Fprintln(Out, b.String())
}

var keywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "AND": true, "OR": true, "NOT": true,
	"IN": true, "ANY": true, "LIKE": true, "ILIKE": true, "ORDER": true, "BY": true,
	"GROUP": true, "HAVING": true, "LIMIT": true, "OFFSET": true, "FETCH": true,
	"INSERT": true, "INTO": true, "VALUES": true, "UPDATE": true, "SET": true,
	"DELETE": true, "ASC": true, "DESC": true, "JOIN": true, "ON": true, "AS": true,
}

func isKeyword(word string) bool {
	return keywords[strings.ToUpper(word)]
}

// PrintDiff prints the lines that differ between old and new.
func PrintDiff(old, new string) {
	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)

	oldLines := strings.Split(old, "\n")
	newLines := strings.Split(new, "\n")
	for i := 0; i < len(oldLines) || i < len(newLines); i++ {
		switch {
		case i < len(oldLines) && i < len(newLines):
			if oldLines[i] == newLines[i] {
				fmt.Fprintln(Out, "  "+oldLines[i])
				continue
			}
			removed.Fprintln(Out, "- "+oldLines[i])
			added.Fprintln(Out, "+ "+newLines[i])
		case i < len(oldLines):
			removed.Fprintln(Out, "- "+oldLines[i])
		default:
			added.Fprintln(Out, "+ "+newLines[i])
		}
	}
}

// PrintMarkdown renders markdown content
func PrintMarkdown(content string) error {
	style := glamour.WithAutoStyle()
	if noColor {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(100))
	if err != nil {
		return err
	}

	out, err := r.Render(content)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(Out, out)
	return err
}

// PrintSpinner starts a spinner on Err.
func PrintSpinner(message string) (*pterm.SpinnerPrinter, error) {
	return pterm.DefaultSpinner.WithWriter(Err).Start(message)
}
