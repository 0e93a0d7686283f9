package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/shiftsched/pkg/pipeline"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

// statusOut receives status lines. Data goes to the command's stdout, so
// status stays on stderr where it cannot corrupt piped output.
var statusOut io.Writer = os.Stderr

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
	styleBetter   = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Fprintln(statusOut, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintln(statusOut, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(statusOut, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(msg))
}

func printInfo(format string, args ...any) {
	fmt.Fprintln(statusOut, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented dim line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(statusOut, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a written output path.
func printFile(path string) {
	fmt.Fprintln(statusOut, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(statusOut, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// =============================================================================
// Graph and Schedule Display
// =============================================================================

// printGraphStats prints graph size on a single line.
func printGraphStats(g *shift.Graph) {
	parts := []string{
		fmt.Sprintf("%d ops", g.NOps()),
		fmt.Sprintf("%d allocs", g.NAllocs()),
		fmt.Sprintf("%d edges", g.NEdges()),
	}
	if n := g.NLinks(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d links", n))
	}
	fmt.Fprintln(statusOut, "  "+StyleDim.Render(strings.Join(parts, " · ")))
}

// summaryTable renders the liveness figures of a run as a table.
func summaryTable(res *pipeline.Result) string {
	s := res.Summary
	status, statusStyle := iconFresh, styleComputed
	if res.Source == pipeline.SourceCache {
		status, statusStyle = iconCached, styleCached
	}

	rows := [][]string{
		{"sum liveness", s.InitialSumLiveness.String(), s.FinalSumLiveness.String()},
		{"max liveness", s.InitialMaxLiveness.String(), s.FinalMaxLiveness.String()},
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "initial", "final").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == -1:
				return headerStyle.Padding(0, 1)
			case col == 0:
				return base.Foreground(colorGray)
			case col == 2 && row == 0 && s.FinalSumLiveness.Less(s.InitialSumLiveness):
				return base.Inherit(styleBetter)
			}
			return base.Foreground(colorWhite)
		})

	var b strings.Builder
	b.WriteString(t.Render())
	b.WriteString("\n")
	details := []string{
		fmt.Sprintf("%d rotations", s.NRotations),
		fmt.Sprintf("%d rounds", s.NRounds),
		fmt.Sprintf("window %d", s.FinalWindow),
		statusStyle.Render(status),
	}
	b.WriteString("  " + StyleDim.Render(strings.Join(details, " · ")))
	return b.String()
}

// printSummary prints the outcome of a scheduling run.
func printSummary(res *pipeline.Result) {
	fmt.Fprintln(statusOut, summaryTable(res))
}

// printLiveness prints a key-value liveness report for a fixed order.
func printLiveness(sum, peak shift.Weight) {
	printKeyValue("sum", StyleNumber.Render(sum.String()))
	printKeyValue("max", StyleNumber.Render(peak.String()))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(statusOut, keyStyle.Render(key)+" "+StyleValue.Render(value))
}
