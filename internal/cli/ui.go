package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/flowdiagram/pkg/diagram"
)

// stdout receives all status output. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// =============================================================================
// Palette
// =============================================================================

var (
	colorTeal  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorAmber = lipgloss.Color("220")
	colorRed   = lipgloss.Color("167")
	colorWhite = lipgloss.Color("255")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")
)

var (
	// StyleTitle renders headings such as the flow name in the inspector.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorTeal)

	// StyleHighlight renders emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorTeal)

	// StyleDim renders secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue renders names, paths and numbers.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess renders clean results.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning renders problems.
	StyleWarning = lipgloss.NewStyle().Foreground(colorAmber)
)

var (
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorTeal)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	styleCached      = lipgloss.NewStyle().Foreground(colorGreen)
	styleFresh       = lipgloss.NewStyle().Foreground(colorGray)
)

// status line markers
var (
	markSuccess = lipgloss.NewStyle().Foreground(colorGreen).Render("✓")
	markError   = lipgloss.NewStyle().Foreground(colorRed).Render("✗")
	markWarning = lipgloss.NewStyle().Foreground(colorAmber).Render("!")
	markInfo    = lipgloss.NewStyle().Foreground(colorGray).Render("›")
)

const iconArrow = "→"

// =============================================================================
// Status lines
// =============================================================================

func printLine(mark, format string, args ...any) {
	fmt.Fprintln(stdout, mark+" "+fmt.Sprintf(format, args...))
}

func printSuccess(format string, args ...any) { printLine(markSuccess, format, args...) }

func printError(format string, args ...any) { printLine(markError, format, args...) }

func printInfo(format string, args ...any) { printLine(markInfo, format, args...) }

func printWarning(format string, args ...any) {
	printLine(markWarning, "%s", StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile reports a written file.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// =============================================================================
// Diagram summaries
// =============================================================================

// printStats prints "N nodes · M links".
func printStats(nodes, links int) {
	printStatsLine(statsParts(nodes, links))
}

// printRenderStats adds whether the artifacts came from the cache.
func printRenderStats(nodes, links int, cached bool) {
	status := styleFresh.Render("fresh")
	if cached {
		status = styleCached.Render("cached")
	}
	printStatsLine(append(statsParts(nodes, links), status))
}

func statsParts(nodes, links int) []string {
	parts := []string{plural(nodes, "node")}
	if links > 0 {
		parts = append(parts, plural(links, "link"))
	}
	return parts
}

func printStatsLine(parts []string) {
	for i := range parts {
		parts[i] = StyleDim.Render(parts[i])
	}
	fmt.Fprintln(stdout, "  "+strings.Join(parts, StyleDim.Render(" · ")))
}

// printProblems lists the nodes with unresolved transitions.
func printProblems(problems []diagram.NodeProblem) {
	for _, p := range problems {
		printDetail("%s: %s", p.NodeName, plural(p.MissingPorts, "unresolved transition"))
	}
}

// printViewport prints the zoom and pan of a fitted diagram.
func printViewport(vp diagram.Viewport) {
	printKeyValue("zoom", fmt.Sprintf("%.4f", vp.Zoom))
	printKeyValue("offset x", fmt.Sprintf("%.2f", vp.OffsetX))
	printKeyValue("offset y", fmt.Sprintf("%.2f", vp.OffsetY))
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
