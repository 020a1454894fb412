// Package ui renders the terminal output of the newsgoat commands.
package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/IshaanNene/newsgoat/internal/pipeline"
)

// TitleWidth is the column budget for article titles in listings.
const TitleWidth = 60

var (
	primaryColor = lipgloss.Color("#0969DA")
	accentColor  = lipgloss.Color("#2DA44E")
	warningColor = lipgloss.Color("#D29922")
	errorColor   = lipgloss.Color("#CF222E")
	dimColor     = lipgloss.Color("#6E7681")
	labelColor   = lipgloss.Color("#8250DF")

	HeaderStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	SuccessBox = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)

	WarningBox = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(warningColor).
			Padding(0, 1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(labelColor).
			Width(12)

	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)
)

// Title shortens s to width terminal columns, marking the cut with "...".
// Wide runes such as CJK count as two columns.
func Title(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.Truncate(s, width, "...")
}

func field(label string, value any) string {
	return LabelStyle.Render(label) + fmt.Sprint(value)
}

// Completed renders the banner printed after a run that found articles.
func Completed(res *pipeline.RunResult, output string) string {
	lines := []string{
		SuccessStyle.Render("Scraping complete"),
		"",
		field("Site", res.Site),
		field("Keyword", res.Keyword),
		field("Candidates", res.Candidates),
		field("Saved", res.Saved),
	}
	if skipped := skippedSummary(res.Skipped); skipped != "" {
		lines = append(lines, field("Skipped", skipped))
	}
	if res.Clicks > 0 {
		lines = append(lines, field("Show more", fmt.Sprintf("%d clicks (%s)", res.Clicks, res.Stop)))
	}
	lines = append(lines,
		field("Duration", res.Duration.Round(time.Millisecond)),
		field("Output", output),
		DimStyle.Render("run "+res.RunID),
	)
	return SuccessBox.Render(strings.Join(lines, "\n"))
}

// NoArticles renders the banner printed when the search returned nothing.
func NoArticles(site, keyword string) string {
	return WarningBox.Render(strings.Join([]string{
		WarningStyle.Render("No articles found"),
		"",
		fmt.Sprintf("%s returned no results for %q.", site, keyword),
		DimStyle.Render("Nothing was written."),
	}, "\n"))
}

// Error renders a one-line error message.
func Error(err error) string {
	return ErrorStyle.Render("Error: ") + err.Error()
}

// ArticleList renders numbered titles, truncated to TitleWidth.
func ArticleList(header string, titles []string) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(header))
	b.WriteString("\n")
	for i, t := range titles {
		fmt.Fprintf(&b, "%s %s\n", DimStyle.Render(fmt.Sprintf("%3d.", i)), Title(t, TitleWidth))
	}
	return b.String()
}

func skippedSummary(skipped map[string]int) string {
	reasons := make([]string, 0, len(skipped))
	for reason, n := range skipped {
		if n > 0 {
			reasons = append(reasons, fmt.Sprintf("%s=%d", reason, n))
		}
	}
	sort.Strings(reasons)
	return strings.Join(reasons, " ")
}
