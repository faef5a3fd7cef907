package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/daviddao/mobsinet_viewer/internal/datasource"
	"github.com/daviddao/mobsinet_viewer/internal/poller"
)

// --- Styles ---

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Background(lipgloss.Color("#1E1E2E")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#89B4FA"))

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E3A1")).
			Bold(true)

	stoppedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F9E2AF"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CDD6F4")).
			Background(lipgloss.Color("#1E1E2E"))
)

const contextHelp = "i: init | R: run | x: stop | space: poll | /: query | ?: help | q: quit"

// --- View rendering ---

func (m uiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(m.renderTitleBar())
	b.WriteRune('\n')

	graphW, sideW, contentH := m.paneSizes()
	graph := m.renderGraph(contentH)
	content := graph
	if sideW > 0 {
		content = renderSplitPane(graph, m.renderSidePane(), graphW, contentH)
	}

	// Truncate each line to terminal width so content doesn't wrap
	// on resize.
	b.WriteString(truncateLines(content, m.width))

	// Pad to fill the content area.
	rendered := strings.Count(b.String(), "\n")
	for rendered < contentH+1 {
		b.WriteRune('\n')
		rendered++
	}

	if m.prompting {
		b.WriteString(m.prompt.View())
		b.WriteRune('\n')
	}
	b.WriteString(m.renderResult())
	b.WriteRune('\n')

	if m.showHelp {
		b.WriteString(m.help.View(keys))
		b.WriteRune('\n')
	}
	b.WriteString(m.renderStatusBar())

	return b.String()
}

func (m uiModel) renderTitleBar() string {
	st := m.sync.CurrentState()
	title := titleStyle.Render("mobsinet viewer")

	badge := stoppedStyle.Render("stopped")
	if st.Running {
		badge = runningStyle.Render("running")
	}
	round := "-"
	if st.Round >= 0 {
		round = fmt.Sprint(st.Round)
	}
	project := m.project
	if project == "" {
		project = "(none)"
	}
	stats := dimStyle.Render(fmt.Sprintf(
		"%s | round %s | %d nodes | %d links | msgs %d/%d ",
		project, round, len(st.Nodes), len(st.Links),
		st.MessagesThisRound, st.MessagesOverall,
	)) + badge
	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(title)-lipgloss.Width(stats)-1))
	return title + gap + stats
}

func (m uiModel) renderGraph(height int) string {
	if m.frame == "" {
		return dimStyle.Render("  waiting for the first snapshot...")
	}
	lines := strings.Split(strings.TrimSuffix(m.frame, "\n"), "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m uiModel) renderSidePane() string {
	var header string
	switch {
	case m.showConfig:
		header = headerStyle.Render("Config " + m.project)
	case m.embedding != nil:
		return headerStyle.Render(fmt.Sprintf("Embedding %dd", m.embedding.Dimensions())) + "\n" + m.embedFrame
	case m.logs.Len() == 0:
		return headerStyle.Render("Logs") + "\n" + dimStyle.Render("(no logs yet)")
	default:
		header = headerStyle.Render("Logs")
	}
	return header + "\n" + m.logView.View()
}

func (m uiModel) renderResult() string {
	if m.result == "" {
		return ""
	}
	return resultStyle.Render(" " + m.result)
}

func (m uiModel) renderStatusBar() string {
	left := " " + contextHelp
	if m.status != "" {
		left = " " + m.status
	}

	poll := "poll paused"
	if m.sched.Running() {
		poll = fmt.Sprintf("poll %.2gHz %d/%d", m.sched.Rate(), m.sched.InFlight(), poller.MaxInFlight)
	}
	updated := "never"
	if !m.lastUpdate.IsZero() {
		updated = shortDuration(time.Since(m.lastUpdate)) + " ago"
	}
	right := fmt.Sprintf("%s | updated %s ", poll, updated)
	if room := m.width - lipgloss.Width(right); lipgloss.Width(left) > room {
		left = ansi.Truncate(left, max(room, 0), "…")
	}

	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right)))
	if m.statusErr {
		return errorStyle.Render(left) + statusBarStyle.Render(gap+right)
	}
	return statusBarStyle.Render(left + gap + right)
}

// --- Split-pane rendering ---

// renderSplitPane renders two panes side by side with a vertical separator.
func renderSplitPane(left, right string, leftWidth, maxHeight int) string {
	leftLines := strings.Split(left, "\n")
	rightLines := strings.Split(right, "\n")

	maxLines := min(max(len(leftLines), len(rightLines)), maxHeight)
	for len(leftLines) < maxLines {
		leftLines = append(leftLines, "")
	}
	for len(rightLines) < maxLines {
		rightLines = append(rightLines, "")
	}

	sep := dimStyle.Render("│")
	var b strings.Builder
	for i := 0; i < maxLines; i++ {
		b.WriteString(padOrTruncate(leftLines[i], leftWidth))
		b.WriteString(" ")
		b.WriteString(sep)
		b.WriteString(" ")
		b.WriteString(rightLines[i])
		if i < maxLines-1 {
			b.WriteRune('\n')
		}
	}
	return b.String()
}

// padOrTruncate pads or truncates a styled line to the target visible width.
func padOrTruncate(s string, width int) string {
	w := lipgloss.Width(s)
	if w > width {
		return ansi.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-w)
}

// --- Helpers ---

func formatConfig(entries []datasource.ConfigEntry) string {
	if len(entries) == 0 {
		return dimStyle.Render("(loading)")
	}
	width := 0
	for _, e := range entries {
		width = max(width, len(e.Key))
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%-*s %s\n", width, e.Key, e.Value)
	}
	return b.String()
}

// truncateLines truncates each line in content to at most width visible
// characters, preserving ANSI escape codes.
func truncateLines(content string, width int) string {
	if width <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if lipgloss.Width(line) > width {
			lines[i] = ansi.Truncate(line, width, "")
		}
	}
	return strings.Join(lines, "\n")
}

func shortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
