package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Digital-Shane/youtube-metadata/internal/core"
	"github.com/Digital-Shane/youtube-metadata/internal/tui/theme"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

type metadataEventMsg struct {
	event core.MetadataEvent
	done  bool
}

// metadataErrorBaseLines is the room taken by everything but the error list.
const metadataErrorBaseLines = 12

// MetadataProgressModel displays progress while the engine refreshes
// metadata for a batch of items.
type MetadataProgressModel struct {
	engine  *core.MetadataEngine
	events  <-chan core.MetadataEvent
	summary core.MetadataSummary
	errors  []error
	backend string

	width  int
	height int

	progress progress.Model
	theme    theme.Theme

	ctx    context.Context
	cancel context.CancelFunc

	done bool
}

// NewMetadataProgressModel creates a progress model over engine. backend
// names the fetcher shown in the header.
func NewMetadataProgressModel(engine *core.MetadataEngine, backend string, th theme.Theme) *MetadataProgressModel {
	gradient := th.ProgressGradient()
	prog := progress.New(progress.WithGradient(gradient[0], gradient[1]))
	prog.Width = 50

	m := &MetadataProgressModel{
		engine:   engine,
		backend:  backend,
		width:    80,
		height:   12,
		progress: prog,
		theme:    th,
	}
	if engine != nil {
		m.summary = engine.SummarySnapshot()
	}
	return m
}

// Init starts the engine.
func (m *MetadataProgressModel) Init() tea.Cmd {
	if m.engine == nil {
		m.done = true
		return tea.Quit
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.events = m.engine.Start(m.ctx)
	return m.waitForEvent()
}

func (m *MetadataProgressModel) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-m.events
		if !ok {
			return metadataEventMsg{done: true}
		}
		return metadataEventMsg{event: evt}
	}
}

// Update processes Bubble Tea messages.
func (m *MetadataProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.progress.Width = msg.Width - 4
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case metadataEventMsg:
		return m.handleMetadataEvent(msg)
	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *MetadataProgressModel) handleMetadataEvent(msg metadataEventMsg) (tea.Model, tea.Cmd) {
	if msg.done {
		m.errors = m.engine.Errors()
		m.summary = m.engine.SummarySnapshot()
		m.done = m.summary.Done
		return m, tea.Quit
	}

	m.summary = msg.event.Summary
	if msg.event.Err != nil && !isContextErr(msg.event.Err) {
		m.errors = m.engine.Errors()
	}

	ratio := 0.0
	if m.summary.TotalItems > 0 {
		ratio = float64(m.summary.ProcessedItems) / float64(m.summary.TotalItems)
	}
	cmd := m.progress.SetPercent(ratio)
	return m, tea.Batch(cmd, m.waitForEvent())
}

// View renders the progress UI.
func (m *MetadataProgressModel) View() string {
	if m.summary.TotalItems == 0 {
		return "No items require metadata.\n"
	}

	percent := 100 * m.summary.ProcessedItems / m.summary.TotalItems
	title := "Refreshing YouTube Metadata"
	if m.backend != "" {
		title = fmt.Sprintf("%s (%s)", title, m.backend)
	}

	workers := fmt.Sprintf("%s Active Workers: %d/%d", m.theme.Icon("chip"), m.summary.ActiveWorkers, m.summary.WorkerLimit)
	info := fmt.Sprintf("Items processed: %d/%d", m.summary.ProcessedItems, m.summary.TotalItems)
	if m.summary.LastItem != "" {
		info += "  Last: " + runewidth.Truncate(m.summary.LastItem, max(m.width-len(info)-8, 10), "...")
	}

	stats := strings.Join([]string{
		fmt.Sprintf("Total Items: %d", m.summary.TotalItems),
		fmt.Sprintf("Processed: %d", m.summary.ProcessedItems),
		m.theme.OutcomeLine(theme.OutcomeFresh, m.summary.FoundItems),
		m.theme.OutcomeLine(theme.OutcomeStale, m.summary.StaleItems),
		m.theme.OutcomeLine(theme.OutcomeMissing, m.summary.MissingItems),
		fmt.Sprintf("Progress: %d%%", percent),
	}, "\n")

	panel := m.theme.PanelStyle()
	panelWidth := max(m.width-panel.GetHorizontalFrameSize(), 0)

	sections := []string{
		m.theme.HeaderStyle().Width(m.width).Render(title),
		lipgloss.NewStyle().Foreground(m.theme.Colors().Accent).Bold(true).Render(workers),
		m.progress.View(),
		info,
		panel.Width(panelWidth).Render(stats),
	}
	if errs := m.renderErrors(); errs != "" {
		sections = append(sections, errs)
	}

	status := "Refreshing metadata in parallel... please wait"
	switch {
	case m.summary.Canceled:
		status = "Canceled"
	case m.summary.Done:
		status = "Done"
	}
	sections = append(sections, m.theme.StatusBarStyle().Width(m.width).Render(status))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderErrors lists the most recent errors that fit the window.
func (m *MetadataProgressModel) renderErrors() string {
	if len(m.errors) == 0 {
		return ""
	}

	lines := []string{m.theme.OutcomeLine(theme.OutcomeFailed, len(m.errors))}
	maxLines := max(m.height-metadataErrorBaseLines, 1)
	shown := min(len(m.errors), maxLines)
	width := max(m.width-2, 10)

	for _, err := range m.errors[len(m.errors)-shown:] {
		lines = append(lines, "• "+runewidth.Truncate(err.Error(), width, "..."))
	}
	if len(m.errors) > shown {
		lines = append(lines, fmt.Sprintf("... and %d more", len(m.errors)-shown))
	}

	return lipgloss.NewStyle().Foreground(m.theme.Colors().Error).Render(strings.Join(lines, "\n"))
}

// Summary returns the latest engine summary.
func (m *MetadataProgressModel) Summary() core.MetadataSummary { return m.summary }

// Errors returns the lookup errors seen so far.
func (m *MetadataProgressModel) Errors() []error { return m.errors }

// Done reports whether every item was processed.
func (m *MetadataProgressModel) Done() bool { return m.done }

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
