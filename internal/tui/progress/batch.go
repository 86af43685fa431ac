// Package progress renders a batch resolution and lets the user retry items
// whose search found nothing.
package progress

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Digital-Shane/title-scout/internal/guess"
	"github.com/Digital-Shane/title-scout/internal/resolve"
	"github.com/Digital-Shane/title-scout/internal/tui/theme"
)

type batchEventMsg struct {
	event resolve.Event
	done  bool
}

type retryFinishedMsg struct {
	key     string
	failure *resolve.Failure
	err     error
}

const errorBaseLines = 6

func newSearchInput(th theme.Theme) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 256
	colors := th.Colors()
	ti.CursorStyle = lipgloss.NewStyle().Foreground(colors.Background).Background(colors.Accent)
	ti.TextStyle = lipgloss.NewStyle().Foreground(colors.Primary)
	ti.Width = 64
	ti.Blur()
	return ti
}

// BatchModel shows progress of a resolve.Engine run. When the run ends with
// items that found no candidate, it switches to a manual mode where each
// item's search text can be edited and retried.
type BatchModel struct {
	engine   *resolve.Engine
	events   <-chan resolve.Event
	summary  resolve.Summary
	errors   []error
	provider string

	width  int
	height int

	progress progress.Model
	theme    theme.Theme
	input    textinput.Model

	failures       []resolve.Failure
	selected       int
	initialFailing int
	manualActive   bool
	skipped        bool
	retrying       bool
	status         string

	ctx    context.Context
	cancel context.CancelFunc

	done bool
}

// NewBatchModel wraps engine. provider labels the header and may be empty.
func NewBatchModel(engine *resolve.Engine, provider string, th theme.Theme) *BatchModel {
	gradient := th.ProgressGradient()
	prog := progress.New(progress.WithGradient(gradient[0], gradient[1]))
	prog.Width = 50

	return &BatchModel{
		engine:   engine,
		summary:  engine.SummarySnapshot(),
		provider: provider,
		width:    80,
		height:   12,
		progress: prog,
		theme:    th,
		input:    newSearchInput(th),
	}
}

// Init starts the engine.
func (m *BatchModel) Init() tea.Cmd {
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.events = m.engine.Start(m.ctx)
	return m.waitForEvent()
}

func (m *BatchModel) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-m.events
		if !ok {
			return batchEventMsg{done: true}
		}
		return batchEventMsg{event: evt}
	}
}

// Update processes Bubble Tea messages.
func (m *BatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.progress.Width = msg.Width - 4
		m.updateInputWidth(msg.Width)
		return m, nil
	case tea.KeyMsg:
		if m.manualActive {
			return m.handleManualKey(msg)
		}
		switch msg.String() {
		case "ctrl+c", "esc":
			m.stop()
			return m, tea.Quit
		}
	case batchEventMsg:
		return m.handleEvent(msg)
	case retryFinishedMsg:
		return m.handleRetryFinished(msg)
	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *BatchModel) stop() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *BatchModel) handleEvent(msg batchEventMsg) (tea.Model, tea.Cmd) {
	if msg.done {
		m.summary = m.engine.SummarySnapshot()
		m.errors = m.engine.Errors()
		if m.manualActive {
			return m, nil
		}
		if m.enterManual() {
			return m, nil
		}
		m.done = m.summary.Done
		return m, tea.Quit
	}

	m.summary = msg.event.Summary
	m.errors = m.engine.Errors()

	ratio := 0.0
	if m.summary.TotalItems > 0 {
		ratio = float64(m.summary.ProcessedItems) / float64(m.summary.TotalItems)
	}
	cmd := m.progress.SetPercent(ratio)
	if m.summary.Done && !m.manualActive {
		if m.enterManual() {
			return m, tea.Batch(cmd, m.waitForEvent())
		}
		m.done = true
		return m, tea.Batch(cmd, tea.Quit)
	}
	return m, tea.Batch(cmd, m.waitForEvent())
}

// enterManual switches to manual mode when the engine recorded failures.
func (m *BatchModel) enterManual() bool {
	failures := m.engine.Failures()
	if len(failures) == 0 {
		return false
	}
	m.failures = failures
	m.initialFailing = len(failures)
	m.manualActive = true
	m.selected = 0
	m.prepareInput()
	m.status = m.describeFailure(m.failures[m.selected])
	return true
}

func (m *BatchModel) handleRetryFinished(msg retryFinishedMsg) (tea.Model, tea.Cmd) {
	m.retrying = false
	if msg.err != nil {
		m.status = fmt.Sprintf("Retry failed: %v", msg.err)
		return m, nil
	}

	m.summary = m.engine.SummarySnapshot()
	m.errors = m.engine.Errors()

	if msg.failure != nil {
		m.replaceFailure(*msg.failure)
		m.status = m.describeFailure(*msg.failure)
		m.prepareInput()
		return m, nil
	}

	m.failures = m.engine.Failures()
	if len(m.failures) == 0 {
		m.manualActive = false
		m.done = true
		m.status = "All items resolved"
		return m, tea.Quit
	}
	if m.selected >= len(m.failures) {
		m.selected = len(m.failures) - 1
	}
	m.status = fmt.Sprintf("Resolved. %d remaining.", len(m.failures))
	m.prepareInput()
	return m, nil
}

func (m *BatchModel) handleManualKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.stop()
		return m, tea.Quit
	case tea.KeyUp, tea.KeyShiftTab:
		m.moveSelection(-1)
		return m, nil
	case tea.KeyDown, tea.KeyTab:
		m.moveSelection(1)
		return m, nil
	case tea.KeyEnter:
		if m.retrying || len(m.failures) == 0 {
			return m, nil
		}
		failure := m.failures[m.selected]
		m.retrying = true
		m.status = fmt.Sprintf("Searching %q…", m.input.Value())
		return m, m.retryCmd(failure.Item.Key, m.input.Value())
	case tea.KeyCtrlS:
		m.skipped = true
		m.manualActive = false
		m.done = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *BatchModel) retryCmd(key, query string) tea.Cmd {
	return func() tea.Msg {
		ctx := m.ctx
		if ctx == nil || ctx.Err() != nil {
			ctx = context.Background()
		}
		updated, err := m.engine.Retry(ctx, key, query)
		return retryFinishedMsg{key: key, failure: updated, err: err}
	}
}

func (m *BatchModel) replaceFailure(updated resolve.Failure) {
	for i := range m.failures {
		if m.failures[i].Item.Key == updated.Item.Key {
			m.failures[i] = updated
			m.selected = i
			return
		}
	}
	m.failures = append(m.failures, updated)
	m.selected = len(m.failures) - 1
}

func (m *BatchModel) moveSelection(delta int) {
	if len(m.failures) == 0 {
		return
	}
	m.selected = max(0, min(len(m.failures)-1, m.selected+delta))
	m.prepareInput()
	m.status = m.describeFailure(m.failures[m.selected])
}

func (m *BatchModel) prepareInput() {
	if len(m.failures) == 0 {
		m.input.SetValue("")
		return
	}
	m.updateInputWidth(m.width)
	m.input.SetValue(queryOf(m.failures[m.selected]))
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *BatchModel) updateInputWidth(width int) {
	if width <= 0 {
		return
	}
	m.input.Width = max(20, width-8)
}

// queryOf is the last search text used for a failure, or the title guessed
// from its path.
func queryOf(f resolve.Failure) string {
	if q := strings.TrimSpace(f.Query); q != "" {
		return q
	}
	return guess.Parse(f.Item.Path).Title
}

func (m *BatchModel) describeFailure(f resolve.Failure) string {
	attempt := ""
	if f.Attempts > 1 {
		attempt = fmt.Sprintf(" (attempt %d)", f.Attempts)
	}
	errText := "unknown error"
	if f.Err != nil {
		errText = f.Err.Error()
	}
	return fmt.Sprintf("%s%s, query %q: %s", filepath.Base(f.Item.Path), attempt, queryOf(f), errText)
}

// View renders the progress UI.
func (m *BatchModel) View() string {
	if m.manualActive && len(m.failures) > 0 {
		return m.renderManualView()
	}
	if m.summary.TotalItems == 0 {
		return "No files to resolve.\n"
	}

	percent := 100 * m.summary.ProcessedItems / m.summary.TotalItems
	header := "Resolving Metadata"
	if m.provider != "" {
		header = fmt.Sprintf("Resolving Metadata (%s)", m.provider)
	}

	stats := []string{
		fmt.Sprintf("%s Total Items: %d", m.theme.Icon("stats"), m.summary.TotalItems),
		fmt.Sprintf("Processed: %d", m.summary.ProcessedItems),
		fmt.Sprintf("%s Resolved: %d", m.theme.Icon("resolved"), m.summary.Resolved),
		fmt.Sprintf("%s Failed: %d", m.theme.Icon("failed"), m.summary.Failed),
		fmt.Sprintf("Progress: %d%%", percent),
		fmt.Sprintf("%s Workers: %d/%d", m.theme.Icon("workers"), m.summary.ActiveWorkers, m.summary.WorkerLimit),
	}

	status := "Resolving in parallel... please wait"
	if m.summary.LastItem != "" {
		status = m.summary.LastItem
	}

	sections := []string{
		m.theme.HeaderStyle().Width(m.width).Render(header),
		m.progress.View(),
		m.renderPanel(strings.Join(stats, "\n"), m.renderErrors()),
		m.theme.StatusBarStyle().Width(m.width).Render(truncate(status, m.width-2)),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *BatchModel) renderManualView() string {
	colors := m.theme.Colors()
	remaining := len(m.failures)
	resolved := max(0, m.initialFailing-remaining)

	muted := lipgloss.NewStyle().Foreground(colors.Muted).Width(m.width)
	status := m.status
	if status == "" {
		status = "Adjust the search text and press Enter to retry."
	}

	sections := []string{
		m.theme.HeaderStyle().Width(m.width).Render("Resolve Unmatched Files"),
		muted.Render(fmt.Sprintf("Unmatched: %d (resolved: %d)", remaining, resolved)),
		muted.Render("Use ↑/↓ to choose a file, edit the search text, Enter to retry, ctrl+s to skip."),
		m.renderFailureList(),
		lipgloss.NewStyle().Width(m.width).Render(fmt.Sprintf("%s Search: %s", m.theme.Icon("search"), m.input.View())),
		m.theme.StatusBarStyle().Width(m.width).Render(truncate(status, m.width-2)),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *BatchModel) renderFailureList() string {
	colors := m.theme.Colors()
	normal := lipgloss.NewStyle().Foreground(colors.Error)
	selected := lipgloss.NewStyle().Foreground(colors.Accent).Bold(true)

	entries := make([]string, 0, len(m.failures))
	for i, f := range m.failures {
		indicator, style := m.theme.Icon("bullet"), normal
		if i == m.selected {
			indicator, style = m.theme.Icon("arrow"), selected
		}
		attempt := ""
		if f.Attempts > 1 {
			attempt = fmt.Sprintf(" (attempt %d)", f.Attempts)
		}
		entries = append(entries, style.Render(fmt.Sprintf("%s %s%s\n  query: %q", indicator, filepath.Base(f.Item.Path), attempt, queryOf(f))))
	}
	return m.renderPanel(strings.Join(entries, "\n\n"))
}

func (m *BatchModel) renderPanel(blocks ...string) string {
	panel := m.theme.PanelStyle()
	width := max(0, m.width-panel.GetHorizontalFrameSize())
	kept := blocks[:0]
	for _, b := range blocks {
		if b != "" {
			kept = append(kept, b)
		}
	}
	return panel.Width(width).Render(strings.Join(kept, "\n"))
}

func (m *BatchModel) renderErrors() string {
	if len(m.errors) == 0 {
		return ""
	}
	style := lipgloss.NewStyle().Foreground(m.theme.Colors().Error)

	show := min(len(m.errors), max(1, m.height-errorBaseLines-1))
	width := max(10, m.width-4)

	lines := []string{fmt.Sprintf("Errors: %d", len(m.errors))}
	for _, err := range m.errors[len(m.errors)-show:] {
		lines = append(lines, "• "+truncate(err.Error(), width))
	}
	if len(m.errors) > show {
		lines = append(lines, fmt.Sprintf("... and %d more", len(m.errors)-show))
	}
	return style.Render(strings.Join(lines, "\n"))
}

// truncate shortens s to width terminal cells.
func truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}

// Results returns the engine results once the model finished.
func (m *BatchModel) Results() map[string]*resolve.Result { return m.engine.Results() }

// Summary returns the last summary seen.
func (m *BatchModel) Summary() resolve.Summary { return m.summary }

// Done reports whether the batch ran to completion, including manual mode.
func (m *BatchModel) Done() bool { return m.done }

// Skipped reports whether the user left manual mode with ctrl+s.
func (m *BatchModel) Skipped() bool { return m.skipped }

// Err returns the first error that was not a missing match. Items still
// awaiting a manual query are not errors.
func (m *BatchModel) Err() error {
	for _, err := range m.errors {
		if !resolve.IsMiss(err) {
			return err
		}
	}
	return nil
}
