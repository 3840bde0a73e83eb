// Package tui provides an interactive terminal UI for traceroute and MDA
// runs, streaming hop rows as the reactor discovers them instead of
// waiting for the run to finish.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/netreach/paris-traceroute/internal/algorithm/mda"
	"github.com/netreach/paris-traceroute/internal/algorithm/traceroute"
	"github.com/netreach/paris-traceroute/internal/event"
	"github.com/netreach/paris-traceroute/internal/result"
	"github.com/netreach/paris-traceroute/internal/runner"
)

// State represents the current state of the TUI.
type State int

const (
	StateRunning State = iota
	StateComplete
	StateError
)

// hopRow is one line of the live hop table: either a reply (address +
// RTT) or a star (timeout), at a given TTL.
type hopRow struct {
	ttl      int
	address  string
	rtt      time.Duration
	isStar   bool
}

// Model is the Bubble Tea model driving one runner.Run invocation.
type Model struct {
	target string
	opts   runner.Options
	width  int
	height int

	state     State
	rows      []hopRow
	result    *result.Result
	err       error
	elapsed   time.Duration
	startTime time.Time

	spinner spinner.Model
	styles  Styles

	events chan event.Event
}

// EventMsg wraps one reactor event for Bubble Tea's message loop.
type EventMsg struct {
	Event event.Event
}

// CompleteMsg is sent when the run finishes successfully.
type CompleteMsg struct {
	Result *result.Result
}

// ErrorMsg is sent when the run fails.
type ErrorMsg struct {
	Err error
}

// TickMsg is sent to update elapsed time.
type TickMsg time.Time

// New creates a new TUI model for tracing target with opts. opts.OnEvent
// is overwritten to feed the model's internal event channel.
func New(target string, opts runner.Options) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := &Model{
		target:    target,
		opts:      opts,
		state:     StateRunning,
		spinner:   s,
		styles:    DefaultStyles(),
		width:     80,
		height:    24,
		startTime: time.Now(),
		events:    make(chan event.Event, 256),
	}
	m.opts.OnEvent = func(ev event.Event) { m.events <- ev }

	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.runTrace(),
		m.tickCmd(),
		m.waitForEvent(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		m.elapsed = time.Since(m.startTime)
		if m.state == StateRunning {
			return m, m.tickCmd()
		}

	case EventMsg:
		m.rows = appendRow(m.rows, msg.Event)
		return m, m.waitForEvent()

	case CompleteMsg:
		m.state = StateComplete
		m.result = msg.Result

	case ErrorMsg:
		m.state = StateError
		m.err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

// appendRow folds one reactor event into the live row list; unrecognized
// events (PROBE_REPLY/PROBE_TIMEOUT, ALGORITHM_HAS_TERMINATED) add nothing
// since they carry no hop-display data of their own.
func appendRow(rows []hopRow, ev event.Event) []hopRow {
	switch p := ev.Payload.(type) {
	case traceroute.ReplyEvent:
		return append(rows, hopRow{ttl: p.TTL, address: p.From.String(), rtt: p.RTT})
	case traceroute.StarEvent:
		return append(rows, hopRow{ttl: p.TTL, isStar: true})
	case mda.NewLinkEvent:
		if p.ToStar {
			return append(rows, hopRow{ttl: p.ToTTL, isStar: true})
		}
		return append(rows, hopRow{ttl: p.ToTTL, address: p.To.String(), rtt: p.RTT})
	}
	return rows
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderHops())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m Model) renderHeader() string {
	title := m.styles.Title.Render("paris-traceroute")

	var status string
	switch m.state {
	case StateRunning:
		status = m.spinner.View() + " Tracing..."
	case StateComplete:
		status = m.styles.Success.Render("✓ Complete")
	case StateError:
		status = m.styles.Error.Render("✗ Error")
	}

	info := fmt.Sprintf("Target: %s | Algorithm: %s | Method: %s", m.target, m.opts.Algorithm, m.opts.Method)

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.styles.Subtle.Render(info),
		status,
	)
}

func (m Model) renderHops() string {
	if len(m.rows) == 0 {
		return m.styles.Subtle.Render("Waiting for responses...")
	}

	var rows []string

	header := fmt.Sprintf("%-4s %-20s %-10s", "TTL", "Address", "RTT")
	rows = append(rows, m.styles.Header.Render(header))
	rows = append(rows, m.styles.Subtle.Render(strings.Repeat("─", 40)))

	for _, r := range m.rows {
		rows = append(rows, m.renderRow(r))
	}

	return strings.Join(rows, "\n")
}

func (m Model) renderRow(r hopRow) string {
	ttl := fmt.Sprintf("%-4d", r.ttl)

	if r.isStar {
		return fmt.Sprintf("%-4s %-20s %-10s",
			m.styles.HopNum.Render(ttl),
			m.styles.Timeout.Render("*"),
			"-",
		)
	}

	rttStr := fmt.Sprintf("%.2f ms", float64(r.rtt)/float64(time.Millisecond))
	return fmt.Sprintf("%-4s %-20s %-10s",
		m.styles.HopNum.Render(ttl),
		m.styles.IP.Render(truncate(r.address, 20)),
		m.colorizeRTT(rttStr, r.rtt),
	)
}

func (m Model) colorizeRTT(s string, rtt time.Duration) string {
	ms := float64(rtt) / float64(time.Millisecond)
	switch {
	case ms < 50:
		return m.styles.RTTLow.Render(s)
	case ms < 150:
		return m.styles.RTTMed.Render(s)
	default:
		return m.styles.RTTHigh.Render(s)
	}
}

func (m Model) renderFooter() string {
	var parts []string

	if m.state == StateComplete {
		parts = append(parts, fmt.Sprintf("Rows: %d", len(m.rows)))
	}
	parts = append(parts, "Press 'q' to quit")

	return m.styles.Subtle.Render(strings.Join(parts, " | "))
}

// runTrace runs the traceroute/MDA instance in the background.
func (m Model) runTrace() tea.Cmd {
	return func() tea.Msg {
		r, err := runner.Run(context.Background(), m.opts)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return CompleteMsg{Result: r}
	}
}

// waitForEvent waits for the next reactor event.
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}
		return EventMsg{Event: ev}
	}
}

// tickCmd returns a command that sends tick messages.
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Close releases resources.
func (m *Model) Close() error {
	close(m.events)
	return nil
}

// truncate truncates a string to maxLen.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
