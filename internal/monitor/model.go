// Package monitor provides a Bubble Tea status view of a running relay.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"pkt.systems/webchat/httpapi"
	"pkt.systems/webchat/schema"
)

const defaultPollTick = time.Second

// StatusFetcher is implemented by *httpapi.Client.
type StatusFetcher interface {
	Status(ctx context.Context) (*httpapi.StatusResponse, error)
}

var _ StatusFetcher = (*httpapi.Client)(nil)

// Options configures the monitor.
type Options struct {
	Context  context.Context
	Client   StatusFetcher
	PollTick time.Duration
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx      context.Context
	client   StatusFetcher
	pollTick time.Duration

	keys   keyMap
	help   help.Model
	styles styles

	width  int
	ready  bool
	status *httpapi.StatusResponse
	err    error
	polls  int

	lastUpdated time.Time
}

// New creates a monitor model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = defaultPollTick
	}
	return Model{
		ctx:      ctx,
		client:   opts.Client,
		pollTick: pollTick,
		keys:     defaultKeyMap(),
		help:     help.New(),
		styles:   defaultStyles(),
	}
}

type tickMsg time.Time

type statusMsg struct {
	status *httpapi.StatusResponse
	err    error
	at     time.Time
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchStatusCmd(ctx context.Context, client StatusFetcher) tea.Cmd {
	return func() tea.Msg {
		status, err := client.Status(ctx)
		return statusMsg{status: status, err: err, at: time.Now()}
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.client != nil {
		cmds = append(cmds, fetchStatusCmd(m.ctx, m.client))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			if m.client != nil {
				return m, fetchStatusCmd(m.ctx, m.client)
			}
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd(m.pollTick)}
		if m.client != nil {
			cmds = append(cmds, fetchStatusCmd(m.ctx, m.client))
		}
		return m, tea.Batch(cmds...)

	case statusMsg:
		m.polls++
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
			m.lastUpdated = msg.at
		}
		return m, nil
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("webchat relay"))
	b.WriteString("\n\n")
	switch {
	case m.status == nil && m.err != nil:
		b.WriteString(m.styles.danger.Render("unreachable: " + m.err.Error()))
		b.WriteString("\n")
	case m.status == nil:
		b.WriteString(m.styles.muted.Render("waiting for status..."))
		b.WriteString("\n")
	default:
		b.WriteString(m.renderStatus())
		if m.err != nil {
			b.WriteString(m.styles.warning.Render("last poll failed: " + m.err.Error()))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderStatus() string {
	st := m.status.Status
	rows := [][2]string{
		{"consumer", m.styles.stateStyle(st.State).Render(st.State.String())},
		{"queue", fmt.Sprintf("%d", st.QueueSize)},
		{"pending", formatIDs(st.PendingActions, 3)},
		{"quotes", fmt.Sprintf("%d", st.Quotes)},
		{"tools", fmt.Sprintf("%d", st.Tools)},
		{"delivered", fmt.Sprintf("%d (%d forced)", st.Delivered, st.ForcedFlushes)},
		{"open attempts", fmt.Sprintf("%d", st.OpenAttempts)},
		{"timer", armedLabel(st.TimerArmed)},
		{"streams", fmt.Sprintf("consumer %d, producer %d", m.status.Subscribers[schema.AudienceConsumer], m.status.Subscribers[schema.AudienceProducer])},
		{"last delivery", formatAge(st.LastDelivery, m.lastUpdated)},
		{"version", m.status.Version.Version},
		{"panel", panelLabel(m.status.PanelVersion)},
	}
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(m.styles.label.Render(row[0]))
		b.WriteString(row[1])
		b.WriteString("\n")
	}
	return b.String()
}

func panelLabel(version string) string {
	if version == "" {
		return "-"
	}
	return version
}

func formatIDs(ids []schema.ActionID, limit int) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, 0, limit+1)
	for i, id := range ids {
		if i == limit {
			parts = append(parts, fmt.Sprintf("+%d", len(ids)-limit))
			break
		}
		parts = append(parts, string(id))
	}
	return strings.Join(parts, " ")
}

func formatAge(at, now time.Time) string {
	if at.IsZero() {
		return "never"
	}
	d := now.Sub(at)
	if d < time.Second {
		return "just now"
	}
	return d.Truncate(time.Second).String() + " ago"
}

func armedLabel(armed bool) string {
	if armed {
		return "armed"
	}
	return "idle"
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		programOpts = append(programOpts, tea.WithContext(opts.Context))
	}
	_, err := tea.NewProgram(m, programOpts...).Run()
	return err
}
