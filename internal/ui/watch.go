package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/yeesearch/internal/discovery"
	"github.com/muurk/yeesearch/internal/light"
	"github.com/muurk/yeesearch/internal/search"
)

// Source is the part of search.Search the watch view reads
type Source interface {
	Lights() []search.Device
	Refresh()
	OnFound(f func(search.Device))
}

// tickInterval is how often the table re-reads the registry
const tickInterval = time.Second

// Messages
type tickMsg time.Time
type foundMsg light.Info

// watchKeyMap defines key bindings for the watch view
type watchKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Refresh, k.Help, k.Quit},
	}
}

func newWatchKeyMap() watchKeyMap {
	return watchKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "search again"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// WatchModel is the live light table
type WatchModel struct {
	source Source
	found  <-chan light.Info
	now    func() time.Time

	Table   table.Model
	Spinner spinner.Model
	Help    help.Model
	Keys    watchKeyMap

	Width  int
	Height int

	FoundCount int
	LastFound  string
	Searches   int
}

// NewWatchModel creates the watch view. found may be nil when the caller
// does not forward found events.
func NewWatchModel(source Source, found <-chan light.Info) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	t := table.New(
		table.WithColumns(columns(MinTerminalWidth+20)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(MutedColor).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(TextColor).
		Background(PrimaryColor)
	t.SetStyles(styles)

	m := WatchModel{
		source:  source,
		found:   found,
		now:     time.Now,
		Table:   t,
		Spinner: s,
		Help:    help.New(),
		Keys:    newWatchKeyMap(),
	}
	m.syncRows()
	return m
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, tick(), waitForFound(m.found))
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.Keys.Refresh):
			m.source.Refresh()
			m.Searches++
			return m, nil
		case key.Matches(msg, m.Keys.Help):
			m.Help.ShowAll = !m.Help.ShowAll
			return m, nil
		}
		var cmd tea.Cmd
		m.Table, cmd = m.Table.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Help.Width = msg.Width
		m.Table.SetColumns(columns(clampWidth(msg.Width)))
		// Title, status line, help and table header
		m.Table.SetHeight(max(msg.Height-8, 3))
		return m, nil

	case tickMsg:
		m.now = func() time.Time { return time.Time(msg) }
		m.syncRows()
		return m, tick()

	case foundMsg:
		m.FoundCount++
		m.LastFound = msg.ID
		m.syncRows()
		return m, waitForFound(m.found)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(m.Spinner.View() + " Watching for lights"))
	b.WriteString("\n\n")
	b.WriteString(m.Table.View())
	b.WriteString("\n")
	b.WriteString(StatusLineStyle.Render(m.statusLine()))
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(m.Help.View(m.Keys)))

	return b.String()
}

func (m WatchModel) statusLine() string {
	parts := []string{fmt.Sprintf("%d lights", len(m.Table.Rows()))}
	if m.LastFound != "" {
		parts = append(parts, "last found "+m.LastFound)
	}
	if m.Searches > 0 {
		parts = append(parts, fmt.Sprintf("%d manual searches", m.Searches))
	}
	return strings.Join(parts, " • ")
}

// syncRows re-reads the registry into the table
func (m *WatchModel) syncRows() {
	devices := m.source.Lights()
	infos := make([]light.Info, 0, len(devices))
	for _, d := range devices {
		infos = append(infos, d.Info())
	}
	m.Table.SetRows(Rows(infos, m.now()))
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForFound(found <-chan light.Info) tea.Cmd {
	if found == nil {
		return nil
	}
	return func() tea.Msg {
		info, ok := <-found
		if !ok {
			return nil
		}
		return foundMsg(info)
	}
}

// columns sizes the table to the terminal. ID and location take the slack.
func columns(width int) []table.Column {
	fixed := []table.Column{
		{Title: "Status", Width: 12},
		{Title: "Model", Width: 10},
		{Title: "Power", Width: 6},
		{Title: "Bright", Width: 6},
		{Title: "Seen", Width: 8},
	}
	used := 0
	for _, c := range fixed {
		used += c.Width + 2 // cell padding
	}
	rest := max(width-used-4, 20)
	idWidth := rest * 2 / 5
	return append([]table.Column{
		{Title: "ID", Width: idWidth},
		{Title: "Location", Width: rest - idWidth},
	}, fixed...)
}

// Rows renders light snapshots as table rows, in registry order
func Rows(infos []light.Info, now time.Time) []table.Row {
	rows := make([]table.Row, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, table.Row{
			info.ID,
			strings.TrimPrefix(info.Location, "yeelight://"),
			info.Status.String(),
			orDash(info.Model),
			orDash(info.Properties[discovery.AttrPower]),
			orDash(info.Properties[discovery.AttrBright]),
			FormatAge(now.Sub(info.LastKnown)),
		})
	}
	return rows
}

// FormatAge renders how long ago a light was last confirmed
func FormatAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
