package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/muurk/yeesearch/internal/light"
	"github.com/muurk/yeesearch/internal/search"
)

// foundBuffer is how many found events may queue while the view is busy.
// Overflow is dropped; the next tick re-reads the registry anyway.
const foundBuffer = 64

// RunWatch runs the live light table until the user quits or ctx is cancelled
func RunWatch(ctx context.Context, source Source) error {
	found := make(chan light.Info, foundBuffer)
	source.OnFound(func(d search.Device) {
		select {
		case found <- d.Info():
		default:
		}
	})

	p := tea.NewProgram(
		NewWatchModel(source, found),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithOutput(os.Stdout),
	)
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		// Cancelled from outside, e.g. by a signal
		return nil
	}
	return err
}

// Printer writes plain, non-interactive output. It is used when stdout is not
// a terminal and for one-shot commands.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	h := NewHeader(title, command, params...)
	h.Width = p.width
	p.Println(h.Render())
}

// PrintLights prints a table of light snapshots
func (p *Printer) PrintLights(infos []light.Info, now time.Time) {
	if len(infos) == 0 {
		p.Println(StatusLineStyle.Render("No lights found"))
		return
	}
	p.Println(RenderLightTable(infos, now))
}

// PrintFound prints one line for a newly found light
func (p *Printer) PrintFound(info light.Info, at time.Time) {
	p.Println(fmt.Sprintf("%s found %s %s %s",
		at.Format(time.RFC3339),
		info.ID,
		orDash(info.Model),
		orDash(info.Location),
	))
}

// RenderLightTable renders light snapshots as a bordered lipgloss table
func RenderLightTable(infos []light.Info, now time.Time) string {
	rows := Rows(infos, now)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(PrimaryColor)).
		Headers("ID", "LOCATION", "STATUS", "MODEL", "POWER", "BRIGHT", "SEEN").
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true).Foreground(MutedColor)
			}
			if col == 2 && row >= 0 && row < len(infos) {
				return StatusStyle(infos[row].Status).Padding(0, 1)
			}
			return style
		})
	for _, r := range rows {
		t.Row(r...)
	}
	return t.Render()
}
