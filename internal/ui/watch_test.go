package ui

import (
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/yeesearch/internal/discovery"
	"github.com/muurk/yeesearch/internal/light"
	"github.com/muurk/yeesearch/internal/search"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu        sync.Mutex
	devices   []search.Device
	refreshes int
	observers []func(search.Device)
}

func (f *fakeSource) Lights() []search.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]search.Device(nil), f.devices...)
}

func (f *fakeSource) Refresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
}

func (f *fakeSource) OnFound(fn func(search.Device)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, fn)
}

func (f *fakeSource) add(d search.Device) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = append(f.devices, d)
}

func testLight(id string, at time.Time, attrs map[string]string) *light.Light {
	return light.New(discovery.Record{ID: id, ReceivedAt: at, Attributes: attrs}, light.Options{})
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestWatchModel_InitialRows(t *testing.T) {
	src := &fakeSource{}
	src.add(testLight("0x1", t0, map[string]string{"location": "yeelight://10.0.0.1:55443", "model": "color"}))

	m := NewWatchModel(src, nil)
	rows := m.Table.Rows()
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0][0] != "0x1" || rows[0][1] != "10.0.0.1:55443" || rows[0][3] != "color" {
		t.Errorf("row = %v", rows[0])
	}
}

func TestWatchModel_Keys(t *testing.T) {
	src := &fakeSource{}
	m := NewWatchModel(src, nil)

	model, cmd := m.Update(keyMsg("r"))
	m = model.(WatchModel)
	if cmd != nil {
		t.Error("refresh should not return a command")
	}
	if src.refreshes != 1 || m.Searches != 1 {
		t.Errorf("refreshes = %d, searches = %d, want 1 and 1", src.refreshes, m.Searches)
	}

	model, _ = m.Update(keyMsg("?"))
	m = model.(WatchModel)
	if !m.Help.ShowAll {
		t.Error("? should expand help")
	}

	_, cmd = m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestWatchModel_TickRereadsRegistry(t *testing.T) {
	src := &fakeSource{}
	m := NewWatchModel(src, nil)
	if len(m.Table.Rows()) != 0 {
		t.Fatalf("rows = %d, want 0", len(m.Table.Rows()))
	}

	src.add(testLight("0x1", t0, nil))
	src.add(testLight("0x2", t0, nil))

	model, cmd := m.Update(tickMsg(t0.Add(90 * time.Second)))
	m = model.(WatchModel)
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
	rows := m.Table.Rows()
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if seen := rows[1][6]; seen != "1m" {
		t.Errorf("seen = %q, want 1m", seen)
	}
}

func TestWatchModel_Found(t *testing.T) {
	src := &fakeSource{}
	found := make(chan light.Info, 1)
	m := NewWatchModel(src, found)

	src.add(testLight("0xabc", t0, nil))
	model, cmd := m.Update(foundMsg(light.Info{ID: "0xabc"}))
	m = model.(WatchModel)

	if m.FoundCount != 1 || m.LastFound != "0xabc" {
		t.Errorf("found count = %d, last = %q", m.FoundCount, m.LastFound)
	}
	if len(m.Table.Rows()) != 1 {
		t.Errorf("rows = %d, want 1", len(m.Table.Rows()))
	}
	if cmd == nil {
		t.Fatal("found should wait for the next event")
	}

	found <- light.Info{ID: "0xdef"}
	if msg, ok := cmd().(foundMsg); !ok || msg.ID != "0xdef" {
		t.Errorf("next message = %#v, want found 0xdef", msg)
	}
}

func TestWatchModel_WindowResize(t *testing.T) {
	m := NewWatchModel(&fakeSource{}, nil)
	model, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = model.(WatchModel)

	if m.Width != 100 || m.Height != 30 {
		t.Errorf("size = %dx%d, want 100x30", m.Width, m.Height)
	}
	if m.Help.Width != 100 {
		t.Errorf("help width = %d, want 100", m.Help.Width)
	}
}

func TestWatchModel_View(t *testing.T) {
	src := &fakeSource{}
	src.add(testLight("0x1", t0, nil))
	m := NewWatchModel(src, nil)
	m.LastFound = "0x1"

	view := m.View()
	for _, want := range []string{"Watching for lights", "0x1", "1 lights", "last found 0x1", "quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestRows(t *testing.T) {
	infos := []light.Info{
		{
			ID:         "0x1",
			Status:     light.StatusOnline,
			LastKnown:  t0,
			Location:   "yeelight://10.0.0.1:55443",
			Model:      "mono",
			Properties: map[string]string{"power": "on", "bright": "80"},
		},
		{ID: "0x2", Status: light.StatusOffline, LastKnown: t0.Add(-2 * time.Hour)},
	}

	rows := Rows(infos, t0.Add(5*time.Second))
	want := [][]string{
		{"0x1", "10.0.0.1:55443", "online", "mono", "on", "80", "5s"},
		{"0x2", "", "offline", "-", "-", "-", "2h"},
	}
	for i := range want {
		if strings.Join(rows[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("row %d = %v, want %v", i, rows[i], want[i])
		}
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want string
	}{
		{-time.Second, "now"},
		{500 * time.Millisecond, "now"},
		{42 * time.Second, "42s"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
	}

	for _, tt := range tests {
		if got := FormatAge(tt.age); got != tt.want {
			t.Errorf("FormatAge(%v) = %q, want %q", tt.age, got, tt.want)
		}
	}
}

func TestColumnsFitWidth(t *testing.T) {
	for _, width := range []int{MinTerminalWidth, 100, MaxContentWidth} {
		cols := columns(width)
		if len(cols) != 7 {
			t.Fatalf("columns = %d, want 7", len(cols))
		}
		if cols[0].Title != "ID" || cols[0].Width <= 0 || cols[1].Width <= 0 {
			t.Errorf("width %d: bad flexible columns %+v", width, cols[:2])
		}
	}
}
