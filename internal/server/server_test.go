package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/yeesearch/internal/discovery"
	"github.com/muurk/yeesearch/internal/light"
	"github.com/muurk/yeesearch/internal/search"
)

// fakeLights is an in-memory stand-in for search.Search
type fakeLights struct {
	mu        sync.Mutex
	devices   []search.Device
	refreshes int
	observers []func(search.Device)
}

func (f *fakeLights) Lights() []search.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]search.Device(nil), f.devices...)
}

func (f *fakeLights) LightByID(id string) (search.Device, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.devices {
		if d.ID() == id {
			return d, true
		}
	}
	return nil, false
}

func (f *fakeLights) Refresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
}

func (f *fakeLights) OnFound(fn func(search.Device)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, fn)
}

func (f *fakeLights) add(d search.Device) {
	f.mu.Lock()
	f.devices = append(f.devices, d)
	observers := slices.Clone(f.observers)
	f.mu.Unlock()
	for _, fn := range observers {
		fn(d)
	}
}

func newLight(id, location string) *light.Light {
	return light.New(discovery.Record{
		ID:         id,
		ReceivedAt: time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC),
		Attributes: map[string]string{"location": location, "model": "mono", "power": "on"},
	}, light.Options{})
}

func newTestServer(t *testing.T) (*Server, *fakeLights, *httptest.Server) {
	t.Helper()
	lights := &fakeLights{}
	srv := New(&Config{Addr: "127.0.0.1:0"}, lights)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.hub.closeAll()
		ts.Close()
	})
	return srv, lights, ts
}

func TestListLights(t *testing.T) {
	_, lights, ts := newTestServer(t)
	lights.add(newLight("0x1", "yeelight://10.0.0.1:55443"))
	lights.add(newLight("0x2", "yeelight://10.0.0.2:55443"))

	resp, err := http.Get(ts.URL + "/api/lights")
	if err != nil {
		t.Fatalf("GET /api/lights: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %v, want 200", resp.StatusCode)
	}
	var infos []light.Info
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 2 || infos[0].ID != "0x1" || infos[1].ID != "0x2" {
		t.Errorf("lights = %+v, want 0x1 then 0x2", infos)
	}
	if infos[0].Location != "yeelight://10.0.0.1:55443" {
		t.Errorf("location = %v", infos[0].Location)
	}
}

func TestGetLight(t *testing.T) {
	_, lights, ts := newTestServer(t)
	lights.add(newLight("0x1", "yeelight://10.0.0.1:55443"))

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/api/lights/0x1", http.StatusOK},
		{"/api/lights/0x9", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %v, want %v", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestGetLight_StatusRendersAsName(t *testing.T) {
	_, lights, ts := newTestServer(t)
	lights.add(newLight("0x1", "yeelight://10.0.0.1:55443"))

	resp, err := http.Get(ts.URL + "/api/lights/0x1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatal(err)
	}
	if raw["status"] != "discovering" {
		t.Errorf("status field = %v, want \"discovering\"", raw["status"])
	}
}

func TestRefresh(t *testing.T) {
	_, lights, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/refresh", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %v, want 202", resp.StatusCode)
	}
	lights.mu.Lock()
	refreshes := lights.refreshes
	lights.mu.Unlock()
	if refreshes != 1 {
		t.Errorf("refreshes = %v, want 1", refreshes)
	}

	resp, err = http.Get(ts.URL + "/api/refresh")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/refresh status = %v, want 405", resp.StatusCode)
	}
}

func TestEventStream(t *testing.T) {
	srv, lights, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Subscribers() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	lights.add(newLight("0xabc", "yeelight://10.0.0.3:55443"))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Type != "found" || ev.Light.ID != "0xabc" {
		t.Errorf("event = %+v, want found 0xabc", ev)
	}
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	srv := New(&Config{Addr: "127.0.0.1:0"}, &fakeLights{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == "127.0.0.1:0" {
		if time.Now().After(deadline) {
			t.Fatal("server never bound")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/api/lights")
	if err != nil {
		t.Fatalf("GET while running: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}
