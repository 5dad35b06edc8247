package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/muurk/yeesearch/internal/discovery"
	"github.com/muurk/yeesearch/internal/light"
)

// fakeTransport delivers records synchronously through emit
type fakeTransport struct {
	mu        sync.Mutex
	handler   discovery.Handler
	searches  []string
	startErr  error
	searchErr error
	closed    bool
	errc      chan error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{errc: make(chan error, 1)}
}

func (f *fakeTransport) Start(ctx context.Context, handler discovery.Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.handler = handler
	return nil
}

func (f *fakeTransport) Err() <-chan error {
	return f.errc
}

// fail simulates the socket dying after Start
func (f *fakeTransport) fail(err error) {
	f.errc <- err
}

func (f *fakeTransport) setSearchErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchErr = err
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) Search(serviceType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return f.searchErr
	}
	f.searches = append(f.searches, serviceType)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) emit(rec discovery.Record) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(rec)
}

func (f *fakeTransport) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches)
}

// fakeDevice records calls made by the lifecycle driver
type fakeDevice struct {
	mu         sync.Mutex
	id         string
	status     light.Status
	lastKnown  time.Time
	reconnects []discovery.Record
	queries    [][]string
	hooks      light.Hooks
}

func newFakeDevice(id string) *fakeDevice {
	return &fakeDevice{id: id, status: light.StatusDiscovering}
}

func (d *fakeDevice) ID() string { return d.id }

func (d *fakeDevice) Status() light.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

func (d *fakeDevice) SetStatus(to light.Status) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !light.CanTransition(d.status, to) {
		return errors.New("illegal transition")
	}
	d.status = to
	return nil
}

func (d *fakeDevice) LastKnown() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastKnown
}

func (d *fakeDevice) SetLastKnown(t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastKnown = t
}

func (d *fakeDevice) Reconnect(rec discovery.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reconnects = append(d.reconnects, rec)
}

func (d *fakeDevice) GetValues(props ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queries = append(d.queries, props)
}

func (d *fakeDevice) Info() light.Info {
	return light.Info{ID: d.id, Status: d.Status(), LastKnown: d.LastKnown()}
}

func (d *fakeDevice) reconnectCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.reconnects)
}

func (d *fakeDevice) queryCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queries)
}

// fakeFactory builds fakeDevices and remembers them by id
type fakeFactory struct {
	mu      sync.Mutex
	devices map[string]*fakeDevice
	created int
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{devices: make(map[string]*fakeDevice)}
}

func (f *fakeFactory) build(rec discovery.Record, hooks light.Hooks) Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := newFakeDevice(rec.ID)
	d.hooks = hooks
	f.devices[rec.ID] = d
	f.created++
	return d
}

func (f *fakeFactory) device(id string) *fakeDevice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.devices[id]
}

func record(id string, at time.Time) discovery.Record {
	return discovery.Record{
		ID:         id,
		Kind:       discovery.KindAdvertise,
		ReceivedAt: at,
		Attributes: map[string]string{
			"id":       id,
			"location": "yeelight://192.168.1.10:55443",
		},
	}
}
