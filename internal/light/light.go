package light

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/yeesearch/internal/discovery"
	"github.com/muurk/yeesearch/internal/logging"
)

const (
	// DefaultDialTimeout bounds how long a control channel connect may take
	DefaultDialTimeout = 5 * time.Second

	// DefaultWriteTimeout bounds a single command write
	DefaultWriteTimeout = 3 * time.Second
)

// RefreshProperties is the canonical property set queried when a light goes stale
var RefreshProperties = []string{"power", "bright", "rgb", "color_mode", "ct"}

// seedProperties are copied from discovery attributes into the property cache
var seedProperties = []string{
	discovery.AttrPower, discovery.AttrBright, discovery.AttrColorMode,
	discovery.AttrCT, discovery.AttrRGB, discovery.AttrHue, discovery.AttrSat,
}

// Hooks report control channel events back to whoever owns the light's lifecycle.
// They are called from the light's own goroutines, never while the light's lock is held.
type Hooks struct {
	OnConnected    func(id string)
	OnDisconnected func(id string, err error)
	OnRefreshed    func(id string)
}

// Options configures a Light
type Options struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration

	// Dial opens the control channel. Defaults to a net.Dialer.
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)

	Hooks Hooks
}

// Info is a point-in-time view of a light
type Info struct {
	ID         string            `json:"id"`
	Status     Status            `json:"status"`
	LastKnown  time.Time         `json:"last_known"`
	Location   string            `json:"location,omitempty"`
	Model      string            `json:"model,omitempty"`
	Name       string            `json:"name,omitempty"`
	Firmware   string            `json:"firmware,omitempty"`
	Support    []string          `json:"support,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Light is one physical bulb: its identity, status and control channel.
type Light struct {
	id   string
	opts Options

	mu        sync.Mutex
	status    Status
	lastKnown time.Time
	location  string
	model     string
	name      string
	firmware  string
	support   []string
	props     map[string]string

	conn    net.Conn
	gen     int // bumped on every (re)connect; stale readers check it
	nextReq int
	pending map[int][]string
}

// New creates a light from its first discovery record. The light starts in
// StatusDiscovering and does not connect until Connect or Reconnect is called.
func New(rec discovery.Record, opts Options) *Light {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.Dial == nil {
		var d net.Dialer
		opts.Dial = d.DialContext
	}

	l := &Light{
		id:        rec.ID,
		opts:      opts,
		status:    StatusDiscovering,
		lastKnown: rec.ReceivedAt,
		props:     make(map[string]string),
		pending:   make(map[int][]string),
		nextReq:   1,
	}
	l.applyRecord(rec)
	return l
}

// ID returns the protocol identifier of the light
func (l *Light) ID() string {
	return l.id
}

// Status returns the current status
func (l *Light) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// SetStatus moves the light to a new status if the transition is legal
func (l *Light) SetStatus(to Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !CanTransition(l.status, to) {
		return &Error{
			Type:    ErrTypeTransition,
			LightID: l.id,
			Message: fmt.Sprintf("cannot move from %s to %s", l.status, to),
		}
	}
	l.status = to
	return nil
}

// LastKnown returns the time of the last state-confirming event
func (l *Light) LastKnown() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastKnown
}

// SetLastKnown records a state-confirming event
func (l *Light) SetLastKnown(t time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastKnown = t
}

// Property returns a cached property value
func (l *Light) Property(name string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.props[name]
}

// Info returns a snapshot of the light
func (l *Light) Info() Info {
	l.mu.Lock()
	defer l.mu.Unlock()

	props := make(map[string]string, len(l.props))
	for k, v := range l.props {
		props[k] = v
	}
	return Info{
		ID:         l.id,
		Status:     l.status,
		LastKnown:  l.lastKnown,
		Location:   l.location,
		Model:      l.model,
		Name:       l.name,
		Firmware:   l.firmware,
		Support:    append([]string(nil), l.support...),
		Properties: props,
	}
}

// Connect opens the control channel in the background
func (l *Light) Connect() {
	l.mu.Lock()
	gen := l.resetLocked()
	addr := l.location
	l.mu.Unlock()

	go l.dial(gen, addr)
}

// Reconnect replaces the control channel using the connection details of a
// fresh discovery record. It returns immediately; the outcome is reported
// through the hooks.
func (l *Light) Reconnect(rec discovery.Record) {
	l.mu.Lock()
	l.applyRecord(rec)
	gen := l.resetLocked()
	addr := l.location
	l.mu.Unlock()

	go l.dial(gen, addr)
}

// GetValues asks the light for the named properties. Answers update the
// property cache and fire OnRefreshed.
func (l *Light) GetValues(props ...string) {
	if len(props) == 0 {
		return
	}

	l.mu.Lock()
	conn := l.conn
	if conn == nil {
		l.mu.Unlock()
		logging.Debug("Skipping property query, not connected", zap.String("light_id", l.id))
		return
	}
	reqID := l.nextReq
	l.nextReq++
	l.pending[reqID] = append([]string(nil), props...)
	l.mu.Unlock()

	params := make([]any, len(props))
	for i, p := range props {
		params[i] = p
	}
	go l.send(conn, command{ID: reqID, Method: "get_prop", Params: params})
}

// Close shuts the control channel without reporting a disconnect
func (l *Light) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	return err
}

// applyRecord copies connection details and announced values from a record
func (l *Light) applyRecord(rec discovery.Record) {
	if loc := rec.Attr(discovery.AttrLocation); loc != "" {
		l.location = loc
	}
	if v := rec.Attr(discovery.AttrModel); v != "" {
		l.model = v
	}
	if v := rec.Attr(discovery.AttrName); v != "" {
		l.name = v
	}
	if v := rec.Attr(discovery.AttrFirmware); v != "" {
		l.firmware = v
	}
	if v := rec.Attr(discovery.AttrSupport); v != "" {
		l.support = strings.Fields(v)
	}
	for _, key := range seedProperties {
		if v := rec.Attr(key); v != "" {
			l.props[key] = v
		}
	}
}

// resetLocked drops the current connection and returns the new generation
func (l *Light) resetLocked() int {
	l.gen++
	if l.conn != nil {
		_ = l.conn.Close()
		l.conn = nil
	}
	l.pending = make(map[int][]string)
	return l.gen
}

func (l *Light) dial(gen int, location string) {
	addr, err := hostPort(location)
	if err != nil {
		l.disconnected(gen, &Error{Type: ErrTypeDial, LightID: l.id, Message: "bad location", Err: err})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.opts.DialTimeout)
	defer cancel()
	conn, err := l.opts.Dial(ctx, "tcp", addr)
	if err != nil {
		l.disconnected(gen, &Error{Type: ErrTypeDial, LightID: l.id, Message: "connect to " + addr, Err: err})
		return
	}

	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		_ = conn.Close()
		return
	}
	l.conn = conn
	l.mu.Unlock()

	logging.Info("Light connected", zap.String("light_id", l.id), zap.String("addr", addr))
	if l.opts.Hooks.OnConnected != nil {
		l.opts.Hooks.OnConnected(l.id)
	}

	go l.readLoop(gen, conn)
}

// disconnected reports a lost channel unless a newer connect superseded it
func (l *Light) disconnected(gen int, err error) {
	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return
	}
	l.conn = nil
	l.mu.Unlock()

	logging.Warn("Light disconnected", zap.String("light_id", l.id), zap.Error(err))
	if l.opts.Hooks.OnDisconnected != nil {
		l.opts.Hooks.OnDisconnected(l.id, err)
	}
}

// command is one newline-delimited JSON request
type command struct {
	ID     int    `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// message is anything the light sends back: a result, an error or a props notification
type message struct {
	ID     int            `json:"id"`
	Result []any          `json:"result"`
	Error  *messageError  `json:"error"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

type messageError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (l *Light) send(conn net.Conn, cmd command) {
	data, err := json.Marshal(cmd)
	if err != nil {
		logging.Error("Failed to encode command", zap.String("light_id", l.id), zap.Error(err))
		return
	}
	data = append(data, '\r', '\n')

	_ = conn.SetWriteDeadline(time.Now().Add(l.opts.WriteTimeout))
	if _, err := conn.Write(data); err != nil {
		logging.Warn("Command write failed",
			zap.String("light_id", l.id),
			zap.Error(&Error{Type: ErrTypeWrite, LightID: l.id, Message: cmd.Method, Err: err}),
		)
		// The reader notices the closed socket and reports the disconnect
		_ = conn.Close()
	}
}

func (l *Light) readLoop(gen int, conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		l.handleLine(line)
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	l.disconnected(gen, &Error{Type: ErrTypeClosed, LightID: l.id, Message: "control channel closed", Err: err})
}

func (l *Light) handleLine(line string) {
	var msg message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		logging.Warn("Unparseable message from light",
			zap.String("light_id", l.id),
			zap.Error(&Error{Type: ErrTypeProtocol, LightID: l.id, Message: "bad json", Err: err}),
		)
		return
	}

	switch {
	case msg.Method == "props":
		l.mu.Lock()
		for k, v := range msg.Params {
			l.props[k] = fmt.Sprint(v)
		}
		l.mu.Unlock()
		logging.Debug("Light properties changed", zap.String("light_id", l.id), zap.Any("props", msg.Params))

	case msg.Error != nil:
		l.mu.Lock()
		delete(l.pending, msg.ID)
		l.mu.Unlock()
		logging.Warn("Light rejected command",
			zap.String("light_id", l.id),
			zap.Error(&Error{Type: ErrTypeProtocol, LightID: l.id, Message: msg.Error.Message}),
		)

	case msg.Result != nil:
		l.mu.Lock()
		names, ok := l.pending[msg.ID]
		delete(l.pending, msg.ID)
		if ok {
			for i, name := range names {
				if i < len(msg.Result) {
					l.props[name] = fmt.Sprint(msg.Result[i])
				}
			}
		}
		l.mu.Unlock()

		if ok && l.opts.Hooks.OnRefreshed != nil {
			l.opts.Hooks.OnRefreshed(l.id)
		}
	}
}

// hostPort extracts host:port from a yeelight://host:port location
func hostPort(location string) (string, error) {
	if location == "" {
		return "", errors.New("no location announced")
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	if u.Host == "" || u.Port() == "" {
		return "", fmt.Errorf("location %q has no host:port", location)
	}
	return u.Host, nil
}
