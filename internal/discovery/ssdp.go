package discovery

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/muurk/yeesearch/internal/logging"
)

const (
	// DefaultSSDPPort is the Yeelight discovery port. Searches are sent from
	// and answered to this same port.
	DefaultSSDPPort = 1982

	// DefaultMulticastAddr is the SSDP multicast group
	DefaultMulticastAddr = "239.255.255.250"

	maxDatagramSize = 2048
)

// SSDPConfig holds the SSDP transport settings
type SSDPConfig struct {
	Port          int              // Listen and search port (default 1982)
	MulticastAddr string           // Multicast group (default 239.255.255.250)
	Interface     string           // Interface name to join on (empty = all multicast-capable)
	Clock         func() time.Time // Timestamp source for ReceivedAt (default time.Now)
}

// SSDPTransport is a Transport speaking the Yeelight flavour of SSDP.
//
// The listening socket is bound to the same port used for outbound M-SEARCH
// requests; bulbs reply to the source port and send NOTIFY to the group port,
// so both must be the one socket.
type SSDPTransport struct {
	config SSDPConfig
	group  *net.UDPAddr

	mu     sync.Mutex
	conn   net.PacketConn
	pconn  *ipv4.PacketConn
	closed bool
	done   chan struct{}
	errc   chan error
}

// NewSSDPTransport creates an SSDP transport, filling in defaults
func NewSSDPTransport(config SSDPConfig) *SSDPTransport {
	if config.Port == 0 {
		config.Port = DefaultSSDPPort
	}
	if config.MulticastAddr == "" {
		config.MulticastAddr = DefaultMulticastAddr
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &SSDPTransport{
		config: config,
		group: &net.UDPAddr{
			IP:   net.ParseIP(config.MulticastAddr),
			Port: config.Port,
		},
		done: make(chan struct{}),
		errc: make(chan error, 1),
	}
}

// Start binds the socket, joins the multicast group and starts reading
func (t *SSDPTransport) Start(ctx context.Context, handler Handler) error {
	if t.group.IP == nil || t.group.IP.To4() == nil {
		return &TransportError{Transport: "ssdp", Op: "bind", Err: fmt.Errorf("invalid multicast address %q", t.config.MulticastAddr)}
	}

	lc := net.ListenConfig{Control: reuseAddrControl}
	conn, err := lc.ListenPacket(ctx, "udp4", fmt.Sprintf(":%d", t.config.Port))
	if err != nil {
		return &TransportError{Transport: "ssdp", Op: "bind", Err: err}
	}

	pconn := ipv4.NewPacketConn(conn)
	ifaces, err := multicastInterfaces(t.config.Interface)
	if err != nil {
		_ = conn.Close()
		return &TransportError{Transport: "ssdp", Op: "join", Err: err}
	}

	joined := 0
	for i := range ifaces {
		if err := pconn.JoinGroup(&ifaces[i], &net.UDPAddr{IP: t.group.IP}); err != nil {
			logging.Debug("Multicast join failed",
				zap.String("interface", ifaces[i].Name),
				zap.Error(err),
			)
			continue
		}
		joined++
	}
	if joined == 0 {
		_ = conn.Close()
		return &TransportError{Transport: "ssdp", Op: "join", Err: errors.New("no interface accepted the multicast group")}
	}

	t.mu.Lock()
	t.conn = conn
	t.pconn = pconn
	t.mu.Unlock()

	logging.Info("SSDP transport listening",
		zap.Int("port", t.config.Port),
		zap.String("group", t.group.String()),
		zap.Int("interfaces", joined),
	)

	go func() {
		select {
		case <-ctx.Done():
			_ = t.Close()
		case <-t.done:
		}
	}()
	go t.readLoop(conn, handler)

	return nil
}

// readLoop delivers records one at a time until the socket is closed
func (t *SSDPTransport) readLoop(conn net.PacketConn, handler Handler) {
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if t.isClosed() {
				return
			}
			logging.Error("SSDP read failed, transport stopped", zap.Error(err))
			select {
			case t.errc <- &TransportError{Transport: "ssdp", Op: "read", Err: err}:
			default:
			}
			_ = t.Close()
			return
		}

		rec, ok := ParseMessage(buf[:n], t.config.Clock())
		if !ok {
			logging.LogRawBytes("Ignoring SSDP datagram", buf[:n])
			continue
		}
		rec.Source = addr.String()
		handler(rec)
	}
}

// Err reports the read failure that stopped the transport
func (t *SSDPTransport) Err() <-chan error {
	return t.errc
}

// LocalAddr returns the bound socket address, or nil before Start
func (t *SSDPTransport) LocalAddr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

// Search sends an M-SEARCH for the given service type to the multicast group
func (t *SSDPTransport) Search(serviceType string) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return &TransportError{Transport: "ssdp", Op: "send", Err: errors.New("transport not started")}
	}

	if _, err := conn.WriteTo(searchMessage(t.group.String(), serviceType), t.group); err != nil {
		return &TransportError{Transport: "ssdp", Op: "send", Err: err}
	}
	logging.Debug("M-SEARCH sent", zap.String("st", serviceType))
	return nil
}

// Close stops reading and releases the socket
func (t *SSDPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.done)
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

func (t *SSDPTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func searchMessage(host, serviceType string) []byte {
	return []byte("M-SEARCH * HTTP/1.1\r\n" +
		"HOST: " + host + "\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"ST: " + serviceType + "\r\n\r\n")
}

// ParseMessage turns an SSDP datagram into a Record. Search responses become
// KindResponse, NOTIFY ssdp:alive becomes KindAdvertise; anything else
// (including other hosts' M-SEARCH) is rejected.
func ParseMessage(data []byte, receivedAt time.Time) (Record, bool) {
	// Bulbs often omit the terminating blank line
	trimmed := bytes.TrimRight(data, "\r\n")
	if len(trimmed) == 0 {
		return Record{}, false
	}
	msg := make([]byte, 0, len(trimmed)+4)
	msg = append(msg, trimmed...)
	msg = append(msg, "\r\n\r\n"...)
	r := bufio.NewReader(bytes.NewReader(msg))

	if bytes.HasPrefix(msg, []byte("HTTP/")) {
		resp, err := http.ReadResponse(r, nil)
		if err != nil {
			return Record{}, false
		}
		_ = resp.Body.Close()
		return newRecord(KindResponse, resp.Header, receivedAt), true
	}

	req, err := http.ReadRequest(r)
	if err != nil {
		return Record{}, false
	}
	_ = req.Body.Close()
	if req.Method != "NOTIFY" {
		return Record{}, false
	}
	if nts := req.Header.Get("NTS"); nts != "" && nts != "ssdp:alive" {
		return Record{}, false
	}
	return newRecord(KindAdvertise, req.Header, receivedAt), true
}

func newRecord(kind Kind, header http.Header, receivedAt time.Time) Record {
	attrs := make(map[string]string, len(header))
	for key, values := range header {
		if len(values) == 0 {
			continue
		}
		attrs[strings.ToLower(key)] = strings.TrimSpace(values[0])
	}
	return Record{
		ID:         attrs["id"],
		Kind:       kind,
		Attributes: attrs,
		ReceivedAt: receivedAt,
	}
}

// multicastInterfaces returns the named interface, or every interface that
// is up and multicast-capable
func multicastInterfaces(name string) ([]net.Interface, error) {
	if name != "" {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			return nil, fmt.Errorf("interface %q: %w", name, err)
		}
		return []net.Interface{*iface}, nil
	}

	all, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	var ifaces []net.Interface
	for _, iface := range all {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		ifaces = append(ifaces, iface)
	}
	return ifaces, nil
}
