package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/yeesearch/internal/logging"
)

const (
	// DefaultMDNSServiceType is the DNS-SD service type used when searching over mDNS
	DefaultMDNSServiceType = "_miio._udp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultControlPort is the Yeelight TCP control port. miIO services
	// advertise the miIO UDP port (54321) instead, so it is not usable as
	// the control channel.
	DefaultControlPort = 55443
)

// MDNSConfig holds the mDNS transport settings
type MDNSConfig struct {
	Interface string           // Interface name to browse on (empty = all)
	Clock     func() time.Time // Timestamp source for ReceivedAt (default time.Now)
}

// MDNSTransport is a Transport browsing DNS-SD services with zeroconf.
//
// A zeroconf resolver is single-use once its browse context ends, so every
// Search cancels the previous browse and starts a fresh resolver.
type MDNSTransport struct {
	config MDNSConfig

	mu      sync.Mutex
	ctx     context.Context
	handler Handler
	next    *zeroconf.Resolver
	cancel  context.CancelFunc
	closed  bool
	errc    chan error
}

// NewMDNSTransport creates an mDNS transport
func NewMDNSTransport(config MDNSConfig) *MDNSTransport {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &MDNSTransport{config: config, errc: make(chan error, 1)}
}

// Start creates the first resolver, which binds the mDNS sockets
func (t *MDNSTransport) Start(ctx context.Context, handler Handler) error {
	resolver, err := t.newResolver()
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.ctx = ctx
	t.handler = handler
	t.next = resolver
	t.mu.Unlock()
	return nil
}

// Search restarts browsing for the given service type
func (t *MDNSTransport) Search(serviceType string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handler == nil || t.closed {
		return &TransportError{Transport: "mdns", Op: "browse", Err: fmt.Errorf("transport not started")}
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}

	resolver := t.next
	t.next = nil
	if resolver == nil {
		var err error
		if resolver, err = t.newResolver(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(t.ctx)
	entries := make(chan *zeroconf.ServiceEntry)
	go t.deliver(ctx, serviceType, entries, t.handler)

	if err := resolver.Browse(ctx, serviceType, ServiceDomain, entries); err != nil {
		cancel()
		return &TransportError{Transport: "mdns", Op: "browse", Err: err}
	}
	t.cancel = cancel

	logging.Debug("mDNS browse started", zap.String("service", serviceType))
	return nil
}

// Err never delivers: zeroconf keeps its own sockets and retries internally,
// and browse failures surface from Search instead
func (t *MDNSTransport) Err() <-chan error {
	return t.errc
}

// Close cancels any running browse
func (t *MDNSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	return nil
}

func (t *MDNSTransport) deliver(ctx context.Context, serviceType string, entries <-chan *zeroconf.ServiceEntry, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-entries:
			if !ok {
				return
			}
			if entry.Service == "" {
				entry.Service = serviceType
			}
			handler(t.entryToRecord(entry))
		}
	}
}

func (t *MDNSTransport) newResolver() (*zeroconf.Resolver, error) {
	var opts []zeroconf.ClientOption
	if t.config.Interface != "" {
		iface, err := net.InterfaceByName(t.config.Interface)
		if err != nil {
			return nil, &TransportError{Transport: "mdns", Op: "bind", Err: err}
		}
		opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
	}

	resolver, err := zeroconf.NewResolver(opts...)
	if err != nil {
		return nil, &TransportError{Transport: "mdns", Op: "bind", Err: err}
	}
	return resolver, nil
}

// controlPort picks the TCP control port for a browsed service. Only
// services other than miIO are trusted to advertise it in their SRV record.
func controlPort(service string, srvPort int) int {
	if isMiIOService(service) {
		return DefaultControlPort
	}
	return srvPort
}

func isMiIOService(service string) bool {
	return strings.HasPrefix(strings.ToLower(service), "_miio.")
}

// entryToRecord converts a zeroconf service entry to a Record. The TXT "id"
// key wins over the instance name as identifier.
func (t *MDNSTransport) entryToRecord(entry *zeroconf.ServiceEntry) Record {
	attrs := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		key := strings.ToLower(parts[0])
		if len(parts) == 2 {
			attrs[key] = parts[1]
		} else {
			attrs[key] = ""
		}
	}

	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if port := controlPort(entry.Service, entry.Port); ip != "" && port != 0 {
		if _, ok := attrs[AttrLocation]; !ok {
			attrs[AttrLocation] = "yeelight://" + net.JoinHostPort(ip, strconv.Itoa(port))
		}
	}
	if entry.HostName != "" {
		attrs["host"] = entry.HostName
	}

	id := attrs["id"]
	if id == "" {
		id = entry.Instance
	}

	return Record{
		ID:         id,
		Kind:       KindResponse,
		Attributes: attrs,
		ReceivedAt: t.config.Clock(),
		Source:     ip,
	}
}
