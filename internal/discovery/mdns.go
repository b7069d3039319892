package discovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type sccpd advertises
	ServiceType = "_sccp._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for server discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the well-known SCCP port
	DefaultPort = 2000
)

// TXT record keys.
const (
	TXTVersion  = "version"
	TXTProtocol = "protocol"
	TXTDevices  = "devices"
)

// TXTRecords builds the TXT record for an advertisement.
func TXTRecords(version string, protocolVersion uint8, devices int) []string {
	return []string{
		TXTVersion + "=" + version,
		TXTProtocol + "=" + strconv.Itoa(int(protocolVersion)),
		TXTDevices + "=" + strconv.Itoa(devices),
	}
}

// Advertisement describes the service to announce.
type Advertisement struct {
	Instance string
	Port     int
	Text     []string
}

// Advertiser keeps an mDNS registration alive until Shutdown.
type Advertiser struct {
	server *zeroconf.Server
	once   sync.Once
}

// Advertise registers the service on every multicast interface.
func Advertise(a Advertisement) (*Advertiser, error) {
	if a.Instance == "" {
		return nil, fmt.Errorf("mDNS instance name is required")
	}
	if a.Port <= 0 {
		a.Port = DefaultPort
	}
	server, err := zeroconf.Register(a.Instance, ServiceType, ServiceDomain, a.Port, a.Text, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	return &Advertiser{server: server}, nil
}

// SetText replaces the advertised TXT record.
func (a *Advertiser) SetText(text []string) {
	a.server.SetText(text)
}

// Shutdown withdraws the advertisement. Safe to call more than once.
func (a *Advertiser) Shutdown() {
	a.once.Do(a.server.Shutdown)
}

// Scanner browses for sccpd servers
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForServers discovers sccpd servers on the local network
func (s *Scanner) ScanForServers() ([]*Instance, error) {
	return s.ScanForServersWithContext(context.Background())
}

// ScanForServersWithContext discovers servers with a custom context. It
// returns once the timeout elapses or ctx is cancelled.
func (s *Scanner) ScanForServersWithContext(ctx context.Context) ([]*Instance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu    sync.Mutex
		found []*Instance
		seen  = make(map[string]bool)
	)

	resolver, err := zeroconf.NewResolver()
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			inst := s.parseServiceEntry(entry)
			if inst == nil {
				continue
			}
			mu.Lock()
			if !seen[inst.Name] {
				seen[inst.Name] = true
				found = append(found, inst)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return append([]*Instance(nil), found...), nil
}

// parseServiceEntry converts a zeroconf service entry to an Instance.
// Returns nil if the entry has no usable address.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Instance {
	if entry.Instance == "" {
		return nil
	}

	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Instance{
		Name:         entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// ScanForServers is a convenience function to scan with a custom timeout
func ScanForServers(timeout time.Duration) ([]*Instance, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForServers()
}
