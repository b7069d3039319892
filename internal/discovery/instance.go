package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Instance is an sccpd server found on the network.
type Instance struct {
	// Name is the mDNS instance name (e.g., "sccpd-pbx1")
	Name string

	// Hostname is the advertised host (e.g., "pbx1.local.")
	Hostname string

	// IP is the first advertised address, IPv4 preferred
	IP string

	// Port is the SCCP listener port (typically 2000)
	Port int

	// Metadata holds the TXT record as key/value pairs
	Metadata map[string]string

	// DiscoveredAt is when the instance answered
	DiscoveredAt time.Time
}

// String returns a human-readable description of the instance.
func (i *Instance) String() string {
	s := fmt.Sprintf("%s at %s", i.Name, i.Address())
	if v := i.GetMetadata(TXTVersion); v != "" {
		s += " (sccpd " + v + ")"
	}
	return s
}

// Address returns host:port for dialing the SCCP listener.
func (i *Instance) Address() string {
	return net.JoinHostPort(i.IP, strconv.Itoa(i.Port))
}

// GetMetadata retrieves a TXT value by key, or returns empty string if not found
func (i *Instance) GetMetadata(key string) string {
	if i.Metadata == nil {
		return ""
	}
	return i.Metadata[key]
}

// ProtocolVersion returns the advertised protocol version, or 0.
func (i *Instance) ProtocolVersion() int {
	v, err := strconv.Atoi(i.GetMetadata(TXTProtocol))
	if err != nil {
		return 0
	}
	return v
}
