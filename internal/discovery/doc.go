// Package discovery announces and finds sccpd servers over multicast DNS.
//
// A running server registers itself as a "_sccp._tcp" service so that
// provisioning tools on the same segment can locate it without static
// addresses. The TXT record carries the server version, the highest
// protocol version it negotiates and the number of configured devices.
//
// # Usage Example
//
//	adv, err := discovery.Advertise(discovery.Advertisement{
//	    Instance: "sccpd-pbx1",
//	    Port:     2000,
//	    Text:     discovery.TXTRecords("1.2.0", 21, 14),
//	})
//	if err != nil {
//	    return err
//	}
//	defer adv.Shutdown()
//
//	servers, err := discovery.ScanForServers(3 * time.Second)
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Firewall must allow mDNS (UDP port 5353)
package discovery
