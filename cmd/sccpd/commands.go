package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/sccpd/internal/config"
	"github.com/muurk/sccpd/internal/discovery"
	"github.com/muurk/sccpd/internal/protocol"
)

// checkConfigCmd validates a configuration file without starting the server
var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate the configuration file",
	Long: `Load and validate the configuration file, then print a summary.

Every problem found is reported, not just the first one. With --fix the
file is rewritten with every default filled in.`,
	Example: `  sccpd check-config --config ./sccpd.yaml

  # Normalize the file in place
  sccpd check-config --config ./sccpd.yaml --fix`,
	RunE: runCheckConfig,
}

// Check-config command flags
var fixConfig bool

func init() {
	checkConfigCmd.Flags().BoolVar(&fixConfig, "fix", false, "Rewrite the file normalized, with defaults filled in")
}

func runCheckConfig(cmd *cobra.Command, args []string) error {
	path := config.ResolvePath(configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s: %s\n\n", successStyle.Render(SuccessMarker), path, successStyle.Render("OK"))
	fmt.Fprint(out, field("Listen:", fmt.Sprintf("%s:%d", displayHost(cfg.Server.BindAddress), cfg.Server.Port)))
	if cfg.Server.TLSPort != 0 {
		fmt.Fprint(out, field("TLS:", fmt.Sprintf("%s:%d", displayHost(cfg.Server.BindAddress), cfg.Server.TLSPort)))
	}
	fmt.Fprint(out, field("Keepalive:", fmt.Sprintf("%ds", cfg.Server.KeepAlive)))
	fmt.Fprint(out, field("Protocol:", fmt.Sprintf("up to %d", cfg.Server.ProtocolVersion)))
	fmt.Fprint(out, field("Lines:", strconv.Itoa(len(cfg.Lines))))
	fmt.Fprint(out, field("Devices:", strconv.Itoa(len(cfg.Devices))))

	contexts := make([]string, 0, len(cfg.DialPlan))
	for name := range cfg.DialPlan {
		contexts = append(contexts, name)
	}
	sort.Strings(contexts)
	if len(contexts) > 0 {
		fmt.Fprint(out, field("Dial plan:", strings.Join(contexts, ", ")))
	}

	if fixConfig {
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nRewrote %s\n", path)
	}
	return nil
}

func displayHost(h string) string {
	if h == "" {
		return "*"
	}
	return h
}

// Decode command flags
var decodeJSON bool

// decodeCmd prints captured frames in readable form
var decodeCmd = &cobra.Command{
	Use:   "decode [hex...]",
	Short: "Decode hex-encoded SCCP frames",
	Long: `Decode one or more SCCP frames given as hex.

Arguments are concatenated into a single stream, so a capture split across
several arguments decodes as it would on the wire. With no arguments the
stream is read from standard input, unless it is a terminal. Whitespace and
colons are ignored.`,
	Example: `  # RegisterAvailableLines with one line
  sccpd decode 08000000 00000000 2d000000 01000000

  # Frames copied from a packet capture
  tshark -r phone.pcap -T fields -e tcp.payload | sccpd decode`,
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().BoolVar(&decodeJSON, "json", false, "Print frames as JSON")
}

func runDecode(cmd *cobra.Command, args []string) error {
	var input string
	if len(args) > 0 {
		input = strings.Join(args, "")
	} else {
		if isTerminal(cmd.InOrStdin()) {
			return cmd.Usage()
		}
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		input = string(data)
	}

	frames, rest, err := decodeFrames(input)
	for _, f := range frames {
		if decodeJSON {
			data, err := json.Marshal(frameJSON(f))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "0x%04X %-32s reserved=%d %s\n",
			uint32(f.Message.ID()), f.Message.ID(), f.Reserved, protocol.Describe(f.Message))
	}
	if err != nil {
		return err
	}
	if rest > 0 {
		return fmt.Errorf("%d trailing bytes do not form a complete frame", rest)
	}
	return nil
}

// decodeFrames decodes every complete frame in the hex string s. It returns
// the number of bytes left over after the last complete frame.
func decodeFrames(s string) ([]protocol.Frame, int, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ':':
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid hex input: %w", err)
	}

	var (
		dec    protocol.Decoder
		frames []protocol.Frame
	)
	dec.Feed(raw)
	for {
		f, err := dec.Next()
		if errors.Is(err, protocol.ErrIncomplete) {
			return frames, dec.Buffered(), nil
		}
		if err != nil {
			return frames, dec.Buffered(), err
		}
		frames = append(frames, f)
	}
}

func frameJSON(f protocol.Frame) map[string]interface{} {
	return map[string]interface{}{
		"id":       fmt.Sprintf("0x%04X", uint32(f.Message.ID())),
		"name":     f.Message.ID().String(),
		"reserved": f.Reserved,
		"message":  f.Message,
		"payload":  hex.EncodeToString(f.Payload),
	}
}

// Discover command flags
var scanTimeout int

// discoverCmd browses for sccpd servers on the local network
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find sccpd servers on the local network",
	Long: `Browse mDNS for servers announcing the _sccp._tcp service.

Servers started with --mdns answer with their version, the highest protocol
version they offer and the number of registered phones.`,
	Example: `  # Browse for 5 seconds (default)
  sccpd discover

  # Longer browse for busy networks
  sccpd discover --timeout 15`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&scanTimeout, "timeout", int(discovery.DefaultScanTimeout/time.Second), "Browse timeout in seconds")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Browsing for sccpd servers (timeout: %ds)...\n\n", scanTimeout)

	servers, err := discovery.ScanForServers(time.Duration(scanTimeout) * time.Second)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	printServers(out, servers, terminalWidth())
	return nil
}

// printServers lists discovered servers, separated by rules width wide.
func printServers(out io.Writer, servers []*discovery.Instance, width int) {
	if len(servers) == 0 {
		fmt.Fprintf(out, "%s No servers found.\n", failureStyle.Render(FailureMarker))
		return
	}

	rule := dividerStyle.Render(strings.Repeat("─", width))
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Found %d server(s):", len(servers))))
	fmt.Fprintln(out, rule)
	for i, s := range servers {
		fmt.Fprintf(out, "%d. %s\n", i+1, titleStyle.Render(s.Name))
		fmt.Fprint(out, field("Address:", s.Address()))
		if v := s.GetMetadata(discovery.TXTVersion); v != "" {
			fmt.Fprint(out, field("Version:", v))
		}
		if pv := s.ProtocolVersion(); pv > 0 {
			fmt.Fprint(out, field("Protocol:", strconv.Itoa(pv)))
		}
		if n := s.GetMetadata(discovery.TXTDevices); n != "" {
			fmt.Fprint(out, field("Phones:", n))
		}
		fmt.Fprintln(out, rule)
	}
}
