package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/muurk/sccpd/internal/acl"
	"github.com/muurk/sccpd/internal/sccperr"
)

// Validate checks the whole configuration and reports every problem found,
// not just the first.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, c.Server.validate()...)

	lines := make(map[string]bool, len(c.Lines))
	for i, l := range c.Lines {
		if l.Name == "" {
			errs = append(errs, fmt.Errorf("lines[%d]: name is required", i))
			continue
		}
		if lines[l.Name] {
			errs = append(errs, fmt.Errorf("line %q: duplicate name", l.Name))
		}
		lines[l.Name] = true
		if l.IncomingLimit < 0 {
			errs = append(errs, fmt.Errorf("line %q: incoming_limit must not be negative", l.Name))
		}
	}

	devices := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		if d.Name == "" {
			errs = append(errs, fmt.Errorf("devices[%d]: name is required", i))
			continue
		}
		if devices[d.Name] {
			errs = append(errs, fmt.Errorf("device %q: duplicate name", d.Name))
		}
		devices[d.Name] = true
		errs = append(errs, d.validate(lines)...)
	}

	if c.Server.AllowAnonymous {
		switch {
		case c.Server.Hotline == nil || c.Server.Hotline.Line == "":
			errs = append(errs, errors.New("server: allow_anonymous requires hotline.line"))
		case !lines[c.Server.Hotline.Line]:
			errs = append(errs, fmt.Errorf("server: hotline line %q is not defined", c.Server.Hotline.Line))
		}
	}

	for ctx, patterns := range c.DialPlan {
		for _, p := range patterns {
			if err := ValidatePattern(p); err != nil {
				errs = append(errs, fmt.Errorf("dialplan %q: %w", ctx, err))
			}
		}
	}

	if len(errs) > 0 {
		return sccperr.Config("validate", errors.Join(errs...), "%d configuration error(s)", len(errs))
	}
	return nil
}

func (s *ServerConfig) validate() []error {
	var errs []error

	if s.BindAddress != "" && net.ParseIP(s.BindAddress) == nil {
		errs = append(errs, fmt.Errorf("server: invalid bind_address %q", s.BindAddress))
	}
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("server: port %d out of range", s.Port))
	}
	if s.TLSPort != 0 {
		if s.TLSPort < 1 || s.TLSPort > 65535 || s.TLSPort == s.Port {
			errs = append(errs, fmt.Errorf("server: tls_port %d invalid", s.TLSPort))
		}
		if s.TLSCert == "" || s.TLSKey == "" {
			errs = append(errs, errors.New("server: tls_port requires tls_cert and tls_key"))
		}
	}
	if s.KeepAlive < MinKeepAlive {
		errs = append(errs, fmt.Errorf("server: keepalive %d below minimum %d", s.KeepAlive, MinKeepAlive))
	}
	if s.ProtocolVersion < MinProtocolVersion || s.ProtocolVersion > MaxProtocolVersion {
		errs = append(errs, fmt.Errorf("server: protocol_version %d not in %d..%d",
			s.ProtocolVersion, MinProtocolVersion, MaxProtocolVersion))
	}
	if len(s.DateFormat) > 6 {
		errs = append(errs, fmt.Errorf("server: date_format %q longer than 6 characters", s.DateFormat))
	}
	if len(s.DigitTimeoutChar) != 1 || !strings.ContainsAny(s.DigitTimeoutChar, "#*") {
		errs = append(errs, errors.New("server: digit_timeout_char must be '#' or '*'"))
	}
	if s.FirstDigitTimeout < 0 || s.DigitTimeout < 0 {
		errs = append(errs, errors.New("server: digit timeouts must not be negative"))
	}
	if _, err := acl.New(s.Permit, s.Deny); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}
	if s.MonitorAddress != "" {
		if _, port, err := net.SplitHostPort(s.MonitorAddress); err != nil {
			errs = append(errs, fmt.Errorf("server: invalid monitor_address: %w", err))
		} else if _, err := strconv.Atoi(port); err != nil {
			errs = append(errs, fmt.Errorf("server: invalid monitor_address port %q", port))
		}
	}
	switch s.LogFormat {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("server: unknown log_format %q", s.LogFormat))
	}
	switch s.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("server: unknown log_level %q", s.LogLevel))
	}

	return errs
}

func (d *DeviceConfig) validate(lines map[string]bool) []error {
	var errs []error

	if d.KeepAlive != 0 && d.KeepAlive < MinKeepAlive {
		errs = append(errs, fmt.Errorf("device %q: keepalive %d below minimum %d", d.Name, d.KeepAlive, MinKeepAlive))
	}
	if _, err := acl.New(d.Permit, d.Deny); err != nil {
		errs = append(errs, fmt.Errorf("device %q: %w", d.Name, err))
	}
	if len(d.Buttons) > 42 {
		errs = append(errs, fmt.Errorf("device %q: %d buttons exceeds 42", d.Name, len(d.Buttons)))
	}

	used := make(map[string]bool)
	for i, b := range d.Buttons {
		switch b.Type {
		case ButtonLine:
			switch {
			case b.Name == "":
				errs = append(errs, fmt.Errorf("device %q button %d: line name is required", d.Name, i+1))
			case !lines[b.Name]:
				errs = append(errs, fmt.Errorf("device %q button %d: unknown line %q", d.Name, i+1, b.Name))
			case used[b.Name]:
				errs = append(errs, fmt.Errorf("device %q button %d: line %q attached twice", d.Name, i+1, b.Name))
			}
			used[b.Name] = true
		case ButtonSpeedDial:
			if b.Number == "" {
				errs = append(errs, fmt.Errorf("device %q button %d: speeddial number is required", d.Name, i+1))
			}
		case ButtonService:
			if b.URL == "" {
				errs = append(errs, fmt.Errorf("device %q button %d: service url is required", d.Name, i+1))
			}
		case ButtonFeature:
			if _, ok := ParseFeature(b.Name); !ok {
				errs = append(errs, fmt.Errorf("device %q button %d: unknown feature %q", d.Name, i+1, b.Name))
			}
		case ButtonEmpty:
		default:
			errs = append(errs, fmt.Errorf("device %q button %d: unknown type %q", d.Name, i+1, b.Type))
		}
	}

	return errs
}

// Features that may be bound to a feature button.
var features = []string{"dnd", "privacy", "cfwdall", "monitor", "parkinglot", "devstate"}

// ParseFeature normalises a feature button name.
func ParseFeature(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, f := range features {
		if n == f {
			return f, true
		}
	}
	return "", false
}

// ValidatePattern checks a dialplan extension pattern. Patterns are digits,
// '*' and '#', the wildcard 'X' (any digit), and an optional trailing '.'
// (one or more further digits).
func ValidatePattern(p string) error {
	if p == "" {
		return errors.New("empty pattern")
	}
	for i, r := range p {
		switch {
		case r >= '0' && r <= '9', r == '*', r == '#', r == 'X', r == 'x':
		case r == '.' && i == len(p)-1 && i > 0:
		default:
			return fmt.Errorf("pattern %q: invalid character %q", p, r)
		}
	}
	return nil
}
