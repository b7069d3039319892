package config

import "time"

// Defaults applied by Load and Default.
const (
	DefaultPath              = "/etc/sccpd/sccpd.yaml"
	DefaultPort              = 2000
	DefaultKeepAlive         = 60
	MinKeepAlive             = 30
	DefaultProtocolVersion   = 21
	MinProtocolVersion       = 3
	MaxProtocolVersion       = 21
	DefaultDateFormat        = "D.M.Y"
	DefaultFirstDigitTimeout = 16 * time.Second
	DefaultDigitTimeout      = 8 * time.Second
	DefaultDigitTimeoutChar  = "#"
	DefaultContext           = "default"
)

// Config is the whole configuration file.
type Config struct {
	Server   ServerConfig        `yaml:"server"`
	Devices  []DeviceConfig      `yaml:"devices,omitempty"`
	Lines    []LineConfig        `yaml:"lines,omitempty"`
	DialPlan map[string][]string `yaml:"dialplan,omitempty"` // context -> extension patterns
}

// ServerConfig holds listener and protocol-wide settings.
type ServerConfig struct {
	BindAddress       string         `yaml:"bind_address"`
	Port              int            `yaml:"port"`
	TLSPort           int            `yaml:"tls_port,omitempty"` // secure SCCP listener, 0 disables
	TLSCert           string         `yaml:"tls_cert,omitempty"`
	TLSKey            string         `yaml:"tls_key,omitempty"`
	KeepAlive         uint32         `yaml:"keepalive"`        // seconds
	ProtocolVersion   uint8          `yaml:"protocol_version"` // highest version offered
	DateFormat        string         `yaml:"date_format"`
	FirstDigitTimeout time.Duration  `yaml:"first_digit_timeout"`
	DigitTimeout      time.Duration  `yaml:"digit_timeout"`
	DigitTimeoutChar  string         `yaml:"digit_timeout_char"`
	Context           string         `yaml:"context"`
	AllowAnonymous    bool           `yaml:"allow_anonymous"`
	Hotline           *HotlineConfig `yaml:"hotline,omitempty"`
	Permit            []string       `yaml:"permit,omitempty"`
	Deny              []string       `yaml:"deny,omitempty"`
	MonitorAddress    string         `yaml:"monitor_address,omitempty"`
	MDNS              bool           `yaml:"mdns"`
	LogLevel          string         `yaml:"log_level,omitempty"`
	LogFormat         string         `yaml:"log_format,omitempty"`
}

// HotlineConfig is the line given to devices that register without a
// configuration entry when allow_anonymous is set.
type HotlineConfig struct {
	Line      string `yaml:"line"`
	Extension string `yaml:"extension"`
}

// ButtonType names a configured button kind.
type ButtonType string

const (
	ButtonLine      ButtonType = "line"
	ButtonSpeedDial ButtonType = "speeddial"
	ButtonService   ButtonType = "service"
	ButtonFeature   ButtonType = "feature"
	ButtonEmpty     ButtonType = "empty"
)

// ButtonConfig is one programmable button, in phone order.
type ButtonConfig struct {
	Type   ButtonType `yaml:"type"`
	Name   string     `yaml:"name,omitempty"`   // line name or feature id
	Label  string     `yaml:"label,omitempty"`  // display label
	Number string     `yaml:"number,omitempty"` // speed dial number
	URL    string     `yaml:"url,omitempty"`    // service URL
	Option string     `yaml:"option,omitempty"` // feature option
}

// SoftkeyConfig enables or disables softkeys. A nil field keeps the default
// (enabled).
type SoftkeyConfig struct {
	Transfer     *bool `yaml:"transfer,omitempty"`
	Park         *bool `yaml:"park,omitempty"`
	CfwdAll      *bool `yaml:"cfwdall,omitempty"`
	CfwdBusy     *bool `yaml:"cfwdbusy,omitempty"`
	CfwdNoAnswer *bool `yaml:"cfwdnoanswer,omitempty"`
	DND          *bool `yaml:"dnd,omitempty"`
	PickupExten  *bool `yaml:"pickup_exten,omitempty"`
	Private      *bool `yaml:"private,omitempty"`
}

func enabled(b *bool) bool { return b == nil || *b }

// TransferEnabled reports whether the Transfer softkey is shown.
func (s SoftkeyConfig) TransferEnabled() bool { return enabled(s.Transfer) }

// ParkEnabled reports whether the Park softkey is shown.
func (s SoftkeyConfig) ParkEnabled() bool { return enabled(s.Park) }

// CfwdAllEnabled reports whether the CfwdAll softkey is shown.
func (s SoftkeyConfig) CfwdAllEnabled() bool { return enabled(s.CfwdAll) }

// CfwdBusyEnabled reports whether the CfwdBusy softkey is shown.
func (s SoftkeyConfig) CfwdBusyEnabled() bool { return enabled(s.CfwdBusy) }

// CfwdNoAnswerEnabled reports whether the CfwdNoAnswer softkey is shown.
func (s SoftkeyConfig) CfwdNoAnswerEnabled() bool { return enabled(s.CfwdNoAnswer) }

// DNDEnabled reports whether the DND softkey is shown.
func (s SoftkeyConfig) DNDEnabled() bool { return enabled(s.DND) }

// PickupEnabled reports whether the Pickup softkeys are shown.
func (s SoftkeyConfig) PickupEnabled() bool { return enabled(s.PickupExten) }

// PrivateEnabled reports whether the Private softkey is shown.
func (s SoftkeyConfig) PrivateEnabled() bool { return enabled(s.Private) }

// DeviceConfig describes one phone, keyed by its device name
// (SEP + MAC address).
type DeviceConfig struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Type        string         `yaml:"type,omitempty"`
	KeepAlive   uint32         `yaml:"keepalive,omitempty"` // overrides server keepalive
	Permit      []string       `yaml:"permit,omitempty"`
	Deny        []string       `yaml:"deny,omitempty"`
	Buttons     []ButtonConfig `yaml:"buttons,omitempty"`
	Softkeys    SoftkeyConfig  `yaml:"softkeys,omitempty"`
	DND         bool           `yaml:"dnd,omitempty"` // initial do-not-disturb state
}

// LineConfig describes one directory number.
type LineConfig struct {
	Name              string `yaml:"name"`
	ID                string `yaml:"id,omitempty"`
	Label             string `yaml:"label,omitempty"`
	Description       string `yaml:"description,omitempty"`
	CIDName           string `yaml:"cid_name,omitempty"`
	CIDNum            string `yaml:"cid_num,omitempty"`
	Context           string `yaml:"context,omitempty"`
	Mailbox           string `yaml:"mailbox,omitempty"`
	VoicemailNumber   string `yaml:"voicemail_number,omitempty"`
	TransferVoicemail string `yaml:"transfer_voicemail,omitempty"`
	MeetMeNumber      string `yaml:"meetme_number,omitempty"`
	PickupGroup       []int  `yaml:"pickup_group,omitempty"`
	IncomingLimit     int    `yaml:"incoming_limit,omitempty"`
}

// Device returns the device entry named name, or nil.
func (c *Config) Device(name string) *DeviceConfig {
	for i := range c.Devices {
		if c.Devices[i].Name == name {
			return &c.Devices[i]
		}
	}
	return nil
}

// Line returns the line entry named name, or nil.
func (c *Config) Line(name string) *LineConfig {
	for i := range c.Lines {
		if c.Lines[i].Name == name {
			return &c.Lines[i]
		}
	}
	return nil
}

// DeviceKeepAlive returns the keepalive for d, falling back to the server
// value.
func (c *Config) DeviceKeepAlive(d *DeviceConfig) uint32 {
	if d != nil && d.KeepAlive != 0 {
		return d.KeepAlive
	}
	return c.Server.KeepAlive
}

// LineContext returns the dialplan context for l.
func (c *Config) LineContext(l *LineConfig) string {
	if l != nil && l.Context != "" {
		return l.Context
	}
	return c.Server.Context
}

// Default returns a configuration with every server default filled in and
// no devices or lines.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	s := &c.Server
	if s.Port == 0 {
		s.Port = DefaultPort
	}
	if s.KeepAlive == 0 {
		s.KeepAlive = DefaultKeepAlive
	}
	if s.ProtocolVersion == 0 {
		s.ProtocolVersion = DefaultProtocolVersion
	}
	if s.DateFormat == "" {
		s.DateFormat = DefaultDateFormat
	}
	if s.FirstDigitTimeout == 0 {
		s.FirstDigitTimeout = DefaultFirstDigitTimeout
	}
	if s.DigitTimeout == 0 {
		s.DigitTimeout = DefaultDigitTimeout
	}
	if s.DigitTimeoutChar == "" {
		s.DigitTimeoutChar = DefaultDigitTimeoutChar
	}
	if s.Context == "" {
		s.Context = DefaultContext
	}
	for i := range c.Lines {
		if c.Lines[i].ID == "" {
			c.Lines[i].ID = c.Lines[i].Name
		}
	}
}
