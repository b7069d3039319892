// Package config loads the sccpd YAML configuration.
//
// The file declares server-wide settings, the phones allowed to register
// (by device name) and the lines their buttons refer to:
//
//	server:
//	  port: 2000
//	  keepalive: 60
//	  deny: [0.0.0.0/0]
//	  permit: [192.168.1.0/24]
//	lines:
//	  - name: "100"
//	    label: Front desk
//	    cid_name: Reception
//	devices:
//	  - name: SEP001122334455
//	    buttons:
//	      - {type: line, name: "100"}
//	      - {type: speeddial, number: "200", label: Office}
//	dialplan:
//	  default: ["1XX", "9."]
//
// # Loading
//
// Load reads a file, fills in defaults and validates it. Validation reports
// every problem at once as a single KindConfig error from sccperr.
//
// # Reloading
//
// Watch follows the file with fsnotify and hands each successfully loaded
// configuration to a callback. Devices and lines that disappear from the new
// configuration are marked for deletion by the core; changed ones are marked
// for update and picked up when idle.
//
// # Thread Safety
//
// A loaded *Config is treated as immutable. Save serialises writes with a
// mutex and replaces the file atomically.
package config
