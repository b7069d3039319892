package core

import (
	"time"

	"github.com/muurk/sccpd/internal/config"
	"github.com/muurk/sccpd/internal/protocol"
)

func (d *Device) buttonTemplate() *protocol.ButtonTemplate {
	buttons := d.Buttons()
	defs := make([]protocol.ButtonDefinition, 0, len(buttons))
	for _, b := range buttons {
		defs = append(defs, protocol.ButtonDefinition{Instance: uint8(b.Instance), Type: b.wireType()})
	}
	return &protocol.ButtonTemplate{Offset: 0, Total: uint32(len(defs)), Buttons: defs}
}

func (d *Device) configStat() *protocol.ConfigStat {
	var lines, speedDials uint32
	for _, b := range d.Buttons() {
		switch b.Type {
		case config.ButtonLine:
			lines++
		case config.ButtonSpeedDial:
			speedDials++
		}
	}
	return &protocol.ConfigStat{
		Station:          protocol.StationIdentifier{DeviceName: d.name, Instance: 1},
		UserName:         d.name,
		ServerName:       ServerName,
		NumberLines:      lines,
		NumberSpeedDials: speedDials,
	}
}

func timeDate(now time.Time) *protocol.DefineTimeDate {
	return &protocol.DefineTimeDate{
		Year:         uint32(now.Year()),
		Month:        uint32(now.Month()),
		DayOfWeek:    uint32(now.Weekday()),
		Day:          uint32(now.Day()),
		Hour:         uint32(now.Hour()),
		Minute:       uint32(now.Minute()),
		Seconds:      uint32(now.Second()),
		Milliseconds: uint32(now.Nanosecond() / int(time.Millisecond)),
		SystemTime:   uint32(now.Unix()),
	}
}

func (d *Device) serverRes() *protocol.ServerRes {
	res := &protocol.ServerRes{}
	if s := d.Sender(); s != nil {
		local := s.LocalAddr()
		res.Servers = append(res.Servers, protocol.ServerEntry{
			Name: ServerName,
			Port: uint32(local.Port()),
			IP:   local.Addr(),
		})
	}
	return res
}

// lineStat answers a LineStatReq. The request for the last line button
// completes registration.
func (d *Device) lineStat(instance uint32) {
	m := &protocol.LineStat{LineNumber: instance}
	if b, ok := d.button(instance); ok && b.Type == config.ButtonLine {
		if ld, ok := d.bindingFor(b.Name); ok {
			lcfg := ld.lineRef.Value().Config()
			m.DirNumber = lcfg.ID
			m.DisplayName = firstNonEmpty(b.Label, lcfg.Label, lcfg.ID)
			m.FullyQualifiedDisplayName = firstNonEmpty(lcfg.Description, lcfg.Label, lcfg.ID)
		}
	}
	d.send(m)
	if instance >= d.lastLineInstance() {
		d.core.finishRegistration(d)
	}
}

// lastLineInstance returns the highest line button instance, or 0.
func (d *Device) lastLineInstance() uint32 {
	var last uint32
	for _, b := range d.Buttons() {
		if b.Type == config.ButtonLine && b.Instance > last {
			last = b.Instance
		}
	}
	return last
}

func (d *Device) speedDialStat(instance uint32) {
	m := &protocol.SpeedDialStat{Number: instance}
	if b, ok := d.button(instance); ok && b.Type == config.ButtonSpeedDial {
		m.DirNumber = b.Number
		m.DisplayName = firstNonEmpty(b.Label, b.Number)
	}
	d.send(m)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
