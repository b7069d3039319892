package core

import (
	"sync"

	"github.com/muurk/sccpd/internal/config"
	"github.com/muurk/sccpd/internal/refcount"
)

// Line is a dialable extension, shared by every device that has a button
// for it.
type Line struct {
	name string

	mu       sync.Mutex
	cfg      *config.LineConfig
	next     *config.LineConfig // applied once the line is idle
	attached []string           // LineDevice keys, in attach order
	channels []uint32
	newMsgs  int
	oldMsgs  int
}

// Name returns the line name.
func (l *Line) Name() string { return l.name }

// Config returns a copy of the active line configuration.
func (l *Line) Config() config.LineConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.cfg
}

// Channels returns the call ids of the live channels on the line.
func (l *Line) Channels() []uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]uint32(nil), l.channels...)
}

// MessageWaiting returns the mailbox counts last reported for the line.
func (l *Line) MessageWaiting() (newMsgs, oldMsgs int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.newMsgs, l.oldMsgs
}

// LineDevices returns the keys of the attached LineDevice records.
func (l *Line) LineDevices() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.attached...)
}

func (l *Line) attach(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range l.attached {
		if k == key {
			return
		}
	}
	l.attached = append(l.attached, key)
}

func (l *Line) detach(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, k := range l.attached {
		if k == key {
			l.attached = append(l.attached[:i], l.attached[i+1:]...)
			return
		}
	}
}

func (l *Line) addChannel(id uint32) {
	l.mu.Lock()
	l.channels = append(l.channels, id)
	l.mu.Unlock()
}

// removeChannel unlinks id and, when that leaves the line idle with a
// pending configuration, swaps it in. It reports whether a swap happened.
func (l *Line) removeChannel(id uint32) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, c := range l.channels {
		if c == id {
			l.channels = append(l.channels[:i], l.channels[i+1:]...)
			break
		}
	}
	if len(l.channels) == 0 && l.next != nil {
		l.cfg, l.next = l.next, nil
		return true
	}
	return false
}

// LineDevice binds a line to a device button. It carries the per-device
// call forward settings.
type LineDevice struct {
	device   string
	line     string
	instance uint32
	lineRef  *refcount.Ref[*Line]

	mu           sync.Mutex
	cfwdAll      string
	cfwdBusy     string
	cfwdNoAnswer string
}

// Device returns the device name.
func (ld *LineDevice) Device() string { return ld.device }

// Line returns the line name.
func (ld *LineDevice) Line() string { return ld.line }

// Instance returns the button instance of the line on the device.
func (ld *LineDevice) Instance() uint32 { return ld.instance }

// Forward returns the call forward target for mode, or "".
func (ld *LineDevice) Forward(mode SimpleSwitchMode) string {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	switch mode {
	case SwitchCallForwardAll:
		return ld.cfwdAll
	case SwitchCallForwardBusy:
		return ld.cfwdBusy
	case SwitchCallForwardNoAnswer:
		return ld.cfwdNoAnswer
	}
	return ""
}

func (ld *LineDevice) setForward(mode SimpleSwitchMode, target string) {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	switch mode {
	case SwitchCallForwardAll:
		ld.cfwdAll = target
	case SwitchCallForwardBusy:
		ld.cfwdBusy = target
	case SwitchCallForwardNoAnswer:
		ld.cfwdNoAnswer = target
	}
}

// forwardStat renders the record phones expect in ForwardStatMessage.
func (ld *LineDevice) forwardStat() (all, busy, noAnswer string) {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	return ld.cfwdAll, ld.cfwdBusy, ld.cfwdNoAnswer
}
