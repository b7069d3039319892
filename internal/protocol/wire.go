package protocol

import (
	"encoding/binary"
	"net/netip"
)

// writer appends little-endian fields to a payload buffer.
type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }

func (w *writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *writer) zero(n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}

// str writes s NUL-padded to exactly n bytes, truncating if longer.
func (w *writer) str(s string, n int) {
	if len(s) > n {
		s = s[:n]
	}
	w.buf = append(w.buf, s...)
	w.zero(n - len(s))
}

// ip4 writes an IPv4 address in network byte order. These are the fields
// the phones send big-endian inside otherwise little-endian records.
func (w *writer) ip4(a netip.Addr) {
	if a.Is4() {
		b := a.As4()
		w.buf = append(w.buf, b[:]...)
		return
	}
	w.zero(4)
}

// ip16 writes a 16-byte address field: IPv4 occupies the first four bytes,
// IPv6 all sixteen.
func (w *writer) ip16(a netip.Addr) {
	switch {
	case a.Is4():
		b := a.As4()
		w.buf = append(w.buf, b[:]...)
		w.zero(12)
	case a.Is6():
		b := a.As16()
		w.buf = append(w.buf, b[:]...)
	default:
		w.zero(16)
	}
}

// Address families of the v17 wide address fields.
const (
	ipFamilyV4 uint32 = 0
	ipFamilyV6 uint32 = 1
)

// ipWide writes a v17 address: the family word followed by the 16-byte field.
// IPv4-mapped addresses are sent as IPv4.
func (w *writer) ipWide(a netip.Addr) {
	a = a.Unmap()
	if a.Is6() {
		w.u32(ipFamilyV6)
	} else {
		w.u32(ipFamilyV4)
	}
	w.ip16(a)
}

// reader consumes little-endian fields from a payload. Reads past the end
// yield zero values, matching firmware that sends truncated records.
type reader struct {
	buf []byte
	off int
}

func (r *reader) take(n int) []byte {
	start := r.off
	r.off += n
	if start >= len(r.buf) {
		return nil
	}
	end := r.off
	if end > len(r.buf) {
		end = len(r.buf)
	}
	return r.buf[start:end]
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if len(b) < 1 {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if len(b) < 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if len(b) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) skip(n int) { r.off += n }

// str reads an n-byte NUL-padded field. The result stops at the first NUL
// and never extends past n bytes.
func (r *reader) str(n int) string {
	b := r.take(n)
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func (r *reader) ip4() netip.Addr {
	b := r.take(4)
	var a [4]byte
	copy(a[:], b)
	return netip.AddrFrom4(a)
}

func (r *reader) ip16() netip.Addr {
	b := r.take(16)
	var a [16]byte
	copy(a[:], b)
	for _, c := range a[4:] {
		if c != 0 {
			return netip.AddrFrom16(a)
		}
	}
	return netip.AddrFrom4([4]byte{a[0], a[1], a[2], a[3]})
}

// ipWide reads a family word and the 16-byte address it describes.
func (r *reader) ipWide() netip.Addr {
	family := r.u32()
	b := r.take(16)
	var a [16]byte
	copy(a[:], b)
	if family == ipFamilyV6 {
		return netip.AddrFrom16(a)
	}
	return netip.AddrFrom4([4]byte{a[0], a[1], a[2], a[3]})
}

func (r *reader) remaining() int {
	if r.off >= len(r.buf) {
		return 0
	}
	return len(r.buf) - r.off
}
