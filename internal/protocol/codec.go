package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/muurk/sccpd/internal/sccperr"
)

// Frame layout constants
const (
	// HeaderSize covers length, reserved and message id.
	HeaderSize = 12

	// prefixSize is the part of the header not counted by the length field.
	prefixSize = 8

	// MaxPayloadSize is the size of the largest payload variant
	// (UpdateCapabilitiesMessage). Frames declaring more are rejected.
	MaxPayloadSize = UpdateCapabilitiesSize

	// MaxFrameSize is the largest frame the codec will accept or produce.
	MaxFrameSize = HeaderSize + MaxPayloadSize
)

// ErrIncomplete is returned by Decode when the buffer does not yet hold a
// complete frame. It is not a failure: the caller should read more data.
var ErrIncomplete = errors.New("incomplete frame")

// Message is a decoded SCCP record. The set of implementations is closed:
// every message type lives in this package.
type Message interface {
	ID() MessageID
	encode(w *writer)
	decode(r *reader)
}

// Frame is one decoded message together with its header fields.
type Frame struct {
	// Reserved is the second header word. Firmware speaking protocol 17 and
	// later puts its protocol version here.
	Reserved uint32
	Message  Message
	// Payload is a copy of the raw payload bytes, kept for logging.
	Payload []byte
}

// Unrecognized carries a message whose id has no known layout.
type Unrecognized struct {
	MsgID   MessageID
	Payload []byte
}

func (m *Unrecognized) ID() MessageID    { return m.MsgID }
func (m *Unrecognized) encode(w *writer) { w.buf = append(w.buf, m.Payload...) }
func (m *Unrecognized) decode(r *reader) { m.Payload = append([]byte(nil), r.buf...) }
func (m *Unrecognized) String() string {
	return fmt.Sprintf("Unrecognized{id=0x%04X, len=%d}", uint32(m.MsgID), len(m.Payload))
}

// Decode parses one frame from the front of buf. It returns the frame and
// the number of bytes consumed. ErrIncomplete means more data is needed;
// any other error is a codec error and the stream cannot be resynchronised.
func Decode(buf []byte) (Frame, int, error) {
	if len(buf) < prefixSize {
		return Frame{}, 0, ErrIncomplete
	}

	length := binary.LittleEndian.Uint32(buf[0:4])
	if length < 4 {
		return Frame{}, 0, sccperr.Codec("decode", "malformed frame: declared length %d (minimum 4)", length)
	}
	if length-4 > MaxPayloadSize {
		return Frame{}, 0, sccperr.Codec("decode", "oversized message: declared payload %d bytes (maximum %d)", length-4, MaxPayloadSize)
	}

	total := prefixSize + int(length)
	if len(buf) < total {
		return Frame{}, 0, ErrIncomplete
	}

	reserved := binary.LittleEndian.Uint32(buf[4:8])
	id := MessageID(binary.LittleEndian.Uint32(buf[8:12]))
	payload := append([]byte(nil), buf[HeaderSize:total]...)

	msg := newMessage(id)
	msg.decode(&reader{buf: payload})

	return Frame{Reserved: reserved, Message: msg, Payload: payload}, total, nil
}

// Encode serializes m into a complete frame with a zero reserved word.
func Encode(m Message) ([]byte, error) {
	return AppendFrame(nil, 0, m)
}

// AppendFrame appends the frame for m to dst.
func AppendFrame(dst []byte, reserved uint32, m Message) ([]byte, error) {
	w := writer{buf: make([]byte, HeaderSize, HeaderSize+64)}
	m.encode(&w)
	payloadLen := len(w.buf) - HeaderSize
	if payloadLen > MaxPayloadSize {
		return dst, sccperr.Codec("encode", "%s payload %d bytes exceeds maximum %d", m.ID(), payloadLen, MaxPayloadSize)
	}
	binary.LittleEndian.PutUint32(w.buf[0:4], uint32(payloadLen+4))
	binary.LittleEndian.PutUint32(w.buf[4:8], reserved)
	binary.LittleEndian.PutUint32(w.buf[8:12], uint32(m.ID()))
	return append(dst, w.buf...), nil
}

// PayloadSize returns the encoded payload length of m.
func PayloadSize(m Message) int {
	var w writer
	m.encode(&w)
	return len(w.buf)
}

// Decoder accumulates stream data and yields complete frames in order.
type Decoder struct {
	buf []byte
}

// Feed appends newly received bytes.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of bytes waiting for a complete frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Next returns the next complete frame, or ErrIncomplete.
func (d *Decoder) Next() (Frame, error) {
	f, n, err := Decode(d.buf)
	if err != nil {
		return Frame{}, err
	}
	d.buf = d.buf[n:]
	if len(d.buf) == 0 {
		d.buf = d.buf[:0:0]
	}
	return f, nil
}

// Describe renders a message for logs.
func Describe(m Message) string {
	if s, ok := m.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%s%+v", m.ID(), m)
}
