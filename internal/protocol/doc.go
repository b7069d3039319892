// Package protocol implements the SCCP (Skinny) station wire format.
//
// This package handles framing, decoding and encoding of the binary
// messages exchanged between Cisco IP phones and the call manager. It is
// pure: no I/O, no clocks and no shared state.
//
// # Frame Format
//
// Every message travels in a frame with a 12-byte header:
//   - Length: 4 bytes (little-endian), payload size plus 4
//   - Reserved: 4 bytes (little-endian), protocol version on firmware 17+
//   - Message ID: 4 bytes (little-endian)
//   - Payload: Length-4 bytes
//
// A frame therefore occupies Length+8 bytes on the stream. Multi-byte
// payload fields are little-endian, except the IPv4 addresses marked as
// big-endian in the message definitions. Strings are fixed-width and
// NUL-padded.
//
// # Message Catalogue
//
// Each message id has exactly one Go type implementing Message. Ids
// without a known layout decode to *Unrecognized so the caller can log and
// skip them. Records with a protocol 17 variant (OpenReceiveChannel,
// OpenReceiveChannelAck, StartMediaTransmission) carry a V17 flag that
// selects the layout on encode and is set from the payload length on decode.
//
// # Usage Example - Decoding a stream
//
//	var dec protocol.Decoder
//	dec.Feed(data)
//	for {
//	    frame, err := dec.Next()
//	    if errors.Is(err, protocol.ErrIncomplete) {
//	        break
//	    }
//	    if err != nil {
//	        return err // codec errors are fatal to the connection
//	    }
//	    handle(frame.Message)
//	}
//
// # Usage Example - Encoding
//
//	frame, err := protocol.Encode(&protocol.KeepAliveAck{})
//
// # Error Handling
//
// Decode distinguishes between:
//   - ErrIncomplete: more bytes are needed, not a failure
//   - Malformed frames: declared length below 4
//   - Oversized frames: declared payload above MaxPayloadSize
//
// The last two are sccperr codec errors and are checked before any payload
// is buffered. Short payloads decode with zero-valued trailing fields and
// extra trailing bytes are ignored, matching what older firmware sends.
//
// # Thread Safety
//
// Decode, Encode and the message types are safe for concurrent use. A
// Decoder holds per-connection state and must not be shared.
package protocol
