package sccperr

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindCodec, "Codec Error"},
		{KindProtocolViolation, "Protocol Violation"},
		{KindUnrecognized, "Unrecognized Message"},
		{KindStateTransitionRejected, "State Transition Rejected"},
		{KindResourceExhausted, "Resource Exhausted"},
		{KindAclDenied, "ACL Denied"},
		{KindConfig, "Configuration Error"},
		{Kind(42), "Kind(42)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	err := Codec("decode", "declared length %d exceeds %d", 5000, 1844)
	assert.Equal(t, "decode: Codec Error: declared length 5000 exceeds 1844", err.Error())

	wrapped := Wrap(KindProtocolViolation, "", io.ErrUnexpectedEOF, "short read")
	assert.Equal(t, "Protocol Violation: short read (caused by: unexpected EOF)", wrapped.Error())
	assert.ErrorIs(t, wrapped, io.ErrUnexpectedEOF)
}

func TestPredicatesThroughWrapping(t *testing.T) {
	base := Rejected("channel", "Down -> Connected")
	err := fmt.Errorf("dispatch softkey: %w", base)

	assert.True(t, IsRejected(err))
	assert.False(t, IsCodec(err))
	assert.True(t, errors.Is(err, &Error{Kind: KindStateTransitionRejected}))
	assert.False(t, errors.Is(err, &Error{Kind: KindStateTransitionRejected, Op: "device"}))

	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindStateTransitionRejected, kind)

	_, ok = KindOf(io.EOF)
	assert.False(t, ok)
}

func TestFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"codec", Codec("decode", "bad"), true},
		{"protocol violation", ProtocolViolation("session", "x"), true},
		{"acl", AclDenied("accept", "10.0.0.1"), true},
		{"unrecognized", Unrecognized("decode", 0x1234), false},
		{"rejected", Rejected("channel", "x"), false},
		{"exhausted", Exhausted("channel", "x"), false},
		{"plain io", io.EOF, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fatal(tt.err))
		})
	}
}
