package acl

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		name   string
		permit []string
		deny   []string
		addr   string
		want   bool
	}{
		{"empty list allows", nil, nil, "10.0.0.1", true},
		{"deny all", nil, []string{"0.0.0.0/0"}, "10.0.0.1", false},
		{"permit overrides deny all", []string{"192.168.1.0/24"}, []string{"0.0.0.0/0"}, "192.168.1.50", true},
		{"outside permitted subnet", []string{"192.168.1.0/24"}, []string{"0.0.0.0/0"}, "192.168.2.50", false},
		{"netmask form", []string{"10.1.0.0/255.255.0.0"}, []string{"any"}, "10.1.200.3", true},
		{"single host", []string{"10.0.0.7"}, []string{"any"}, "10.0.0.7", true},
		{"single host other", []string{"10.0.0.7"}, []string{"any"}, "10.0.0.8", false},
		{"mapped v4", []string{"10.0.0.0/8"}, []string{"any"}, "::ffff:10.2.3.4", true},
		{"deny subnet only", nil, []string{"172.16.0.0/12"}, "172.20.1.1", false},
		{"deny subnet miss", nil, []string{"172.16.0.0/12"}, "10.0.0.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.permit, tt.deny)
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.Allowed(netip.MustParseAddr(tt.addr)))
		})
	}
}

func TestParsePrefixErrors(t *testing.T) {
	for _, s := range []string{"", "10.0.0", "10.0.0.0/33", "10.0.0.0/255.0.255.0", "10.0.0.0/abc.def"} {
		_, err := ParsePrefix(s)
		assert.Error(t, err, s)
	}
}

func TestParsePrefixMasks(t *testing.T) {
	p, err := ParsePrefix("192.168.1.77/255.255.255.0")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.0/24", p.String())

	p, err = ParsePrefix("10.9.8.7/8")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0/8", p.String())
}

func TestNilList(t *testing.T) {
	var l *List
	assert.True(t, l.Allowed(netip.MustParseAddr("1.2.3.4")))
	assert.True(t, l.Empty())
	assert.Equal(t, "allow all", l.String())
}

func TestString(t *testing.T) {
	l := MustNew([]string{"10.0.0.0/8"}, []string{"any"})
	assert.Equal(t, "deny 0.0.0.0/0, permit 10.0.0.0/8", l.String())
	assert.Len(t, l.Rules(), 2)
}
