package capability

import (
	"testing"

	"github.com/ebgpd/ebgpd/bgp"
	"github.com/stretchr/testify/require"
)

func TestMultiprotocolRoundTrip(t *testing.T) {
	family := bgp.Family{AFI: bgp.AFIIPv6, SAFI: bgp.SAFIUnicast}
	m := NewMultiprotocol(family)
	parsed, err := ParseAll(m.Bytes())
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	require.Equal(t, family, parsed[0].(*Multiprotocol).Family())
}

func TestASN4RoundTrip(t *testing.T) {
	a := NewASN4(4200000000)
	parsed, err := ParseASN4(a.Bytes()[2:])
	require.NoError(t, err)
	require.Equal(t, bgp.ASN(4200000000), parsed.ASN())
}

func TestAddPathRoundTrip(t *testing.T) {
	entry := AddPathEntry{Family: bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}, Direction: AddPathBoth}
	ap := NewAddPath(entry)
	parsed, err := ParseAddPath(ap.Bytes()[2:])
	require.NoError(t, err)
	require.Equal(t, []AddPathEntry{entry}, parsed.Entries())
}

func TestGracefulRestartRoundTrip(t *testing.T) {
	gr := NewGracefulRestart(true, 120, GracefulRestartFamily{
		Family:              bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast},
		ForwardingPreserved: true,
	})
	parsed, err := ParseGracefulRestart(gr.Bytes()[2:])
	require.NoError(t, err)
	require.True(t, parsed.Restarting())
	require.Equal(t, uint16(120), parsed.RestartTime())
	require.True(t, parsed.Families()[0].ForwardingPreserved)
}

func TestParseAllMixesKnownAndUnknown(t *testing.T) {
	b := append(NewRouteRefresh().Bytes(), header(Code(222), []byte{9})...)
	caps, err := ParseAll(b)
	require.NoError(t, err)
	require.Len(t, caps, 2)
	require.Equal(t, CodeRouteRefresh, caps[0].Code())
	_, ok := caps[1].(*Unknown)
	require.True(t, ok)
}

func TestFQDNRoundTrip(t *testing.T) {
	f := NewFQDN("router1", "example.net")
	parsed, err := ParseFQDN(f.Bytes()[2:])
	require.NoError(t, err)
	require.Equal(t, "router1", parsed.Hostname())
	require.Equal(t, "example.net", parsed.Domain())
}
