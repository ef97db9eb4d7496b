package nlri

import (
	"net"
	"testing"

	"github.com/ebgpd/ebgpd/bgp"
	"github.com/stretchr/testify/require"
)

func TestDecodeDispatchesPlainPrefix(t *testing.T) {
	family := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}
	p := NewPrefix(family, net.ParseIP("192.0.2.0").To4(), 24)

	got, consumed, err := Decode(family, p.Bytes(), false)
	require.NoError(t, err)
	require.Equal(t, len(p.Bytes()), consumed)
	require.Equal(t, p.Index(), got.Index())
}

func TestDecodeAllConsumesMultiplePrefixes(t *testing.T) {
	family := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}
	p1 := NewPrefix(family, net.ParseIP("192.0.2.0").To4(), 24)
	p2 := NewPrefix(family, net.ParseIP("198.51.100.0").To4(), 25)

	var packed []byte
	packed = append(packed, p1.Bytes()...)
	packed = append(packed, p2.Bytes()...)

	got, err := DecodeAll(family, packed, false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, p1.Index(), got[0].Index())
	require.Equal(t, p2.Index(), got[1].Index())
}

func TestDecodeUnknownFamilyErrors(t *testing.T) {
	family := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFI(250)}
	_, _, err := Decode(family, []byte{0x01}, false)
	require.Error(t, err)
}
