package bgp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFamilyPackRoundTrip(t *testing.T) {
	f := NewFamily(AFIIPv6, SAFIUnicast)
	packed := f.Pack()
	got, err := UnpackFamily(packed[:])
	require.NoError(t, err)
	require.Equal(t, f, got)
}

func TestFamilyString(t *testing.T) {
	require.Equal(t, "ipv4 unicast", NewFamily(AFIIPv4, SAFIUnicast).String())
	require.Equal(t, "ipv4 mpls-vpn", NewFamily(AFIIPv4, SAFIMPLSVPN).String())
	require.Equal(t, "ipv6 flow", NewFamily(AFIIPv6, SAFIFlowSpec).String())
}

func TestASNWireForms(t *testing.T) {
	small := ASN(65000)
	require.True(t, small.Fits16())
	require.Equal(t, ASN(65000), ASN2(small.Bytes2()))

	large := ASN(4200000000)
	require.False(t, large.Fits16())
	require.Equal(t, ASTrans, ASN2(large.Bytes2()))
	require.Equal(t, large, ASN4(large.Bytes4()))
}

func TestIsIPv4Unicast(t *testing.T) {
	require.True(t, NewFamily(AFIIPv4, SAFIUnicast).IsIPv4Unicast())
	require.False(t, NewFamily(AFIIPv6, SAFIUnicast).IsIPv4Unicast())
}
