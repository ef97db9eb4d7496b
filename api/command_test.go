package api

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLinePeerAnnounce(t *testing.T) {
	cmd, err := ParseLine("peer * announce route 192.0.2.0/24 next-hop 198.51.100.1 med 10")
	require.NoError(t, err)
	require.Equal(t, KindAnnounce, cmd.Kind)
	require.True(t, cmd.Selector.All)
	require.Len(t, cmd.Routes, 1)
	require.Equal(t, "192.0.2.0", cmd.Routes[0].Prefix.String())
	require.Equal(t, 24, cmd.Routes[0].PrefixLength)
	require.Equal(t, "198.51.100.1", cmd.Routes[0].NextHop.String())
	require.Len(t, cmd.Routes[0].Attributes, 1)
}

func TestParseLinePeerWithdraw(t *testing.T) {
	cmd, err := ParseLine("peer 203.0.113.1 withdraw route 192.0.2.0/24 next-hop 198.51.100.1")
	require.NoError(t, err)
	require.Equal(t, KindWithdraw, cmd.Kind)
	require.False(t, cmd.Selector.All)
	require.Len(t, cmd.Selector.IPs, 1)
}

func TestParseLineGroupBatchesSubcommands(t *testing.T) {
	cmd, err := ParseLine("peer * announce route 192.0.2.0/24 next-hop 10.0.0.1 ; peer * announce route 192.0.3.0/24 next-hop 10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, KindGroup, cmd.Kind)
	require.Len(t, cmd.Sub, 2)
}

func TestParseLineShowNeighbor(t *testing.T) {
	cmd, err := ParseLine("show neighbor 203.0.113.1")
	require.NoError(t, err)
	require.Equal(t, KindShowNeighbor, cmd.Kind)
	require.Equal(t, "203.0.113.1", cmd.Selector.IPs[0].String())
}

func TestParseLineTeardown(t *testing.T) {
	cmd, err := ParseLine("teardown 2")
	require.NoError(t, err)
	require.Equal(t, KindTeardown, cmd.Kind)
	require.Equal(t, 2, cmd.Subcode)
}

func TestParseLineSelectorList(t *testing.T) {
	cmd, err := ParseLine("peer [203.0.113.1,203.0.113.2] routes list")
	require.NoError(t, err)
	require.Equal(t, KindRoutesList, cmd.Kind)
	require.Len(t, cmd.Selector.IPs, 2)
}

func TestParseLineRejectsUnknownVerb(t *testing.T) {
	_, err := ParseLine("peer * frobnicate")
	require.Error(t, err)
}

func TestParseRouteSpecIPv6(t *testing.T) {
	spec, err := ParseRouteSpec("ipv6 unicast 2001:db8::/32 next-hop 2001:db8::1")
	require.NoError(t, err)
	require.Equal(t, 32, spec.PrefixLength)
	require.Equal(t, "2001:db8::1", spec.NextHop.String())
}

func TestParseRouteSpecWithLabelAndRD(t *testing.T) {
	spec, err := ParseRouteSpec("route 192.0.2.0/24 next-hop 198.51.100.1 label 100 rd 65001:1")
	require.NoError(t, err)
	require.Equal(t, []uint32{100}, spec.Labels)
	require.Equal(t, "65001:1", spec.RD)
}
