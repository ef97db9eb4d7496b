package speaker

import (
	"testing"

	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/capability"
	"github.com/stretchr/testify/require"
)

func ipv6Unicast() bgp.Family { return bgp.Family{AFI: bgp.AFIIPv6, SAFI: bgp.SAFIUnicast} }

func TestNegotiateAlwaysIncludesPlainIPv4Unicast(t *testing.T) {
	n := Negotiate(65001, 65002, nil, nil)
	ctx, ok := n.Contexts[bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}]
	require.True(t, ok)
	require.Equal(t, bgp.ASN(65001), ctx.LocalAS)
	require.Equal(t, bgp.ASN(65002), ctx.PeerAS)
}

func TestNegotiateIntersectsMultiprotocolFamilies(t *testing.T) {
	local := []capability.Capability{capability.NewMultiprotocol(ipv6Unicast())}
	remote := []capability.Capability{capability.NewMultiprotocol(ipv6Unicast())}
	n := Negotiate(65001, 65002, local, remote)
	_, ok := n.Contexts[ipv6Unicast()]
	require.True(t, ok)
}

func TestNegotiateDropsFamilyOnlyLocalAdvertised(t *testing.T) {
	local := []capability.Capability{capability.NewMultiprotocol(ipv6Unicast())}
	n := Negotiate(65001, 65002, local, nil)
	_, ok := n.Contexts[ipv6Unicast()]
	require.False(t, ok)
}

func TestNegotiateASN4RequiresBothSides(t *testing.T) {
	local := []capability.Capability{capability.NewASN4(65001)}
	n := Negotiate(65001, 65002, local, nil)
	require.False(t, n.ASN4)

	remote := []capability.Capability{capability.NewASN4(65002)}
	n = Negotiate(65001, 65002, local, remote)
	require.True(t, n.ASN4)
}

func TestNegotiateExtendedMessageRaisesMsgSize(t *testing.T) {
	local := []capability.Capability{capability.NewExtendedMessage()}
	remote := []capability.Capability{capability.NewExtendedMessage()}
	n := Negotiate(65001, 65002, local, remote)
	require.True(t, n.ExtendedMsg)
	require.Equal(t, bgp.ExtendedMaxMessageSize, n.MsgSize)
}

func TestNegotiateAddPathDirectionInvertsAcrossWire(t *testing.T) {
	family := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}
	local := []capability.Capability{
		capability.NewMultiprotocol(family),
		capability.NewAddPath(capability.AddPathEntry{Family: family, Direction: capability.AddPathReceive}),
	}
	remote := []capability.Capability{
		capability.NewMultiprotocol(family),
		capability.NewAddPath(capability.AddPathEntry{Family: family, Direction: capability.AddPathSend}),
	}
	n := Negotiate(65001, 65002, local, remote)
	ctx := n.Contexts[family]
	require.True(t, ctx.AddPathReceive, "peer sends, local receives")
	require.False(t, ctx.AddPathSend)
}

func TestNegotiateAddPathBothDirections(t *testing.T) {
	family := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}
	local := []capability.Capability{
		capability.NewAddPath(capability.AddPathEntry{Family: family, Direction: capability.AddPathBoth}),
	}
	remote := []capability.Capability{
		capability.NewAddPath(capability.AddPathEntry{Family: family, Direction: capability.AddPathBoth}),
	}
	n := Negotiate(65001, 65002, local, remote)
	ctx := n.Contexts[family]
	require.True(t, ctx.AddPathReceive)
	require.True(t, ctx.AddPathSend)
}

func TestNegotiateRouteRefreshRequiresBothSides(t *testing.T) {
	local := []capability.Capability{capability.NewRouteRefresh()}
	n := Negotiate(65001, 65002, local, nil)
	require.False(t, n.RouteRefresh)

	remote := []capability.Capability{capability.NewRouteRefresh()}
	n = Negotiate(65001, 65002, local, remote)
	require.True(t, n.RouteRefresh)
}

func TestNegotiateCapturesGracefulRestartFamilies(t *testing.T) {
	family := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}
	remote := []capability.Capability{
		capability.NewGracefulRestart(false, 120, capability.GracefulRestartFamily{Family: family}),
	}
	n := Negotiate(65001, 65002, nil, remote)
	require.Len(t, n.GracefulFamilies, 1)
	require.Equal(t, family, n.GracefulFamilies[0].Family)
}
