package update

import (
	"net"
	"testing"

	"github.com/ebgpd/ebgpd/attribute"
	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/nlri"
	"github.com/ebgpd/ebgpd/rib"
	"github.com/stretchr/testify/require"
)

func ipv4Unicast() bgp.Family { return bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast} }
func ipv6Unicast() bgp.Family { return bgp.Family{AFI: bgp.AFIIPv6, SAFI: bgp.SAFIUnicast} }
func ipv4VPN() bgp.Family     { return bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIMPLSVPN} }

func mustAttrs(t *testing.T) *attribute.Collection {
	t.Helper()
	c, err := attribute.NewCollection([]attribute.Attribute{attribute.NewOrigin(attribute.OriginIGP)})
	require.NoError(t, err)
	return c
}

func legacyNegotiated() Negotiated {
	return Negotiated{
		MsgSize: bgp.DefaultMaxMessageSize,
		Contexts: map[bgp.Family]bgp.OpenContext{
			ipv4Unicast(): {AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast, MsgSize: bgp.DefaultMaxMessageSize},
		},
	}
}

func TestAssembleAnnouncePlainIPv4UsesLegacySections(t *testing.T) {
	a := NewAssembler(legacyNegotiated())
	p := nlri.NewPrefix(ipv4Unicast(), net.ParseIP("192.0.2.0").To4(), 24)
	route := rib.NewRoute(p, mustAttrs(t), net.ParseIP("203.0.113.1"))

	item := rib.DrainItem{Kind: rib.DrainAnnounce, Family: ipv4Unicast(), Attributes: mustAttrs(t), Routes: []*rib.Route{route}}
	updates, err := a.Assemble(item)
	require.NoError(t, err)
	require.Len(t, updates, 1)
}

func TestAssembleWithdrawPlainIPv4UsesLegacySection(t *testing.T) {
	a := NewAssembler(legacyNegotiated())
	p := nlri.NewPrefix(ipv4Unicast(), net.ParseIP("192.0.2.0").To4(), 24)

	item := rib.DrainItem{Kind: rib.DrainWithdraw, Family: ipv4Unicast(), Withdrawn: []nlri.NLRI{p}}
	updates, err := a.Assemble(item)
	require.NoError(t, err)
	require.Len(t, updates, 1)
}

func TestAssembleAnnounceAddPathUsesMPReachEvenForIPv4(t *testing.T) {
	negotiated := Negotiated{
		MsgSize: bgp.DefaultMaxMessageSize,
		Contexts: map[bgp.Family]bgp.OpenContext{
			ipv4Unicast(): {AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast, MsgSize: bgp.DefaultMaxMessageSize, AddPathSend: true},
		},
	}
	a := NewAssembler(negotiated)
	p := nlri.NewPrefix(ipv4Unicast(), net.ParseIP("192.0.2.0").To4(), 24)
	route := rib.NewRouteWithPathID(p, mustAttrs(t), net.ParseIP("203.0.113.1"), 7)

	item := rib.DrainItem{Kind: rib.DrainAnnounce, Family: ipv4Unicast(), Attributes: mustAttrs(t), Routes: []*rib.Route{route}}
	updates, err := a.Assemble(item)
	require.NoError(t, err)
	require.Len(t, updates, 1)
}

func TestAssembleAnnounceIPv6UsesMPReach(t *testing.T) {
	negotiated := Negotiated{
		MsgSize: bgp.DefaultMaxMessageSize,
		Contexts: map[bgp.Family]bgp.OpenContext{
			ipv6Unicast(): {AFI: bgp.AFIIPv6, SAFI: bgp.SAFIUnicast, MsgSize: bgp.DefaultMaxMessageSize},
		},
	}
	a := NewAssembler(negotiated)
	p := nlri.NewPrefix(ipv6Unicast(), net.ParseIP("2001:db8::").To16(), 32)
	route := rib.NewRoute(p, mustAttrs(t), net.ParseIP("2001:db8::1"))

	item := rib.DrainItem{Kind: rib.DrainAnnounce, Family: ipv6Unicast(), Attributes: mustAttrs(t), Routes: []*rib.Route{route}}
	updates, err := a.Assemble(item)
	require.NoError(t, err)
	require.Len(t, updates, 1)
}

func TestAssembleAnnounceVPNPrependsZeroRD(t *testing.T) {
	negotiated := Negotiated{
		MsgSize: bgp.DefaultMaxMessageSize,
		Contexts: map[bgp.Family]bgp.OpenContext{
			ipv4VPN(): {AFI: bgp.AFIIPv4, SAFI: bgp.SAFIMPLSVPN, MsgSize: bgp.DefaultMaxMessageSize},
		},
	}
	a := NewAssembler(negotiated)
	nh := nextHopBytes(ipv4VPN(), net.ParseIP("203.0.113.1"))
	require.Len(t, nh, 12)
	for _, b := range nh[:8] {
		require.Equal(t, byte(0), b)
	}

	p := nlri.NewPrefix(ipv4VPN(), net.ParseIP("192.0.2.0").To4(), 24)
	route := rib.NewRoute(p, mustAttrs(t), net.ParseIP("203.0.113.1"))
	item := rib.DrainItem{Kind: rib.DrainAnnounce, Family: ipv4VPN(), Attributes: mustAttrs(t), Routes: []*rib.Route{route}}
	updates, err := a.Assemble(item)
	require.NoError(t, err)
	require.Len(t, updates, 1)
}

func TestAssembleAnnounceSplitsByNextHop(t *testing.T) {
	a := NewAssembler(legacyNegotiated())
	p1 := nlri.NewPrefix(ipv4Unicast(), net.ParseIP("192.0.2.0").To4(), 24)
	p2 := nlri.NewPrefix(ipv4Unicast(), net.ParseIP("192.0.2.0").To4(), 25)
	r1 := rib.NewRoute(p1, mustAttrs(t), net.ParseIP("203.0.113.1"))
	r2 := rib.NewRoute(p2, mustAttrs(t), net.ParseIP("203.0.113.2"))

	item := rib.DrainItem{Kind: rib.DrainAnnounce, Family: ipv4Unicast(), Attributes: mustAttrs(t), Routes: []*rib.Route{r1, r2}}
	updates, err := a.Assemble(item)
	require.NoError(t, err)
	require.Len(t, updates, 2)
}

func TestAssembleAnnounceFragmentsOnMsgSize(t *testing.T) {
	negotiated := Negotiated{
		MsgSize: 80,
		Contexts: map[bgp.Family]bgp.OpenContext{
			ipv4Unicast(): {AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast, MsgSize: 80},
		},
	}
	a := NewAssembler(negotiated)

	var routes []*rib.Route
	for i := 0; i < 30; i++ {
		p := nlri.NewPrefix(ipv4Unicast(), net.IPv4(192, 0, 2, byte(i)).To4(), 32)
		routes = append(routes, rib.NewRoute(p, mustAttrs(t), net.ParseIP("203.0.113.1")))
	}
	item := rib.DrainItem{Kind: rib.DrainAnnounce, Family: ipv4Unicast(), Attributes: mustAttrs(t), Routes: routes}
	updates, err := a.Assemble(item)
	require.NoError(t, err)
	require.Greater(t, len(updates), 1)
}
