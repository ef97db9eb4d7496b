package message

import (
	"net"
	"testing"

	"github.com/ebgpd/ebgpd/attribute"
	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/capability"
	"github.com/ebgpd/ebgpd/nlri"
	"github.com/stretchr/testify/require"
)

func TestOpenRoundTrip(t *testing.T) {
	id, err := bgp.NewIdentifier(net.ParseIP("192.0.2.1"))
	require.NoError(t, err)
	caps := []capability.Capability{capability.NewASN4(70000), capability.NewMultiprotocol(bgp.Family{AFI: bgp.AFIIPv6, SAFI: bgp.SAFIUnicast})}
	open := NewOpen(bgp.ASTrans, 180, id, caps)

	typ, body, err := SplitHeader(open.Bytes(), bgp.DefaultMaxMessageSize)
	require.NoError(t, err)
	require.Equal(t, TypeOpen, typ)

	parsed, err := ParseOpen(body)
	require.NoError(t, err)
	require.Equal(t, bgp.ASTrans, parsed.MyAS())
	require.Equal(t, uint16(180), parsed.HoldTime())
	require.Len(t, parsed.Capabilities(), 2)
}

func TestKeepaliveRoundTrip(t *testing.T) {
	k := NewKeepalive()
	typ, body, err := SplitHeader(k.Bytes(), bgp.DefaultMaxMessageSize)
	require.NoError(t, err)
	require.Equal(t, TypeKeepalive, typ)
	_, err = ParseKeepalive(body)
	require.NoError(t, err)
}

func TestNotificationRoundTrip(t *testing.T) {
	n := NewNotification(bgp.ErrCease, bgp.SubAdministrativeShutdown, []byte("bye"))
	typ, body, err := SplitHeader(n.Bytes(), bgp.DefaultMaxMessageSize)
	require.NoError(t, err)
	require.Equal(t, TypeNotification, typ)
	parsed, err := ParseNotification(body)
	require.NoError(t, err)
	require.Equal(t, bgp.ErrCease, parsed.Code())
	require.Equal(t, []byte("bye"), parsed.Data())
}

func TestRouteRefreshRoundTrip(t *testing.T) {
	family := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}
	rr := NewRouteRefresh(family, RefreshBeginOfRIB)
	typ, body, err := SplitHeader(rr.Bytes(), bgp.DefaultMaxMessageSize)
	require.NoError(t, err)
	require.Equal(t, TypeRouteRefresh, typ)
	parsed, err := ParseRouteRefresh(body)
	require.NoError(t, err)
	require.Equal(t, family, parsed.Family())
	require.Equal(t, RefreshBeginOfRIB, parsed.Subtype())
}

func TestUpdateRoundTripLegacyIPv4(t *testing.T) {
	family := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}
	p := nlri.NewPrefix(family, net.ParseIP("198.51.100.0").To4(), 24)

	coll, err := attribute.NewCollection([]attribute.Attribute{
		attribute.NewOrigin(attribute.OriginIGP),
		attribute.NewNextHop(net.ParseIP("192.0.2.1")),
		attribute.NewASPath(bgp.OpenContext{ASN4: true}, nil),
	})
	require.NoError(t, err)

	update := NewUpdate(nil, coll, p.Bytes())
	typ, body, err := SplitHeader(update.Bytes(), bgp.DefaultMaxMessageSize)
	require.NoError(t, err)
	require.Equal(t, TypeUpdate, typ)

	parsed, err := ParseUpdate(body, true)
	require.NoError(t, err)
	require.Equal(t, p.Bytes(), parsed.NLRI())
	origin, ok := parsed.Attributes().Get(attribute.CodeOrigin)
	require.True(t, ok)
	require.Equal(t, attribute.OriginIGP, origin.(*attribute.Origin).Value())
}

func TestUpdateIsEndOfRIB(t *testing.T) {
	empty := NewUpdate(nil, nil, nil)
	_, body, err := SplitHeader(empty.Bytes(), bgp.DefaultMaxMessageSize)
	require.NoError(t, err)
	parsed, err := ParseUpdate(body, true)
	require.NoError(t, err)
	require.True(t, parsed.IsEndOfRIB())
}
