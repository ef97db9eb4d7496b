package speaker

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/ebgpd/ebgpd/api"
	"github.com/ebgpd/ebgpd/attribute"
	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/config"
	"github.com/ebgpd/ebgpd/fsm"
	"github.com/ebgpd/ebgpd/message"
	"github.com/ebgpd/ebgpd/nlri"
	"github.com/ebgpd/ebgpd/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testNeighbor(t *testing.T) (*Neighbor, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })

	cfg := config.Neighbor{
		PeerAddress: "203.0.113.1",
		LocalAS:     65001,
		PeerAS:      65002,
		HoldTime:    90,
		Families: []config.FamilyConfig{
			{AFI: "ipv4", SAFI: "unicast"},
		},
	}
	id, err := bgp.NewIdentifier(net.ParseIP("192.0.2.1"))
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	n := NewNeighbor(cfg, id, log)
	n.conn = server
	return n, client
}

func TestHandleCommandAnnounceQueuesRouteInAdjRIBOut(t *testing.T) {
	n, client := testNeighbor(t)
	defer client.Close()

	cmd := api.Command{
		Kind: api.KindAnnounce,
		Routes: []api.RouteSpec{
			{
				Family:       bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast},
				Prefix:       net.ParseIP("198.51.100.0"),
				PrefixLength: 24,
				NextHop:      net.ParseIP("203.0.113.254"),
				Attributes: []attribute.Attribute{
					attribute.NewOrigin(attribute.OriginIGP),
					attribute.NewNextHop(net.ParseIP("203.0.113.254")),
				},
			},
		},
	}

	done := make(chan struct{})
	go func() {
		n.handleCommand(nil, cmd)
		close(done)
	}()

	buf := make([]byte, 4096)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	nread, err := client.Read(buf)
	require.NoError(t, err)
	require.Greater(t, nread, message.HeaderLength)
	<-done
}

func TestHandleCommandAnnounceSynthesizesOriginAndASPath(t *testing.T) {
	n, client := testNeighbor(t)
	defer client.Close()

	family := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}
	n.negotiated.Store(Negotiated{
		MsgSize: bgp.DefaultMaxMessageSize,
		Contexts: map[bgp.Family]bgp.OpenContext{
			family: {AFI: family.AFI, SAFI: family.SAFI, MsgSize: bgp.DefaultMaxMessageSize, LocalAS: n.cfg.LocalAS, PeerAS: n.cfg.PeerAS},
		},
	})

	cmd := api.Command{
		Kind: api.KindAnnounce,
		Routes: []api.RouteSpec{
			{
				Family:       family,
				Prefix:       net.ParseIP("198.51.100.0"),
				PrefixLength: 24,
				NextHop:      net.ParseIP("203.0.113.254"),
			},
		},
	}

	done := make(chan struct{})
	go func() {
		n.handleCommand(nil, cmd)
		close(done)
	}()

	buf := make([]byte, 4096)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	nread, err := client.Read(buf)
	require.NoError(t, err)
	<-done

	typ, body, err := message.SplitHeader(buf[:nread], bgp.DefaultMaxMessageSize)
	require.NoError(t, err)
	require.Equal(t, message.TypeUpdate, typ)
	upd, err := message.ParseUpdate(body, false)
	require.NoError(t, err)

	origin, ok := upd.Attributes().Get(attribute.CodeOrigin)
	require.True(t, ok)
	require.Equal(t, attribute.OriginIGP, origin.(*attribute.Origin).Value())

	asPath, ok := upd.Attributes().Get(attribute.CodeASPath)
	require.True(t, ok)
	// LocalAS (65001) != PeerAS (65002) in testNeighbor's config: eBGP
	// prepends exactly one hop, the local AS.
	require.Equal(t, []bgp.ASN{65001}, asPath.(*attribute.ASPath).Segments()[0].ASNs)
}

func TestHandleCommandWithdrawRejectsUnparsedRouteSpec(t *testing.T) {
	n, client := testNeighbor(t)
	defer client.Close()

	cmd := api.Command{
		Kind: api.KindWithdraw,
		Routes: []api.RouteSpec{
			{Raw: "flow destination 198.51.100.0/24"},
		},
	}

	// A Raw spec can't be turned into a route, so handleCommand logs and
	// moves on rather than blocking on a write that will never happen.
	done := make(chan struct{})
	go func() {
		n.handleCommand(nil, cmd)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handleCommand blocked on an unparsed route-spec")
	}
}

func TestTeardownSendsNotificationOnlyAfterOpenSent(t *testing.T) {
	n, client := testNeighbor(t)
	defer client.Close()

	done := make(chan struct{})
	go func() {
		n.teardown(bgp.SubAdministrativeShutdown)
		close(done)
	}()

	// fsm starts at Idle, so teardown must not attempt to write a
	// NOTIFICATION — if it did, this Read would succeed instead of
	// timing out.
	client.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 64)
	_, err := client.Read(buf)
	require.Error(t, err)
	<-done
}

func TestTeardownSendsNotificationFromOpenSent(t *testing.T) {
	n, client := testNeighbor(t)
	defer client.Close()

	// Drive the FSM to OpenSent without going through Run's async dial:
	// teardown only gates its NOTIFICATION on state, not on how the
	// session got there.
	n.fsm.Apply(fsm.EventStart)
	n.fsm.Apply(fsm.EventTCPConnectionConfirmed)
	require.Equal(t, fsm.OpenSent, n.fsm.State())

	done := make(chan struct{})
	go func() {
		n.teardown(bgp.SubAdministrativeShutdown)
		close(done)
	}()

	buf := make([]byte, 64)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	nread, err := client.Read(buf)
	require.NoError(t, err)
	require.Equal(t, message.TypeNotification, message.Type(buf[18]))
	_ = nread
	<-done
}

func TestAnnounceCanonicalisesThroughRouteStore(t *testing.T) {
	n, client := testNeighbor(t)
	defer client.Close()

	s := store.NewRouteStore()
	n.SetRouteStore(s)

	cmd := api.Command{
		Kind: api.KindAnnounce,
		Routes: []api.RouteSpec{
			{
				Family:       bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast},
				Prefix:       net.ParseIP("198.51.100.0"),
				PrefixLength: 24,
				NextHop:      net.ParseIP("203.0.113.254"),
				Attributes: []attribute.Attribute{
					attribute.NewOrigin(attribute.OriginIGP),
					attribute.NewNextHop(net.ParseIP("203.0.113.254")),
				},
			},
		},
	}

	n.applyMutation(nil, cmd)
	require.Equal(t, 1, s.Len())
}

func TestListRoutesReturnsAscendingPrefixOrderViaRouteStore(t *testing.T) {
	n, client := testNeighbor(t)
	defer client.Close()

	s := store.NewRouteStore()
	n.SetRouteStore(s)

	family := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}
	spec := func(ip string, length int) api.RouteSpec {
		return api.RouteSpec{
			Family:       family,
			Prefix:       net.ParseIP(ip),
			PrefixLength: length,
			NextHop:      net.ParseIP("203.0.113.254"),
			Attributes: []attribute.Attribute{
				attribute.NewOrigin(attribute.OriginIGP),
				attribute.NewNextHop(net.ParseIP("203.0.113.254")),
			},
		}
	}
	cmd := api.Command{Kind: api.KindAnnounce, Routes: []api.RouteSpec{spec("10.1.0.0", 16), spec("10.0.0.0", 8)}}

	done := make(chan struct{})
	go func() {
		n.handleCommand(nil, cmd)
		close(done)
	}()

	buf := make([]byte, 4096)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := client.Read(buf)
	require.NoError(t, err)
	<-done

	routes := n.listRoutes(family)
	require.Len(t, routes, 2)
	require.Equal(t, "10.0.0.0/8", routes[0].NLRI().String())
	require.Equal(t, "10.1.0.0/16", routes[1].NLRI().String())
}

func TestOnUpdateDecodesNLRIIntoAdjRIBIn(t *testing.T) {
	n, client := testNeighbor(t)
	defer client.Close()

	attrs, err := attribute.NewCollection([]attribute.Attribute{
		attribute.NewOrigin(attribute.OriginIGP),
		attribute.NewNextHop(net.ParseIP("203.0.113.254")),
	})
	require.NoError(t, err)

	prefix := nlri.NewPrefix(bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}, net.ParseIP("198.51.100.0"), 24)
	upd := message.NewUpdate(nil, attrs, prefix.Bytes())

	n.onUpdate(upd, nil)

	family := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}
	require.Equal(t, 1, n.ribIn.Count(family))
}
