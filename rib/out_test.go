package rib

import (
	"net"
	"testing"

	"github.com/ebgpd/ebgpd/attribute"
	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/nlri"
	"github.com/stretchr/testify/require"
)

func mustCollection(t *testing.T, attrs ...attribute.Attribute) *attribute.Collection {
	t.Helper()
	c, err := attribute.NewCollection(attrs)
	require.NoError(t, err)
	return c
}

func ipv4Family() bgp.Family { return bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast} }

func TestAddToRibDrainsAsAnnounce(t *testing.T) {
	out := NewAdjRIBOut()
	family := ipv4Family()
	p := nlri.NewPrefix(family, net.ParseIP("192.0.2.0").To4(), 24)
	attrs := mustCollection(t, attribute.NewOrigin(attribute.OriginIGP))
	route := NewRoute(p, attrs, net.ParseIP("203.0.113.1"))

	out.AddToRib(route)
	drain := out.Drain()
	item, ok := drain.Next()
	require.True(t, ok)
	require.Equal(t, DrainAnnounce, item.Kind)
	require.Equal(t, family, item.Family)
	require.Len(t, item.Routes, 1)

	_, ok = drain.Next()
	require.False(t, ok)

	require.True(t, out.InCache(route))
}

func TestAnnounceCancelsWithdraw(t *testing.T) {
	out := NewAdjRIBOut()
	family := ipv4Family()
	p := nlri.NewPrefix(family, net.ParseIP("192.0.2.0").To4(), 24)
	attrs := mustCollection(t, attribute.NewOrigin(attribute.OriginIGP))

	out.DelFromRib(p)
	out.AddToRib(NewRoute(p, attrs, net.ParseIP("203.0.113.1")))

	drain := out.Drain()
	item, ok := drain.Next()
	require.True(t, ok)
	require.Equal(t, DrainAnnounce, item.Kind)
	_, ok = drain.Next()
	require.False(t, ok, "withdraw should have been cancelled by the later announce")
}

func TestWithdrawCancelsAnnounce(t *testing.T) {
	out := NewAdjRIBOut()
	family := ipv4Family()
	p := nlri.NewPrefix(family, net.ParseIP("192.0.2.0").To4(), 24)
	attrs := mustCollection(t, attribute.NewOrigin(attribute.OriginIGP))

	out.AddToRib(NewRoute(p, attrs, net.ParseIP("203.0.113.1")))
	out.DelFromRib(p)

	drain := out.Drain()
	item, ok := drain.Next()
	require.True(t, ok)
	require.Equal(t, DrainWithdraw, item.Kind)
	_, ok = drain.Next()
	require.False(t, ok, "announce should have been cancelled by the later withdraw")
}

func TestSameFingerprintRoutesCoalesce(t *testing.T) {
	out := NewAdjRIBOut()
	family := ipv4Family()
	attrs := mustCollection(t, attribute.NewOrigin(attribute.OriginIGP))
	p1 := nlri.NewPrefix(family, net.ParseIP("192.0.2.0").To4(), 24)
	p2 := nlri.NewPrefix(family, net.ParseIP("198.51.100.0").To4(), 24)

	out.AddToRib(NewRoute(p1, attrs, net.ParseIP("203.0.113.1")))
	out.AddToRib(NewRoute(p2, attrs, net.ParseIP("203.0.113.1")))

	drain := out.Drain()
	item, ok := drain.Next()
	require.True(t, ok)
	require.Equal(t, DrainAnnounce, item.Kind)
	require.Len(t, item.Routes, 2, "routes sharing an attribute fingerprint coalesce into one group")
	_, ok = drain.Next()
	require.False(t, ok)
}

func TestInCacheFalseUntilDrained(t *testing.T) {
	out := NewAdjRIBOut()
	family := ipv4Family()
	p := nlri.NewPrefix(family, net.ParseIP("192.0.2.0").To4(), 24)
	attrs := mustCollection(t, attribute.NewOrigin(attribute.OriginIGP))
	route := NewRoute(p, attrs, net.ParseIP("203.0.113.1"))

	out.AddToRib(route)
	require.False(t, out.InCache(route), "queued but not yet drained")
}

func TestReplaceRestartWithdrawsMissingAndReannouncesAll(t *testing.T) {
	out := NewAdjRIBOut()
	family := ipv4Family()
	attrs := mustCollection(t, attribute.NewOrigin(attribute.OriginIGP))
	p1 := nlri.NewPrefix(family, net.ParseIP("192.0.2.0").To4(), 24)
	p2 := nlri.NewPrefix(family, net.ParseIP("198.51.100.0").To4(), 24)

	previous := []*Route{NewRoute(p1, attrs, net.ParseIP("203.0.113.1")), NewRoute(p2, attrs, net.ParseIP("203.0.113.1"))}
	current := []*Route{NewRoute(p1, attrs, net.ParseIP("203.0.113.1"))}

	out.ReplaceRestart(previous, current)

	var withdraws, announces int
	drain := out.Drain()
	for {
		item, ok := drain.Next()
		if !ok {
			break
		}
		if item.Kind == DrainWithdraw {
			withdraws += len(item.Withdrawn)
		} else {
			announces += len(item.Routes)
		}
	}
	require.Equal(t, 1, withdraws)
	require.Equal(t, 1, announces)
}

func TestReplaceReloadSkipsUnchanged(t *testing.T) {
	out := NewAdjRIBOut()
	family := ipv4Family()
	attrs := mustCollection(t, attribute.NewOrigin(attribute.OriginIGP))
	p1 := nlri.NewPrefix(family, net.ParseIP("192.0.2.0").To4(), 24)

	previous := []*Route{NewRoute(p1, attrs, net.ParseIP("203.0.113.1"))}
	current := []*Route{NewRoute(p1, attrs, net.ParseIP("203.0.113.1"))}

	out.ReplaceReload(previous, current)
	_, ok := out.Drain().Next()
	require.False(t, ok, "unchanged route must not re-enqueue")
}

func TestWatchdogGatesAnnouncement(t *testing.T) {
	out := NewAdjRIBOut()
	family := ipv4Family()
	p := nlri.NewPrefix(family, net.ParseIP("192.0.2.0").To4(), 24)
	attrs := mustCollection(t, attribute.NewOrigin(attribute.OriginIGP))
	route := NewRoute(p, attrs, net.ParseIP("203.0.113.1"))

	out.AddToWatchdog("peer-link", route, true)
	_, ok := out.Drain().Next()
	require.False(t, ok, "inactive watchdog routes are held back")

	out.AnnounceWatchdog("peer-link")
	item, ok := out.Drain().Next()
	require.True(t, ok)
	require.Equal(t, DrainAnnounce, item.Kind)

	out.WithdrawWatchdog("peer-link")
	item, ok = out.Drain().Next()
	require.True(t, ok)
	require.Equal(t, DrainWithdraw, item.Kind)
}

func TestFlushCallbackFiresOnceExhausted(t *testing.T) {
	out := NewAdjRIBOut()
	family := ipv4Family()
	p := nlri.NewPrefix(family, net.ParseIP("192.0.2.0").To4(), 24)
	attrs := mustCollection(t, attribute.NewOrigin(attribute.OriginIGP))
	out.AddToRib(NewRoute(p, attrs, net.ParseIP("203.0.113.1")))

	fired := 0
	out.OnFlush(func() { fired++ })

	drain := out.Drain()
	for {
		_, ok := drain.Next()
		if !ok {
			break
		}
	}
	require.Equal(t, 1, fired)
}

func TestRefreshReplaysSeenRoutes(t *testing.T) {
	out := NewAdjRIBOut()
	family := ipv4Family()
	p := nlri.NewPrefix(family, net.ParseIP("192.0.2.0").To4(), 24)
	attrs := mustCollection(t, attribute.NewOrigin(attribute.OriginIGP))
	route := NewRoute(p, attrs, net.ParseIP("203.0.113.1"))

	out.AddToRib(route)
	drain := out.Drain()
	for {
		_, ok := drain.Next()
		if !ok {
			break
		}
	}
	require.True(t, out.InCache(route))

	out.Refresh(family)
	pending := out.DrainRefreshPending()
	require.Equal(t, []bgp.Family{family}, pending)

	item, ok := out.Drain().Next()
	require.True(t, ok)
	require.Equal(t, DrainAnnounce, item.Kind)
	require.Len(t, item.Routes, 1)
}
