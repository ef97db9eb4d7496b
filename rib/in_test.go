package rib

import (
	"net"
	"testing"

	"github.com/ebgpd/ebgpd/attribute"
	"github.com/ebgpd/ebgpd/nlri"
	"github.com/stretchr/testify/require"
)

func TestAdjRIBInAcceptAndWithdraw(t *testing.T) {
	in := NewAdjRIBIn()
	family := ipv4Family()
	p := nlri.NewPrefix(family, net.ParseIP("192.0.2.0").To4(), 24)
	attrs := mustCollection(t, attribute.NewOrigin(attribute.OriginIGP))

	in.Accept(p, attrs, net.ParseIP("203.0.113.1"))
	require.Equal(t, 1, in.Count(family))
	got, gotAttrs, ok := in.Get(family, p.Index())
	require.True(t, ok)
	require.Equal(t, p.Bytes(), got.Bytes())
	require.Equal(t, attrs.Index(), gotAttrs.Index())

	in.Withdraw(p)
	require.Equal(t, 0, in.Count(family))
	_, _, ok = in.Get(family, p.Index())
	require.False(t, ok)
}

func TestAdjRIBInStaleMark(t *testing.T) {
	in := NewAdjRIBIn()
	family := ipv4Family()
	p := nlri.NewPrefix(family, net.ParseIP("192.0.2.0").To4(), 24)
	attrs := mustCollection(t, attribute.NewOrigin(attribute.OriginIGP))
	in.Accept(p, attrs, net.ParseIP("203.0.113.1"))

	stale := in.StaleMark(family)
	require.Len(t, stale, 1)
	require.Equal(t, p.Bytes(), stale[0].Bytes())
}
