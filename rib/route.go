// Package rib implements the per-neighbor Adj-RIB-Out and Adj-RIB-In:
// pending announce/withdraw queues, the seen cache used for
// deduplication and graceful-restart replay, watchdog-gated route
// visibility, and route-refresh replay. The BGP decision process
// (best-path selection / Loc-RIB) is out of scope; this package only
// tracks what has been, and needs to be, sent or recorded per peer.
package rib

import (
	"net"

	"github.com/ebgpd/ebgpd/attribute"
	"github.com/ebgpd/ebgpd/nlri"
)

// Route is the operational unit carried in an Adj-RIB-Out queue:
// identity (NLRI), the path attributes to announce it with, and the
// next-hop to advertise for this peer. Route never stores announce-vs-
// withdraw: that is implicit in which RIB method is called. A Route is
// constructed once; any change in nexthop or attributes yields a new
// Route rather than mutating in place, since the same NLRI reference
// may be shared across peers.
type Route struct {
	nlri    nlri.NLRI
	attrs   *attribute.Collection
	nexthop net.IP
	pathID  uint32
	index   string
}

// NewRoute builds a Route with ADD-PATH identifier 0 (the common
// single-path case). index is cached at construction per the
// packed-bytes-first discipline used throughout this module: it is
// family-prefix ⧺ nlri.Index(), stable for the life of the object.
func NewRoute(n nlri.NLRI, attrs *attribute.Collection, nexthop net.IP) *Route {
	return NewRouteWithPathID(n, attrs, nexthop, 0)
}

// NewRouteWithPathID builds a Route carrying an explicit ADD-PATH
// identifier, for sessions advertising more than one path per NLRI.
func NewRouteWithPathID(n nlri.NLRI, attrs *attribute.Collection, nexthop net.IP, pathID uint32) *Route {
	return &Route{
		nlri:    n,
		attrs:   attrs,
		nexthop: nexthop,
		pathID:  pathID,
		index:   n.Family().String() + "|" + n.Index(),
	}
}

func (r *Route) NLRI() nlri.NLRI                   { return r.nlri }
func (r *Route) Attributes() *attribute.Collection { return r.attrs }
func (r *Route) NextHop() net.IP                   { return r.nexthop }
func (r *Route) PathID() uint32                    { return r.pathID }
func (r *Route) Index() string                     { return r.index }

// WithNextHop returns a new Route identical to r but with nexthop
// replaced, e.g. when resolving a "self" sentinel at send time.
func (r *Route) WithNextHop(nexthop net.IP) *Route {
	return &Route{nlri: r.nlri, attrs: r.attrs, nexthop: nexthop, pathID: r.pathID, index: r.index}
}

// WithMergedAttributes returns a new Route identical to r but carrying
// attrs in place of its current attribute set.
func (r *Route) WithMergedAttributes(attrs *attribute.Collection) *Route {
	return &Route{nlri: r.nlri, attrs: attrs, nexthop: r.nexthop, pathID: r.pathID, index: r.index}
}

// seenEntry is what the Adj-RIB-Out seen cache and Adj-RIB-In both
// store: the route identity, the attributes it was last sent or
// received with, and the next-hop in effect at the time.
type seenEntry struct {
	nlri    nlri.NLRI
	attrs   *attribute.Collection
	nexthop net.IP
}

// equalTo reports whether a candidate route matches this seen entry on
// (attribute fingerprint, nexthop) — the comparison InCache uses to
// decide whether a re-announce would be a no-op.
func (e seenEntry) equalTo(attrs *attribute.Collection, nexthop net.IP) bool {
	if e.attrs == nil || attrs == nil {
		return e.attrs == attrs
	}
	return e.attrs.Index() == attrs.Index() && e.nexthop.Equal(nexthop)
}
