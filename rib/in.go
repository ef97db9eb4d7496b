package rib

import (
	"net"

	"github.com/ebgpd/ebgpd/attribute"
	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/nlri"
)

// AdjRIBIn is the cache of routes last advertised by a peer, keyed by
// family then NLRI index. Unlike Adj-RIB-Out there is no pending-queue
// state: every accepted UPDATE applies directly. Disabled entirely
// when neighbor policy says so, in which case the caller simply never
// constructs one.
type AdjRIBIn struct {
	routes map[bgp.Family]map[string]seenEntry
}

func NewAdjRIBIn() *AdjRIBIn {
	return &AdjRIBIn{routes: map[bgp.Family]map[string]seenEntry{}}
}

// Accept records an announced route, replacing whatever was previously
// stored for the same NLRI.
func (r *AdjRIBIn) Accept(n nlri.NLRI, attrs *attribute.Collection, nexthop net.IP) {
	m, ok := r.routes[n.Family()]
	if !ok {
		m = map[string]seenEntry{}
		r.routes[n.Family()] = m
	}
	m[n.Index()] = seenEntry{nlri: n, attrs: attrs, nexthop: nexthop}
}

// Withdraw removes a previously accepted route.
func (r *AdjRIBIn) Withdraw(n nlri.NLRI) {
	if m, ok := r.routes[n.Family()]; ok {
		delete(m, n.Index())
		if len(m) == 0 {
			delete(r.routes, n.Family())
		}
	}
}

// Get returns the cached NLRI/attributes pair for index within family,
// if present.
func (r *AdjRIBIn) Get(family bgp.Family, index string) (nlri.NLRI, *attribute.Collection, bool) {
	m, ok := r.routes[family]
	if !ok {
		return nil, nil, false
	}
	entry, ok := m[index]
	if !ok {
		return nil, nil, false
	}
	return entry.nlri, entry.attrs, true
}

// Families lists every family with at least one cached route.
func (r *AdjRIBIn) Families() []bgp.Family {
	out := make([]bgp.Family, 0, len(r.routes))
	for family := range r.routes {
		out = append(out, family)
	}
	return out
}

// Count returns the number of cached routes for family.
func (r *AdjRIBIn) Count(family bgp.Family) int {
	return len(r.routes[family])
}

// StaleMark returns the NLRI of every route currently cached for
// family, the candidates for withdrawal if the peer fails to
// re-advertise them before a graceful-restart stale timer expires, so
// the caller can arm a single timer covering all of them. It does not
// mark or otherwise change the cached routes.
func (r *AdjRIBIn) StaleMark(family bgp.Family) []nlri.NLRI {
	m, ok := r.routes[family]
	if !ok {
		return nil
	}
	out := make([]nlri.NLRI, 0, len(m))
	for _, entry := range m {
		out = append(out, entry.nlri)
	}
	return out
}
