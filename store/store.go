// Package store holds the process-wide shared state the reactor owns
// and every neighbor task only reads: a reference-counted route table
// keyed by NLRI index, an interned attribute cache, and an ordered
// prefix index for unicast listing commands. Per the single-threaded
// cooperative scheduling model this module targets, only the reactor
// ever writes to a Store — Route's immutability is what makes
// concurrent reads from neighbor tasks safe without any locking.
package store

import (
	"net"

	"github.com/ebgpd/ebgpd/attribute"
	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/nlri"
	"github.com/ebgpd/ebgpd/rib"
)

type entry struct {
	route    *rib.Route
	refcount int
}

// RouteStore is the reference-counted `nlri_index -> Route` map shared
// across every neighbor's Adj-RIB-Out. Insertion increments a route's
// refcount; Release decrements it and evicts the entry at zero, so a
// route announced to ten neighbors is stored exactly once. It also
// maintains the attribute cache every insert interns through and a
// per-family PrefixIndex for families with a natural IPNet key, so
// `routes list` can return ascending-prefix order without a sort.
type RouteStore struct {
	entries  map[string]*entry
	attrs    *AttributeCache
	prefixes map[bgp.Family]*PrefixIndex
}

func NewRouteStore() *RouteStore {
	return &RouteStore{
		entries:  map[string]*entry{},
		attrs:    NewAttributeCache(),
		prefixes: map[bgp.Family]*PrefixIndex{},
	}
}

// Insert records a reference to route, returning the canonical shared
// instance for its index: if an equal route is already stored, the
// existing instance is returned and its refcount bumped instead of
// storing a duplicate. New routes have their attributes interned and,
// for families with a plain IPNet key, are indexed into that family's
// PrefixIndex.
func (s *RouteStore) Insert(route *rib.Route) *rib.Route {
	if e, ok := s.entries[route.Index()]; ok {
		e.refcount++
		return e.route
	}
	if attrs := route.Attributes(); attrs != nil {
		if interned := s.InternAttributes(attrs); interned != attrs {
			route = route.WithMergedAttributes(interned)
		}
	}
	s.entries[route.Index()] = &entry{route: route, refcount: 1}
	s.index(route)
	return route
}

// InternAttributes returns the canonical shared Collection for attrs'
// contents, so peers that announce the same attribute set (a common
// COMMUNITIES tag applied across thousands of routes) share one
// decoded instance instead of each UPDATE allocating its own.
func (s *RouteStore) InternAttributes(attrs *attribute.Collection) *attribute.Collection {
	all := attrs.All()
	interned := make([]attribute.Attribute, len(all))
	changed := false
	for i, a := range all {
		a := a
		cached := s.attrs.Intern(a.Code(), a.Bytes(), func() attribute.Attribute { return a })
		interned[i] = cached
		if cached != a {
			changed = true
		}
	}
	if !changed {
		return attrs
	}
	coll, err := attribute.NewCollection(interned)
	if err != nil {
		return attrs
	}
	return coll
}

// index places route into its family's PrefixIndex when its NLRI
// carries a plain prefix (IPv4/IPv6 unicast and multicast); families
// without a natural IPNet key (VPN, labelled, EVPN, FlowSpec, ...)
// are listed straight out of entries instead.
func (s *RouteStore) index(route *rib.Route) {
	p, ok := route.NLRI().(*nlri.Prefix)
	if !ok {
		return
	}
	family := p.Family()
	idx, ok := s.prefixes[family]
	if !ok {
		idx = NewPrefixIndex()
		s.prefixes[family] = idx
	}
	idx.Insert(net.IPNet{IP: p.IP(), Mask: net.CIDRMask(p.Length(), len(p.IP())*8)}, route)
}

// Ordered returns every route stored for family. Families with a
// PrefixIndex come back in ascending prefix order, the order `routes
// list` renders; every other family comes back in indeterminate map
// order.
func (s *RouteStore) Ordered(family bgp.Family) []*rib.Route {
	idx, ok := s.prefixes[family]
	if !ok {
		var out []*rib.Route
		for _, e := range s.entries {
			if e.route.NLRI().Family() == family {
				out = append(out, e.route)
			}
		}
		return out
	}
	entries := idx.List()
	out := make([]*rib.Route, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Route)
	}
	return out
}

// Release drops one reference to the route at index, removing it once
// the refcount reaches zero. It reports whether the route was evicted.
func (s *RouteStore) Release(index string) bool {
	e, ok := s.entries[index]
	if !ok {
		return false
	}
	e.refcount--
	if e.refcount <= 0 {
		delete(s.entries, index)
		if p, ok := e.route.NLRI().(*nlri.Prefix); ok {
			if idx, ok := s.prefixes[p.Family()]; ok {
				idx.Delete(net.IPNet{IP: p.IP(), Mask: net.CIDRMask(p.Length(), len(p.IP())*8)})
			}
		}
		return true
	}
	return false
}

// Get returns the shared route for index, if still referenced.
func (s *RouteStore) Get(index string) (*rib.Route, bool) {
	e, ok := s.entries[index]
	if !ok {
		return nil, false
	}
	return e.route, true
}

// RefCount reports the current reference count for index, or 0 if not
// present. Intended for diagnostics (`show neighbor`-style commands),
// not for control flow.
func (s *RouteStore) RefCount(index string) int {
	if e, ok := s.entries[index]; ok {
		return e.refcount
	}
	return 0
}

// Len returns the number of distinct routes currently stored.
func (s *RouteStore) Len() int {
	return len(s.entries)
}
