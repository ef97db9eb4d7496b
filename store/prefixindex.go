package store

import (
	"bytes"
	"fmt"
	"net"
	"sort"

	"github.com/ebgpd/ebgpd/rib"
)

// PrefixIndex keeps IPv4/IPv6 unicast routes in a radix trie ordered
// by network so that `routes list` can return them least-to-most
// specific without a full table sort on every call. Non-unicast
// families (labelled, VPN, FlowSpec, EVPN, ...) do not have a natural
// IPNet key and are listed straight out of the RouteStore instead.
type PrefixIndex struct {
	root *node
}

type edge struct {
	target  *node
	network net.IPNet
	route   *rib.Route
}

type node struct {
	edges []*edge
}

func (n *node) leaf() bool { return len(n.edges) == 0 }

func NewPrefixIndex() *PrefixIndex {
	return &PrefixIndex{root: &node{}}
}

// Insert places route under network, nesting it beneath any
// less-specific network already present and lifting any
// already-present more-specific networks underneath it.
func (p *PrefixIndex) Insert(network net.IPNet, route *rib.Route) {
	best := p.lookup(p.root, network)
	var parent *node
	switch {
	case best == nil:
		parent = p.root
	case best.network.String() == network.String():
		best.route = route
		return
	default:
		parent = best.target
	}

	fresh := &edge{target: &node{}, network: network, route: route}
	parent.edges = append(parent.edges, fresh)
	for i := 0; i < len(parent.edges); i++ {
		e := parent.edges[i]
		if e == fresh {
			continue
		}
		if contains(network, e.network) {
			fresh.target.edges = append(fresh.target.edges, e)
			parent.edges = removeEdge(parent.edges, i)
			i--
		}
	}
}

// Delete removes the exact network from the trie, reparenting its
// children onto its former parent. It reports whether an entry was
// removed.
func (p *PrefixIndex) Delete(network net.IPNet) bool {
	return deleteFrom(p.root, network)
}

func deleteFrom(n *node, network net.IPNet) bool {
	for i, e := range n.edges {
		if e.network.String() == network.String() {
			n.edges = removeEdge(n.edges, i)
			n.edges = append(n.edges, e.target.edges...)
			return true
		}
		if e.network.Contains(network.IP) {
			return deleteFrom(e.target, network)
		}
	}
	return false
}

// Lookup returns the most specific network covering network's address
// and its associated route.
func (p *PrefixIndex) Lookup(network net.IPNet) (net.IPNet, *rib.Route, bool) {
	e := p.lookup(p.root, network)
	if e == nil {
		return net.IPNet{}, nil, false
	}
	return e.network, e.route, true
}

func (p *PrefixIndex) lookup(n *node, network net.IPNet) *edge {
	var best *edge
	for _, e := range n.edges {
		if e.network.Contains(network.IP) {
			best = e
			if next := p.lookup(e.target, network); next != nil {
				return next
			}
			return best
		}
	}
	return best
}

// List returns every stored (network, route) pair in ascending prefix
// order (least specific first within each branch), the order the
// `routes list` command renders.
func (p *PrefixIndex) List() []struct {
	Network net.IPNet
	Route   *rib.Route
} {
	var out []struct {
		Network net.IPNet
		Route   *rib.Route
	}
	var walk func(n *node)
	walk = func(n *node) {
		sorted := append([]*edge{}, n.edges...)
		sort.Slice(sorted, func(i, j int) bool {
			return bytes.Compare(sorted[i].network.IP.To16(), sorted[j].network.IP.To16()) < 0
		})
		for _, e := range sorted {
			out = append(out, struct {
				Network net.IPNet
				Route   *rib.Route
			}{e.network, e.route})
			walk(e.target)
		}
	}
	walk(p.root)
	return out
}

func removeEdge(edges []*edge, i int) []*edge {
	return append(edges[:i], edges[i+1:]...)
}

func contains(a, b net.IPNet) bool {
	return a.String() != b.String() && a.Contains(b.IP)
}

func (p *PrefixIndex) String() string {
	return fmt.Sprintf("PrefixIndex{%d top-level edges}", len(p.root.edges))
}
