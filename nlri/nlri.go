// Package nlri implements the wire encode/decode for every
// Network-Layer-Reachability-Information variant the speaker carries,
// one packed-bytes-first type per AFI/SAFI shape: plain prefixes,
// labeled and VPN-labeled prefixes, FlowSpec rule sets, EVPN routes,
// BGP-LS descriptors, MVPN and MUP routes.
package nlri

import (
	"github.com/ebgpd/ebgpd/bgp"
)

// NLRI is the contract every concrete route-key type satisfies. Bytes
// returns the already-packed wire form (computed once at construction,
// no ADD-PATH path-id prefix); Index is the canonical dedup/lookup key
// used by the RIB and differs from Bytes only for variants like
// FlowSpec where the wire form and the comparison key are not the
// same string.
type NLRI interface {
	Family() bgp.Family
	Bytes() []byte
	Index() string
	String() string
}

// PathAddressed wraps an NLRI with the ADD-PATH path identifier that
// precedes it on the wire once ADD-PATH send is negotiated for the
// family (RFC 7911 §3).
type PathAddressed struct {
	PathID uint32
	NLRI   NLRI
}

func (p PathAddressed) Bytes() []byte {
	b := make([]byte, 4, 4+len(p.NLRI.Bytes()))
	b[0] = byte(p.PathID >> 24)
	b[1] = byte(p.PathID >> 16)
	b[2] = byte(p.PathID >> 8)
	b[3] = byte(p.PathID)
	return append(b, p.NLRI.Bytes()...)
}

func nlriErr(msg string, data []byte) *bgp.ParseError {
	return bgp.NewParseError(bgp.ErrMalformedAttribute, bgp.ErrUpdateMessage, bgp.SubMalformedAttributeList, msg, data)
}

// cidrBytes returns the minimum number of octets needed to hold
// prefixLen bits (RFC 4271 §4.3 "Network Layer Reachability
// Information" variable-length encoding).
func cidrBytes(prefixLen int) int {
	return (prefixLen + 7) / 8
}
