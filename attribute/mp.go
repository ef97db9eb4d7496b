package attribute

import (
	"net"

	"github.com/ebgpd/ebgpd/bgp"
)

// MPReach is the optional non-transitive MP_REACH_NLRI attribute (RFC
// 4760 §3): family, next hop (possibly with a link-local companion for
// IPv6), and a list of already-packed NLRI entries (including any
// ADD-PATH path-id prefix).
type MPReach struct {
	family     bgp.Family
	nextHop    []byte
	linkLocal  []byte
	nlriBytes  [][]byte
	bytes      []byte
}

// NewMPReach packs the attribute. nlriBytes are each NLRI's already-
// encoded wire form (via nlri.NLRI.Bytes(), optionally wrapped in
// nlri.PathAddressed); this package does not depend on the nlri
// package to avoid a cycle, so callers pass raw bytes.
func NewMPReach(family bgp.Family, nextHop, linkLocal []byte, nlriBytes [][]byte) *MPReach {
	fam := family.Pack()
	nh := append([]byte{}, nextHop...)
	if linkLocal != nil {
		nh = append(nh, linkLocal...)
	}
	value := append([]byte{}, fam[:]...)
	value = append(value, byte(len(nh)))
	value = append(value, nh...)
	value = append(value, 0) // Reserved (RFC 4760 §3)
	for _, n := range nlriBytes {
		value = append(value, n...)
	}
	return &MPReach{family: family, nextHop: nextHop, linkLocal: linkLocal, nlriBytes: nlriBytes, bytes: header(FlagOptional, CodeMPReachNLRI, value)}
}

func ParseMPReach(flags byte, value []byte) (*MPReach, []byte, error) {
	if len(value) < 5 {
		return nil, nil, attrErr("MP_REACH_NLRI header truncated", value)
	}
	family, err := bgp.UnpackFamily(value[:3])
	if err != nil {
		return nil, nil, attrErr("MP_REACH_NLRI family malformed", value)
	}
	nhLen := int(value[3])
	if len(value) < 4+nhLen+1 {
		return nil, nil, attrErr("MP_REACH_NLRI next-hop runs past attribute end", value)
	}
	nh := value[4 : 4+nhLen]
	var nextHop, linkLocal []byte
	if nhLen == 32 {
		nextHop = nh[:16]
		linkLocal = nh[16:]
	} else {
		nextHop = nh
	}
	rest := value[4+nhLen+1:] // skip Reserved octet
	return &MPReach{family: family, nextHop: nextHop, linkLocal: linkLocal, bytes: header(flags, CodeMPReachNLRI, value)}, rest, nil
}

func (m *MPReach) Code() Code          { return CodeMPReachNLRI }
func (m *MPReach) Category() Category  { return CategoryOptionalNonTransitive }
func (m *MPReach) Bytes() []byte       { return m.bytes }
func (m *MPReach) Family() bgp.Family  { return m.family }
func (m *MPReach) NextHop() []byte     { return m.nextHop }
func (m *MPReach) LinkLocal() []byte   { return m.linkLocal }
func (m *MPReach) NextHopIP() net.IP   { return net.IP(m.nextHop) }

// MPUnreach is the optional non-transitive MP_UNREACH_NLRI attribute
// (RFC 4760 §4): family plus a list of withdrawn, already-packed NLRI
// entries.
type MPUnreach struct {
	family    bgp.Family
	nlriBytes [][]byte
	bytes     []byte
}

func NewMPUnreach(family bgp.Family, nlriBytes [][]byte) *MPUnreach {
	fam := family.Pack()
	value := append([]byte{}, fam[:]...)
	for _, n := range nlriBytes {
		value = append(value, n...)
	}
	return &MPUnreach{family: family, nlriBytes: nlriBytes, bytes: header(FlagOptional, CodeMPUnreachNLRI, value)}
}

func ParseMPUnreach(flags byte, value []byte) (*MPUnreach, []byte, error) {
	if len(value) < 3 {
		return nil, nil, attrErr("MP_UNREACH_NLRI header truncated", value)
	}
	family, err := bgp.UnpackFamily(value[:3])
	if err != nil {
		return nil, nil, attrErr("MP_UNREACH_NLRI family malformed", value)
	}
	return &MPUnreach{family: family, bytes: header(flags, CodeMPUnreachNLRI, value)}, value[3:], nil
}

func (m *MPUnreach) Code() Code         { return CodeMPUnreachNLRI }
func (m *MPUnreach) Category() Category { return CategoryOptionalNonTransitive }
func (m *MPUnreach) Bytes() []byte      { return m.bytes }
func (m *MPUnreach) Family() bgp.Family { return m.family }
