package nlri

import (
	"fmt"

	"github.com/ebgpd/ebgpd/bgp"
)

// BGPLSRouteType is the NLRI type field within a BGP-LS NLRI (RFC 7752
// §3.2).
type BGPLSRouteType uint16

const (
	BGPLSNode       BGPLSRouteType = 1
	BGPLSLink       BGPLSRouteType = 2
	BGPLSIPv4Prefix BGPLSRouteType = 3
	BGPLSIPv6Prefix BGPLSRouteType = 4
)

// TLV is a generic type-length-value as used throughout BGP-LS
// descriptors (RFC 7752 §3.2.1: Local/Remote Node Descriptors, Link
// Descriptors, Prefix Descriptors are themselves TLV sequences nested
// inside the outer NLRI TLVs).
type TLV struct {
	Type  uint16
	Value []byte
}

func (t TLV) bytes() []byte {
	b := make([]byte, 4+len(t.Value))
	b[0] = byte(t.Type >> 8)
	b[1] = byte(t.Type)
	b[2] = byte(len(t.Value) >> 8)
	b[3] = byte(len(t.Value))
	copy(b[4:], t.Value)
	return b
}

// LinkStateNLRI is a BGP-LS node/link/prefix NLRI (RFC 7752 §3.2):
// protocol-ID, identifier, and a sequence of descriptor TLVs.
type LinkStateNLRI struct {
	rtype      BGPLSRouteType
	protocolID byte
	identifier uint64
	descriptors []TLV
	bytes      []byte
}

// NewLinkStateNLRI builds a BGP-LS NLRI of the given route type.
// protocolID follows the IANA "BGP-LS Protocol-IDs" registry (RFC 7752
// §3.2, e.g. 7 = BGP); identifier distinguishes multiple instances of
// the same IGP/BGP domain.
func NewLinkStateNLRI(rtype BGPLSRouteType, protocolID byte, identifier uint64, descriptors ...TLV) *LinkStateNLRI {
	value := make([]byte, 0, 9)
	value = append(value, protocolID)
	idBytes := make([]byte, 8)
	for i := 0; i < 8; i++ {
		idBytes[i] = byte(identifier >> (8 * uint(7-i)))
	}
	value = append(value, idBytes...)
	for _, d := range descriptors {
		value = append(value, d.bytes()...)
	}
	b := make([]byte, 4+len(value))
	b[0] = byte(rtype >> 8)
	b[1] = byte(rtype)
	b[2] = byte(len(value) >> 8)
	b[3] = byte(len(value))
	copy(b[4:], value)
	return &LinkStateNLRI{rtype: rtype, protocolID: protocolID, identifier: identifier, descriptors: descriptors, bytes: b}
}

func (n *LinkStateNLRI) Family() bgp.Family {
	return bgp.Family{AFI: bgp.AFIBGPLS, SAFI: bgp.SAFIBGPLS}
}
func (n *LinkStateNLRI) Bytes() []byte           { return n.bytes }
func (n *LinkStateNLRI) Type() BGPLSRouteType    { return n.rtype }
func (n *LinkStateNLRI) ProtocolID() byte        { return n.protocolID }
func (n *LinkStateNLRI) Identifier() uint64      { return n.identifier }
func (n *LinkStateNLRI) Descriptors() []TLV      { return n.descriptors }
func (n *LinkStateNLRI) Index() string           { return string(n.bytes) }
func (n *LinkStateNLRI) String() string {
	return fmt.Sprintf("bgp-ls type=%d proto=%d id=%d", n.rtype, n.protocolID, n.identifier)
}

// UnpackLinkStateNLRI reads one BGP-LS NLRI off b. Descriptor TLVs are
// kept as an opaque TLV sequence rather than fully typed per-TLV,
// since forwarding and RIB storage only need the whole NLRI's identity
// and wire bytes.
func UnpackLinkStateNLRI(b []byte) (*LinkStateNLRI, int, error) {
	if len(b) < 4 {
		return nil, 0, nlriErr("BGP-LS NLRI header truncated", b)
	}
	rtype := BGPLSRouteType(uint16(b[0])<<8 | uint16(b[1]))
	length := int(b[2])<<8 | int(b[3])
	if len(b) < 4+length {
		return nil, 0, nlriErr("BGP-LS NLRI runs past end of buffer", b)
	}
	value := b[4 : 4+length]
	if len(value) < 9 {
		return nil, 0, nlriErr("BGP-LS NLRI missing protocol-id/identifier", b)
	}
	protocolID := value[0]
	var identifier uint64
	for i := 0; i < 8; i++ {
		identifier = identifier<<8 | uint64(value[1+i])
	}
	var descriptors []TLV
	rest := value[9:]
	for len(rest) >= 4 {
		tlvType := uint16(rest[0])<<8 | uint16(rest[1])
		tlvLen := int(rest[2])<<8 | int(rest[3])
		if len(rest) < 4+tlvLen {
			return nil, 0, nlriErr("BGP-LS descriptor TLV runs past end of NLRI", b)
		}
		descriptors = append(descriptors, TLV{Type: tlvType, Value: append([]byte{}, rest[4:4+tlvLen]...)})
		rest = rest[4+tlvLen:]
	}
	return &LinkStateNLRI{rtype: rtype, protocolID: protocolID, identifier: identifier, descriptors: descriptors, bytes: b[:4+length]}, 4 + length, nil
}
