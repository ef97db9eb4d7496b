package attribute

import (
	"encoding/binary"

	"github.com/ebgpd/ebgpd/qualifier"
)

// PMSITunnelType identifies the provider-multicast tunnel encoding
// within a PMSI_TUNNEL attribute (RFC 6514 §5).
type PMSITunnelType byte

const (
	PMSITunnelNoTunnel   PMSITunnelType = 0
	PMSITunnelRSVPTEP2MP PMSITunnelType = 1
	PMSITunnelLDPP2MP    PMSITunnelType = 2
	PMSITunnelIngressRepl PMSITunnelType = 6
)

// PMSITunnel is the optional transitive PMSI_TUNNEL attribute (RFC
// 6514 §5): flags, tunnel type, MPLS label, and a tunnel-type-specific
// identifier.
type PMSITunnel struct {
	leafInfoRequired bool
	tunnelType       PMSITunnelType
	label            qualifier.Labels
	identifier       []byte
	bytes            []byte
}

func NewPMSITunnel(leafInfoRequired bool, tunnelType PMSITunnelType, label qualifier.Labels, identifier []byte) *PMSITunnel {
	var flags byte
	if leafInfoRequired {
		flags = 0x01
	}
	value := append([]byte{flags, byte(tunnelType)}, label.Bytes()...)
	value = append(value, identifier...)
	return &PMSITunnel{leafInfoRequired: leafInfoRequired, tunnelType: tunnelType, label: label, identifier: identifier,
		bytes: header(FlagOptional|FlagTransitive, CodePMSITunnel, value)}
}

func ParsePMSITunnel(flags byte, value []byte) (*PMSITunnel, error) {
	if len(value) < 5 {
		return nil, attrErr("PMSI_TUNNEL too short", value)
	}
	label, n, err := qualifier.UnpackLabels(value[2:], false)
	if err != nil {
		return nil, err
	}
	return &PMSITunnel{
		leafInfoRequired: value[0]&0x01 != 0,
		tunnelType:       PMSITunnelType(value[1]),
		label:            label,
		identifier:       value[2+n:],
		bytes:            header(flags, CodePMSITunnel, value),
	}, nil
}

func (p *PMSITunnel) Code() Code                 { return CodePMSITunnel }
func (p *PMSITunnel) Category() Category         { return CategoryOptionalTransitiveTreatAsWithdraw }
func (p *PMSITunnel) Bytes() []byte              { return p.bytes }
func (p *PMSITunnel) LeafInfoRequired() bool      { return p.leafInfoRequired }
func (p *PMSITunnel) TunnelType() PMSITunnelType  { return p.tunnelType }
func (p *PMSITunnel) Label() qualifier.Labels     { return p.label }
func (p *PMSITunnel) Identifier() []byte          { return p.identifier }

// TunnelEncap is the optional transitive TUNNEL_ENCAPSULATION attribute
// (RFC 9012 §2): one or more Tunnel TLVs, each itself a sequence of
// sub-TLVs. Kept as an opaque TLV sequence since the forwarding path
// only needs to propagate the whole set faithfully.
type TunnelEncap struct {
	tunnels []TLVEntry
	bytes   []byte
}

// TLVEntry is a generic outer Tunnel TLV: type, length, raw value
// (which itself holds sub-TLVs the session layer does not need to
// interpret to forward the attribute).
type TLVEntry struct {
	Type  uint16
	Value []byte
}

func (t TLVEntry) bytes() []byte {
	b := make([]byte, 4+len(t.Value))
	binary.BigEndian.PutUint16(b[0:2], t.Type)
	binary.BigEndian.PutUint16(b[2:4], uint16(len(t.Value)))
	copy(b[4:], t.Value)
	return b
}

func NewTunnelEncap(tunnels ...TLVEntry) *TunnelEncap {
	var value []byte
	for _, t := range tunnels {
		value = append(value, t.bytes()...)
	}
	return &TunnelEncap{tunnels: tunnels, bytes: header(FlagOptional|FlagTransitive, CodeTunnelEncap, value)}
}

func ParseTunnelEncap(flags byte, value []byte) (*TunnelEncap, error) {
	var tunnels []TLVEntry
	rest := value
	for len(rest) >= 4 {
		typ := binary.BigEndian.Uint16(rest[0:2])
		length := int(binary.BigEndian.Uint16(rest[2:4]))
		if len(rest) < 4+length {
			return nil, attrErr("TUNNEL_ENCAPSULATION TLV runs past attribute end", value)
		}
		tunnels = append(tunnels, TLVEntry{Type: typ, Value: append([]byte{}, rest[4:4+length]...)})
		rest = rest[4+length:]
	}
	return &TunnelEncap{tunnels: tunnels, bytes: header(flags, CodeTunnelEncap, value)}, nil
}

func (t *TunnelEncap) Code() Code          { return CodeTunnelEncap }
func (t *TunnelEncap) Category() Category  { return CategoryOptionalTransitiveTreatAsWithdraw }
func (t *TunnelEncap) Bytes() []byte       { return t.bytes }
func (t *TunnelEncap) Tunnels() []TLVEntry { return t.tunnels }

// PrefixSIDType identifies a BGP-Prefix-SID sub-TLV (RFC 8669 §3 / the
// SRv6-extension draft for type 5/6).
type PrefixSIDType byte

const (
	PrefixSIDLabelIndex PrefixSIDType = 1
	PrefixSIDOriginatorSRGB PrefixSIDType = 3
	PrefixSIDSRv6L3Service  PrefixSIDType = 5
	PrefixSIDSRv6L2Service  PrefixSIDType = 6
)

// PrefixSID is the optional transitive BGP-Prefix-SID attribute (RFC
// 8669 §3): a sequence of sub-TLVs, kept opaque here for the same
// reason as TunnelEncap's outer TLVs.
type PrefixSID struct {
	subTLVs []TLVEntry
	bytes   []byte
}

func NewPrefixSID(subTLVs ...TLVEntry) *PrefixSID {
	var value []byte
	for _, t := range subTLVs {
		value = append(value, byte(t.Type), byte(len(t.Value)>>8), byte(len(t.Value)))
		value = append(value, t.Value...)
	}
	return &PrefixSID{subTLVs: subTLVs, bytes: header(FlagOptional|FlagTransitive, CodePrefixSID, value)}
}

// LabelIndexSubTLV builds the type-1 Label-Index sub-TLV (RFC 8669
// §3.1): 2 reserved bytes + 4-byte index.
func LabelIndexSubTLV(index uint32) TLVEntry {
	v := make([]byte, 6)
	binary.BigEndian.PutUint32(v[2:6], index)
	return TLVEntry{Type: uint16(PrefixSIDLabelIndex), Value: v}
}

func ParsePrefixSID(flags byte, value []byte) (*PrefixSID, error) {
	var subTLVs []TLVEntry
	rest := value
	for len(rest) >= 3 {
		typ := uint16(rest[0])
		length := int(rest[1])<<8 | int(rest[2])
		if len(rest) < 3+length {
			return nil, attrErr("BGP-Prefix-SID sub-TLV runs past attribute end", value)
		}
		subTLVs = append(subTLVs, TLVEntry{Type: typ, Value: append([]byte{}, rest[3:3+length]...)})
		rest = rest[3+length:]
	}
	return &PrefixSID{subTLVs: subTLVs, bytes: header(flags, CodePrefixSID, value)}, nil
}

func (p *PrefixSID) Code() Code          { return CodePrefixSID }
func (p *PrefixSID) Category() Category  { return CategoryOptionalTransitiveTreatAsWithdraw }
func (p *PrefixSID) Bytes() []byte       { return p.bytes }
func (p *PrefixSID) SubTLVs() []TLVEntry { return p.subTLVs }

// LinkState is the optional non-transitive BGP-LS attribute (RFC 7752
// §3.3): a sequence of node/link/prefix attribute TLVs, kept opaque.
type LinkState struct {
	tlvs  []TLVEntry
	bytes []byte
}

func NewLinkState(tlvs ...TLVEntry) *LinkState {
	var value []byte
	for _, t := range tlvs {
		value = append(value, t.bytes()...)
	}
	return &LinkState{tlvs: tlvs, bytes: header(FlagOptional, CodeBGPLS, value)}
}

func ParseLinkState(flags byte, value []byte) (*LinkState, error) {
	var tlvs []TLVEntry
	rest := value
	for len(rest) >= 4 {
		typ := binary.BigEndian.Uint16(rest[0:2])
		length := int(binary.BigEndian.Uint16(rest[2:4]))
		if len(rest) < 4+length {
			return nil, attrErr("BGP-LS attribute TLV runs past attribute end", value)
		}
		tlvs = append(tlvs, TLVEntry{Type: typ, Value: append([]byte{}, rest[4:4+length]...)})
		rest = rest[4+length:]
	}
	return &LinkState{tlvs: tlvs, bytes: header(flags, CodeBGPLS, value)}, nil
}

func (l *LinkState) Code() Code          { return CodeBGPLS }
func (l *LinkState) Category() Category  { return CategoryOptionalNonTransitive }
func (l *LinkState) Bytes() []byte       { return l.bytes }
func (l *LinkState) TLVs() []TLVEntry    { return l.tlvs }

// Connector is the optional transitive CONNECTOR attribute (RFC 6037
// §5.1): a single IPv4 address identifying the VRF connector for
// MVPN. Rarely deployed; kept as a simple 4-byte value.
type Connector struct {
	ip    [4]byte
	bytes []byte
}

func NewConnector(ip [4]byte) *Connector {
	return &Connector{ip: ip, bytes: header(FlagOptional|FlagTransitive, CodeConnector, ip[:])}
}

func ParseConnector(flags byte, value []byte) (*Connector, error) {
	if len(value) != 4 {
		return nil, attrErr("CONNECTOR must be exactly 4 octets", value)
	}
	var ip [4]byte
	copy(ip[:], value)
	return &Connector{ip: ip, bytes: header(flags, CodeConnector, value)}, nil
}

func (c *Connector) Code() Code         { return CodeConnector }
func (c *Connector) Category() Category { return CategoryOptionalTransitiveTreatAsWithdraw }
func (c *Connector) Bytes() []byte      { return c.bytes }
func (c *Connector) IP() [4]byte        { return c.ip }

// ASPathLimit is the deprecated (but still occasionally seen)
// optional transitive AS_PATHLIMIT attribute: a 1-byte limit plus a
// 4-byte ASN of the limit-setter (draft-ietf-idr-as-pathlimit).
type ASPathLimit struct {
	limit byte
	asn   uint32
	bytes []byte
}

func NewASPathLimit(limit byte, asn uint32) *ASPathLimit {
	value := make([]byte, 5)
	value[0] = limit
	binary.BigEndian.PutUint32(value[1:5], asn)
	return &ASPathLimit{limit: limit, asn: asn, bytes: header(FlagOptional|FlagTransitive, CodeASPathLimit, value)}
}

func ParseASPathLimit(flags byte, value []byte) (*ASPathLimit, error) {
	if len(value) != 5 {
		return nil, attrErr("AS_PATHLIMIT must be exactly 5 octets", value)
	}
	return &ASPathLimit{limit: value[0], asn: binary.BigEndian.Uint32(value[1:5]), bytes: header(flags, CodeASPathLimit, value)}, nil
}

func (a *ASPathLimit) Code() Code         { return CodeASPathLimit }
func (a *ASPathLimit) Category() Category { return CategoryOptionalTransitiveTreatAsWithdraw }
func (a *ASPathLimit) Bytes() []byte      { return a.bytes }
func (a *ASPathLimit) Limit() byte        { return a.limit }
func (a *ASPathLimit) ASN() uint32        { return a.asn }

// IPv6ExtendedCommunities carries the IPv6-address-specific extended
// community form (RFC 5701 §2): 16-byte address + 2-byte local admin,
// under its own attribute code rather than EXTENDED_COMMUNITIES'
// 6-byte value layout.
type IPv6ExtendedCommunity struct {
	Type    byte
	Subtype byte
	Address [16]byte
	Local   uint16
}

func (e IPv6ExtendedCommunity) bytes() []byte {
	b := make([]byte, 20)
	b[0], b[1] = e.Type, e.Subtype
	copy(b[2:18], e.Address[:])
	binary.BigEndian.PutUint16(b[18:20], e.Local)
	return b
}

type IPv6ExtendedCommunities struct {
	values []IPv6ExtendedCommunity
	bytes  []byte
}

func NewIPv6ExtendedCommunities(values ...IPv6ExtendedCommunity) *IPv6ExtendedCommunities {
	var value []byte
	for _, v := range values {
		value = append(value, v.bytes()...)
	}
	return &IPv6ExtendedCommunities{values: values, bytes: header(FlagOptional|FlagTransitive, CodeExtendedCommunitiesIPv6, value)}
}

func ParseIPv6ExtendedCommunities(flags byte, value []byte) (*IPv6ExtendedCommunities, error) {
	if len(value)%20 != 0 {
		return nil, attrErr("IPv6 EXTENDED_COMMUNITIES length must be a multiple of 20", value)
	}
	values := make([]IPv6ExtendedCommunity, len(value)/20)
	for i := range values {
		off := i * 20
		values[i].Type = value[off]
		values[i].Subtype = value[off+1]
		copy(values[i].Address[:], value[off+2:off+18])
		values[i].Local = binary.BigEndian.Uint16(value[off+18 : off+20])
	}
	return &IPv6ExtendedCommunities{values: values, bytes: header(flags, CodeExtendedCommunitiesIPv6, value)}, nil
}

func (e *IPv6ExtendedCommunities) Code() Code                      { return CodeExtendedCommunitiesIPv6 }
func (e *IPv6ExtendedCommunities) Category() Category              { return CategoryOptionalTransitiveTreatAsWithdraw }
func (e *IPv6ExtendedCommunities) Bytes() []byte                   { return e.bytes }
func (e *IPv6ExtendedCommunities) Values() []IPv6ExtendedCommunity { return e.values }
