package attribute

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Well-known COMMUNITIES values (RFC 1997 §4).
const (
	CommunityNoExport        uint32 = 0xFFFFFF01
	CommunityNoAdvertise     uint32 = 0xFFFFFF02
	CommunityNoExportSubconfed uint32 = 0xFFFFFF03
)

// Communities is the optional transitive COMMUNITIES attribute: a flat
// list of opaque 32-bit tags (RFC 1997).
type Communities struct {
	values []uint32
	bytes  []byte
}

func NewCommunities(values ...uint32) *Communities {
	value := make([]byte, 4*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint32(value[i*4:], v)
	}
	return &Communities{values: values, bytes: header(FlagOptional|FlagTransitive, CodeCommunities, value)}
}

func ParseCommunities(flags byte, value []byte) (*Communities, error) {
	if len(value)%4 != 0 {
		return nil, attrErr("COMMUNITIES length must be a multiple of 4", value)
	}
	values := make([]uint32, len(value)/4)
	for i := range values {
		values[i] = binary.BigEndian.Uint32(value[i*4:])
	}
	return &Communities{values: values, bytes: header(flags, CodeCommunities, value)}, nil
}

func (c *Communities) Code() Code         { return CodeCommunities }
func (c *Communities) Category() Category { return CategoryOptionalTransitiveTreatAsWithdraw }
func (c *Communities) Bytes() []byte      { return c.bytes }
func (c *Communities) Values() []uint32   { return c.values }

func CommunityString(v uint32) string {
	switch v {
	case CommunityNoExport:
		return "no-export"
	case CommunityNoAdvertise:
		return "no-advertise"
	case CommunityNoExportSubconfed:
		return "no-export-subconfed"
	default:
		return fmt.Sprintf("%d:%d", v>>16, v&0xffff)
	}
}

// ExtendedCommunity is a single 8-octet tagged value (RFC 4360 §2).
// Type is the first octet (its 0x40 bit is clear for transitive and
// set for non-transitive types, per RFC 7153); Subtype and Value make
// up the rest.
type ExtendedCommunity struct {
	Type    byte
	Subtype byte
	Value   [6]byte
}

func (e ExtendedCommunity) Bytes() []byte {
	return append([]byte{e.Type, e.Subtype}, e.Value[:]...)
}

// IsTransitive reports whether bit 6 of Type (the transitive bit, RFC
// 4360 §2) is clear, i.e. the community propagates across AS
// boundaries.
func (e ExtendedCommunity) IsTransitive() bool {
	return e.Type&0x40 == 0
}

// RouteTarget builds a two-octet-ASN Route Target extended community
// (type 0x00, subtype 0x02) used to import/export VPN routes (RFC
// 4364 §4.3.1).
func RouteTarget(asn uint16, local uint32) ExtendedCommunity {
	var v [6]byte
	binary.BigEndian.PutUint16(v[0:2], asn)
	binary.BigEndian.PutUint32(v[2:6], local)
	return ExtendedCommunity{Type: 0x00, Subtype: 0x02, Value: v}
}

// RouteTarget4 is the 4-octet-ASN Route Target form (type 0x02,
// subtype 0x02, RFC 5668).
func RouteTarget4(asn uint32, local uint16) ExtendedCommunity {
	var v [6]byte
	binary.BigEndian.PutUint32(v[0:4], asn)
	binary.BigEndian.PutUint16(v[4:6], local)
	return ExtendedCommunity{Type: 0x02, Subtype: 0x02, Value: v}
}

// RouteOrigin builds a Route Origin (SoO) extended community (type
// 0x00, subtype 0x03, RFC 4364 §4.3.1).
func RouteOrigin(asn uint16, local uint32) ExtendedCommunity {
	var v [6]byte
	binary.BigEndian.PutUint16(v[0:2], asn)
	binary.BigEndian.PutUint32(v[2:6], local)
	return ExtendedCommunity{Type: 0x00, Subtype: 0x03, Value: v}
}

// LinkBandwidth builds the Cisco-style link-bandwidth extended
// community (type 0x40, subtype 0x04): ASN plus an IEEE-754 float32
// rate in bytes/sec.
func LinkBandwidth(asn uint16, bytesPerSec float32) ExtendedCommunity {
	var v [6]byte
	binary.BigEndian.PutUint16(v[0:2], asn)
	binary.BigEndian.PutUint32(v[2:6], math.Float32bits(bytesPerSec))
	return ExtendedCommunity{Type: 0x40, Subtype: 0x04, Value: v}
}

// TrafficAction builds a FlowSpec traffic-action extended community
// (type 0x80, subtype 0x07, RFC 5575 §7).
func TrafficAction(sample, terminalAction bool) ExtendedCommunity {
	var v [6]byte
	if sample {
		v[5] |= 0x02
	}
	if terminalAction {
		v[5] |= 0x01
	}
	return ExtendedCommunity{Type: 0x80, Subtype: 0x07, Value: v}
}

// TrafficRateBytes builds a FlowSpec traffic-rate extended community
// (type 0x80, subtype 0x06, RFC 5575 §7): ASN plus an IEEE-754 float32
// rate in bytes/sec; a rate of 0 means "discard".
func TrafficRateBytes(asn uint16, bytesPerSec float32) ExtendedCommunity {
	var v [6]byte
	binary.BigEndian.PutUint16(v[0:2], asn)
	binary.BigEndian.PutUint32(v[2:6], math.Float32bits(bytesPerSec))
	return ExtendedCommunity{Type: 0x80, Subtype: 0x06, Value: v}
}

// RedirectToVRF builds the FlowSpec redirect-to-VRF extended community
// reusing the Route Target encoding (type 0x80, subtype 0x08, RFC 5575
// §7 / draft-ietf-idr-flowspec-redirect).
func RedirectToVRF(asn uint16, local uint32) ExtendedCommunity {
	var v [6]byte
	binary.BigEndian.PutUint16(v[0:2], asn)
	binary.BigEndian.PutUint32(v[2:6], local)
	return ExtendedCommunity{Type: 0x80, Subtype: 0x08, Value: v}
}

// EncapsulationType builds the Tunnel Encapsulation extended community
// (type 0x03, subtype 0x0c, RFC 9012 §3) carrying a tunnel-type code.
func EncapsulationType(tunnelType uint16) ExtendedCommunity {
	var v [6]byte
	binary.BigEndian.PutUint16(v[4:6], tunnelType)
	return ExtendedCommunity{Type: 0x03, Subtype: 0x0c, Value: v}
}

// ExtendedCommunities is the optional transitive EXTENDED_COMMUNITIES
// attribute (RFC 4360). A parallel IPv6-address-specific form exists
// under its own code (CodeExtendedCommunitiesIPv6, RFC 5701) but
// shares this octet layout at the Attribute level; see
// IPv6ExtendedCommunities.
type ExtendedCommunities struct {
	values []ExtendedCommunity
	bytes  []byte
}

func NewExtendedCommunities(values ...ExtendedCommunity) *ExtendedCommunities {
	value := make([]byte, 0, 8*len(values))
	for _, v := range values {
		value = append(value, v.Bytes()...)
	}
	return &ExtendedCommunities{values: values, bytes: header(FlagOptional|FlagTransitive, CodeExtendedCommunities, value)}
}

func ParseExtendedCommunities(flags byte, value []byte) (*ExtendedCommunities, error) {
	if len(value)%8 != 0 {
		return nil, attrErr("EXTENDED_COMMUNITIES length must be a multiple of 8", value)
	}
	values := make([]ExtendedCommunity, len(value)/8)
	for i := range values {
		off := i * 8
		values[i] = ExtendedCommunity{Type: value[off], Subtype: value[off+1]}
		copy(values[i].Value[:], value[off+2:off+8])
	}
	return &ExtendedCommunities{values: values, bytes: header(flags, CodeExtendedCommunities, value)}, nil
}

func (e *ExtendedCommunities) Code() Code                 { return CodeExtendedCommunities }
func (e *ExtendedCommunities) Category() Category          { return CategoryOptionalTransitiveTreatAsWithdraw }
func (e *ExtendedCommunities) Bytes() []byte               { return e.bytes }
func (e *ExtendedCommunities) Values() []ExtendedCommunity { return e.values }

// LargeCommunities is the optional transitive LARGE_COMMUNITIES
// attribute (RFC 8092): each value is a Global Administrator ASN plus
// two locally-defined 32-bit parts.
type LargeCommunity struct {
	GlobalAdmin uint32
	Local1      uint32
	Local2      uint32
}

func (l LargeCommunity) Bytes() []byte {
	b := make([]byte, 12)
	binary.BigEndian.PutUint32(b[0:4], l.GlobalAdmin)
	binary.BigEndian.PutUint32(b[4:8], l.Local1)
	binary.BigEndian.PutUint32(b[8:12], l.Local2)
	return b
}

func (l LargeCommunity) String() string {
	return fmt.Sprintf("%d:%d:%d", l.GlobalAdmin, l.Local1, l.Local2)
}

type LargeCommunities struct {
	values []LargeCommunity
	bytes  []byte
}

func NewLargeCommunities(values ...LargeCommunity) *LargeCommunities {
	value := make([]byte, 0, 12*len(values))
	for _, v := range values {
		value = append(value, v.Bytes()...)
	}
	return &LargeCommunities{values: values, bytes: header(FlagOptional|FlagTransitive, CodeLargeCommunities, value)}
}

func ParseLargeCommunities(flags byte, value []byte) (*LargeCommunities, error) {
	if len(value)%12 != 0 {
		return nil, attrErr("LARGE_COMMUNITIES length must be a multiple of 12", value)
	}
	values := make([]LargeCommunity, len(value)/12)
	for i := range values {
		off := i * 12
		values[i] = LargeCommunity{
			GlobalAdmin: binary.BigEndian.Uint32(value[off : off+4]),
			Local1:      binary.BigEndian.Uint32(value[off+4 : off+8]),
			Local2:      binary.BigEndian.Uint32(value[off+8 : off+12]),
		}
	}
	return &LargeCommunities{values: values, bytes: header(flags, CodeLargeCommunities, value)}, nil
}

func (l *LargeCommunities) Code() Code               { return CodeLargeCommunities }
func (l *LargeCommunities) Category() Category       { return CategoryOptionalTransitiveTreatAsWithdraw }
func (l *LargeCommunities) Bytes() []byte            { return l.bytes }
func (l *LargeCommunities) Values() []LargeCommunity { return l.values }
