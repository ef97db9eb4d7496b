package attribute

import (
	"fmt"
	"strings"

	"github.com/ebgpd/ebgpd/bgp"
)

// SegmentType identifies an AS_PATH segment (RFC 4271 §4.3).
type SegmentType uint8

const (
	SegmentASSet           SegmentType = 1
	SegmentASSequence      SegmentType = 2
	SegmentASConfedSeq     SegmentType = 3
	SegmentASConfedSet     SegmentType = 4
)

func (t SegmentType) String() string {
	switch t {
	case SegmentASSet:
		return "as-set"
	case SegmentASSequence:
		return "as-sequence"
	case SegmentASConfedSeq:
		return "confed-sequence"
	case SegmentASConfedSet:
		return "confed-set"
	default:
		return fmt.Sprintf("segment-%d", uint8(t))
	}
}

// Segment is one AS_SET/AS_SEQUENCE/AS_CONFED_* run within an AS_PATH.
type Segment struct {
	Type SegmentType
	ASNs []bgp.ASN
}

// ASPath is the well-known mandatory AS_PATH attribute. Wire width of
// each ASN (2 or 4 octets) follows the session's negotiated ASN4
// capability (RFC 6793), so construction takes an OpenContext rather
// than a bare bool; an eBGP session without ASN4 additionally needs
// the mirrored AS4Path attribute built via NewAS4Path.
type ASPath struct {
	segments []Segment
	bytes    []byte
}

func NewASPath(ctx bgp.OpenContext, segments []Segment) *ASPath {
	return &ASPath{segments: segments, bytes: header(FlagTransitive, CodeASPath, packASPath(segments, ctx.ASN4))}
}

func packASPath(segments []Segment, asn4 bool) []byte {
	var value []byte
	for _, seg := range segments {
		n := len(seg.ASNs)
		for n > 0 {
			chunk := n
			if chunk > 255 {
				chunk = 255
			}
			value = append(value, byte(seg.Type), byte(chunk))
			for _, asn := range seg.ASNs[:chunk] {
				if asn4 {
					value = append(value, asn.Bytes4()...)
				} else {
					value = append(value, asn.Bytes2()...)
				}
			}
			seg.ASNs = seg.ASNs[chunk:]
			n -= chunk
		}
	}
	return value
}

func ParseASPath(flags byte, value []byte, asn4 bool) (*ASPath, error) {
	segments, err := unpackSegments(value, asn4)
	if err != nil {
		return nil, err
	}
	return &ASPath{segments: segments, bytes: header(flags, CodeASPath, value)}, nil
}

func unpackSegments(value []byte, asn4 bool) ([]Segment, error) {
	width := 2
	if asn4 {
		width = 4
	}
	var segments []Segment
	for len(value) > 0 {
		if len(value) < 2 {
			return nil, attrErr("AS_PATH segment header truncated", value)
		}
		segType := SegmentType(value[0])
		count := int(value[1])
		need := 2 + count*width
		if len(value) < need {
			return nil, attrErr("AS_PATH segment runs past attribute end", value)
		}
		asns := make([]bgp.ASN, count)
		off := 2
		for i := 0; i < count; i++ {
			if asn4 {
				asns[i] = bgp.ASN4(value[off : off+4])
			} else {
				asns[i] = bgp.ASN2(value[off : off+2])
			}
			off += width
		}
		segments = append(segments, Segment{Type: segType, ASNs: asns})
		value = value[need:]
	}
	return segments, nil
}

func (a *ASPath) Code() Code         { return CodeASPath }
func (a *ASPath) Category() Category { return CategoryWellKnownMandatory }
func (a *ASPath) Bytes() []byte      { return a.bytes }
func (a *ASPath) Segments() []Segment { return a.segments }

// Len returns the AS_PATH's contribution to path length for the
// Decision Process (RFC 4271 §9.1.2.2): AS_SET segments count once
// regardless of membership size.
func (a *ASPath) Len() int {
	n := 0
	for _, seg := range a.segments {
		if seg.Type == SegmentASSet || seg.Type == SegmentASConfedSet {
			n++
		} else {
			n += len(seg.ASNs)
		}
	}
	return n
}

func (a *ASPath) String() string {
	parts := make([]string, 0, len(a.segments))
	for _, seg := range a.segments {
		asns := make([]string, len(seg.ASNs))
		for i, asn := range seg.ASNs {
			asns[i] = asn.String()
		}
		if seg.Type == SegmentASSequence {
			parts = append(parts, strings.Join(asns, " "))
		} else {
			parts = append(parts, fmt.Sprintf("%s(%s)", seg.Type, strings.Join(asns, " ")))
		}
	}
	return strings.Join(parts, " ")
}

// AS4Path is the optional transitive AS4_PATH attribute (RFC 6793 §4.2.3):
// the true 4-octet AS_PATH carried alongside a 2-octet AS_PATH (with
// AS_TRANS substituted) toward peers that have not negotiated ASN4.
type AS4Path struct {
	segments []Segment
	bytes    []byte
}

func NewAS4Path(segments []Segment) *AS4Path {
	return &AS4Path{segments: segments, bytes: header(FlagOptional|FlagTransitive, CodeAS4Path, packASPath(segments, true))}
}

func ParseAS4Path(flags byte, value []byte) (*AS4Path, error) {
	segments, err := unpackSegments(value, true)
	if err != nil {
		return nil, err
	}
	return &AS4Path{segments: segments, bytes: header(flags, CodeAS4Path, value)}, nil
}

func (a *AS4Path) Code() Code          { return CodeAS4Path }
func (a *AS4Path) Category() Category  { return CategoryOptionalTransitiveTreatAsWithdraw }
func (a *AS4Path) Bytes() []byte       { return a.bytes }
func (a *AS4Path) Segments() []Segment { return a.segments }

// Aggregator is the optional transitive AGGREGATOR attribute: the ASN
// and router-ID of the speaker that formed an aggregate route (RFC
// 4271 §5.1.7). Wire ASN width follows ASN4 negotiation, same as
// AS_PATH; a non-ASN4 session additionally gets AS4Aggregator.
type Aggregator struct {
	asn   bgp.ASN
	id    [4]byte
	bytes []byte
}

func NewAggregator(ctx bgp.OpenContext, asn bgp.ASN, id [4]byte) *Aggregator {
	var value []byte
	if ctx.ASN4 {
		value = append(asn.Bytes4(), id[:]...)
	} else {
		value = append(asn.Bytes2(), id[:]...)
	}
	return &Aggregator{asn: asn, id: id, bytes: header(FlagOptional|FlagTransitive, CodeAggregator, value)}
}

func ParseAggregator(flags byte, value []byte, asn4 bool) (*Aggregator, error) {
	width := 2
	if asn4 {
		width = 4
	}
	if len(value) != width+4 {
		return nil, attrErr("AGGREGATOR has unexpected length", value)
	}
	var asn bgp.ASN
	if asn4 {
		asn = bgp.ASN4(value[:4])
	} else {
		asn = bgp.ASN2(value[:2])
	}
	var id [4]byte
	copy(id[:], value[width:])
	return &Aggregator{asn: asn, id: id, bytes: header(flags, CodeAggregator, value)}, nil
}

func (a *Aggregator) Code() Code         { return CodeAggregator }
func (a *Aggregator) Category() Category { return CategoryOptionalTransitiveTreatAsWithdraw }
func (a *Aggregator) Bytes() []byte      { return a.bytes }
func (a *Aggregator) ASN() bgp.ASN       { return a.asn }
func (a *Aggregator) RouterID() [4]byte  { return a.id }

// AS4Aggregator mirrors Aggregator with a 4-octet ASN (RFC 6793 §4.2.3).
type AS4Aggregator struct {
	asn   bgp.ASN
	id    [4]byte
	bytes []byte
}

func NewAS4Aggregator(asn bgp.ASN, id [4]byte) *AS4Aggregator {
	value := append(asn.Bytes4(), id[:]...)
	return &AS4Aggregator{asn: asn, id: id, bytes: header(FlagOptional|FlagTransitive, CodeAS4Aggregator, value)}
}

func ParseAS4Aggregator(flags byte, value []byte) (*AS4Aggregator, error) {
	if len(value) != 8 {
		return nil, attrErr("AS4_AGGREGATOR must be exactly 8 octets", value)
	}
	var id [4]byte
	copy(id[:], value[4:])
	return &AS4Aggregator{asn: bgp.ASN4(value[:4]), id: id, bytes: header(flags, CodeAS4Aggregator, value)}, nil
}

func (a *AS4Aggregator) Code() Code         { return CodeAS4Aggregator }
func (a *AS4Aggregator) Category() Category { return CategoryOptionalTransitiveTreatAsWithdraw }
func (a *AS4Aggregator) Bytes() []byte      { return a.bytes }
func (a *AS4Aggregator) ASN() bgp.ASN       { return a.asn }
func (a *AS4Aggregator) RouterID() [4]byte  { return a.id }
