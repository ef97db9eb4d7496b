package nlri

import (
	"fmt"

	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/qualifier"
)

// FlowComponentType identifies a FlowSpec component within a rule
// (RFC 8955 §4 / RFC 8956 for IPv6).
type FlowComponentType uint8

const (
	FlowDestPrefix   FlowComponentType = 1
	FlowSourcePrefix FlowComponentType = 2
	FlowIPProtocol   FlowComponentType = 3
	FlowPort         FlowComponentType = 4
	FlowDestPort     FlowComponentType = 5
	FlowSourcePort   FlowComponentType = 6
	FlowICMPType     FlowComponentType = 7
	FlowICMPCode     FlowComponentType = 8
	FlowTCPFlags     FlowComponentType = 9
	FlowPacketLength FlowComponentType = 10
	FlowDSCP         FlowComponentType = 11
	FlowFragment     FlowComponentType = 12
)

// Numeric op flags for the operator byte preceding each numeric value
// in a component (RFC 8955 §4.2).
const (
	NumOpEnd    byte = 1 << 7
	NumOpAnd    byte = 1 << 6
	NumOpLT     byte = 1 << 2
	NumOpGT     byte = 1 << 1
	NumOpEQ     byte = 1 << 0
)

// NumericValue is one (operator, value) pair within a numeric
// FlowSpec component.
type NumericValue struct {
	Op    byte
	Value uint64
	Width int // 1, 2, 4, or 8 octets
}

func (v NumericValue) bytes(last bool) []byte {
	op := v.Op
	switch v.Width {
	case 2:
		op |= 1 << 4
	case 4:
		op |= 2 << 4
	case 8:
		op |= 3 << 4
	}
	if last {
		op |= NumOpEnd
	}
	b := []byte{op}
	for i := v.Width - 1; i >= 0; i-- {
		b = append(b, byte(v.Value>>(8*uint(i))))
	}
	return b
}

// Component is one typed component of a FlowSpec rule: either a prefix
// (types 1-2) or a sequence of numeric (operator, value) matches.
type Component struct {
	Type   FlowComponentType
	Prefix *Prefix
	Values []NumericValue
}

func (c Component) bytes() []byte {
	b := []byte{byte(c.Type)}
	if c.Prefix != nil {
		return append(b, c.Prefix.Bytes()...)
	}
	for i, v := range c.Values {
		b = append(b, v.bytes(i == len(c.Values)-1)...)
	}
	return b
}

// FlowSpecBuilder assembles a FlowSpec rule's components in the strict
// ascending type order RFC 8955 §4.1 requires, then finalizes it into
// an immutable, packed-bytes-first Rule.
type FlowSpecBuilder struct {
	family     bgp.Family
	rd         qualifier.RD
	components []Component
}

func NewFlowSpecBuilder(family bgp.Family) *FlowSpecBuilder {
	return &FlowSpecBuilder{family: family}
}

func NewVPNFlowSpecBuilder(family bgp.Family, rd qualifier.RD) *FlowSpecBuilder {
	return &FlowSpecBuilder{family: family, rd: rd}
}

func (b *FlowSpecBuilder) Add(c Component) *FlowSpecBuilder {
	b.components = append(b.components, c)
	return b
}

// Build validates ascending type ordering (no duplicate types — rules
// that repeat a component type must be expressed as additional
// NumericValues within one Component) and packs the rule.
func (b *FlowSpecBuilder) Build() (*Rule, error) {
	for i := 1; i < len(b.components); i++ {
		if b.components[i].Type <= b.components[i-1].Type {
			return nil, nlriErr("FlowSpec components must be in strictly ascending type order", nil)
		}
	}
	var value []byte
	if !b.rd.IsZero() || b.family.SAFI == bgp.SAFIFlowSpecVPN {
		value = append(value, b.rd.Bytes()...)
	}
	for _, c := range b.components {
		value = append(value, c.bytes()...)
	}
	var bytes []byte
	if len(value) < 240 {
		bytes = append([]byte{byte(len(value))}, value...)
	} else {
		bytes = append([]byte{0xf0 | byte(len(value)>>8), byte(len(value))}, value...)
	}
	return &Rule{family: b.family, rd: b.rd, components: append([]Component{}, b.components...), bytes: bytes}, nil
}

// Rule is a finalized, immutable FlowSpec NLRI (RFC 8955 §4 "NLRI
// value encoded as ... length, followed by a variable-length sequence
// of components").
type Rule struct {
	family     bgp.Family
	rd         qualifier.RD
	components []Component
	bytes      []byte
}

func (r *Rule) Family() bgp.Family      { return r.family }
func (r *Rule) Bytes() []byte           { return r.bytes }
func (r *Rule) Components() []Component { return r.components }
func (r *Rule) RD() qualifier.RD        { return r.rd }

// Index is the rule's raw component encoding (excluding the length
// prefix and RD), which is also its comparison key for overlap
// checks (RFC 8955 §5.1's component-wise ordering).
func (r *Rule) Index() string {
	var value []byte
	for _, c := range r.components {
		value = append(value, c.bytes()...)
	}
	return string(value)
}

func (r *Rule) String() string {
	return fmt.Sprintf("flow[%d components]", len(r.components))
}

// UnpackRule reads one FlowSpec NLRI off b, returning the rule and
// bytes consumed. It preserves the raw component bytes without fully
// decoding operator chains, since the RIB only needs Index()/Bytes()
// to forward and dedup rules faithfully.
func UnpackRule(family bgp.Family, b []byte) (*Rule, int, error) {
	if len(b) < 1 {
		return nil, 0, nlriErr("FlowSpec NLRI truncated", b)
	}
	var length int
	var headerLen int
	if b[0]&0xf0 == 0xf0 {
		if len(b) < 2 {
			return nil, 0, nlriErr("FlowSpec extended-length NLRI truncated", b)
		}
		length = int(b[0]&0x0f)<<8 | int(b[1])
		headerLen = 2
	} else {
		length = int(b[0])
		headerLen = 1
	}
	if len(b) < headerLen+length {
		return nil, 0, nlriErr("FlowSpec NLRI runs past end of buffer", b)
	}
	value := b[headerLen : headerLen+length]
	var rd qualifier.RD
	if family.SAFI == bgp.SAFIFlowSpecVPN {
		if len(value) < 8 {
			return nil, 0, nlriErr("VPN FlowSpec NLRI missing route distinguisher", b)
		}
		var err error
		rd, err = qualifier.UnpackRD(value[:8])
		if err != nil {
			return nil, 0, err
		}
		value = value[8:]
	}
	components, err := decodeComponents(family, value)
	if err != nil {
		return nil, 0, err
	}
	return &Rule{family: family, rd: rd, components: components, bytes: b[:headerLen+length]}, headerLen + length, nil
}

func decodeComponents(family bgp.Family, value []byte) ([]Component, error) {
	var components []Component
	for len(value) > 0 {
		typ := FlowComponentType(value[0])
		rest := value[1:]
		if typ == FlowDestPrefix || typ == FlowSourcePrefix {
			p, n, err := UnpackPrefix(family, rest)
			if err != nil {
				return nil, err
			}
			components = append(components, Component{Type: typ, Prefix: p})
			value = rest[n:]
			continue
		}
		var values []NumericValue
		for len(rest) > 0 {
			op := rest[0]
			width := 1 << ((op >> 4) & 0x3)
			if len(rest) < 1+width {
				return nil, nlriErr("FlowSpec numeric component truncated", value)
			}
			var v uint64
			for i := 0; i < width; i++ {
				v = v<<8 | uint64(rest[1+i])
			}
			values = append(values, NumericValue{Op: op & 0x0f, Value: v, Width: width})
			rest = rest[1+width:]
			if op&NumOpEnd != 0 {
				break
			}
		}
		components = append(components, Component{Type: typ, Values: values})
		value = rest
	}
	return components, nil
}
