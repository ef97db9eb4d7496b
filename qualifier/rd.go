// Package qualifier implements the route qualifiers that prefix or
// accompany an NLRI in certain families: Route Distinguishers, label
// stacks, Ethernet Segment Identifiers, and ADD-PATH PathInfo. Each
// type is packed-bytes-first (RFC 4364 §4.1: "0:2><value:6>" typed
// encoding). RDs and label stacks are interned through a bounded pool
// (RDPool, LabelsPool), since identical RDs and labels repeat across
// thousands of routes in a VPN-heavy RIB (§5 resource model); ESIs and
// PathInfo values have no pool and are not interned.
package qualifier

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// RDType identifies which of the three RD encodings (RFC 4364 §4.2) a
// Route Distinguisher uses.
type RDType uint16

const (
	RDTypeASN2    RDType = 0 // 2-byte ASN : 4-byte number
	RDTypeIPv4    RDType = 1 // 4-byte IPv4 address : 2-byte number
	RDTypeASN4    RDType = 2 // 4-byte ASN : 2-byte number
)

// RD is an 8-byte Route Distinguisher. It is immutable and carries its
// canonical packed bytes computed once at construction.
type RD struct {
	packed [8]byte
}

func newRD(typ RDType, hi uint32, lo uint32, hiWidth int) RD {
	var rd RD
	binary.BigEndian.PutUint16(rd.packed[0:2], uint16(typ))
	switch hiWidth {
	case 2:
		binary.BigEndian.PutUint16(rd.packed[2:4], uint16(hi))
		binary.BigEndian.PutUint32(rd.packed[4:8], lo)
	case 4:
		binary.BigEndian.PutUint32(rd.packed[2:6], hi)
		binary.BigEndian.PutUint16(rd.packed[6:8], uint16(lo))
	}
	return rd
}

// NewRDASN2 builds a type-0 RD: 2-byte ASN : 4-byte assigned number.
func NewRDASN2(asn uint16, number uint32) RD {
	return newRD(RDTypeASN2, uint32(asn), number, 2)
}

// NewRDIPv4 builds a type-1 RD: 4-byte IPv4 address : 2-byte number.
func NewRDIPv4(ip net.IP, number uint16) RD {
	v4 := ip.To4()
	return newRD(RDTypeIPv4, binary.BigEndian.Uint32(v4), uint32(number), 4)
}

// NewRDASN4 builds a type-2 RD: 4-byte ASN : 2-byte assigned number.
func NewRDASN4(asn uint32, number uint16) RD {
	return newRD(RDTypeASN4, asn, uint32(number), 4)
}

// Zero is the sentinel zero RD: valid wire value, but Adj-RIB-Out
// rejects it on a VPN announce (§4.3 "VPN announces require a
// non-zero RD").
var Zero RD

func (rd RD) IsZero() bool {
	return rd == Zero
}

func (rd RD) Type() RDType {
	return RDType(binary.BigEndian.Uint16(rd.packed[0:2]))
}

func (rd RD) Bytes() []byte {
	b := make([]byte, 8)
	copy(b, rd.packed[:])
	return b
}

func (rd RD) String() string {
	switch rd.Type() {
	case RDTypeASN2:
		return fmt.Sprintf("%d:%d", binary.BigEndian.Uint16(rd.packed[2:4]), binary.BigEndian.Uint32(rd.packed[4:8]))
	case RDTypeIPv4:
		ip := net.IP(rd.packed[2:6])
		return fmt.Sprintf("%s:%d", ip, binary.BigEndian.Uint16(rd.packed[6:8]))
	case RDTypeASN4:
		return fmt.Sprintf("%d:%d", binary.BigEndian.Uint32(rd.packed[2:6]), binary.BigEndian.Uint16(rd.packed[6:8]))
	default:
		return fmt.Sprintf("0x%x", rd.packed)
	}
}

// ParseRD accepts the command-API grammar "asn:n" or "ip:n" (§6.3) and
// picks the narrowest RD type that represents it.
func ParseRD(s string) (RD, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return RD{}, fmt.Errorf("qualifier: invalid route-distinguisher %q", s)
	}
	number, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return RD{}, fmt.Errorf("qualifier: invalid route-distinguisher number in %q: %w", s, err)
	}
	if ip := net.ParseIP(parts[0]); ip != nil && ip.To4() != nil {
		if number > 0xffff {
			return RD{}, fmt.Errorf("qualifier: ip-form route-distinguisher number overflow in %q", s)
		}
		return NewRDIPv4(ip, uint16(number)), nil
	}
	asn, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return RD{}, fmt.Errorf("qualifier: invalid route-distinguisher asn in %q: %w", s, err)
	}
	if asn <= 0xffff {
		if number > 0xffffffff {
			return RD{}, fmt.Errorf("qualifier: route-distinguisher number overflow in %q", s)
		}
		return NewRDASN2(uint16(asn), uint32(number)), nil
	}
	if number > 0xffff {
		return RD{}, fmt.Errorf("qualifier: 4-byte-asn route-distinguisher number overflow in %q", s)
	}
	return NewRDASN4(uint32(asn), uint16(number)), nil
}

// UnpackRD reads the canonical 8-byte wire form.
func UnpackRD(b []byte) (RD, error) {
	if len(b) < 8 {
		return RD{}, fmt.Errorf("qualifier: route-distinguisher requires 8 bytes, got %d", len(b))
	}
	var rd RD
	copy(rd.packed[:], b[:8])
	return rd, nil
}
