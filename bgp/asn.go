package bgp

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// ASN is an autonomous system number. BGP carries it as either a
// 2-octet or 4-octet integer on the wire depending on whether both
// peers negotiated the ASN4 capability (RFC 6793); ASN itself is
// always the full 32-bit value once decoded.
type ASN uint32

// AS_TRANS is substituted for a 4-octet-only ASN when speaking to a
// peer that has not negotiated ASN4 (RFC 6793 §4.1).
const ASTrans ASN = 23456

func (a ASN) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// Fits16 reports whether this ASN can be carried in a legacy 2-octet
// field without using AS_TRANS.
func (a ASN) Fits16() bool {
	return a <= 0xffff
}

func (a ASN) Bytes4() []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(a))
	return b
}

func (a ASN) Bytes2() []byte {
	b := make([]byte, 2)
	if a.Fits16() {
		binary.BigEndian.PutUint16(b, uint16(a))
	} else {
		binary.BigEndian.PutUint16(b, uint16(ASTrans))
	}
	return b
}

func ParseASN(s string) (ASN, error) {
	// "asn:n" and "ip:n" dotted forms used by RD/RT command syntax are
	// handled by the qualifier package; this parses a plain integer.
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bgp: invalid ASN %q: %w", s, err)
	}
	return ASN(v), nil
}

func ASN4(b []byte) ASN {
	return ASN(binary.BigEndian.Uint32(b))
}

func ASN2(b []byte) ASN {
	return ASN(binary.BigEndian.Uint16(b))
}
