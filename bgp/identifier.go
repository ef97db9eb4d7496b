package bgp

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Identifier is a BGP Identifier: a 4-octet value that MUST represent
// a valid unicast host IP address (RFC 4271 §4.2).
type Identifier uint32

func NewIdentifier(ip net.IP) (Identifier, error) {
	v4 := ip.To4()
	if v4 == nil {
		return 0, fmt.Errorf("bgp: %s is not a valid IPv4 BGP identifier", ip)
	}
	return Identifier(binary.BigEndian.Uint32(v4)), nil
}

func (id Identifier) IP() net.IP {
	b := make(net.IP, 4)
	binary.BigEndian.PutUint32(b, uint32(id))
	return b
}

func (id Identifier) String() string {
	return id.IP().String()
}

// Valid reports whether the identifier is syntactically a valid
// unicast host address, per the OPEN message error handling rules in
// RFC 4271 §6.2.
func (id Identifier) Valid() bool {
	return id.IP().IsGlobalUnicast()
}

func (id Identifier) Bytes() []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(id))
	return b
}

// NewIdentifierFromBytes decodes the 4-octet wire form.
func NewIdentifierFromBytes(b []byte) (Identifier, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("bgp: identifier requires 4 bytes, got %d", len(b))
	}
	return Identifier(binary.BigEndian.Uint32(b)), nil
}
