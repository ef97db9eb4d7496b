// Package capability implements BGP capability negotiation (RFC 5492):
// the set of optional-parameter TLVs exchanged in OPEN messages that
// advertise multiprotocol support, ASN4, ADD-PATH, route refresh,
// graceful restart, and related extensions.
package capability

import (
	"fmt"

	"github.com/ebgpd/ebgpd/bgp"
)

// Code is the 1-octet capability code (IANA "Capability Codes"
// registry).
type Code byte

const (
	CodeMultiprotocol      Code = 1  // RFC 4760
	CodeRouteRefresh       Code = 2  // RFC 2918
	CodeExtendedMessage    Code = 6  // draft-ietf-idr-bgp-extended-messages
	CodeGracefulRestart    Code = 64 // RFC 4724
	CodeASN4               Code = 65 // RFC 6793
	CodeAddPath            Code = 69 // RFC 7911
	CodeEnhancedRefresh    Code = 70 // RFC 7313
	CodeLongLivedGR        Code = 71 // draft-ietf-idr-long-lived-gr
	CodeRouteRefreshCisco  Code = 128
	CodeFQDN               Code = 73 // draft-walton-bgp-hostname-capability
)

// Capability is the contract every concrete capability satisfies.
// Bytes returns the full <code, length, value> TLV (RFC 5492 §4).
type Capability interface {
	Code() Code
	Bytes() []byte
}

func header(code Code, value []byte) []byte {
	b := make([]byte, 2+len(value))
	b[0] = byte(code)
	b[1] = byte(len(value))
	copy(b[2:], value)
	return b
}

func capErr(msg string) error {
	return fmt.Errorf("capability: %s", msg)
}

// Unknown is the pass-through representation for a capability code
// this package has no concrete type for (RFC 5492 §5: an unrecognized
// capability is ignored, not fatal, unless Unsupported Capability
// Notification was requested).
type Unknown struct {
	code  Code
	value []byte
}

func (u *Unknown) Code() Code    { return u.code }
func (u *Unknown) Value() []byte { return u.value }
func (u *Unknown) Bytes() []byte { return header(u.code, u.value) }

// ParseAll decodes a sequence of capability TLVs out of an OPEN
// message's Capabilities optional-parameter value.
func ParseAll(b []byte) ([]Capability, error) {
	var caps []Capability
	for len(b) > 0 {
		if len(b) < 2 {
			return nil, capErr("capability header truncated")
		}
		code := Code(b[0])
		length := int(b[1])
		if len(b) < 2+length {
			return nil, capErr("capability value runs past parameter end")
		}
		value := b[2 : 2+length]
		cap, err := parseOne(code, value)
		if err != nil {
			return nil, err
		}
		caps = append(caps, cap)
		b = b[2+length:]
	}
	return caps, nil
}

func parseOne(code Code, value []byte) (Capability, error) {
	switch code {
	case CodeMultiprotocol:
		return ParseMultiprotocol(value)
	case CodeRouteRefresh, CodeRouteRefreshCisco:
		return &RouteRefresh{cisco: code == CodeRouteRefreshCisco}, nil
	case CodeEnhancedRefresh:
		return &EnhancedRouteRefresh{}, nil
	case CodeExtendedMessage:
		return &ExtendedMessage{}, nil
	case CodeASN4:
		return ParseASN4(value)
	case CodeAddPath:
		return ParseAddPath(value)
	case CodeGracefulRestart:
		return ParseGracefulRestart(value)
	case CodeLongLivedGR:
		return ParseLongLivedGR(value)
	case CodeFQDN:
		return ParseFQDN(value)
	default:
		return &Unknown{code: code, value: append([]byte{}, value...)}, nil
	}
}

// Multiprotocol is the MP_BGP capability (RFC 4760 §8): AFI/SAFI pair
// the sender can carry NLRI for.
type Multiprotocol struct {
	family bgp.Family
}

func NewMultiprotocol(family bgp.Family) *Multiprotocol {
	return &Multiprotocol{family: family}
}

func ParseMultiprotocol(value []byte) (*Multiprotocol, error) {
	if len(value) != 4 {
		return nil, capErr("MULTIPROTOCOL capability must be exactly 4 octets")
	}
	return &Multiprotocol{family: bgp.Family{AFI: bgp.AFI(uint16(value[0])<<8 | uint16(value[1])), SAFI: bgp.SAFI(value[3])}}, nil
}

func (m *Multiprotocol) Code() Code { return CodeMultiprotocol }
func (m *Multiprotocol) Family() bgp.Family { return m.family }
func (m *Multiprotocol) Bytes() []byte {
	fam := m.family.Pack()
	value := []byte{fam[0], fam[1], 0, fam[2]}
	return header(CodeMultiprotocol, value)
}

// RouteRefresh is the RFC 2918 capability (and its pre-standard Cisco
// code point 128, still seen in the wild).
type RouteRefresh struct{ cisco bool }

func NewRouteRefresh() *RouteRefresh { return &RouteRefresh{} }
func (r *RouteRefresh) Code() Code {
	if r.cisco {
		return CodeRouteRefreshCisco
	}
	return CodeRouteRefresh
}
func (r *RouteRefresh) Bytes() []byte { return header(r.Code(), nil) }

// EnhancedRouteRefresh is the RFC 7313 capability adding the
// sequencing needed for multi-pass route refresh.
type EnhancedRouteRefresh struct{}

func NewEnhancedRouteRefresh() *EnhancedRouteRefresh { return &EnhancedRouteRefresh{} }
func (e *EnhancedRouteRefresh) Code() Code            { return CodeEnhancedRefresh }
func (e *EnhancedRouteRefresh) Bytes() []byte         { return header(CodeEnhancedRefresh, nil) }

// ExtendedMessage advertises support for messages larger than 4096
// octets (draft-ietf-idr-bgp-extended-messages).
type ExtendedMessage struct{}

func NewExtendedMessage() *ExtendedMessage { return &ExtendedMessage{} }
func (e *ExtendedMessage) Code() Code      { return CodeExtendedMessage }
func (e *ExtendedMessage) Bytes() []byte   { return header(CodeExtendedMessage, nil) }

// ASN4 is the 4-octet ASN capability (RFC 6793 §3).
type ASN4 struct {
	asn bgp.ASN
}

func NewASN4(asn bgp.ASN) *ASN4 { return &ASN4{asn: asn} }

func ParseASN4(value []byte) (*ASN4, error) {
	if len(value) != 4 {
		return nil, capErr("4-OCTET-ASN capability must be exactly 4 octets")
	}
	return &ASN4{asn: bgp.ASN4(value)}, nil
}

func (a *ASN4) Code() Code    { return CodeASN4 }
func (a *ASN4) ASN() bgp.ASN  { return a.asn }
func (a *ASN4) Bytes() []byte { return header(CodeASN4, a.asn.Bytes4()) }
