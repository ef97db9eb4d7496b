// Package attribute implements BGP path attributes: the packed-bytes-
// first encode/decode for each RFC 4271 §5 attribute variant plus the
// extended set carried by later RFCs (communities, MP_REACH/UNREACH,
// BGP-LS, Prefix-SID, ...), and the AttributeCollection that groups
// them into the canonical, fingerprinted set attached to a Route.
package attribute

import (
	"fmt"

	"github.com/ebgpd/ebgpd/bgp"
)

// Code is the 1-octet BGP path attribute type code (RFC 4271 §5 and
// the IANA "BGP Path Attributes" registry).
type Code uint8

const (
	CodeOrigin             Code = 1
	CodeASPath             Code = 2
	CodeNextHop            Code = 3
	CodeMultiExitDisc      Code = 4
	CodeLocalPref          Code = 5
	CodeAtomicAggregate    Code = 6
	CodeAggregator         Code = 7
	CodeCommunities        Code = 8
	CodeOriginatorID       Code = 9
	CodeClusterList        Code = 10
	CodeMPReachNLRI        Code = 14
	CodeMPUnreachNLRI      Code = 15
	CodeExtendedCommunities Code = 16
	CodeAS4Path            Code = 17
	CodeAS4Aggregator      Code = 18
	CodePMSITunnel         Code = 22
	CodeTunnelEncap        Code = 23
	CodeAIGP               Code = 26
	CodePrefixSID          Code = 40
	CodeLargeCommunities   Code = 32
	CodeBGPLS              Code = 29
	CodeConnector          Code = 28
	CodeASPathLimit        Code = 21
	CodeExtendedCommunitiesIPv6 Code = 25
)

// Flags bits within the attribute-header flags octet (RFC 4271 §4.3).
const (
	FlagOptional      byte = 1 << 7
	FlagTransitive    byte = 1 << 6
	FlagPartial       byte = 1 << 5
	FlagExtendedLength byte = 1 << 4
)

// Category classifies an attribute for RFC 7606 error handling so the
// decode layer can mechanically decide session-reset vs
// treat-as-withdraw, per the design note in spec §9.
type Category int

const (
	// CategoryWellKnownMandatory attributes missing or malformed always
	// terminate the session (RFC 4271 §6.3).
	CategoryWellKnownMandatory Category = iota
	CategoryWellKnownDiscretionary
	// CategoryOptionalTransitiveTreatAsWithdraw covers the RFC 7606 §7
	// table of optional transitive attributes whose malformed encoding
	// withdraws the NLRI instead of resetting the session.
	CategoryOptionalTransitiveTreatAsWithdraw
	CategoryOptionalNonTransitive
)

// Attribute is the contract every attribute variant satisfies. Bytes
// returns the full attribute including its header, computed once at
// construction (packed-bytes-first, §4.1.1); re-parsing is done on
// demand by each concrete type's accessors.
type Attribute interface {
	Code() Code
	Category() Category
	Bytes() []byte
}

// header packs the 3- or 4-byte attribute header plus the caller's
// already-encoded value, choosing the extended-length bit only when
// the value exceeds 255 bytes.
func header(flags byte, code Code, value []byte) []byte {
	if len(value) > 255 {
		flags |= FlagExtendedLength
		b := make([]byte, 0, 4+len(value))
		b = append(b, flags, byte(code), byte(len(value)>>8), byte(len(value)))
		return append(b, value...)
	}
	b := make([]byte, 0, 3+len(value))
	b = append(b, flags, byte(code), byte(len(value)))
	return append(b, value...)
}

// ParseHeader splits the next attribute off b, returning its flags,
// code, raw value bytes, and the number of bytes consumed. It is the
// single place that understands the extended-length bit (§4.1.3).
func ParseHeader(b []byte) (flags byte, code Code, value []byte, consumed int, err error) {
	if len(b) < 3 {
		return 0, 0, nil, 0, attrErr("attribute header runs past end of UPDATE", b)
	}
	flags = b[0]
	code = Code(b[1])
	var length int
	var headerLen int
	if flags&FlagExtendedLength != 0 {
		if len(b) < 4 {
			return 0, 0, nil, 0, attrErr("extended-length attribute header truncated", b)
		}
		length = int(b[2])<<8 | int(b[3])
		headerLen = 4
	} else {
		length = int(b[2])
		headerLen = 3
	}
	if len(b) < headerLen+length {
		return 0, 0, nil, 0, attrErr("attribute value runs past end of UPDATE", b)
	}
	return flags, code, b[headerLen : headerLen+length], headerLen + length, nil
}

func attrErr(msg string, data []byte) *bgp.ParseError {
	return bgp.NewParseError(bgp.ErrMalformedAttribute, bgp.ErrUpdateMessage, bgp.SubMalformedAttributeList, msg, data)
}

// Unknown is the pass-through representation for any attribute code
// this codec does not have a concrete type for. Flags MUST be
// preserved verbatim on forwarding (§4.1.3); SetPartial implements the
// "unknown-optional-transitive gets the partial bit set on forward"
// rule.
type Unknown struct {
	code  Code
	flags byte
	value []byte
}

func NewUnknown(flags byte, code Code, value []byte) *Unknown {
	return &Unknown{code: code, flags: flags, value: value}
}

func (u *Unknown) Code() Code { return u.code }

func (u *Unknown) Category() Category {
	return categoryForFlags(u.flags)
}

// SetPartial returns a copy with the partial bit set, used when
// forwarding an unrecognized optional transitive attribute (RFC 4271
// §5: "the Partial bit ... is set to 1, and the attribute is retained
// for propagation").
func (u *Unknown) SetPartial() *Unknown {
	return &Unknown{code: u.code, flags: u.flags | FlagPartial, value: u.value}
}

func (u *Unknown) Value() []byte { return u.value }

func (u *Unknown) Bytes() []byte {
	return header(u.flags, u.code, u.value)
}

func (u *Unknown) String() string {
	return fmt.Sprintf("attribute-0x%02x-0x%02x %x", u.flags, u.code, u.value)
}
