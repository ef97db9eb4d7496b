package message

import (
	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/capability"
)

// MinOpenLength is the minimum OPEN body length: version(1) + my-AS(2)
// + hold-time(2) + BGP-identifier(4) + opt-parm-len(1) (RFC 4271 §4.2).
const MinOpenLength = 10

// OptionalParameterCapabilities is the Parameter Type for the
// Capabilities optional parameter (RFC 5492 §4).
const OptionalParameterCapabilities byte = 2

// Version is the BGP protocol version this module speaks.
const Version byte = 4

// Open is the OPEN message (RFC 4271 §4.2).
type Open struct {
	myAS         bgp.ASN
	holdTime     uint16
	identifier   bgp.Identifier
	capabilities []capability.Capability
	bytes        []byte
}

// NewOpen builds an OPEN. myAS is the 2-octet field: callers with a
// 4-byte-only ASN put bgp.ASTrans here and carry the real ASN in a
// capability.ASN4 (RFC 6793 §4.1).
func NewOpen(myAS bgp.ASN, holdTime uint16, identifier bgp.Identifier, caps []capability.Capability) *Open {
	body := make([]byte, 0, MinOpenLength)
	body = append(body, Version)
	body = append(body, myAS.Bytes2()...)
	body = append(body, byte(holdTime>>8), byte(holdTime))
	body = append(body, identifier.Bytes()...)

	var capBytes []byte
	for _, c := range caps {
		capBytes = append(capBytes, c.Bytes()...)
	}
	var optParams []byte
	if len(capBytes) > 0 {
		optParams = append([]byte{OptionalParameterCapabilities, byte(len(capBytes))}, capBytes...)
	}
	body = append(body, byte(len(optParams)))
	body = append(body, optParams...)

	b := append(header(TypeOpen, len(body)), body...)
	return &Open{myAS: myAS, holdTime: holdTime, identifier: identifier, capabilities: caps, bytes: b}
}

// ParseOpen decodes an OPEN body (header already stripped by
// SplitHeader).
func ParseOpen(body []byte) (*Open, error) {
	if len(body) < MinOpenLength {
		return nil, bgp.NewParseError(bgp.ErrMalformedAttribute, bgp.ErrOpenMessage, bgp.SubUnsupportedVersionNumber, "OPEN shorter than minimum length", body)
	}
	if body[0] != Version {
		return nil, bgp.NewParseError(bgp.ErrMalformedAttribute, bgp.ErrOpenMessage, bgp.SubUnsupportedVersionNumber, "unsupported BGP version", body)
	}
	myAS := bgp.ASN2(body[1:3])
	holdTime := uint16(body[3])<<8 | uint16(body[4])
	identifier, err := bgp.NewIdentifierFromBytes(body[5:9])
	if err != nil {
		return nil, bgp.NewParseError(bgp.ErrMalformedAttribute, bgp.ErrOpenMessage, bgp.SubBadBGPIdentifier, "invalid BGP identifier", body)
	}
	optLen := int(body[9])
	if len(body) < 10+optLen {
		return nil, bgp.NewParseError(bgp.ErrMalformedAttribute, bgp.ErrOpenMessage, bgp.SubUnsupportedOptionalParam, "optional parameters run past OPEN body", body)
	}
	caps, err := parseOptionalParameters(body[10 : 10+optLen])
	if err != nil {
		return nil, err
	}
	full := append(header(TypeOpen, len(body)), body...)
	return &Open{myAS: myAS, holdTime: holdTime, identifier: identifier, capabilities: caps, bytes: full}, nil
}

func parseOptionalParameters(b []byte) ([]capability.Capability, error) {
	var caps []capability.Capability
	for len(b) > 0 {
		if len(b) < 2 {
			return nil, bgp.NewParseError(bgp.ErrMalformedAttribute, bgp.ErrOpenMessage, bgp.SubUnsupportedOptionalParam, "optional parameter header truncated", b)
		}
		parmType := b[0]
		parmLen := int(b[1])
		if len(b) < 2+parmLen {
			return nil, bgp.NewParseError(bgp.ErrMalformedAttribute, bgp.ErrOpenMessage, bgp.SubUnsupportedOptionalParam, "optional parameter value runs past end", b)
		}
		if parmType == OptionalParameterCapabilities {
			parsed, err := capability.ParseAll(b[2 : 2+parmLen])
			if err != nil {
				return nil, err
			}
			caps = append(caps, parsed...)
		}
		b = b[2+parmLen:]
	}
	return caps, nil
}

func (o *Open) Type() Type                          { return TypeOpen }
func (o *Open) Bytes() []byte                        { return o.bytes }
func (o *Open) MyAS() bgp.ASN                        { return o.myAS }
func (o *Open) HoldTime() uint16                     { return o.holdTime }
func (o *Open) Identifier() bgp.Identifier           { return o.identifier }
func (o *Open) Capabilities() []capability.Capability { return o.capabilities }

// ValidateHoldTime applies RFC 4271 §4.2's rule: zero or at least 3
// seconds.
func ValidateHoldTime(holdTime uint16) bool {
	return holdTime == 0 || holdTime >= 3
}
