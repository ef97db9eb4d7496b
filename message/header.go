// Package message implements the five BGP-4 message codecs: OPEN,
// UPDATE, NOTIFICATION, KEEPALIVE, and ROUTE-REFRESH (RFC 4271 §4, RFC
// 2918). Each type follows the packed-bytes-first pattern used
// throughout this module: construction computes the full wire form
// (header included) once, and accessors read the decoded fields.
package message

import (
	"github.com/ebgpd/ebgpd/bgp"
)

// Type is the BGP message type octet (RFC 4271 §4.1).
type Type byte

const (
	TypeOpen         Type = 1
	TypeUpdate       Type = 2
	TypeNotification Type = 3
	TypeKeepalive    Type = 4
	TypeRouteRefresh Type = 5 // RFC 2918
)

func (t Type) String() string {
	switch t {
	case TypeOpen:
		return "OPEN"
	case TypeUpdate:
		return "UPDATE"
	case TypeNotification:
		return "NOTIFICATION"
	case TypeKeepalive:
		return "KEEPALIVE"
	case TypeRouteRefresh:
		return "ROUTE-REFRESH"
	default:
		return "UNKNOWN"
	}
}

// Marker is the 16-octet all-ones header marker (RFC 4271 §4.1); BGP-4
// never negotiates authentication that would give it another value.
var Marker = [16]byte{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

const HeaderLength = 19 // 16-byte marker + 2-byte length + 1-byte type

// Message is the contract every message type satisfies: Bytes returns
// the full wire form including the 19-byte header.
type Message interface {
	Type() Type
	Bytes() []byte
}

func header(msgType Type, bodyLen int) []byte {
	b := make([]byte, HeaderLength, HeaderLength+bodyLen)
	copy(b[0:16], Marker[:])
	total := HeaderLength + bodyLen
	b[16] = byte(total >> 8)
	b[17] = byte(total)
	b[18] = byte(msgType)
	return b
}

func headerErr(msg string, data []byte) *bgp.ParseError {
	return bgp.NewParseError(bgp.ErrMalformedAttribute, bgp.ErrMessageHeader, bgp.SubBadMessageLength, msg, data)
}

// SplitHeader validates and strips the 19-byte message header off b,
// returning the message type and body bytes (RFC 4271 §4.1: length
// MUST be at least 19 and at most the negotiated maximum message
// size).
func SplitHeader(b []byte, maxSize int) (Type, []byte, error) {
	if len(b) < HeaderLength {
		return 0, nil, headerErr("message shorter than the 19-octet header", b)
	}
	for _, m := range b[0:16] {
		if m != 0xff {
			return 0, nil, bgp.NewParseError(bgp.ErrMalformedAttribute, bgp.ErrMessageHeader, bgp.SubConnectionNotSynchronized, "marker is not all-ones", b)
		}
	}
	length := int(b[16])<<8 | int(b[17])
	if length < HeaderLength || length > maxSize {
		return 0, nil, headerErr("message length out of bounds", b)
	}
	if len(b) < length {
		return 0, nil, headerErr("message shorter than its declared length", b)
	}
	msgType := Type(b[18])
	return msgType, b[HeaderLength:length], nil
}
