package bgp

import "fmt"

// NOTIFICATION error codes (RFC 4271 §6, RFC 4486 for Cease subcodes).
const (
	ErrMessageHeader      = 1
	ErrOpenMessage        = 2
	ErrUpdateMessage      = 3
	ErrHoldTimerExpired   = 4
	ErrFiniteStateMachine = 5
	ErrCease              = 6
	ErrRouteRefreshMsg    = 7 // RFC 7313
)

// Message Header Error subcodes.
const (
	SubConnectionNotSynchronized = 1
	SubBadMessageLength          = 2
	SubBadMessageType            = 3
)

// OPEN Message Error subcodes.
const (
	SubUnsupportedVersionNumber = 1
	SubBadPeerAS                = 2
	SubBadBGPIdentifier         = 3
	SubUnsupportedOptionalParam = 4
	SubUnacceptableHoldTime     = 6
	SubUnsupportedCapability    = 7 // RFC 5492
)

// UPDATE Message Error subcodes.
const (
	SubMalformedAttributeList    = 1
	SubUnrecognizedWellKnownAttr = 2
	SubMissingWellKnownAttr      = 3
	SubAttributeFlagsError       = 4
	SubAttributeLengthError      = 5
	SubInvalidOriginAttr         = 6
	SubInvalidNextHopAttr        = 8
	SubOptionalAttributeError    = 9
	SubInvalidNetworkField       = 10
	SubMalformedASPath           = 11
)

// Cease subcodes (RFC 4486).
const (
	SubMaxPrefixesReached       = 1
	SubAdministrativeShutdown   = 2
	SubPeerDeconfigured         = 3
	SubAdministrativeReset      = 4
	SubConnectionRejected       = 5
	SubOtherConfigurationChange = 6
	SubConnectionCollisionRes   = 7
	SubOutOfResources           = 8
)

// ErrKind classifies a parse-time failure below message granularity so
// the session layer can decide how to surface it (§4.1.4 / §7).
type ErrKind int

const (
	ErrMalformedAttribute ErrKind = iota
	ErrMalformedNLRI
	ErrUnknownCapability
	ErrTreatAsWithdraw
)

func (k ErrKind) String() string {
	switch k {
	case ErrMalformedAttribute:
		return "malformed-attribute"
	case ErrMalformedNLRI:
		return "malformed-nlri"
	case ErrUnknownCapability:
		return "unknown-capability"
	case ErrTreatAsWithdraw:
		return "treat-as-withdraw"
	default:
		return "unknown"
	}
}

// ParseError is the typed result every codec parse function returns on
// failure. It carries enough information for the session layer to
// build a NOTIFICATION, or to apply RFC 7606 treat-as-withdraw, without
// the codec itself deciding policy (§4.1.4).
type ParseError struct {
	Kind    ErrKind
	Code    int
	Subcode int
	Data    []byte
	Msg     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bgp: %s (code=%d subcode=%d): %s", e.Kind, e.Code, e.Subcode, e.Msg)
}

func NewParseError(kind ErrKind, code, subcode int, msg string, data []byte) *ParseError {
	return &ParseError{Kind: kind, Code: code, Subcode: subcode, Msg: msg, Data: data}
}

// NotificationError is returned by the session layer and by codecs
// that must fail the whole message (mandatory/malformed well-known
// attributes) rather than just one NLRI.
type NotificationError struct {
	Code    int
	Subcode int
	Data    []byte
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("NOTIFICATION code=%d subcode=%d", e.Code, e.Subcode)
}

func NewNotificationError(code, subcode int, data []byte) *NotificationError {
	return &NotificationError{Code: code, Subcode: subcode, Data: data}
}
