package bgp

// OpenContext is the minimal immutable encoding context derived from a
// session's Negotiated values at OPENCONFIRM (§3). It is passed to
// every pack method in the attribute and nlri packages instead of
// those packages reaching into a global; this keeps packing pure and
// cheap to hash/cache per design note "ADD-PATH and context".
type OpenContext struct {
	AFI  AFI
	SAFI SAFI

	// AddPathSend is true when the local side negotiated sending
	// ADD-PATH NLRIs for this family to the target peer.
	AddPathSend bool
	// AddPathReceive is true when the local side negotiated receiving
	// ADD-PATH NLRIs for this family from the target peer.
	AddPathReceive bool

	ASN4 bool

	// MsgSize is the negotiated maximum BGP message size: 4096 unless
	// both sides advertised the Extended Message capability, in which
	// case 65535.
	MsgSize int

	LocalAS ASN
	PeerAS  ASN
}

// Family returns the (AFI, SAFI) this context packs for.
func (c OpenContext) Family() Family {
	return Family{AFI: c.AFI, SAFI: c.SAFI}
}

// IsIBGP is true when the session is internal (local AS == peer AS).
func (c OpenContext) IsIBGP() bool {
	return c.LocalAS == c.PeerAS
}

// WithFamily returns a copy of the context scoped to a different
// family, keeping every session-wide field (ASN4, message size, the
// two ASNs) intact. Used when packing the same Route for several
// families within one session, e.g. fan-out of an MP_REACH group.
func (c OpenContext) WithFamily(f Family) OpenContext {
	c.AFI = f.AFI
	c.SAFI = f.SAFI
	return c
}

const (
	// DefaultMaxMessageSize is the message size BGP-4 implementations
	// MUST support absent the Extended Message capability (RFC 4271 §4).
	DefaultMaxMessageSize = 4096
	// ExtendedMaxMessageSize is negotiated when both peers advertise
	// the Extended Message capability (draft-ietf-idr-bgp-extended-messages).
	ExtendedMaxMessageSize = 65535
)
