package attribute

import (
	"crypto/sha256"
	"sort"

	"github.com/ebgpd/ebgpd/bgp"
)

// Collection is the canonical, ordered set of path attributes attached
// to a route. Construction sorts by Code and rejects duplicate codes
// (RFC 4271 §5: an UPDATE MUST NOT carry the same attribute twice) so
// that two semantically identical attribute sets always produce the
// same Index fingerprint regardless of the wire order they arrived in
// — the grouping key the Adj-RIB-Out uses to batch same-attribute
// announcements into one UPDATE.
type Collection struct {
	byCode map[Code]Attribute
	ordered []Attribute
	index   string
}

// NewCollection builds a Collection from a parsed or locally
// constructed attribute set. Duplicate codes are rejected rather than
// silently keeping the last, since which one wins is not safe to
// decide beneath the caller.
func NewCollection(attrs []Attribute) (*Collection, error) {
	byCode := make(map[Code]Attribute, len(attrs))
	for _, a := range attrs {
		if _, dup := byCode[a.Code()]; dup {
			return nil, attrErr("duplicate path attribute in UPDATE", nil)
		}
		byCode[a.Code()] = a
	}
	ordered := make([]Attribute, 0, len(attrs))
	for _, a := range attrs {
		ordered = append(ordered, a)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Code() < ordered[j].Code() })
	return &Collection{byCode: byCode, ordered: ordered, index: fingerprint(ordered)}, nil
}

func fingerprint(ordered []Attribute) string {
	h := sha256.New()
	for _, a := range ordered {
		h.Write(a.Bytes())
	}
	return string(h.Sum(nil))
}

// Get returns the attribute for code, if present.
func (c *Collection) Get(code Code) (Attribute, bool) {
	a, ok := c.byCode[code]
	return a, ok
}

func (c *Collection) All() []Attribute { return c.ordered }

// Index is the canonical fingerprint two Collections share if and
// only if they encode the same attributes with the same values —
// the grouping key for pending_announces (§5 "Adj-RIB-Out resource
// model").
func (c *Collection) Index() string { return c.index }

// Bytes packs every attribute's header+value back to back in Code
// order, the form that follows an UPDATE's Total Path Attribute
// Length field (RFC 4271 §4.3).
func (c *Collection) Bytes() []byte {
	var b []byte
	for _, a := range c.ordered {
		b = append(b, a.Bytes()...)
	}
	return b
}

// ASPath returns the effective AS_PATH: the real attribute if present,
// or nil. Session layers needing the ASN4-substituted view merge this
// with AS4Path themselves, since that substitution is a capability-
// negotiation concern, not an attribute-codec one.
func (c *Collection) ASPath() (*ASPath, bool) {
	a, ok := c.Get(CodeASPath)
	if !ok {
		return nil, false
	}
	return a.(*ASPath), true
}

// ParseAll splits a full UPDATE path-attribute section into a
// Collection, dispatching each header to its concrete decoder and
// falling back to Unknown for any code this package does not model.
// asn4 controls AS_PATH/AGGREGATOR width per the session's negotiated
// capability (RFC 6793).
//
// A malformed attribute does not necessarily abort the whole parse:
// per RFC 7606, the attribute's Category (derived from its header
// flags, since a malformed attribute never reaches its concrete
// decoder) decides the outcome. A well-known attribute's malformed
// encoding is fatal and returned immediately with every other
// attribute discarded. An optional attribute whose category permits
// treat-as-withdraw is instead dropped from the Collection and
// parsing continues; the returned error in that case carries
// bgp.ErrTreatAsWithdraw and a non-nil Collection, signalling the
// caller to withdraw rather than install whatever NLRI this UPDATE
// carries, while the session itself survives.
func ParseAll(b []byte, asn4 bool) (*Collection, []byte, []byte, error) {
	var attrs []Attribute
	var mpReachNLRI, mpUnreachNLRI []byte
	var softErr error

	for len(b) > 0 {
		flags, code, value, consumed, err := ParseHeader(b)
		if err != nil {
			return nil, nil, nil, err
		}
		b = b[consumed:]

		attr, rest, err := parseOne(flags, code, value, asn4)
		if err != nil {
			if categoryForFlags(flags) != CategoryWellKnownMandatory && categoryForFlags(flags) != CategoryWellKnownDiscretionary {
				if softErr == nil {
					softErr = treatAsWithdrawError(err)
				}
				continue
			}
			return nil, nil, nil, err
		}
		if code == CodeMPReachNLRI {
			mpReachNLRI = rest
		}
		if code == CodeMPUnreachNLRI {
			mpUnreachNLRI = rest
		}
		attrs = append(attrs, attr)
	}

	coll, err := NewCollection(attrs)
	if err != nil {
		return nil, nil, nil, err
	}
	return coll, mpReachNLRI, mpUnreachNLRI, softErr
}

// categoryForFlags derives an attribute's RFC 7606 error category from
// its header flags alone, the only information available when the
// attribute's own value failed to decode (so no concrete instance,
// and therefore no Category() method, exists to ask).
func categoryForFlags(flags byte) Category {
	switch {
	case flags&FlagOptional == 0:
		return CategoryWellKnownDiscretionary
	case flags&FlagTransitive != 0:
		return CategoryOptionalTransitiveTreatAsWithdraw
	default:
		return CategoryOptionalNonTransitive
	}
}

// treatAsWithdrawError recasts a concrete decoder's malformed-value
// error as bgp.ErrTreatAsWithdraw, preserving its NOTIFICATION code
// triple in case a caller logs it but changing the Kind the session
// layer branches on.
func treatAsWithdrawError(err error) error {
	if pe, ok := err.(*bgp.ParseError); ok {
		return bgp.NewParseError(bgp.ErrTreatAsWithdraw, pe.Code, pe.Subcode, pe.Msg, pe.Data)
	}
	return bgp.NewParseError(bgp.ErrTreatAsWithdraw, bgp.ErrUpdateMessage, bgp.SubOptionalAttributeError, err.Error(), nil)
}

func parseOne(flags byte, code Code, value []byte, asn4 bool) (Attribute, []byte, error) {
	switch code {
	case CodeOrigin:
		a, err := ParseOrigin(flags, value)
		return a, nil, err
	case CodeASPath:
		a, err := ParseASPath(flags, value, asn4)
		return a, nil, err
	case CodeNextHop:
		a, err := ParseNextHop(flags, value)
		return a, nil, err
	case CodeMultiExitDisc:
		a, err := ParseMED(flags, value)
		return a, nil, err
	case CodeLocalPref:
		a, err := ParseLocalPref(flags, value)
		return a, nil, err
	case CodeAtomicAggregate:
		a, err := ParseAtomicAggregate(flags, value)
		return a, nil, err
	case CodeAggregator:
		a, err := ParseAggregator(flags, value, asn4)
		return a, nil, err
	case CodeAS4Path:
		a, err := ParseAS4Path(flags, value)
		return a, nil, err
	case CodeAS4Aggregator:
		a, err := ParseAS4Aggregator(flags, value)
		return a, nil, err
	case CodeCommunities:
		a, err := ParseCommunities(flags, value)
		return a, nil, err
	case CodeExtendedCommunities:
		a, err := ParseExtendedCommunities(flags, value)
		return a, nil, err
	case CodeExtendedCommunitiesIPv6:
		a, err := ParseIPv6ExtendedCommunities(flags, value)
		return a, nil, err
	case CodeLargeCommunities:
		a, err := ParseLargeCommunities(flags, value)
		return a, nil, err
	case CodeOriginatorID:
		a, err := ParseOriginatorID(flags, value)
		return a, nil, err
	case CodeClusterList:
		a, err := ParseClusterList(flags, value)
		return a, nil, err
	case CodeAIGP:
		a, err := ParseAIGP(flags, value)
		return a, nil, err
	case CodePMSITunnel:
		a, err := ParsePMSITunnel(flags, value)
		return a, nil, err
	case CodeTunnelEncap:
		a, err := ParseTunnelEncap(flags, value)
		return a, nil, err
	case CodePrefixSID:
		a, err := ParsePrefixSID(flags, value)
		return a, nil, err
	case CodeBGPLS:
		a, err := ParseLinkState(flags, value)
		return a, nil, err
	case CodeConnector:
		a, err := ParseConnector(flags, value)
		return a, nil, err
	case CodeASPathLimit:
		a, err := ParseASPathLimit(flags, value)
		return a, nil, err
	case CodeMPReachNLRI:
		a, rest, err := ParseMPReach(flags, value)
		return a, rest, err
	case CodeMPUnreachNLRI:
		a, rest, err := ParseMPUnreach(flags, value)
		return a, rest, err
	default:
		return NewUnknown(flags, code, value), nil, nil
	}
}
