package message

import (
	"github.com/ebgpd/ebgpd/attribute"
	"github.com/ebgpd/ebgpd/bgp"
)

// Update is the UPDATE message (RFC 4271 §4.3). Legacy withdrawn-
// routes and NLRI sections only ever carry IPv4 unicast; every other
// family travels inside MP_REACH_NLRI/MP_UNREACH_NLRI, already present
// in Attrs when those attributes were added by the assembler in
// update/ (§4.1 "legacy vs MP placement").
type Update struct {
	withdrawn []byte // packed sequence of legacy-format Prefix NLRI
	attrs     *attribute.Collection
	nlri      []byte // packed sequence of legacy-format Prefix NLRI
	mpReachNLRI   []byte
	mpUnreachNLRI []byte
	bytes     []byte
}

// NewUpdate assembles an UPDATE from its three sections. attrs must
// already include any MP_REACH_NLRI/MP_UNREACH_NLRI attribute built by
// the update assembler; withdrawn/nlri are the legacy IPv4-unicast-only
// sections.
func NewUpdate(withdrawn []byte, attrs *attribute.Collection, nlri []byte) *Update {
	var attrBytes []byte
	if attrs != nil {
		attrBytes = attrs.Bytes()
	}
	body := make([]byte, 0, 4+len(withdrawn)+len(attrBytes)+len(nlri))
	body = append(body, byte(len(withdrawn)>>8), byte(len(withdrawn)))
	body = append(body, withdrawn...)
	body = append(body, byte(len(attrBytes)>>8), byte(len(attrBytes)))
	body = append(body, attrBytes...)
	body = append(body, nlri...)
	return &Update{withdrawn: withdrawn, attrs: attrs, nlri: nlri, bytes: append(header(TypeUpdate, len(body)), body...)}
}

// ParseUpdate decodes an UPDATE body. asn4 follows the session's
// negotiated 4-octet-ASN capability and controls AS_PATH/AGGREGATOR
// width.
//
// A non-nil error alongside a non-nil *Update is attribute.ParseAll's
// RFC 7606 treat-as-withdraw signal: the attribute section parsed
// except for one optional attribute whose category permits discarding
// it, and the caller must treat every NLRI this UPDATE carries as
// withdrawn rather than install it. Any other error leaves Update nil,
// since the message as a whole failed to parse.
func ParseUpdate(body []byte, asn4 bool) (*Update, error) {
	if len(body) < 4 {
		return nil, attrErr("UPDATE shorter than minimum length", body)
	}
	withdrawnLen := int(body[0])<<8 | int(body[1])
	if len(body) < 2+withdrawnLen+2 {
		return nil, attrErr("UPDATE withdrawn-routes length runs past body", body)
	}
	withdrawn := body[2 : 2+withdrawnLen]
	rest := body[2+withdrawnLen:]

	attrLen := int(rest[0])<<8 | int(rest[1])
	if len(rest) < 2+attrLen {
		return nil, attrErr("UPDATE total-path-attribute length runs past body", body)
	}
	attrBytes := rest[2 : 2+attrLen]
	nlriBytes := rest[2+attrLen:]

	coll, mpReach, mpUnreach, err := attribute.ParseAll(attrBytes, asn4)
	if err != nil {
		if pe, ok := err.(*bgp.ParseError); !ok || pe.Kind != bgp.ErrTreatAsWithdraw {
			return nil, err
		}
	}

	full := append(header(TypeUpdate, len(body)), body...)
	return &Update{
		withdrawn:     withdrawn,
		attrs:         coll,
		nlri:          nlriBytes,
		mpReachNLRI:   mpReach,
		mpUnreachNLRI: mpUnreach,
		bytes:         full,
	}, err
}

func attrErr(msg string, data []byte) *bgp.ParseError {
	return bgp.NewParseError(bgp.ErrMalformedAttribute, bgp.ErrUpdateMessage, bgp.SubMalformedAttributeList, msg, data)
}

func (u *Update) Type() Type                       { return TypeUpdate }
func (u *Update) Bytes() []byte                    { return u.bytes }
func (u *Update) Attributes() *attribute.Collection { return u.attrs }
func (u *Update) WithdrawnRoutes() []byte          { return u.withdrawn }
func (u *Update) NLRI() []byte                     { return u.nlri }
func (u *Update) MPReachNLRI() []byte              { return u.mpReachNLRI }
func (u *Update) MPUnreachNLRI() []byte            { return u.mpUnreachNLRI }

// IsEndOfRIB reports whether this UPDATE is the empty marker signaling
// the end of the initial route feed, a bare UPDATE for IPv4 unicast
// (RFC 4724 §2) or an MP_UNREACH_NLRI with no NLRI for any other
// family (RFC 4724 §2 note).
func (u *Update) IsEndOfRIB() bool {
	if len(u.withdrawn) == 0 && len(u.nlri) == 0 && (u.attrs == nil || len(u.attrs.All()) == 0) {
		return true
	}
	if u.attrs != nil {
		if _, ok := u.attrs.Get(attribute.CodeMPUnreachNLRI); ok {
			return len(u.mpUnreachNLRI) == 0
		}
	}
	return false
}
