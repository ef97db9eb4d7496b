package message

import "github.com/ebgpd/ebgpd/bgp"

// MinNotificationLength is the minimum NOTIFICATION body length:
// code(1) + subcode(1) (RFC 4271 §4.5).
const MinNotificationLength = 2

// Notification is the NOTIFICATION message (RFC 4271 §4.5). Sending
// one always closes the connection immediately after.
type Notification struct {
	code    int
	subcode int
	data    []byte
	bytes   []byte
}

func NewNotification(code, subcode int, data []byte) *Notification {
	body := append([]byte{byte(code), byte(subcode)}, data...)
	return &Notification{code: code, subcode: subcode, data: data, bytes: append(header(TypeNotification, len(body)), body...)}
}

// FromError adapts a *bgp.NotificationError, the typed failure every
// codec and the session layer raise, into the wire message.
func FromError(err *bgp.NotificationError) *Notification {
	return NewNotification(err.Code, err.Subcode, err.Data)
}

func ParseNotification(body []byte) (*Notification, error) {
	if len(body) < MinNotificationLength {
		return nil, bgp.NewParseError(bgp.ErrMalformedAttribute, bgp.ErrMessageHeader, bgp.SubBadMessageLength, "NOTIFICATION shorter than minimum length", body)
	}
	data := append([]byte{}, body[2:]...)
	full := append(header(TypeNotification, len(body)), body...)
	return &Notification{code: int(body[0]), subcode: int(body[1]), data: data, bytes: full}, nil
}

func (n *Notification) Type() Type    { return TypeNotification }
func (n *Notification) Bytes() []byte { return n.bytes }
func (n *Notification) Code() int     { return n.code }
func (n *Notification) Subcode() int  { return n.subcode }
func (n *Notification) Data() []byte  { return n.data }
