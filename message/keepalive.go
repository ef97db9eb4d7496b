package message

// Keepalive is the KEEPALIVE message: header only, 19 octets total,
// no body (RFC 4271 §4.4).
type Keepalive struct {
	bytes []byte
}

var keepaliveBytes = header(TypeKeepalive, 0)

func NewKeepalive() *Keepalive {
	return &Keepalive{bytes: keepaliveBytes}
}

func ParseKeepalive(body []byte) (*Keepalive, error) {
	if len(body) != 0 {
		return nil, headerErr("KEEPALIVE body must be empty", body)
	}
	return &Keepalive{bytes: keepaliveBytes}, nil
}

func (k *Keepalive) Type() Type    { return TypeKeepalive }
func (k *Keepalive) Bytes() []byte { return k.bytes }
