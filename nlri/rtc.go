package nlri

import (
	"fmt"

	"github.com/ebgpd/ebgpd/bgp"
)

// RTCRoute is a Route Target membership NLRI (RFC 4684 §4): origin AS
// plus an 8-byte Route Target extended community value, or a
// zero-length "default route" wildcard used to request all RTC
// routes from a peer.
type RTCRoute struct {
	originAS bgp.ASN
	rt       [8]byte
	wildcard bool
	bytes    []byte
}

func NewRTCRoute(originAS bgp.ASN, rt [8]byte) *RTCRoute {
	value := append(originAS.Bytes4(), rt[:]...)
	b := append([]byte{byte(len(value) * 8)}, value...)
	return &RTCRoute{originAS: originAS, rt: rt, bytes: b}
}

// NewRTCWildcard builds the zero-prefix-length default route used to
// subscribe to a peer's entire Route Target membership advertisement
// set (RFC 4684 §4).
func NewRTCWildcard() *RTCRoute {
	return &RTCRoute{wildcard: true, bytes: []byte{0}}
}

func (r *RTCRoute) Family() bgp.Family {
	return bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIRTC}
}
func (r *RTCRoute) Bytes() []byte    { return r.bytes }
func (r *RTCRoute) OriginAS() bgp.ASN { return r.originAS }
func (r *RTCRoute) RT() [8]byte      { return r.rt }
func (r *RTCRoute) Wildcard() bool   { return r.wildcard }
func (r *RTCRoute) Index() string    { return string(r.bytes) }
func (r *RTCRoute) String() string {
	if r.wildcard {
		return "rtc-wildcard"
	}
	return fmt.Sprintf("rtc origin-as=%s rt=%x", r.originAS, r.rt)
}

func UnpackRTCRoute(b []byte) (*RTCRoute, int, error) {
	if len(b) < 1 {
		return nil, 0, nlriErr("RTC NLRI truncated", b)
	}
	bits := int(b[0])
	if bits == 0 {
		return &RTCRoute{wildcard: true, bytes: b[:1]}, 1, nil
	}
	n := cidrBytes(bits)
	if len(b) < 1+n || n != 12 {
		return nil, 0, nlriErr("RTC NLRI has unexpected length", b)
	}
	value := b[1 : 1+n]
	originAS := bgp.ASN4(value[:4])
	var rt [8]byte
	copy(rt[:], value[4:12])
	return &RTCRoute{originAS: originAS, rt: rt, bytes: b[:1+n]}, 1 + n, nil
}

// VPLSRoute is a VPLS NLRI (RFC 4761 §3.2.1): RD, VE ID, VE block
// offset/size, and label base. Kept as a flat packed struct; labels
// are computed per-VE by the PE on assignment, not re-derived here.
type VPLSRoute struct {
	bytes []byte
}

func NewVPLSRoute(rdBytes [8]byte, veID, veBlockOffset, veBlockSize uint16, labelBase uint32) *VPLSRoute {
	value := make([]byte, 8+2+2+2+3)
	copy(value[0:8], rdBytes[:])
	value[8], value[9] = byte(veID>>8), byte(veID)
	value[10], value[11] = byte(veBlockOffset>>8), byte(veBlockOffset)
	value[12], value[13] = byte(veBlockSize>>8), byte(veBlockSize)
	labelEntry := labelBase << 4
	value[14], value[15], value[16] = byte(labelEntry>>16), byte(labelEntry>>8), byte(labelEntry)
	b := append([]byte{byte(len(value) * 8)}, value...)
	return &VPLSRoute{bytes: b}
}

func (v *VPLSRoute) Family() bgp.Family {
	return bgp.Family{AFI: bgp.AFIL2VPN, SAFI: bgp.SAFIVPLS}
}
func (v *VPLSRoute) Bytes() []byte { return v.bytes }
func (v *VPLSRoute) Index() string { return string(v.bytes) }
func (v *VPLSRoute) String() string { return "vpls" }

func UnpackVPLSRoute(b []byte) (*VPLSRoute, int, error) {
	if len(b) < 1 {
		return nil, 0, nlriErr("VPLS NLRI truncated", b)
	}
	n := cidrBytes(int(b[0]))
	if len(b) < 1+n {
		return nil, 0, nlriErr("VPLS NLRI runs past end of buffer", b)
	}
	return &VPLSRoute{bytes: b[:1+n]}, 1 + n, nil
}
