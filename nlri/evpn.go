package nlri

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/qualifier"
)

// EVPNRouteType is the EVPN NLRI's own route-type octet (RFC 7432 §7).
type EVPNRouteType uint8

const (
	EVPNEthernetAutoDiscovery EVPNRouteType = 1
	EVPNMACIPAdvertisement    EVPNRouteType = 2
	EVPNInclusiveMulticastTag EVPNRouteType = 3
	EVPNEthernetSegment       EVPNRouteType = 4
	EVPNIPPrefix              EVPNRouteType = 5
)

// EVPNRoute is the common EVPN NLRI envelope: route type, length, then
// a type-specific value (RFC 7432 §7). Each concrete value is packed
// once and the envelope wraps it with the 2-byte header.
type EVPNRoute struct {
	family  bgp.Family
	rtype   EVPNRouteType
	value   []byte
	bytes   []byte
	summary string
}

func newEVPNRoute(rtype EVPNRouteType, value []byte, summary string) *EVPNRoute {
	b := make([]byte, 2+len(value))
	b[0] = byte(rtype)
	b[1] = byte(len(value))
	copy(b[2:], value)
	return &EVPNRoute{family: bgp.Family{AFI: bgp.AFIL2VPN, SAFI: bgp.SAFIEVPN}, rtype: rtype, value: value, bytes: b, summary: summary}
}

func (r *EVPNRoute) Family() bgp.Family   { return r.family }
func (r *EVPNRoute) Bytes() []byte        { return r.bytes }
func (r *EVPNRoute) Type() EVPNRouteType  { return r.rtype }
func (r *EVPNRoute) Value() []byte        { return r.value }
func (r *EVPNRoute) Index() string        { return string(r.bytes) }
func (r *EVPNRoute) String() string       { return r.summary }

// NewEthernetAutoDiscovery builds an EVPN Type-1 route (RFC 7432 §7.1):
// RD + ESI + Ethernet Tag ID + MPLS label.
func NewEthernetAutoDiscovery(rd qualifier.RD, esi qualifier.ESI, tag uint32, labels qualifier.Labels) *EVPNRoute {
	value := append([]byte{}, rd.Bytes()...)
	value = append(value, esi.Bytes()...)
	tagBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(tagBytes, tag)
	value = append(value, tagBytes...)
	value = append(value, labels.Bytes()...)
	return newEVPNRoute(EVPNEthernetAutoDiscovery, value, fmt.Sprintf("ead rd=%s esi=%s tag=%d", rd, esi, tag))
}

// NewMACIPAdvertisement builds an EVPN Type-2 route (RFC 7432 §7.2):
// RD + ESI + Ethernet Tag + MAC (+IP) + one or two labels.
func NewMACIPAdvertisement(rd qualifier.RD, esi qualifier.ESI, tag uint32, mac net.HardwareAddr, ip net.IP, labels qualifier.Labels) *EVPNRoute {
	value := append([]byte{}, rd.Bytes()...)
	value = append(value, esi.Bytes()...)
	tagBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(tagBytes, tag)
	value = append(value, tagBytes...)
	value = append(value, byte(len(mac)*8))
	value = append(value, mac...)
	if ip != nil {
		v4 := ip.To4()
		if v4 != nil {
			value = append(value, byte(32))
			value = append(value, v4...)
		} else {
			value = append(value, byte(128))
			value = append(value, ip.To16()...)
		}
	} else {
		value = append(value, 0)
	}
	value = append(value, labels.Bytes()...)
	return newEVPNRoute(EVPNMACIPAdvertisement, value, fmt.Sprintf("mac-ip rd=%s mac=%s ip=%s", rd, mac, ip))
}

// NewInclusiveMulticastTag builds an EVPN Type-3 route (RFC 7432 §7.3):
// RD + Ethernet Tag + originator IP.
func NewInclusiveMulticastTag(rd qualifier.RD, tag uint32, originator net.IP) *EVPNRoute {
	value := append([]byte{}, rd.Bytes()...)
	tagBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(tagBytes, tag)
	value = append(value, tagBytes...)
	v4 := originator.To4()
	if v4 != nil {
		value = append(value, byte(32))
		value = append(value, v4...)
	} else {
		value = append(value, byte(128))
		value = append(value, originator.To16()...)
	}
	return newEVPNRoute(EVPNInclusiveMulticastTag, value, fmt.Sprintf("imet rd=%s tag=%d originator=%s", rd, tag, originator))
}

// NewEthernetSegment builds an EVPN Type-4 route (RFC 7432 §7.4):
// RD + ESI + originator IP.
func NewEthernetSegment(rd qualifier.RD, esi qualifier.ESI, originator net.IP) *EVPNRoute {
	value := append([]byte{}, rd.Bytes()...)
	value = append(value, esi.Bytes()...)
	v4 := originator.To4()
	if v4 != nil {
		value = append(value, byte(32))
		value = append(value, v4...)
	} else {
		value = append(value, byte(128))
		value = append(value, originator.To16()...)
	}
	return newEVPNRoute(EVPNEthernetSegment, value, fmt.Sprintf("es rd=%s esi=%s originator=%s", rd, esi, originator))
}

// NewEVPNIPPrefix builds an EVPN Type-5 route (RFC 9136 §3): RD + ESI
// + Ethernet Tag + IP prefix + gateway IP + label.
func NewEVPNIPPrefix(rd qualifier.RD, esi qualifier.ESI, tag uint32, ip net.IP, length int, gateway net.IP, labels qualifier.Labels) *EVPNRoute {
	value := append([]byte{}, rd.Bytes()...)
	value = append(value, esi.Bytes()...)
	tagBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(tagBytes, tag)
	value = append(value, tagBytes...)
	value = append(value, byte(length))
	v4 := ip.To4()
	gw := gateway.To4()
	width := 4
	if v4 == nil {
		width = 16
		v4 = ip.To16()
		gw = gateway.To16()
	}
	padded := make([]byte, width)
	copy(padded, v4)
	value = append(value, padded...)
	gwPadded := make([]byte, width)
	copy(gwPadded, gw)
	value = append(value, gwPadded...)
	value = append(value, labels.Bytes()...)
	return newEVPNRoute(EVPNIPPrefix, value, fmt.Sprintf("ip-prefix rd=%s %s/%d", rd, ip, length))
}

// UnpackEVPNRoute reads one EVPN NLRI off b, returning the generic
// envelope and bytes consumed. Field-level decoding of the type-
// specific value is left to callers that need it (the RIB and
// forwarding path only need Bytes()/Index()), matching this codec's
// general pass-through policy for variants not central to the session
// and Decision Process logic.
func UnpackEVPNRoute(b []byte) (*EVPNRoute, int, error) {
	if len(b) < 2 {
		return nil, 0, nlriErr("EVPN NLRI header truncated", b)
	}
	rtype := EVPNRouteType(b[0])
	length := int(b[1])
	if len(b) < 2+length {
		return nil, 0, nlriErr("EVPN NLRI runs past end of buffer", b)
	}
	value := append([]byte{}, b[2:2+length]...)
	return newEVPNRoute(rtype, value, fmt.Sprintf("evpn-type-%d", rtype)), 2 + length, nil
}
