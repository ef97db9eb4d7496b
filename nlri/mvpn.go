package nlri

import (
	"fmt"

	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/qualifier"
)

// MVPNRouteType is the MVPN NLRI's route-type octet (RFC 6514 §4).
type MVPNRouteType uint8

const (
	MVPNIntraASIPMSIAD MVPNRouteType = 1
	MVPNInterASIPMSIAD  MVPNRouteType = 2
	MVPNSourceActive    MVPNRouteType = 5
)

// MVPNRoute is the common MVPN NLRI envelope: route type, length, then
// a type-specific value (RFC 6514 §4).
type MVPNRoute struct {
	rtype MVPNRouteType
	value []byte
	bytes []byte
}

func newMVPNRoute(rtype MVPNRouteType, value []byte) *MVPNRoute {
	b := make([]byte, 2+len(value))
	b[0] = byte(rtype)
	b[1] = byte(len(value))
	copy(b[2:], value)
	return &MVPNRoute{rtype: rtype, value: value, bytes: b}
}

// NewIntraASIPMSIAD builds an MVPN Type-1 Intra-AS I-PMSI A-D route
// (RFC 6514 §4.1): RD + originating router's IP.
func NewIntraASIPMSIAD(rd qualifier.RD, originator []byte) *MVPNRoute {
	value := append(append([]byte{}, rd.Bytes()...), originator...)
	return newMVPNRoute(MVPNIntraASIPMSIAD, value)
}

// NewInterASIPMSIAD builds an MVPN Type-2 Inter-AS I-PMSI A-D route
// (RFC 6514 §4.2): RD + source AS.
func NewInterASIPMSIAD(rd qualifier.RD, sourceAS bgp.ASN) *MVPNRoute {
	value := append(append([]byte{}, rd.Bytes()...), sourceAS.Bytes4()...)
	return newMVPNRoute(MVPNInterASIPMSIAD, value)
}

// NewSourceActive builds an MVPN Type-5 Source-Active A-D route (RFC
// 6514 §4.5): RD + multicast source + multicast group.
func NewSourceActive(rd qualifier.RD, source, group []byte) *MVPNRoute {
	value := append(append([]byte{}, rd.Bytes()...), byte(len(source)*8))
	value = append(value, source...)
	value = append(value, byte(len(group)*8))
	value = append(value, group...)
	return newMVPNRoute(MVPNSourceActive, value)
}

func (r *MVPNRoute) Family() bgp.Family {
	return bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIMCastVPN}
}
func (r *MVPNRoute) Bytes() []byte       { return r.bytes }
func (r *MVPNRoute) Type() MVPNRouteType { return r.rtype }
func (r *MVPNRoute) Index() string       { return string(r.bytes) }
func (r *MVPNRoute) String() string      { return fmt.Sprintf("mvpn-type-%d", r.rtype) }

func UnpackMVPNRoute(b []byte) (*MVPNRoute, int, error) {
	if len(b) < 2 {
		return nil, 0, nlriErr("MVPN NLRI header truncated", b)
	}
	rtype := MVPNRouteType(b[0])
	length := int(b[1])
	if len(b) < 2+length {
		return nil, 0, nlriErr("MVPN NLRI runs past end of buffer", b)
	}
	return newMVPNRoute(rtype, append([]byte{}, b[2:2+length]...)), 2 + length, nil
}

// MUPRouteType is the MUP NLRI's architecture-type/route-type pair
// (draft-mpmz-bess-mup-safi §3).
type MUPRouteType uint8

const (
	MUPInterworkSegmentDiscovery MUPRouteType = 1
	MUPDirectSegmentDiscovery    MUPRouteType = 2
	MUPType1SessionTransformed   MUPRouteType = 3
	MUPType2SessionTransformed   MUPRouteType = 4
)

// MUPRoute is the common Mobile User Plane NLRI envelope: architecture
// type, route type, length, then a type-specific value.
type MUPRoute struct {
	archType byte
	rtype    MUPRouteType
	value    []byte
	bytes    []byte
}

// NewMUPRoute builds a MUP NLRI. archType follows the "BGP Mobile User
// Plane (MUP) SAFI Architecture Types" registry (3GPP 5G = 1).
func NewMUPRoute(archType byte, rtype MUPRouteType, rd qualifier.RD, value []byte) *MUPRoute {
	full := append(append([]byte{}, rd.Bytes()...), value...)
	b := make([]byte, 3+len(full))
	b[0] = archType
	b[1] = byte(rtype)
	b[2] = byte(len(full))
	copy(b[3:], full)
	return &MUPRoute{archType: archType, rtype: rtype, value: full, bytes: b}
}

func (r *MUPRoute) Family() bgp.Family {
	return bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIMUP}
}
func (r *MUPRoute) Bytes() []byte        { return r.bytes }
func (r *MUPRoute) Type() MUPRouteType   { return r.rtype }
func (r *MUPRoute) ArchType() byte       { return r.archType }
func (r *MUPRoute) Index() string        { return string(r.bytes) }
func (r *MUPRoute) String() string       { return fmt.Sprintf("mup-arch-%d-type-%d", r.archType, r.rtype) }

func UnpackMUPRoute(b []byte) (*MUPRoute, int, error) {
	if len(b) < 3 {
		return nil, 0, nlriErr("MUP NLRI header truncated", b)
	}
	archType := b[0]
	rtype := MUPRouteType(b[1])
	length := int(b[2])
	if len(b) < 3+length {
		return nil, 0, nlriErr("MUP NLRI runs past end of buffer", b)
	}
	value := append([]byte{}, b[3:3+length]...)
	bCopy := append([]byte{}, b[:3+length]...)
	return &MUPRoute{archType: archType, rtype: rtype, value: value, bytes: bCopy}, 3 + length, nil
}
