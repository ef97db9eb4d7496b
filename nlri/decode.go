package nlri

import (
	"fmt"

	"github.com/ebgpd/ebgpd/bgp"
)

// Decode dispatches to the right Unpack* function for family and
// returns one decoded NLRI plus the number of bytes it consumed from
// b. withdraw distinguishes the VPN/labeled encodings' "compatibility"
// vs "withdraw" label forms (RFC 3107 §3, RFC 4659).
func Decode(family bgp.Family, b []byte, withdraw bool) (NLRI, int, error) {
	switch family.SAFI {
	case bgp.SAFIUnicast, bgp.SAFIMulticast:
		return UnpackPrefix(family, b)
	case bgp.SAFIMPLS:
		return UnpackLabeledPrefix(family, b, withdraw)
	case bgp.SAFIMPLSVPN:
		return UnpackVPNPrefix(family, b, withdraw)
	case bgp.SAFIEVPN:
		return UnpackEVPNRoute(b)
	case bgp.SAFIBGPLS, bgp.SAFIBGPLSVPN:
		return UnpackLinkStateNLRI(b)
	case bgp.SAFIMCastVPN:
		return UnpackMVPNRoute(b)
	case bgp.SAFIMUP:
		return UnpackMUPRoute(b)
	case bgp.SAFIRTC:
		return UnpackRTCRoute(b)
	case bgp.SAFIVPLS:
		return UnpackVPLSRoute(b)
	case bgp.SAFIFlowSpec, bgp.SAFIFlowSpecVPN:
		return UnpackRule(family, b)
	default:
		return nil, 0, fmt.Errorf("nlri: no decoder registered for family %s", family)
	}
}

// DecodeAll repeatedly applies Decode to b until it is exhausted,
// returning every NLRI found in order. Used for both the legacy
// NLRI/withdrawn-routes sections (always IPv4 unicast) and the
// packed NLRI sequence inside MP_REACH_NLRI/MP_UNREACH_NLRI.
func DecodeAll(family bgp.Family, b []byte, withdraw bool) ([]NLRI, error) {
	var out []NLRI
	for len(b) > 0 {
		n, consumed, err := Decode(family, b, withdraw)
		if err != nil {
			return out, err
		}
		if consumed <= 0 {
			return out, fmt.Errorf("nlri: decoder for family %s made no progress", family)
		}
		out = append(out, n)
		b = b[consumed:]
	}
	return out, nil
}
