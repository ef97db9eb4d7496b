package message

import "github.com/ebgpd/ebgpd/bgp"

// RefreshSubtype distinguishes a normal route-refresh request from the
// Begin-of-RIB / End-of-RIB markers Enhanced Route Refresh adds (RFC
// 7313 §3).
type RefreshSubtype byte

const (
	RefreshNormal RefreshSubtype = 0
	RefreshBeginOfRIB RefreshSubtype = 1
	RefreshEndOfRIB    RefreshSubtype = 2
)

// RouteRefresh is the ROUTE-REFRESH message (RFC 2918 §3, subtype
// field added by RFC 7313 §3).
type RouteRefresh struct {
	family  bgp.Family
	subtype RefreshSubtype
	bytes   []byte
}

func NewRouteRefresh(family bgp.Family, subtype RefreshSubtype) *RouteRefresh {
	fam := family.Pack()
	body := []byte{fam[0], fam[1], byte(subtype), fam[2]}
	return &RouteRefresh{family: family, subtype: subtype, bytes: append(header(TypeRouteRefresh, len(body)), body...)}
}

const MinRouteRefreshLength = 4

func ParseRouteRefresh(body []byte) (*RouteRefresh, error) {
	if len(body) != MinRouteRefreshLength {
		return nil, headerErr("ROUTE-REFRESH body must be exactly 4 octets", body)
	}
	family := bgp.Family{AFI: bgp.AFI(uint16(body[0])<<8 | uint16(body[1])), SAFI: bgp.SAFI(body[3])}
	full := append(header(TypeRouteRefresh, len(body)), body...)
	return &RouteRefresh{family: family, subtype: RefreshSubtype(body[2]), bytes: full}, nil
}

func (r *RouteRefresh) Type() Type              { return TypeRouteRefresh }
func (r *RouteRefresh) Bytes() []byte           { return r.bytes }
func (r *RouteRefresh) Family() bgp.Family      { return r.family }
func (r *RouteRefresh) Subtype() RefreshSubtype { return r.subtype }
