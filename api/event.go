package api

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/ebgpd/ebgpd/attribute"
	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/nlri"
)

// EventType names one entry in the subscriber-facing event taxonomy.
type EventType string

const (
	EventState       EventType = "state"
	EventUpdate      EventType = "update"
	EventRefresh     EventType = "refresh"
	EventNotification EventType = "notification"
	EventOpen        EventType = "open"
	EventKeepalive   EventType = "keepalive"
	EventOperational EventType = "operational"
	EventShutdown    EventType = "shutdown"
)

// Direction distinguishes a received UPDATE from one this process sent.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// NeighborRef identifies the session an event belongs to.
type NeighborRef struct {
	IP  net.IP
	ASN bgp.ASN
}

// Event is the subscriber-facing envelope; Payload holds type-specific
// fields and is marshaled inline by MarshalJSON.
type Event struct {
	Neighbor  NeighborRef
	Type      EventType
	Direction Direction
	Time      time.Time
	Payload   map[string]interface{}
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"neighbor": map[string]interface{}{
			"ip":  e.Neighbor.IP.String(),
			"asn": uint32(e.Neighbor.ASN),
		},
		"type": string(e.Type),
		"time": e.Time.Format(time.RFC3339Nano),
	}
	if e.Direction != "" {
		out["direction"] = string(e.Direction)
	}
	for k, v := range e.Payload {
		out[k] = v
	}
	return json.Marshal(out)
}

// NewStateEvent reports an FSM transition.
func NewStateEvent(ref NeighborRef, at time.Time, from, to string) Event {
	return Event{
		Neighbor: ref,
		Type:     EventState,
		Time:     at,
		Payload:  map[string]interface{}{"from": from, "to": to},
	}
}

// NewShutdownEvent reports a neighbor being torn down.
func NewShutdownEvent(ref NeighborRef, at time.Time, reason string) Event {
	return Event{
		Neighbor: ref,
		Type:     EventShutdown,
		Time:     at,
		Payload:  map[string]interface{}{"reason": reason},
	}
}

// NewOperationalEvent reports a log-worthy condition that has no
// dedicated event shape of its own (a failed dial, a rejected command,
// a malformed message logged and dropped), for subscribers watching
// only the event stream rather than the process's own logs.
func NewOperationalEvent(ref NeighborRef, at time.Time, level, message string) Event {
	return Event{
		Neighbor: ref,
		Type:     EventOperational,
		Time:     at,
		Payload:  map[string]interface{}{"level": level, "message": message},
	}
}

// NewNotificationEvent reports a sent or received NOTIFICATION.
func NewNotificationEvent(ref NeighborRef, at time.Time, dir Direction, code, subcode int) Event {
	return Event{
		Neighbor:  ref,
		Type:      EventNotification,
		Direction: dir,
		Time:      at,
		Payload:   map[string]interface{}{"code": code, "subcode": subcode},
	}
}

// familyKey renders a family as the canonical textual key used across
// the command and event surfaces, e.g. "ipv4 unicast", "ipv6 flow".
func familyKey(family bgp.Family) string {
	afi := "unknown"
	switch family.AFI {
	case bgp.AFIIPv4:
		afi = "ipv4"
	case bgp.AFIIPv6:
		afi = "ipv6"
	case bgp.AFIL2VPN:
		afi = "l2vpn"
	}
	safi := "unknown"
	switch family.SAFI {
	case bgp.SAFIUnicast:
		safi = "unicast"
	case bgp.SAFIMulticast:
		safi = "multicast"
	case bgp.SAFIMPLS:
		safi = "mpls-unicast"
	case bgp.SAFIMPLSVPN:
		safi = "mpls-vpn"
	case bgp.SAFIEVPN:
		safi = "evpn"
	case bgp.SAFIFlowSpec:
		safi = "flow"
	case bgp.SAFIFlowSpecVPN:
		safi = "flow-vpn"
	case bgp.SAFIMCastVPN:
		safi = "mcast-vpn"
	case bgp.SAFIVPLS:
		safi = "vpls"
	case bgp.SAFIBGPLS:
		safi = "bgp-ls"
	case bgp.SAFIBGPLSVPN:
		safi = "bgp-ls-vpn"
	case bgp.SAFIMUP:
		safi = "mup"
	case bgp.SAFIRTC:
		safi = "rtc"
	}
	return afi + " " + safi
}

// NewUpdateEvent renders a received or sent UPDATE as the §6.4 JSON
// shape: a family-keyed map of NLRI string to the attributes attached
// to it for announcements, and a family-keyed list of NLRI strings for
// withdrawals.
func NewUpdateEvent(ref NeighborRef, at time.Time, dir Direction, family bgp.Family, announced map[nlri.NLRI]*attribute.Collection, withdrawn []nlri.NLRI) Event {
	payload := map[string]interface{}{}
	if len(announced) > 0 {
		group := map[string]interface{}{}
		for n, attrs := range announced {
			group[n.String()] = renderAttributes(attrs)
		}
		payload["announce"] = map[string]interface{}{familyKey(family): group}
	}
	if len(withdrawn) > 0 {
		var keys []string
		for _, n := range withdrawn {
			keys = append(keys, n.String())
		}
		payload["withdraw"] = map[string]interface{}{familyKey(family): keys}
	}
	return Event{Neighbor: ref, Type: EventUpdate, Direction: dir, Time: at, Payload: payload}
}

// renderAttributes maps each attribute to its canonical textual form
// where one is defined (ASN lists, community X:Y); anything without a
// defined rendering falls back to attribute-0xNN <hex>.
func renderAttributes(attrs *attribute.Collection) map[string]interface{} {
	out := map[string]interface{}{}
	for _, a := range attrs.All() {
		switch v := a.(type) {
		case *attribute.Origin:
			out["origin"] = v.Value().String()
		case *attribute.ASPath:
			out["as-path"] = renderASPath(v)
		case *attribute.NextHop:
			out["next-hop"] = v.IP().String()
		case *attribute.MED:
			out["med"] = v.Value()
		case *attribute.LocalPref:
			out["local-pref"] = v.Value()
		case *attribute.Communities:
			out["community"] = renderCommunities(v)
		default:
			out[fmt.Sprintf("attribute-0x%02x", byte(a.Code()))] = fmt.Sprintf("%x", a.Bytes())
		}
	}
	return out
}

func renderASPath(p *attribute.ASPath) []string {
	var out []string
	for _, seg := range p.Segments() {
		for _, asn := range seg.ASNs {
			out = append(out, asn.String())
		}
	}
	return out
}

func renderCommunities(c *attribute.Communities) []string {
	var out []string
	for _, v := range c.Values() {
		out = append(out, fmt.Sprintf("%d:%d", v>>16, v&0xffff))
	}
	return out
}
