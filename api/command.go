// Package api parses the textual command language that external
// subscribers use to drive the reactor (announce/withdraw routes,
// inspect neighbor state, request teardown) and renders the JSON
// event stream subscribers read back.
package api

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/ebgpd/ebgpd/attribute"
	"github.com/ebgpd/ebgpd/bgp"
)

// Kind identifies the action a parsed Command requests.
type Kind int

const (
	KindAnnounce Kind = iota
	KindWithdraw
	KindAnnounceEOR
	KindAnnounceRefresh
	KindRoutesList
	KindRoutesAdd
	KindRoutesRemove
	KindShowNeighbor
	KindTeardown
	KindGroup
)

// Selector picks which configured neighbors a Command applies to.
type Selector struct {
	All  bool
	IPs  []net.IP
}

// Matches reports whether the selector covers the given neighbor address.
func (s Selector) Matches(addr net.IP) bool {
	if s.All {
		return true
	}
	for _, ip := range s.IPs {
		if ip.Equal(addr) {
			return true
		}
	}
	return false
}

// RouteSpec is a parsed `route ...` clause: a prefix NLRI with its
// encoding attributes. Families beyond plain/labeled unicast and VPN
// unicast are represented with Raw holding the unparsed remainder of
// the clause for a family-specific parser to finish later.
type RouteSpec struct {
	Family        bgp.Family
	Prefix        net.IP
	PrefixLength  int
	NextHop       net.IP
	Labels        []uint32
	RD            string
	PathInfo      uint32
	HasPathInfo   bool
	Attributes    []attribute.Attribute
	Raw           string
}

// Command is one parsed line of the command language (§6.3).
type Command struct {
	Kind     Kind
	Selector Selector
	Routes   []RouteSpec
	Family   bgp.Family
	IndexHex string
	Subcode  int
	Sub      []Command // KindGroup's batched sub-commands
}

// ParseLine parses one newline-stripped command line.
func ParseLine(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, fmt.Errorf("api: empty command")
	}
	if strings.Contains(line, ";") {
		parts := strings.Split(line, ";")
		var subs []Command
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			c, err := ParseLine(p)
			if err != nil {
				return Command{}, err
			}
			subs = append(subs, c)
		}
		return Command{Kind: KindGroup, Sub: subs}, nil
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("api: empty command")
	}

	switch fields[0] {
	case "show":
		if len(fields) >= 2 && fields[1] == "neighbor" {
			sel := Selector{All: true}
			if len(fields) >= 3 {
				sel = Selector{IPs: []net.IP{net.ParseIP(fields[2])}}
			}
			return Command{Kind: KindShowNeighbor, Selector: sel}, nil
		}
		return Command{}, fmt.Errorf("api: unrecognised show command %q", line)
	case "teardown":
		subcode := 0
		if len(fields) >= 2 {
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return Command{}, fmt.Errorf("api: bad teardown subcode %q: %w", fields[1], err)
			}
			subcode = n
		}
		return Command{Kind: KindTeardown, Selector: Selector{All: true}, Subcode: subcode}, nil
	case "peer":
		return parsePeerCommand(fields)
	default:
		return Command{}, fmt.Errorf("api: unrecognised command %q", fields[0])
	}
}

func parsePeerCommand(fields []string) (Command, error) {
	if len(fields) < 2 {
		return Command{}, fmt.Errorf("api: peer command missing selector")
	}
	sel, err := parseSelector(fields[1])
	if err != nil {
		return Command{}, err
	}
	if len(fields) < 3 {
		return Command{}, fmt.Errorf("api: peer command missing verb")
	}

	rest := fields[2:]
	switch rest[0] {
	case "announce":
		if len(rest) >= 3 && rest[1] == "eor" {
			f, err := parseFamilyToken(rest[2:])
			if err != nil {
				return Command{}, err
			}
			return Command{Kind: KindAnnounceEOR, Selector: sel, Family: f}, nil
		}
		if len(rest) >= 3 && rest[1] == "route-refresh" {
			f, err := parseFamilyToken(rest[2:])
			if err != nil {
				return Command{}, err
			}
			return Command{Kind: KindAnnounceRefresh, Selector: sel, Family: f}, nil
		}
		spec, err := ParseRouteSpec(strings.Join(rest[1:], " "))
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindAnnounce, Selector: sel, Routes: []RouteSpec{spec}}, nil
	case "withdraw":
		spec, err := ParseRouteSpec(strings.Join(rest[1:], " "))
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindWithdraw, Selector: sel, Routes: []RouteSpec{spec}}, nil
	case "routes":
		return parseRoutesCommand(sel, rest[1:])
	default:
		return Command{}, fmt.Errorf("api: unrecognised peer verb %q", rest[0])
	}
}

func parseRoutesCommand(sel Selector, rest []string) (Command, error) {
	if len(rest) == 0 {
		return Command{}, fmt.Errorf("api: routes command missing verb")
	}
	switch rest[0] {
	case "list":
		f := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}
		if len(rest) >= 3 {
			parsed, err := parseFamilyToken(rest[1:3])
			if err == nil {
				f = parsed
			}
		}
		return Command{Kind: KindRoutesList, Selector: sel, Family: f}, nil
	case "add":
		spec, err := ParseRouteSpec(strings.Join(rest[1:], " "))
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindRoutesAdd, Selector: sel, Routes: []RouteSpec{spec}}, nil
	case "remove":
		if len(rest) >= 2 && rest[1] == "index" {
			if len(rest) < 3 {
				return Command{}, fmt.Errorf("api: routes remove index missing hex value")
			}
			return Command{Kind: KindRoutesRemove, Selector: sel, IndexHex: rest[2]}, nil
		}
		spec, err := ParseRouteSpec(strings.Join(rest[1:], " "))
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindRoutesRemove, Selector: sel, Routes: []RouteSpec{spec}}, nil
	default:
		return Command{}, fmt.Errorf("api: unrecognised routes verb %q", rest[0])
	}
}

func parseSelector(token string) (Selector, error) {
	if token == "*" {
		return Selector{All: true}, nil
	}
	if strings.HasPrefix(token, "[") && strings.HasSuffix(token, "]") {
		inner := strings.Trim(token, "[]")
		var ips []net.IP
		for _, s := range strings.Split(inner, ",") {
			ip := net.ParseIP(strings.TrimSpace(s))
			if ip == nil {
				return Selector{}, fmt.Errorf("api: bad selector address %q", s)
			}
			ips = append(ips, ip)
		}
		return Selector{IPs: ips}, nil
	}
	ip := net.ParseIP(token)
	if ip == nil {
		return Selector{}, fmt.Errorf("api: bad selector %q", token)
	}
	return Selector{IPs: []net.IP{ip}}, nil
}

func parseFamilyToken(fields []string) (bgp.Family, error) {
	if len(fields) < 2 {
		return bgp.Family{}, fmt.Errorf("api: family token needs afi and safi")
	}
	afi, err := parseAFI(fields[0])
	if err != nil {
		return bgp.Family{}, err
	}
	safi, err := parseSAFI(fields[1])
	if err != nil {
		return bgp.Family{}, err
	}
	return bgp.Family{AFI: afi, SAFI: safi}, nil
}

func parseAFI(s string) (bgp.AFI, error) {
	switch s {
	case "ipv4":
		return bgp.AFIIPv4, nil
	case "ipv6":
		return bgp.AFIIPv6, nil
	case "l2vpn":
		return bgp.AFIL2VPN, nil
	default:
		return 0, fmt.Errorf("api: unrecognised afi %q", s)
	}
}

func parseSAFI(s string) (bgp.SAFI, error) {
	switch s {
	case "unicast":
		return bgp.SAFIUnicast, nil
	case "multicast":
		return bgp.SAFIMulticast, nil
	case "mpls-vpn", "vpn-unicast":
		return bgp.SAFIMPLSVPN, nil
	case "flow":
		return bgp.SAFIFlowSpec, nil
	case "evpn":
		return bgp.SAFIEVPN, nil
	default:
		return 0, fmt.Errorf("api: unrecognised safi %q", s)
	}
}

// ParseRouteSpec parses the `route <prefix> next-hop <ip> [...]` clause
// for plain, labeled (`label`) and VPN (`rd`) IPv4/IPv6 unicast. Flow,
// EVPN, VPLS and MUP route-specs are not structurally parsed; they are
// captured verbatim in Raw so a caller can reject or defer them explicitly.
func ParseRouteSpec(text string) (RouteSpec, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return RouteSpec{}, fmt.Errorf("api: empty route-spec")
	}

	family := bgp.Family{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}
	i := 0
	switch fields[0] {
	case "route":
		i++
	case "ipv6":
		family.AFI = bgp.AFIIPv6
		i++
		if i < len(fields) && fields[i] == "unicast" {
			i++
		}
	default:
		return RouteSpec{Raw: text}, nil
	}
	if i >= len(fields) {
		return RouteSpec{}, fmt.Errorf("api: route-spec missing prefix")
	}

	prefix, plen, err := parseCIDR(fields[i])
	if err != nil {
		return RouteSpec{}, err
	}
	i++

	spec := RouteSpec{Family: family, Prefix: prefix, PrefixLength: plen}

	for i < len(fields) {
		switch fields[i] {
		case "next-hop":
			if i+1 >= len(fields) {
				return RouteSpec{}, fmt.Errorf("api: next-hop missing address")
			}
			ip := net.ParseIP(fields[i+1])
			if ip == nil {
				return RouteSpec{}, fmt.Errorf("api: bad next-hop %q", fields[i+1])
			}
			spec.NextHop = ip
			i += 2
		case "label":
			if i+1 >= len(fields) {
				return RouteSpec{}, fmt.Errorf("api: label missing value")
			}
			for _, s := range strings.Split(fields[i+1], ",") {
				n, err := strconv.Atoi(s)
				if err != nil {
					return RouteSpec{}, fmt.Errorf("api: bad label %q: %w", s, err)
				}
				spec.Labels = append(spec.Labels, uint32(n))
			}
			family.SAFI = bgp.SAFIMPLS
			spec.Family = family
			i += 2
		case "rd":
			if i+1 >= len(fields) {
				return RouteSpec{}, fmt.Errorf("api: rd missing value")
			}
			spec.RD = fields[i+1]
			family.SAFI = bgp.SAFIMPLSVPN
			spec.Family = family
			i += 2
		case "path-information":
			if i+1 >= len(fields) {
				return RouteSpec{}, fmt.Errorf("api: path-information missing value")
			}
			n, err := strconv.ParseUint(fields[i+1], 10, 32)
			if err != nil {
				return RouteSpec{}, fmt.Errorf("api: bad path-information %q: %w", fields[i+1], err)
			}
			spec.PathInfo = uint32(n)
			spec.HasPathInfo = true
			i += 2
		case "origin":
			if i+1 >= len(fields) {
				return RouteSpec{}, fmt.Errorf("api: origin missing value")
			}
			v, err := parseOrigin(fields[i+1])
			if err != nil {
				return RouteSpec{}, err
			}
			spec.Attributes = append(spec.Attributes, attribute.NewOrigin(v))
			i += 2
		case "med":
			if i+1 >= len(fields) {
				return RouteSpec{}, fmt.Errorf("api: med missing value")
			}
			n, err := strconv.ParseUint(fields[i+1], 10, 32)
			if err != nil {
				return RouteSpec{}, fmt.Errorf("api: bad med %q: %w", fields[i+1], err)
			}
			spec.Attributes = append(spec.Attributes, attribute.NewMED(uint32(n)))
			i += 2
		case "local-pref":
			if i+1 >= len(fields) {
				return RouteSpec{}, fmt.Errorf("api: local-pref missing value")
			}
			n, err := strconv.ParseUint(fields[i+1], 10, 32)
			if err != nil {
				return RouteSpec{}, fmt.Errorf("api: bad local-pref %q: %w", fields[i+1], err)
			}
			spec.Attributes = append(spec.Attributes, attribute.NewLocalPref(uint32(n)))
			i += 2
		case "community":
			if i+1 >= len(fields) {
				return RouteSpec{}, fmt.Errorf("api: community missing value")
			}
			vals, err := parseCommunities(fields[i+1])
			if err != nil {
				return RouteSpec{}, err
			}
			spec.Attributes = append(spec.Attributes, attribute.NewCommunities(vals...))
			i += 2
		default:
			return RouteSpec{}, fmt.Errorf("api: unrecognised route-spec token %q", fields[i])
		}
	}

	return spec, nil
}

func parseCIDR(s string) (net.IP, int, error) {
	ip, network, err := net.ParseCIDR(s)
	if err != nil {
		return nil, 0, fmt.Errorf("api: bad prefix %q: %w", s, err)
	}
	ones, _ := network.Mask.Size()
	return ip, ones, nil
}

func parseOrigin(s string) (attribute.OriginValue, error) {
	switch s {
	case "igp":
		return attribute.OriginIGP, nil
	case "egp":
		return attribute.OriginEGP, nil
	case "incomplete":
		return attribute.OriginIncomplete, nil
	default:
		return 0, fmt.Errorf("api: unrecognised origin %q", s)
	}
}

func parseCommunities(s string) ([]uint32, error) {
	var out []uint32
	for _, tok := range strings.Split(s, ",") {
		parts := strings.SplitN(tok, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("api: bad community %q", tok)
		}
		hi, err := strconv.ParseUint(parts[0], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("api: bad community %q: %w", tok, err)
		}
		lo, err := strconv.ParseUint(parts[1], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("api: bad community %q: %w", tok, err)
		}
		out = append(out, uint32(hi)<<16|uint32(lo))
	}
	return out, nil
}
