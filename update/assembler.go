// Package update assembles UPDATE message bodies from an Adj-RIB-Out
// drain: grouping announces sharing a next-hop, choosing between
// legacy IPv4 withdrawn-routes/NLRI placement and MP_REACH_NLRI/
// MP_UNREACH_NLRI for every other family, and fragmenting each group
// to fit the session's negotiated message size.
package update

import (
	"fmt"
	"net"

	"github.com/ebgpd/ebgpd/attribute"
	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/message"
	"github.com/ebgpd/ebgpd/nlri"
	"github.com/ebgpd/ebgpd/rib"
)

// Negotiated carries the per-session values the assembler needs that
// are not already folded into a per-family bgp.OpenContext: the
// message size ceiling and the context to use for each family the
// session has agreed to exchange.
type Negotiated struct {
	MsgSize  int
	Contexts map[bgp.Family]bgp.OpenContext
}

// Context returns the OpenContext for family, falling back to a bare
// context carrying just the family and message size if the session
// never negotiated that family (should not happen for a family with
// queued routes, but the assembler must not panic on it).
func (n Negotiated) Context(family bgp.Family) bgp.OpenContext {
	if c, ok := n.Contexts[family]; ok {
		return c
	}
	return bgp.OpenContext{AFI: family.AFI, SAFI: family.SAFI, MsgSize: n.MsgSize}
}

// Assembler turns rib.DrainItems into ready-to-write UPDATE messages.
type Assembler struct {
	negotiated Negotiated
}

func NewAssembler(n Negotiated) *Assembler {
	return &Assembler{negotiated: n}
}

// Assemble packs one DrainItem into one or more UPDATE messages.
func (a *Assembler) Assemble(item rib.DrainItem) ([]*message.Update, error) {
	ctx := a.negotiated.Context(item.Family)
	switch item.Kind {
	case rib.DrainWithdraw:
		return a.assembleWithdraw(ctx, item)
	case rib.DrainAnnounce:
		return a.assembleAnnounce(ctx, item)
	default:
		return nil, fmt.Errorf("update: unknown drain kind %d", item.Kind)
	}
}

func useLegacy(ctx bgp.OpenContext) bool {
	return ctx.Family().IsIPv4Unicast() && !ctx.AddPathSend
}

// vpnSAFI reports whether family's next-hop must be prefixed with an
// 8-octet Route Distinguisher of all zeros ahead of the address
// itself (RFC 4364 §4.3.2 "the VPN-IPv4 address... RD is set to
// zero"), the shape Scenario E exercises for MPLS-VPN.
func vpnSAFI(safi bgp.SAFI) bool {
	switch safi {
	case bgp.SAFIMPLSVPN, bgp.SAFIMCastVPN, bgp.SAFIBGPLSVPN, bgp.SAFIFlowSpecVPN:
		return true
	default:
		return false
	}
}

func nextHopBytes(family bgp.Family, nexthop net.IP) []byte {
	width := 4
	if family.AFI == bgp.AFIIPv6 {
		width = 16
	}
	addr := nexthop.To4()
	if width == 16 {
		addr = nexthop.To16()
	}
	if vpnSAFI(family.SAFI) {
		out := make([]byte, 8, 8+width)
		return append(out, addr...)
	}
	return append([]byte{}, addr...)
}

func withExtra(base *attribute.Collection, extra attribute.Attribute) (*attribute.Collection, error) {
	var attrs []attribute.Attribute
	if base != nil {
		attrs = append(attrs, base.All()...)
	}
	attrs = append(attrs, extra)
	return attribute.NewCollection(attrs)
}

// withASPath fills in the well-known mandatory AS_PATH (RFC 4271
// §5.1.2) from the session context rather than the RIB entry, since
// whether to prepend the local AS depends on the peer this UPDATE is
// being assembled for: an iBGP session sends an empty AS_PATH, an
// eBGP session prepends exactly one hop, the local AS. A base that
// already carries an AS_PATH (e.g. a route reflected from elsewhere)
// is left alone.
func withASPath(base *attribute.Collection, ctx bgp.OpenContext) (*attribute.Collection, error) {
	if base != nil {
		if _, ok := base.Get(attribute.CodeASPath); ok {
			return base, nil
		}
	}
	var segments []attribute.Segment
	if !ctx.IsIBGP() {
		segments = []attribute.Segment{{Type: attribute.SegmentASSequence, ASNs: []bgp.ASN{ctx.LocalAS}}}
	}
	return withExtra(base, attribute.NewASPath(ctx, segments))
}

func (a *Assembler) assembleAnnounce(ctx bgp.OpenContext, item rib.DrainItem) ([]*message.Update, error) {
	byNextHop := map[string][]*rib.Route{}
	var order []string
	for _, route := range item.Routes {
		key := route.NextHop().String()
		if _, seen := byNextHop[key]; !seen {
			order = append(order, key)
		}
		byNextHop[key] = append(byNextHop[key], route)
	}

	var updates []*message.Update
	for _, key := range order {
		routes := byNextHop[key]
		var batch []*message.Update
		var err error
		if useLegacy(ctx) {
			batch, err = a.packAnnounceLegacy(ctx, item.Attributes, routes[0].NextHop(), routes)
		} else {
			batch, err = a.packAnnounceMP(ctx, item.Attributes, item.Family, routes[0].NextHop(), routes)
		}
		if err != nil {
			return nil, err
		}
		updates = append(updates, batch...)
	}
	return updates, nil
}

func (a *Assembler) packAnnounceLegacy(ctx bgp.OpenContext, base *attribute.Collection, nexthop net.IP, routes []*rib.Route) ([]*message.Update, error) {
	base, err := withASPath(base, ctx)
	if err != nil {
		return nil, err
	}
	attrs, err := withExtra(base, attribute.NewNextHop(nexthop))
	if err != nil {
		return nil, err
	}
	budget := ctx.MsgSize - message.HeaderLength - 2 - 2 - len(attrs.Bytes())
	if budget <= 0 {
		return nil, fmt.Errorf("update: attribute set leaves no room for NLRI within message size %d", ctx.MsgSize)
	}

	var updates []*message.Update
	var nlriBuf []byte
	flush := func() {
		if len(nlriBuf) == 0 {
			return
		}
		updates = append(updates, message.NewUpdate(nil, attrs, nlriBuf))
		nlriBuf = nil
	}
	for _, route := range routes {
		b := route.NLRI().Bytes()
		if len(nlriBuf) > 0 && len(nlriBuf)+len(b) > budget {
			flush()
		}
		nlriBuf = append(nlriBuf, b...)
	}
	flush()
	return updates, nil
}

func (a *Assembler) packAnnounceMP(ctx bgp.OpenContext, base *attribute.Collection, family bgp.Family, nexthop net.IP, routes []*rib.Route) ([]*message.Update, error) {
	base, err := withASPath(base, ctx)
	if err != nil {
		return nil, err
	}
	nh := nextHopBytes(family, nexthop)

	var updates []*message.Update
	var batch [][]byte
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		mp := attribute.NewMPReach(family, nh, nil, batch)
		attrs, err := withExtra(base, mp)
		if err != nil {
			return err
		}
		updates = append(updates, message.NewUpdate(nil, attrs, nil))
		batch = nil
		return nil
	}

	for _, route := range routes {
		b := route.NLRI().Bytes()
		if ctx.AddPathSend {
			b = nlri.PathAddressed{PathID: route.PathID(), NLRI: route.NLRI()}.Bytes()
		}
		candidate := append(append([][]byte{}, batch...), b)
		trial, err := withExtra(base, attribute.NewMPReach(family, nh, nil, candidate))
		if err != nil {
			return nil, err
		}
		total := message.HeaderLength + 2 + 2 + len(trial.Bytes())
		if total > ctx.MsgSize && len(batch) > 0 {
			if err := flush(); err != nil {
				return nil, err
			}
			candidate = [][]byte{b}
		}
		batch = candidate
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return updates, nil
}

func (a *Assembler) assembleWithdraw(ctx bgp.OpenContext, item rib.DrainItem) ([]*message.Update, error) {
	if useLegacy(ctx) {
		return a.packWithdrawLegacy(ctx, item.Withdrawn)
	}
	return a.packWithdrawMP(ctx, item.Family, item.Withdrawn)
}

func (a *Assembler) packWithdrawLegacy(ctx bgp.OpenContext, withdrawn []nlri.NLRI) ([]*message.Update, error) {
	budget := ctx.MsgSize - message.HeaderLength - 2 - 2
	if budget <= 0 {
		return nil, fmt.Errorf("update: negotiated message size %d too small for any withdraw", ctx.MsgSize)
	}

	var updates []*message.Update
	var withdrawnBuf []byte
	flush := func() {
		if len(withdrawnBuf) == 0 {
			return
		}
		updates = append(updates, message.NewUpdate(withdrawnBuf, nil, nil))
		withdrawnBuf = nil
	}
	for _, n := range withdrawn {
		b := n.Bytes()
		if len(withdrawnBuf) > 0 && len(withdrawnBuf)+len(b) > budget {
			flush()
		}
		withdrawnBuf = append(withdrawnBuf, b...)
	}
	flush()
	return updates, nil
}

func (a *Assembler) packWithdrawMP(ctx bgp.OpenContext, family bgp.Family, withdrawn []nlri.NLRI) ([]*message.Update, error) {
	var updates []*message.Update
	var batch [][]byte
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		mp := attribute.NewMPUnreach(family, batch)
		attrs, err := attribute.NewCollection([]attribute.Attribute{mp})
		if err != nil {
			return err
		}
		updates = append(updates, message.NewUpdate(nil, attrs, nil))
		batch = nil
		return nil
	}

	for _, n := range withdrawn {
		b := n.Bytes()
		if ctx.AddPathSend {
			b = nlri.PathAddressed{PathID: 0, NLRI: n}.Bytes()
		}
		candidate := append(append([][]byte{}, batch...), b)
		mp := attribute.NewMPUnreach(family, candidate)
		trial, err := attribute.NewCollection([]attribute.Attribute{mp})
		if err != nil {
			return nil, err
		}
		total := message.HeaderLength + 2 + 2 + len(trial.Bytes())
		if total > ctx.MsgSize && len(batch) > 0 {
			if err := flush(); err != nil {
				return nil, err
			}
			candidate = [][]byte{b}
		}
		batch = candidate
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return updates, nil
}
