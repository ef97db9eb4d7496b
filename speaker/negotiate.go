package speaker

import (
	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/capability"
)

// Negotiated is the outcome of intersecting the local and remote
// OPEN capability sets for one session: per-family contexts ready to
// hand to the codec and the UPDATE assembler, plus the session-wide
// facts (ASN4, extended message size) those contexts are built from.
type Negotiated struct {
	ASN4             bool
	ExtendedMsg      bool
	MsgSize          int
	Families         []bgp.Family
	RouteRefresh     bool
	EnhancedRR       bool
	Contexts         map[bgp.Family]bgp.OpenContext
	GracefulFamilies []capability.GracefulRestartFamily
}

// Negotiate intersects local and remote capability sets per RFC 5492:
// the effective capability for a family is present only when both
// sides advertised it, and ADD-PATH direction inverts across the wire
// (the peer's "send" is the local side's "receive").
func Negotiate(localAS, peerAS bgp.ASN, local, remote []capability.Capability) Negotiated {
	n := Negotiated{
		MsgSize:  bgp.DefaultMaxMessageSize,
		Contexts: map[bgp.Family]bgp.OpenContext{},
	}

	localFamilies := multiprotoFamilies(local)
	remoteFamilies := multiprotoFamilies(remote)
	localAddPath := addPathByFamily(local)
	remoteAddPath := addPathByFamily(remote)

	_, localASN4 := findASN4(local)
	_, remoteASN4 := findASN4(remote)
	n.ASN4 = localASN4 && remoteASN4

	if hasExtendedMessage(local) && hasExtendedMessage(remote) {
		n.ExtendedMsg = true
		n.MsgSize = bgp.ExtendedMaxMessageSize
	}

	n.RouteRefresh = hasCode(local, capability.CodeRouteRefresh) && hasCode(remote, capability.CodeRouteRefresh)
	n.EnhancedRR = hasCode(local, capability.CodeEnhancedRefresh) && hasCode(remote, capability.CodeEnhancedRefresh)

	// Plain IPv4 unicast is always implicitly negotiated (RFC 4760 §8)
	// even absent an explicit Multiprotocol capability on either side.
	families := map[bgp.Family]bool{{AFI: bgp.AFIIPv4, SAFI: bgp.SAFIUnicast}: true}
	for f := range localFamilies {
		if remoteFamilies[f] {
			families[f] = true
		}
	}

	for f := range families {
		ctx := bgp.OpenContext{
			AFI:     f.AFI,
			SAFI:    f.SAFI,
			ASN4:    n.ASN4,
			MsgSize: n.MsgSize,
			LocalAS: localAS,
			PeerAS:  peerAS,
		}
		// Local "receive" matches the peer's "send"; local "send"
		// matches the peer's "receive" — the two sides describe the
		// same wire behavior from opposite ends.
		if dir, ok := remoteAddPath[f]; ok && (dir == capability.AddPathSend || dir == capability.AddPathBoth) {
			if dir2, ok2 := localAddPath[f]; ok2 && (dir2 == capability.AddPathReceive || dir2 == capability.AddPathBoth) {
				ctx.AddPathReceive = true
			}
		}
		if dir, ok := localAddPath[f]; ok && (dir == capability.AddPathSend || dir == capability.AddPathBoth) {
			if dir2, ok2 := remoteAddPath[f]; ok2 && (dir2 == capability.AddPathReceive || dir2 == capability.AddPathBoth) {
				ctx.AddPathSend = true
			}
		}
		n.Contexts[f] = ctx
		n.Families = append(n.Families, f)
	}

	for _, c := range remote {
		if gr, ok := c.(*capability.GracefulRestart); ok {
			n.GracefulFamilies = gr.Families()
		}
	}

	return n
}

func multiprotoFamilies(caps []capability.Capability) map[bgp.Family]bool {
	out := map[bgp.Family]bool{}
	for _, c := range caps {
		if mp, ok := c.(*capability.Multiprotocol); ok {
			out[mp.Family()] = true
		}
	}
	return out
}

func addPathByFamily(caps []capability.Capability) map[bgp.Family]capability.AddPathDirection {
	out := map[bgp.Family]capability.AddPathDirection{}
	for _, c := range caps {
		if ap, ok := c.(*capability.AddPath); ok {
			for _, e := range ap.Entries() {
				out[e.Family] = e.Direction
			}
		}
	}
	return out
}

func findASN4(caps []capability.Capability) (bgp.ASN, bool) {
	for _, c := range caps {
		if a, ok := c.(*capability.ASN4); ok {
			return a.ASN(), true
		}
	}
	return 0, false
}

func hasExtendedMessage(caps []capability.Capability) bool {
	return hasCode(caps, capability.CodeExtendedMessage)
}

func hasCode(caps []capability.Capability, code capability.Code) bool {
	for _, c := range caps {
		if c.Code() == code {
			return true
		}
	}
	return false
}
