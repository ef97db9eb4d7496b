package capability

import (
	"github.com/ebgpd/ebgpd/bgp"
)

// AddPathDirection is the send/receive/both field of one ADD-PATH
// per-family entry (RFC 7911 §3).
type AddPathDirection byte

const (
	AddPathReceive AddPathDirection = 1
	AddPathSend    AddPathDirection = 2
	AddPathBoth    AddPathDirection = 3
)

// AddPathEntry is one (family, direction) tuple within the ADD-PATH
// capability.
type AddPathEntry struct {
	Family    bgp.Family
	Direction AddPathDirection
}

// AddPath is the ADD-PATH capability (RFC 7911 §3): a list of
// per-family send/receive/both entries.
type AddPath struct {
	entries []AddPathEntry
}

func NewAddPath(entries ...AddPathEntry) *AddPath { return &AddPath{entries: entries} }

func ParseAddPath(value []byte) (*AddPath, error) {
	if len(value)%4 != 0 {
		return nil, capErr("ADD-PATH capability length must be a multiple of 4")
	}
	entries := make([]AddPathEntry, len(value)/4)
	for i := range entries {
		off := i * 4
		family := bgp.Family{AFI: bgp.AFI(uint16(value[off])<<8 | uint16(value[off+1])), SAFI: bgp.SAFI(value[off+2])}
		entries[i] = AddPathEntry{Family: family, Direction: AddPathDirection(value[off+3])}
	}
	return &AddPath{entries: entries}, nil
}

func (a *AddPath) Code() Code              { return CodeAddPath }
func (a *AddPath) Entries() []AddPathEntry { return a.entries }
func (a *AddPath) Bytes() []byte {
	value := make([]byte, 0, 4*len(a.entries))
	for _, e := range a.entries {
		fam := e.Family.Pack()
		value = append(value, fam[0], fam[1], fam[2], byte(e.Direction))
	}
	return header(CodeAddPath, value)
}

// GracefulRestartFamily is one AFI/SAFI/forwarding-state-preserved
// entry within the Graceful Restart capability.
type GracefulRestartFamily struct {
	Family              bgp.Family
	ForwardingPreserved bool
}

// GracefulRestart is the Graceful Restart capability (RFC 4724 §3).
type GracefulRestart struct {
	restarting bool
	restartTime uint16 // seconds, 12 bits on the wire
	families    []GracefulRestartFamily
}

func NewGracefulRestart(restarting bool, restartTime uint16, families ...GracefulRestartFamily) *GracefulRestart {
	return &GracefulRestart{restarting: restarting, restartTime: restartTime, families: families}
}

func ParseGracefulRestart(value []byte) (*GracefulRestart, error) {
	if len(value) < 2 || (len(value)-2)%4 != 0 {
		return nil, capErr("GRACEFUL-RESTART capability has unexpected length")
	}
	flagsAndTime := uint16(value[0])<<8 | uint16(value[1])
	restarting := flagsAndTime&0x8000 != 0
	restartTime := flagsAndTime & 0x0fff
	var families []GracefulRestartFamily
	for off := 2; off+4 <= len(value); off += 4 {
		family := bgp.Family{AFI: bgp.AFI(uint16(value[off])<<8 | uint16(value[off+1])), SAFI: bgp.SAFI(value[off+2])}
		families = append(families, GracefulRestartFamily{Family: family, ForwardingPreserved: value[off+3]&0x80 != 0})
	}
	return &GracefulRestart{restarting: restarting, restartTime: restartTime, families: families}, nil
}

func (g *GracefulRestart) Code() Code                      { return CodeGracefulRestart }
func (g *GracefulRestart) Restarting() bool                { return g.restarting }
func (g *GracefulRestart) RestartTime() uint16              { return g.restartTime }
func (g *GracefulRestart) Families() []GracefulRestartFamily { return g.families }
func (g *GracefulRestart) Bytes() []byte {
	var flagsAndTime uint16 = g.restartTime & 0x0fff
	if g.restarting {
		flagsAndTime |= 0x8000
	}
	value := []byte{byte(flagsAndTime >> 8), byte(flagsAndTime)}
	for _, f := range g.families {
		fam := f.Family.Pack()
		var flags byte
		if f.ForwardingPreserved {
			flags = 0x80
		}
		value = append(value, fam[0], fam[1], fam[2], flags)
	}
	return header(CodeGracefulRestart, value)
}

// LongLivedGRFamily is one per-family entry in the Long-Lived Graceful
// Restart capability (draft-ietf-idr-long-lived-gr §4.1): a 24-bit
// stale-route retention time.
type LongLivedGRFamily struct {
	Family              bgp.Family
	ForwardingPreserved bool
	StaleTime           uint32 // 24 bits on the wire
}

type LongLivedGR struct {
	families []LongLivedGRFamily
}

func NewLongLivedGR(families ...LongLivedGRFamily) *LongLivedGR { return &LongLivedGR{families: families} }

func ParseLongLivedGR(value []byte) (*LongLivedGR, error) {
	if len(value)%7 != 0 {
		return nil, capErr("LONG-LIVED-GRACEFUL-RESTART capability length must be a multiple of 7")
	}
	var families []LongLivedGRFamily
	for off := 0; off+7 <= len(value); off += 7 {
		family := bgp.Family{AFI: bgp.AFI(uint16(value[off])<<8 | uint16(value[off+1])), SAFI: bgp.SAFI(value[off+2])}
		forwarding := value[off+3]&0x80 != 0
		staleTime := uint32(value[off+4])<<16 | uint32(value[off+5])<<8 | uint32(value[off+6])
		families = append(families, LongLivedGRFamily{Family: family, ForwardingPreserved: forwarding, StaleTime: staleTime})
	}
	return &LongLivedGR{families: families}, nil
}

func (l *LongLivedGR) Code() Code                     { return CodeLongLivedGR }
func (l *LongLivedGR) Families() []LongLivedGRFamily { return l.families }
func (l *LongLivedGR) Bytes() []byte {
	var value []byte
	for _, f := range l.families {
		fam := f.Family.Pack()
		var flags byte
		if f.ForwardingPreserved {
			flags = 0x80
		}
		value = append(value, fam[0], fam[1], fam[2], flags,
			byte(f.StaleTime>>16), byte(f.StaleTime>>8), byte(f.StaleTime))
	}
	return header(CodeLongLivedGR, value)
}

// FQDN is the vendor-interop hostname/domain-name capability
// (draft-walton-bgp-hostname-capability §3): two Pascal-style
// (length-prefixed) strings.
type FQDN struct {
	hostname string
	domain   string
}

func NewFQDN(hostname, domain string) *FQDN { return &FQDN{hostname: hostname, domain: domain} }

func ParseFQDN(value []byte) (*FQDN, error) {
	if len(value) < 1 {
		return nil, capErr("FQDN capability truncated")
	}
	hostLen := int(value[0])
	if len(value) < 1+hostLen+1 {
		return nil, capErr("FQDN capability hostname runs past end")
	}
	hostname := string(value[1 : 1+hostLen])
	domainLenOff := 1 + hostLen
	domainLen := int(value[domainLenOff])
	if len(value) < domainLenOff+1+domainLen {
		return nil, capErr("FQDN capability domain runs past end")
	}
	domain := string(value[domainLenOff+1 : domainLenOff+1+domainLen])
	return &FQDN{hostname: hostname, domain: domain}, nil
}

func (f *FQDN) Code() Code        { return CodeFQDN }
func (f *FQDN) Hostname() string  { return f.hostname }
func (f *FQDN) Domain() string    { return f.domain }
func (f *FQDN) Bytes() []byte {
	value := append([]byte{byte(len(f.hostname))}, []byte(f.hostname)...)
	value = append(value, byte(len(f.domain)))
	value = append(value, []byte(f.domain)...)
	return header(CodeFQDN, value)
}
