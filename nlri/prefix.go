package nlri

import (
	"fmt"
	"net"

	"github.com/ebgpd/ebgpd/bgp"
	"github.com/ebgpd/ebgpd/qualifier"
)

// Prefix is a plain IPv4 or IPv6 unicast NLRI: a prefix length octet
// followed by the minimum number of octets holding that many bits
// (RFC 4271 §4.3).
type Prefix struct {
	family bgp.Family
	ip     net.IP
	length int
	bytes  []byte
}

func NewPrefix(family bgp.Family, ip net.IP, length int) *Prefix {
	if family.AFI == bgp.AFIIPv4 {
		if v4 := ip.To4(); v4 != nil {
			ip = v4
		}
	}
	return &Prefix{family: family, ip: ip, length: length, bytes: packPrefix(ip, length)}
}

func packPrefix(ip net.IP, length int) []byte {
	n := cidrBytes(length)
	b := make([]byte, 1+n)
	b[0] = byte(length)
	copy(b[1:], ip[:n])
	return b
}

// UnpackPrefix reads one Prefix off b for the given family, returning
// the NLRI and the number of bytes consumed.
func UnpackPrefix(family bgp.Family, b []byte) (*Prefix, int, error) {
	if len(b) < 1 {
		return nil, 0, nlriErr("prefix NLRI truncated", b)
	}
	length := int(b[0])
	width := 4
	if family.AFI == bgp.AFIIPv6 {
		width = 16
	}
	if length > width*8 {
		return nil, 0, nlriErr("prefix length exceeds address width", b)
	}
	n := cidrBytes(length)
	if len(b) < 1+n {
		return nil, 0, nlriErr("prefix NLRI runs past end of buffer", b)
	}
	ip := make(net.IP, width)
	copy(ip, b[1:1+n])
	return &Prefix{family: family, ip: ip, length: length, bytes: b[:1+n]}, 1 + n, nil
}

func (p *Prefix) Family() bgp.Family { return p.family }
func (p *Prefix) Bytes() []byte      { return p.bytes }
func (p *Prefix) IP() net.IP         { return p.ip }
func (p *Prefix) Length() int        { return p.length }
func (p *Prefix) Index() string      { return string(p.bytes) }
func (p *Prefix) String() string     { return fmt.Sprintf("%s/%d", p.ip, p.length) }

// LabeledPrefix is an NLRI-per-AFI labeled-unicast route: a label
// stack followed by a plain prefix body (RFC 8277 §2).
type LabeledPrefix struct {
	family bgp.Family
	labels qualifier.Labels
	ip     net.IP
	length int
	bytes  []byte
}

func NewLabeledPrefix(family bgp.Family, labels qualifier.Labels, ip net.IP, length int) *LabeledPrefix {
	n := cidrBytes(length)
	value := append(append([]byte{}, labels.Bytes()...), ip[:n]...)
	totalBits := len(labels.Bytes())*8 + length
	b := make([]byte, 1+len(value))
	b[0] = byte(totalBits)
	copy(b[1:], value)
	return &LabeledPrefix{family: family, labels: labels, ip: ip, length: length, bytes: b}
}

func UnpackLabeledPrefix(family bgp.Family, b []byte, withdraw bool) (*LabeledPrefix, int, error) {
	if len(b) < 1 {
		return nil, 0, nlriErr("labeled prefix NLRI truncated", b)
	}
	totalBits := int(b[0])
	totalBytes := cidrBytes(totalBits)
	if len(b) < 1+totalBytes {
		return nil, 0, nlriErr("labeled prefix NLRI runs past end of buffer", b)
	}
	body := b[1 : 1+totalBytes]
	labels, labelLen, err := qualifier.UnpackLabels(body, withdraw)
	if err != nil {
		return nil, 0, err
	}
	prefixBits := totalBits - labelLen*8
	if prefixBits < 0 {
		return nil, 0, nlriErr("labeled prefix length underflows label stack", b)
	}
	width := 4
	if family.AFI == bgp.AFIIPv6 {
		width = 16
	}
	ip := make(net.IP, width)
	copy(ip, body[labelLen:])
	return &LabeledPrefix{family: family, labels: labels, ip: ip, length: prefixBits, bytes: b[:1+totalBytes]}, 1 + totalBytes, nil
}

func (p *LabeledPrefix) Family() bgp.Family        { return p.family }
func (p *LabeledPrefix) Bytes() []byte             { return p.bytes }
func (p *LabeledPrefix) IP() net.IP                { return p.ip }
func (p *LabeledPrefix) Length() int                { return p.length }
func (p *LabeledPrefix) Labels() qualifier.Labels   { return p.labels }
func (p *LabeledPrefix) Index() string {
	// Label value is excluded from the dedup key: the same (RD-less)
	// prefix with a different label is a re-advertisement, not a
	// distinct route (RFC 8277 §3).
	n := cidrBytes(p.length)
	return fmt.Sprintf("%s/%d", p.ip[:n], p.length)
}
func (p *LabeledPrefix) String() string { return fmt.Sprintf("%s/%d label=%v", p.ip, p.length, p.labels.Values()) }

// VPNPrefix is an L3VPN labeled-VPN-unicast route: label stack + RD +
// prefix body (RFC 4364 §4.3.2 / RFC 4659 for IPv6).
type VPNPrefix struct {
	family bgp.Family
	rd     qualifier.RD
	labels qualifier.Labels
	ip     net.IP
	length int
	bytes  []byte
}

func NewVPNPrefix(family bgp.Family, rd qualifier.RD, labels qualifier.Labels, ip net.IP, length int) *VPNPrefix {
	n := cidrBytes(length)
	value := append(append([]byte{}, labels.Bytes()...), rd.Bytes()...)
	value = append(value, ip[:n]...)
	totalBits := (len(labels.Bytes())+8)*8 + length
	b := make([]byte, 1+len(value))
	b[0] = byte(totalBits)
	copy(b[1:], value)
	return &VPNPrefix{family: family, rd: rd, labels: labels, ip: ip, length: length, bytes: b}
}

func UnpackVPNPrefix(family bgp.Family, b []byte, withdraw bool) (*VPNPrefix, int, error) {
	if len(b) < 1 {
		return nil, 0, nlriErr("VPN prefix NLRI truncated", b)
	}
	totalBits := int(b[0])
	totalBytes := cidrBytes(totalBits)
	if len(b) < 1+totalBytes {
		return nil, 0, nlriErr("VPN prefix NLRI runs past end of buffer", b)
	}
	body := b[1 : 1+totalBytes]
	labels, labelLen, err := qualifier.UnpackLabels(body, withdraw)
	if err != nil {
		return nil, 0, err
	}
	if len(body) < labelLen+8 {
		return nil, 0, nlriErr("VPN prefix NLRI missing route distinguisher", b)
	}
	rd, err := qualifier.UnpackRD(body[labelLen : labelLen+8])
	if err != nil {
		return nil, 0, err
	}
	prefixBits := totalBits - labelLen*8 - 64
	if prefixBits < 0 {
		return nil, 0, nlriErr("VPN prefix length underflows label+RD", b)
	}
	width := 4
	if family.AFI == bgp.AFIIPv6 {
		width = 16
	}
	ip := make(net.IP, width)
	copy(ip, body[labelLen+8:])
	return &VPNPrefix{family: family, rd: rd, labels: labels, ip: ip, length: prefixBits, bytes: b[:1+totalBytes]}, 1 + totalBytes, nil
}

func (p *VPNPrefix) Family() bgp.Family      { return p.family }
func (p *VPNPrefix) Bytes() []byte           { return p.bytes }
func (p *VPNPrefix) RD() qualifier.RD        { return p.rd }
func (p *VPNPrefix) Labels() qualifier.Labels { return p.labels }
func (p *VPNPrefix) IP() net.IP              { return p.ip }
func (p *VPNPrefix) Length() int             { return p.length }
func (p *VPNPrefix) Index() string {
	n := cidrBytes(p.length)
	return fmt.Sprintf("%s:%s/%d", p.rd, p.ip[:n], p.length)
}
func (p *VPNPrefix) String() string {
	return fmt.Sprintf("%s:%s/%d label=%v", p.rd, p.ip, p.length, p.labels.Values())
}
