package attribute

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Origin values (RFC 4271 §5.1.1).
type OriginValue byte

const (
	OriginIGP        OriginValue = 0
	OriginEGP        OriginValue = 1
	OriginIncomplete OriginValue = 2
)

func (o OriginValue) String() string {
	switch o {
	case OriginIGP:
		return "igp"
	case OriginEGP:
		return "egp"
	case OriginIncomplete:
		return "incomplete"
	default:
		return fmt.Sprintf("origin-%d", byte(o))
	}
}

// Origin is the well-known mandatory ORIGIN attribute.
type Origin struct {
	value OriginValue
	bytes []byte
}

func NewOrigin(v OriginValue) *Origin {
	return &Origin{value: v, bytes: header(FlagTransitive, CodeOrigin, []byte{byte(v)})}
}

func ParseOrigin(flags byte, value []byte) (*Origin, error) {
	if len(value) != 1 {
		return nil, attrErr("ORIGIN must be exactly 1 octet", value)
	}
	return &Origin{value: OriginValue(value[0]), bytes: header(flags, CodeOrigin, value)}, nil
}

func (o *Origin) Code() Code         { return CodeOrigin }
func (o *Origin) Category() Category { return CategoryWellKnownMandatory }
func (o *Origin) Bytes() []byte      { return o.bytes }
func (o *Origin) Value() OriginValue { return o.value }

// NextHop is the well-known mandatory NEXT_HOP attribute carrying a
// single IPv4 address (RFC 4271 §5.1.3). Non-IPv4 next hops travel in
// MP_REACH_NLRI instead, per §4.1.3.
type NextHop struct {
	ip    net.IP
	bytes []byte
}

func NewNextHop(ip net.IP) *NextHop {
	v4 := ip.To4()
	return &NextHop{ip: v4, bytes: header(FlagTransitive, CodeNextHop, v4)}
}

func ParseNextHop(flags byte, value []byte) (*NextHop, error) {
	if len(value) != 4 {
		return nil, attrErr("NEXT_HOP must be exactly 4 octets", value)
	}
	ip := make(net.IP, 4)
	copy(ip, value)
	return &NextHop{ip: ip, bytes: header(flags, CodeNextHop, value)}, nil
}

func (n *NextHop) Code() Code         { return CodeNextHop }
func (n *NextHop) Category() Category { return CategoryWellKnownMandatory }
func (n *NextHop) Bytes() []byte      { return n.bytes }
func (n *NextHop) IP() net.IP         { return n.ip }

// MED is the optional non-transitive MULTI_EXIT_DISC attribute.
type MED struct {
	value uint32
	bytes []byte
}

func NewMED(v uint32) *MED {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return &MED{value: v, bytes: header(FlagOptional, CodeMultiExitDisc, b)}
}

func ParseMED(flags byte, value []byte) (*MED, error) {
	if len(value) != 4 {
		return nil, attrErr("MULTI_EXIT_DISC must be exactly 4 octets", value)
	}
	return &MED{value: binary.BigEndian.Uint32(value), bytes: header(flags, CodeMultiExitDisc, value)}, nil
}

func (m *MED) Code() Code         { return CodeMultiExitDisc }
func (m *MED) Category() Category { return CategoryOptionalNonTransitive }
func (m *MED) Bytes() []byte      { return m.bytes }
func (m *MED) Value() uint32      { return m.value }

// LocalPref is the well-known discretionary LOCAL_PREF attribute; only
// meaningful between IBGP peers (RFC 4271 §5.1.5).
type LocalPref struct {
	value uint32
	bytes []byte
}

func NewLocalPref(v uint32) *LocalPref {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return &LocalPref{value: v, bytes: header(FlagTransitive, CodeLocalPref, b)}
}

func ParseLocalPref(flags byte, value []byte) (*LocalPref, error) {
	if len(value) != 4 {
		return nil, attrErr("LOCAL_PREF must be exactly 4 octets", value)
	}
	return &LocalPref{value: binary.BigEndian.Uint32(value), bytes: header(flags, CodeLocalPref, value)}, nil
}

func (l *LocalPref) Code() Code         { return CodeLocalPref }
func (l *LocalPref) Category() Category { return CategoryWellKnownDiscretionary }
func (l *LocalPref) Bytes() []byte      { return l.bytes }
func (l *LocalPref) Value() uint32      { return l.value }

// AtomicAggregate is the well-known discretionary, zero-length
// ATOMIC_AGGREGATE attribute (RFC 4271 §5.1.6).
type AtomicAggregate struct {
	bytes []byte
}

func NewAtomicAggregate() *AtomicAggregate {
	return &AtomicAggregate{bytes: header(FlagTransitive, CodeAtomicAggregate, nil)}
}

func ParseAtomicAggregate(flags byte, value []byte) (*AtomicAggregate, error) {
	if len(value) != 0 {
		return nil, attrErr("ATOMIC_AGGREGATE must be empty", value)
	}
	return &AtomicAggregate{bytes: header(flags, CodeAtomicAggregate, value)}, nil
}

func (a *AtomicAggregate) Code() Code         { return CodeAtomicAggregate }
func (a *AtomicAggregate) Category() Category { return CategoryWellKnownDiscretionary }
func (a *AtomicAggregate) Bytes() []byte      { return a.bytes }

// OriginatorID is the optional non-transitive ORIGINATOR_ID attribute
// added by a route reflector (RFC 4456 §8).
type OriginatorID struct {
	id    bgpIdentifierBytes
	bytes []byte
}

type bgpIdentifierBytes [4]byte

func NewOriginatorID(id [4]byte) *OriginatorID {
	return &OriginatorID{id: id, bytes: header(FlagOptional, CodeOriginatorID, id[:])}
}

func ParseOriginatorID(flags byte, value []byte) (*OriginatorID, error) {
	if len(value) != 4 {
		return nil, attrErr("ORIGINATOR_ID must be exactly 4 octets", value)
	}
	var id [4]byte
	copy(id[:], value)
	return &OriginatorID{id: id, bytes: header(flags, CodeOriginatorID, value)}, nil
}

func (o *OriginatorID) Code() Code         { return CodeOriginatorID }
func (o *OriginatorID) Category() Category { return CategoryOptionalNonTransitive }
func (o *OriginatorID) Bytes() []byte      { return o.bytes }
func (o *OriginatorID) IP() net.IP         { return net.IP(o.id[:]) }

// ClusterList is the optional non-transitive CLUSTER_LIST attribute: a
// sequence of 4-byte cluster IDs (RFC 4456 §8).
type ClusterList struct {
	ids   [][4]byte
	bytes []byte
}

func NewClusterList(ids ...[4]byte) *ClusterList {
	value := make([]byte, 0, 4*len(ids))
	for _, id := range ids {
		value = append(value, id[:]...)
	}
	return &ClusterList{ids: ids, bytes: header(FlagOptional, CodeClusterList, value)}
}

func ParseClusterList(flags byte, value []byte) (*ClusterList, error) {
	if len(value)%4 != 0 {
		return nil, attrErr("CLUSTER_LIST length must be a multiple of 4", value)
	}
	var ids [][4]byte
	for i := 0; i < len(value); i += 4 {
		var id [4]byte
		copy(id[:], value[i:i+4])
		ids = append(ids, id)
	}
	return &ClusterList{ids: ids, bytes: header(flags, CodeClusterList, value)}, nil
}

func (c *ClusterList) Code() Code         { return CodeClusterList }
func (c *ClusterList) Category() Category { return CategoryOptionalNonTransitive }
func (c *ClusterList) Bytes() []byte      { return c.bytes }
func (c *ClusterList) IDs() [][4]byte     { return c.ids }

// AIGP carries the Accumulated IGP Metric (RFC 7311), a single TLV of
// type 1 wrapping a uint64 metric.
type AIGP struct {
	metric uint64
	bytes  []byte
}

func NewAIGP(metric uint64) *AIGP {
	value := make([]byte, 11)
	value[0] = 1
	binary.BigEndian.PutUint16(value[1:3], 11)
	binary.BigEndian.PutUint64(value[3:11], metric)
	return &AIGP{metric: metric, bytes: header(FlagOptional, CodeAIGP, value)}
}

func ParseAIGP(flags byte, value []byte) (*AIGP, error) {
	if len(value) != 11 || value[0] != 1 {
		return nil, attrErr("AIGP TLV must be the 11-byte accumulated-metric type", value)
	}
	return &AIGP{metric: binary.BigEndian.Uint64(value[3:11]), bytes: header(flags, CodeAIGP, value)}, nil
}

func (a *AIGP) Code() Code         { return CodeAIGP }
func (a *AIGP) Category() Category { return CategoryOptionalNonTransitive }
func (a *AIGP) Bytes() []byte      { return a.bytes }
func (a *AIGP) Metric() uint64     { return a.metric }
